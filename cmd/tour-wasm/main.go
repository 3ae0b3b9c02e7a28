//go:build js && wasm

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"syscall/js"

	"github.com/menta2k/tour-viewer/pkg/dom/jsdom"
	"github.com/menta2k/tour-viewer/pkg/layout"
	"github.com/menta2k/tour-viewer/pkg/metrics"
	"github.com/menta2k/tour-viewer/pkg/tour"
	"github.com/menta2k/tour-viewer/pkg/viewer"
)

var document = js.Global().Get("document")

func main() {
	logger := log.New(os.Stderr, "tour: ", 0)

	t, err := loadTour()
	if err != nil {
		logger.Printf("failed to load tour: %v", err)
		return
	}

	caps := detectCapabilities()
	setBodyClasses(caps)

	var v *viewer.Viewer
	r, err := newMarzipano(document.Call("querySelector", "#pano"), t.Settings.MouseViewMode,
		func(target string) {
			if err := v.SwitchScene(target); err == nil {
				syncUI(v.State())
			}
		},
		func(kind tour.PanelKind, index int) bool {
			open, err := v.TogglePanel(kind, index)
			if err != nil {
				logger.Printf("%v", err)
			}
			return open
		})
	if err != nil {
		logger.Printf("%v", err)
		return
	}

	v, err = viewer.New(t, r, caps, viewer.WithLogger(logger))
	if err != nil {
		logger.Printf("failed to create viewer: %v", err)
		return
	}
	bindControls(v)
	syncUI(v.State())

	startMapLayout(v, logger)

	select {}
}

// loadTour reads window.APP_DATA when the page defines it and falls back
// to the server's tour endpoint.
func loadTour() (*tour.Tour, error) {
	if data := js.Global().Get("APP_DATA"); data.Truthy() {
		raw := js.Global().Get("JSON").Call("stringify", data).String()
		return tour.Parse([]byte(raw))
	}

	resp, err := http.Get("/api/tour")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET /api/tour: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return tour.Parse(body)
}

func detectCapabilities() viewer.Capabilities {
	window := js.Global()
	mobile := false
	if mq := window.Get("matchMedia"); mq.Truthy() {
		mobile = window.Call("matchMedia", "(max-width: 500px), (max-height: 500px)").Get("matches").Bool()
	}
	return viewer.Capabilities{
		Fullscreen: document.Get("fullscreenEnabled").Truthy(),
		Mobile:     mobile,
		Touch:      window.Get("ontouchstart").Type() != js.TypeUndefined,
	}
}

func setBodyClasses(caps viewer.Capabilities) {
	classes := document.Get("body").Get("classList")
	if caps.Mobile {
		classes.Call("add", "mobile")
	} else {
		classes.Call("add", "desktop")
	}
	if caps.Touch {
		classes.Call("remove", "no-touch")
		classes.Call("add", "touch")
	}
}

// bindControls wires the scene list, its toggle and the autorotate toggle
func bindControls(v *viewer.Viewer) {
	scenes := document.Call("querySelectorAll", "#sceneList .scene")
	for i := 0; i < scenes.Get("length").Int(); i++ {
		el := scenes.Call("item", i)
		id := el.Call("getAttribute", "data-id").String()
		onClick(el, true, func() {
			if err := v.SwitchScene(id); err == nil {
				syncUI(v.State())
			}
		})
	}

	if el := document.Call("querySelector", "#sceneListToggle"); el.Truthy() {
		onClick(el, false, func() {
			v.ToggleSceneList()
			syncUI(v.State())
		})
	}
	if el := document.Call("querySelector", "#autorotateToggle"); el.Truthy() {
		onClick(el, false, func() {
			v.ToggleAutorotate()
			syncUI(v.State())
		})
	}
	if el := document.Call("querySelector", "#fullscreenToggle"); el.Truthy() {
		onClick(el, false, func() {
			if document.Get("fullscreenElement").Truthy() {
				document.Call("exitFullscreen")
			} else {
				document.Get("documentElement").Call("requestFullscreen")
			}
		})
	}
}

// syncUI reflects the viewer state in the page chrome
func syncUI(st viewer.State) {
	if el := document.Call("querySelector", ".sceneName"); el.Truthy() {
		el.Set("innerHTML", st.SceneName)
	}

	scenes := document.Call("querySelectorAll", "#sceneList .scene")
	for i := 0; i < scenes.Get("length").Int(); i++ {
		el := scenes.Call("item", i)
		toggleClass(el, "current", el.Call("getAttribute", "data-id").String() == st.Current)
	}

	toggleClass(document.Call("querySelector", "#sceneList"), "enabled", st.SceneListOpen)
	toggleClass(document.Call("querySelector", "#sceneListToggle"), "enabled", st.SceneListOpen)
	toggleClass(document.Call("querySelector", "#autorotateToggle"), "enabled", st.Autorotate)
}

// startMapLayout positions the floor-plan buttons and routes their clicks
// to the viewer. Pages without a map are left alone.
func startMapLayout(v *viewer.Viewer, logger *log.Logger) {
	doc := jsdom.New()
	mode := layout.ModePosition
	if el := document.Call("querySelector", layout.DefaultContainerSelector); el.Truthy() && el.Call("hasAttribute", "data-layout-mode").Bool() {
		if m, err := layout.ParseMode(el.Call("getAttribute", "data-layout-mode").String()); err == nil {
			mode = m
		}
	}

	engine := layout.New(doc, metrics.NewResolver(metrics.WithLogger(logger)),
		layout.WithMode(mode),
		layout.WithLogger(logger),
	)
	if err := engine.Init(context.Background()); err != nil {
		logger.Printf("map layout disabled: %v", err)
		return
	}

	buttons := document.Call("querySelectorAll", layout.DefaultOverlaySelector)
	for i := 0; i < buttons.Get("length").Int(); i++ {
		el := buttons.Call("item", i)
		href := el.Call("getAttribute", "href").String()
		onClick(el, true, func() {
			if parent := js.Global().Get("parent"); parent.Truthy() {
				parent.Call("postMessage", href, "*")
			}
			if err := v.Navigate(href); err != nil {
				logger.Printf("%v", err)
			}
		})
	}
}

func onClick(el js.Value, preventDefault bool, fn func()) {
	el.Call("addEventListener", "click", js.FuncOf(func(this js.Value, args []js.Value) any {
		if preventDefault && len(args) > 0 {
			args[0].Call("preventDefault")
		}
		go fn()
		return nil
	}))
}

func toggleClass(el js.Value, class string, on bool) {
	if !el.Truthy() {
		return
	}
	if on {
		el.Get("classList").Call("add", class)
	} else {
		el.Get("classList").Call("remove", class)
	}
}
