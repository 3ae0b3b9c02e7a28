//go:build js && wasm

package main

import (
	"errors"
	"fmt"
	"math"
	"syscall/js"
	"time"

	"github.com/menta2k/tour-viewer/pkg/tour"
	"github.com/menta2k/tour-viewer/pkg/viewer"
)

// marzipano renders scenes with the Marzipano library loaded on the page
type marzipano struct {
	lib      js.Value
	viewer   js.Value
	document js.Value
	onLink   func(target string)
	onPanel  func(kind tour.PanelKind, index int) bool
	stop     js.Func
	funcs    []js.Func
}

func newMarzipano(pano js.Value, mouseViewMode string, onLink func(string), onPanel func(tour.PanelKind, int) bool) (*marzipano, error) {
	lib := js.Global().Get("Marzipano")
	if lib.IsUndefined() {
		return nil, errors.New("marzipano library not loaded")
	}
	opts := map[string]any{
		"controls": map[string]any{"mouseViewMode": mouseViewMode},
	}
	return &marzipano{
		lib:      lib,
		viewer:   lib.Get("Viewer").New(pano, opts),
		document: js.Global().Get("document"),
		onLink:   onLink,
		onPanel:  onPanel,
		stop:     js.FuncOf(stopPropagation),
	}, nil
}

type marzipanoScene struct {
	scene js.Value
	view  js.Value
}

func (m *marzipano) CreateScene(spec viewer.SceneSpec) (viewer.SceneHandle, error) {
	source := m.lib.Get("ImageUrlSource").Call("fromString", spec.TileURL,
		map[string]any{"cubeMapPreviewUrl": spec.PreviewURL})

	levels := make([]any, len(spec.Levels))
	for i, l := range spec.Levels {
		level := map[string]any{"tileSize": l.TileSize, "size": l.Size}
		if l.FallbackOnly {
			level["fallbackOnly"] = true
		}
		levels[i] = level
	}
	geometry := m.lib.Get("CubeGeometry").New(levels)

	limiter := m.lib.Get("RectilinearView").Get("limit").Call("traditional",
		spec.Limits.FaceSize, spec.Limits.MaxResolutionFov, spec.Limits.MaxFov)
	view := m.lib.Get("RectilinearView").New(viewParams(spec.InitialView), limiter)

	scene := m.viewer.Call("createScene", map[string]any{
		"source":        source,
		"geometry":      geometry,
		"view":          view,
		"pinFirstLevel": spec.PinFirstLevel,
	})
	return &marzipanoScene{scene: scene, view: view}, nil
}

func (m *marzipano) CreateHotspot(h viewer.SceneHandle, spec viewer.HotspotSpec) error {
	s := h.(*marzipanoScene)
	el := m.document.Call("createElement", "div")

	switch spec.Kind {
	case viewer.HotspotLink:
		el.Get("classList").Call("add", "hotspot", "link-hotspot")
		icon := m.document.Call("createElement", "img")
		icon.Set("src", "img/link.png")
		icon.Get("classList").Call("add", "link-hotspot-icon")
		icon.Get("style").Set("transform", fmt.Sprintf("rotate(%grad)", spec.Rotation))
		el.Call("appendChild", icon)

		tooltip := m.document.Call("createElement", "div")
		tooltip.Get("classList").Call("add", "hotspot-tooltip", "link-hotspot-tooltip")
		tooltip.Set("innerHTML", spec.TargetName)
		el.Call("appendChild", tooltip)

		target := spec.Target
		m.listen(el, "click", func() { m.onLink(target) })
	default:
		el.Get("classList").Call("add", "hotspot", "info-hotspot", string(spec.Kind)+"-hotspot")
		header := m.document.Call("createElement", "div")
		header.Get("classList").Call("add", "info-hotspot-header")
		title := m.document.Call("createElement", "div")
		title.Get("classList").Call("add", "info-hotspot-title")
		title.Set("innerHTML", spec.Title)
		header.Call("appendChild", title)
		el.Call("appendChild", header)

		text := m.document.Call("createElement", "div")
		text.Get("classList").Call("add", "info-hotspot-text")
		text.Set("innerHTML", spec.Text)
		el.Call("appendChild", text)

		kind, index := tour.PanelKind(spec.Kind), spec.Index
		m.listen(header, "click", func() {
			if m.onPanel(kind, index) {
				el.Get("classList").Call("add", "visible")
			} else {
				el.Get("classList").Call("remove", "visible")
			}
		})
	}

	// Keep touch and wheel gestures on the hotspot from moving the view
	for _, ev := range []string{"touchstart", "touchmove", "touchend", "wheel", "mousewheel"} {
		el.Call("addEventListener", ev, m.stop)
	}

	s.scene.Call("hotspotContainer").Call("createHotspot", el,
		map[string]any{"yaw": spec.Yaw, "pitch": spec.Pitch})
	return nil
}

func (m *marzipano) SwitchTo(h viewer.SceneHandle) {
	h.(*marzipanoScene).scene.Call("switchTo")
}

func (m *marzipano) SetParameters(h viewer.SceneHandle, p tour.ViewParameters) {
	h.(*marzipanoScene).view.Call("setParameters", viewParams(p))
}

func (m *marzipano) StartMovement(a viewer.Autorotate) {
	m.viewer.Call("startMovement", m.autorotate(a))
}

func (m *marzipano) StopMovement() {
	m.viewer.Call("stopMovement")
}

func (m *marzipano) SetIdleMovement(d time.Duration, a viewer.Autorotate) {
	if d == viewer.NoIdle {
		m.viewer.Call("setIdleMovement", math.Inf(1))
		return
	}
	m.viewer.Call("setIdleMovement", d.Milliseconds(), m.autorotate(a))
}

func (m *marzipano) autorotate(a viewer.Autorotate) js.Value {
	return m.lib.Call("autorotate", map[string]any{
		"yawSpeed":    a.YawSpeed,
		"targetPitch": a.TargetPitch,
		"targetFov":   a.TargetFov,
	})
}

func (m *marzipano) listen(el js.Value, event string, fn func()) {
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		go fn()
		return nil
	})
	m.funcs = append(m.funcs, f)
	el.Call("addEventListener", event, f)
}

func stopPropagation(this js.Value, args []js.Value) any {
	if len(args) > 0 {
		args[0].Call("stopPropagation")
	}
	return nil
}

func viewParams(p tour.ViewParameters) map[string]any {
	return map[string]any{"yaw": p.Yaw, "pitch": p.Pitch, "fov": p.Fov}
}
