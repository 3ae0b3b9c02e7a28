package server

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/menta2k/tour-viewer/pkg/tour"
)

// TourPage holds data for the tour page template
type TourPage struct {
	Title      string
	Scenes     []tour.Scene
	Map        *tour.MapConfig
	StaticPath string
	LayoutMode string
	Autorotate bool
	Fullscreen bool
}

// tourPage renders the viewer shell: the panorama element, the scene list
// and the floor-plan map with its percentage-anchored buttons.
func tourPage(data TourPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
		b.WriteString("<meta charset=\"utf-8\">\n")
		b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1, maximum-scale=1, user-scalable=no\">\n")
		fmt.Fprintf(&b, "<title>%s</title>\n", templ.EscapeString(data.Title))
		fmt.Fprintf(&b, "<link rel=\"stylesheet\" href=\"%s/style.css\">\n", data.StaticPath)
		b.WriteString("</head>\n")

		classes := []string{"no-touch"}
		if len(data.Scenes) > 1 {
			classes = append(classes, "multiple-scenes")
		} else {
			classes = append(classes, "single-scene")
		}
		if data.Fullscreen {
			classes = append(classes, "fullscreen-enabled")
		}
		fmt.Fprintf(&b, "<body class=\"%s\">\n", strings.Join(classes, " "))
		b.WriteString("<div id=\"pano\"></div>\n")
		b.WriteString("<div id=\"titleBar\"><h1 class=\"sceneName\"></h1></div>\n")
		b.WriteString("<a href=\"javascript:void(0)\" id=\"sceneListToggle\" class=\"enabled\"></a>\n")
		if data.Fullscreen {
			b.WriteString("<a href=\"javascript:void(0)\" id=\"fullscreenToggle\"></a>\n")
		}

		b.WriteString("<div id=\"sceneList\" class=\"enabled\">\n<ul class=\"scenes\">\n")
		for _, s := range data.Scenes {
			fmt.Fprintf(&b, "<a href=\"#%s\" class=\"scene\" data-id=\"%s\"><li class=\"text\">%s</li></a>\n",
				templ.EscapeString(s.ID), templ.EscapeString(s.ID), templ.EscapeString(s.Name))
		}
		b.WriteString("</ul>\n</div>\n")

		if data.Map != nil {
			writeMap(&b, data.Map, data.StaticPath, data.LayoutMode)
		}

		fmt.Fprintf(&b, "<a href=\"javascript:void(0)\" id=\"autorotateToggle\"%s></a>\n", enabledClass(data.Autorotate))
		fmt.Fprintf(&b, "<script src=\"%s/wasm_exec.js\"></script>\n", data.StaticPath)
		fmt.Fprintf(&b, "<script>const go = new Go(); WebAssembly.instantiateStreaming(fetch(%q), go.importObject).then(r => go.run(r.instance));</script>\n",
			data.StaticPath+"/tour.wasm")
		b.WriteString("</body>\n</html>\n")

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeMap(b *strings.Builder, m *tour.MapConfig, staticPath, mode string) {
	attrs := ""
	if mode != "" {
		attrs = fmt.Sprintf(" data-layout-mode=\"%s\"", templ.EscapeString(mode))
	}
	if m.Image != "" {
		attrs += fmt.Sprintf(" style=\"background-image: url(&quot;%s&quot;)\"", templ.EscapeString(assetURL(staticPath, m.Image)))
	}
	fmt.Fprintf(b, "<div id=\"map\"%s>\n", attrs)
	for _, btn := range m.Buttons {
		fmt.Fprintf(b, "<a class=\"map-button\" id=\"%s\" href=\"%s\" data-left-percent=\"%s\" data-top-percent=\"%s\">",
			templ.EscapeString(btn.ID),
			templ.EscapeString(btn.Href),
			strconv.FormatFloat(btn.LeftPercent, 'f', -1, 64),
			strconv.FormatFloat(btn.TopPercent, 'f', -1, 64))
		b.WriteString("<div class=\"map-button-header\"><div class=\"map-button-icon-wrapper\"></div>")
		fmt.Fprintf(b, "<div class=\"map-button-title\">%s</div></div></a>\n", templ.EscapeString(btn.Title))
	}
	b.WriteString("</div>\n")
}

func assetURL(staticPath, image string) string {
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") || strings.HasPrefix(image, "data:") {
		return image
	}
	return staticPath + "/" + strings.TrimPrefix(image, "/")
}

func enabledClass(on bool) string {
	if on {
		return " class=\"enabled\""
	}
	return ""
}
