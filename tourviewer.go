// Package tourviewer positions floor-plan hotspots over a contained map
// image and drives panoramic tour scenes.
//
// The floor plan of a tour is an image drawn with contain semantics inside
// a resizable container. Hotspot buttons are declared as percentages of the
// image, so their pixel position depends on where the image actually ends
// up inside the container. This package ties the pieces together for
// server-side and command-line use.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		tourviewer "github.com/menta2k/tour-viewer"
//		"github.com/menta2k/tour-viewer/pkg/layout"
//		"github.com/menta2k/tour-viewer/pkg/tour"
//	)
//
//	func main() {
//		t, err := tour.Load("tour.yaml")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		tv := tourviewer.New(nil)
//		result, err := tv.ComputeLayout(context.Background(), t.Map, 1280, 720, layout.ModePosition)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		for _, b := range result.Buttons {
//			fmt.Printf("%s at %.0f,%.0f\n", b.ID, b.X, b.Y)
//		}
//	}
//
// The package consists of these main components:
//
// 1. Metrics (pkg/metrics): Resolves and caches natural image sizes
// 2. Containment (pkg/containment): Computes the rendered box of a contained image
// 3. Hotspot (pkg/hotspot): Tracks overlays and their percentage anchors
// 4. Layout (pkg/layout): Repositions overlays whenever the container changes
// 5. Viewer (pkg/viewer): Drives a panorama renderer from a tour configuration
//
// Features:
//
//   - Letterbox-aware hotspot placement for any container size
//   - Optional scale-aware mode that resizes hotspots with the map
//   - Debug previews of a layout rendered to jpg, png or webp
//   - Anchor suggestions from a vision model (Ollama or llama.cpp)
//   - HTTP server and CLI tool
package tourviewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"log"
	"strings"

	"github.com/menta2k/tour-viewer/internal/config"
	"github.com/menta2k/tour-viewer/pkg/dom"
	"github.com/menta2k/tour-viewer/pkg/hotspot"
	"github.com/menta2k/tour-viewer/pkg/layout"
	"github.com/menta2k/tour-viewer/pkg/metrics"
	"github.com/menta2k/tour-viewer/pkg/preview"
	"github.com/menta2k/tour-viewer/pkg/tour"
	"github.com/menta2k/tour-viewer/pkg/types"
)

// Version of the tour viewer library
const Version = "1.0.0"

// ErrNoMap is returned when a tour has no floor plan to lay out
var ErrNoMap = errors.New("tour has no map")

// TourViewer provides a high-level interface for laying out floor-plan
// hotspots outside a browser.
type TourViewer struct {
	cfg      *config.Config
	fsys     fs.FS
	resolver *metrics.Resolver
	logger   *log.Logger
}

// New creates a TourViewer with default configuration. Relative map image
// paths are read from fsys, or from the working directory when fsys is nil.
func New(fsys fs.FS) *TourViewer {
	return NewWithConfig(config.Default(), fsys, nil)
}

// NewWithConfig creates a TourViewer with custom configuration
func NewWithConfig(cfg *config.Config, fsys fs.FS, logger *log.Logger) *TourViewer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	opts := []metrics.Option{
		metrics.WithTimeout(cfg.MetricsTimeout()),
		metrics.WithUserAgent(cfg.Metrics.UserAgent),
		metrics.WithLogger(logger),
	}
	if fsys != nil {
		opts = append(opts, metrics.WithFS(fsys))
	}

	return &TourViewer{
		cfg:      cfg,
		fsys:     fsys,
		resolver: metrics.NewResolver(opts...),
		logger:   logger,
	}
}

// ButtonLayout is the computed position of one map button
type ButtonLayout struct {
	ID        string       `json:"id"`
	Title     string       `json:"title,omitempty"`
	Href      string       `json:"href,omitempty"`
	Anchor    types.Anchor `json:"anchor"`
	X         float64      `json:"x"`
	Y         float64      `json:"y"`
	Scale     float64      `json:"scale"`
	Transform string       `json:"transform"`
}

// LayoutResult contains the container state and every placed button
type LayoutResult struct {
	Mode    string               `json:"mode"`
	State   types.ContainerState `json:"state"`
	Buttons []ButtonLayout       `json:"buttons"`
}

// Placements returns the button positions in the form preview.Render takes
func (r *LayoutResult) Placements() []types.Placement {
	out := make([]types.Placement, 0, len(r.Buttons))
	for _, b := range r.Buttons {
		out = append(out, types.Placement{ID: b.ID, Anchor: b.Anchor, X: b.X, Y: b.Y, Scale: b.Scale})
	}
	return out
}

// Resolver returns the shared image metrics cache
func (tv *TourViewer) Resolver() *metrics.Resolver {
	return tv.resolver
}

// MapDocument builds an in-memory page holding the map container at
// width x height and one overlay per map button. The returned map links
// element identities back to their buttons.
func (tv *TourViewer) MapDocument(m *tour.MapConfig, width, height float64) (*dom.MemDocument, map[string]tour.MapButton) {
	doc := dom.NewDocument(width, height)

	container := dom.NewNode(selectorName(tv.cfg.Layout.ContainerSelector, "#"))
	container.SetGeometry(dom.Geometry{Width: width, Height: height})
	if m.Image != "" {
		container.SetSheetStyle("background-image", fmt.Sprintf("url(%q)", m.Image))
	}
	doc.Append(container)

	buttons := make(map[string]tour.MapButton, len(m.Buttons))
	class := selectorName(tv.cfg.Layout.OverlaySelector, ".")
	for _, b := range m.Buttons {
		n := dom.NewNode(b.ID, class)
		hotspot.WriteAnchor(n, types.Anchor{XPercent: b.LeftPercent, YPercent: b.TopPercent})
		doc.Append(n)
		buttons[n.ID()] = b
	}
	return doc, buttons
}

// ComputeLayout lays out the buttons of m in a width x height container
func (tv *TourViewer) ComputeLayout(ctx context.Context, m *tour.MapConfig, width, height float64, mode layout.Mode) (*LayoutResult, error) {
	if m == nil || len(m.Buttons) == 0 {
		return nil, ErrNoMap
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid container size %gx%g", width, height)
	}

	doc, buttons := tv.MapDocument(m, width, height)
	engine := layout.New(doc, tv.resolver,
		layout.WithMode(mode),
		layout.WithDebounce(tv.cfg.Debounce()),
		layout.WithContainerSelector(tv.cfg.Layout.ContainerSelector),
		layout.WithOverlaySelector(tv.cfg.Layout.OverlaySelector),
		layout.WithObserveBody(false),
		layout.WithLogger(tv.logger),
	)
	if err := engine.Init(ctx); err != nil {
		return nil, fmt.Errorf("layout failed: %w", err)
	}

	result := &LayoutResult{Mode: mode.String(), State: engine.Last()}
	for _, p := range engine.Placements() {
		b := buttons[p.ID]
		result.Buttons = append(result.Buttons, ButtonLayout{
			ID:        b.ID,
			Title:     b.Title,
			Href:      b.Href,
			Anchor:    p.Anchor,
			X:         p.X,
			Y:         p.Y,
			Scale:     p.Scale,
			Transform: dom.Translate(p.X, p.Y),
		})
	}
	return result, nil
}

// LoadMapImage decodes the floor-plan image of m
func (tv *TourViewer) LoadMapImage(ctx context.Context, m *tour.MapConfig) (image.Image, error) {
	if m == nil || m.Image == "" {
		return nil, ErrNoMap
	}
	if tv.fsys == nil || strings.HasPrefix(m.Image, "http://") || strings.HasPrefix(m.Image, "https://") {
		return preview.Load(ctx, m.Image)
	}
	data, err := fs.ReadFile(tv.fsys, strings.TrimPrefix(m.Image, "/"))
	if err != nil {
		return nil, err
	}
	return preview.Decode(data)
}

// RenderPreview draws a layout result over the map image. A map image that
// cannot be loaded leaves the rendered box empty.
func (tv *TourViewer) RenderPreview(ctx context.Context, m *tour.MapConfig, result *LayoutResult) *image.NRGBA {
	img, err := tv.LoadMapImage(ctx, m)
	if err != nil {
		tv.logger.Printf("preview: warning: %v", err)
		img = nil
	}
	return preview.Render(img, result.State.Container, result.State.Box, result.Placements())
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

// selectorName strips prefix from a simple "#id" or ".class" selector
func selectorName(selector, prefix string) string {
	return strings.TrimPrefix(strings.TrimSpace(selector), prefix)
}
