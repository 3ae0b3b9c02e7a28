package tourviewer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/menta2k/tour-viewer/internal/config"
	"github.com/menta2k/tour-viewer/pkg/layout"
	"github.com/menta2k/tour-viewer/pkg/preview"
	"github.com/menta2k/tour-viewer/pkg/tour"
)

// createTestImage encodes a solid 1600x800 floor plan
func createTestImage(t testing.TB) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 1600, 800))
	for y := 0; y < 800; y++ {
		for x := 0; x < 1600; x++ {
			img.Set(x, y, color.NRGBA{40, 200, 40, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func testMap() *tour.MapConfig {
	return &tour.MapConfig{
		Image: "img/floor.png",
		Buttons: []tour.MapButton{
			{ID: "lobby", Title: "Lobby", Href: "#lobby", LeftPercent: 50, TopPercent: 50},
			{ID: "corner", Title: "Corner", Href: "#corner", LeftPercent: 0, TopPercent: 0},
		},
	}
}

func newTestViewer(t *testing.T) *TourViewer {
	fsys := fstest.MapFS{"img/floor.png": {Data: createTestImage(t)}}
	return New(fsys)
}

func TestNew(t *testing.T) {
	tv := New(nil)
	if tv == nil {
		t.Fatal("New() returned nil")
	}
	if tv.Resolver() == nil {
		t.Error("resolver is nil")
	}
	if tv.cfg.Layout.ContainerSelector != layout.DefaultContainerSelector {
		t.Errorf("Expected default container selector, got %q", tv.cfg.Layout.ContainerSelector)
	}
}

func TestComputeLayoutPosition(t *testing.T) {
	tv := newTestViewer(t)

	result, err := tv.ComputeLayout(context.Background(), testMap(), 800, 600, layout.ModePosition)
	if err != nil {
		t.Fatalf("ComputeLayout failed: %v", err)
	}

	box := result.State.Box
	if box.OffsetX != 0 || box.OffsetY != 100 || box.Width != 800 || box.Height != 400 || box.Scale != 0.5 {
		t.Errorf("Unexpected rendered box %+v", box)
	}
	if result.Mode != "position" {
		t.Errorf("Expected position mode, got %q", result.Mode)
	}
	if len(result.Buttons) != 2 {
		t.Fatalf("Expected 2 buttons, got %d", len(result.Buttons))
	}

	byID := make(map[string]ButtonLayout)
	for _, b := range result.Buttons {
		byID[b.ID] = b
	}
	if b := byID["lobby"]; b.X != 400 || b.Y != 300 || b.Transform != "translate(400px, 300px)" {
		t.Errorf("Unexpected lobby layout %+v", b)
	}
	if b := byID["corner"]; b.X != 0 || b.Y != 100 || b.Href != "#corner" {
		t.Errorf("Unexpected corner layout %+v", b)
	}
}

func TestComputeLayoutScale(t *testing.T) {
	tv := newTestViewer(t)

	result, err := tv.ComputeLayout(context.Background(), testMap(), 1000, 400, layout.ModeScale)
	if err != nil {
		t.Fatalf("ComputeLayout failed: %v", err)
	}
	if box := result.State.Box; box.OffsetX != 100 || box.Width != 800 {
		t.Errorf("Unexpected rendered box %+v", box)
	}
	for _, b := range result.Buttons {
		if b.Scale != 0.5 {
			t.Errorf("%s: expected scale 0.5, got %v", b.ID, b.Scale)
		}
	}
}

func TestComputeLayoutSharesResolver(t *testing.T) {
	tv := newTestViewer(t)
	for _, w := range []float64{320, 640, 1280} {
		if _, err := tv.ComputeLayout(context.Background(), testMap(), w, 480, layout.ModePosition); err != nil {
			t.Fatalf("ComputeLayout(%v) failed: %v", w, err)
		}
	}
	if n := tv.Resolver().Len(); n != 1 {
		t.Errorf("Expected one cached image, got %d", n)
	}
}

func TestComputeLayoutMissingImageFallsBack(t *testing.T) {
	tv := New(fstest.MapFS{})

	result, err := tv.ComputeLayout(context.Background(), testMap(), 800, 600, layout.ModePosition)
	if err != nil {
		t.Fatalf("ComputeLayout failed: %v", err)
	}
	if box := result.State.Box; box.OffsetX != 0 || box.OffsetY != 0 || box.Width != 800 || box.Height != 600 || box.Scale != 1 {
		t.Errorf("Expected container fallback box, got %+v", box)
	}
}

func TestComputeLayoutErrors(t *testing.T) {
	tv := newTestViewer(t)
	ctx := context.Background()

	if _, err := tv.ComputeLayout(ctx, nil, 800, 600, layout.ModePosition); !errors.Is(err, ErrNoMap) {
		t.Errorf("Expected ErrNoMap, got %v", err)
	}
	if _, err := tv.ComputeLayout(ctx, &tour.MapConfig{Image: "img/floor.png"}, 800, 600, layout.ModePosition); !errors.Is(err, ErrNoMap) {
		t.Errorf("Expected ErrNoMap for map without buttons, got %v", err)
	}
	if _, err := tv.ComputeLayout(ctx, testMap(), 0, 600, layout.ModePosition); err == nil {
		t.Error("Expected error for zero width")
	}
}

func TestCustomSelectors(t *testing.T) {
	cfg := config.Default()
	cfg.Layout.ContainerSelector = "#floor"
	cfg.Layout.OverlaySelector = ".pin"
	tv := NewWithConfig(cfg, fstest.MapFS{"img/floor.png": {Data: createTestImage(t)}}, nil)

	doc, buttons := tv.MapDocument(testMap(), 800, 600)
	if _, ok := doc.QuerySelector("#floor"); !ok {
		t.Error("Expected container #floor")
	}
	if n := len(doc.QuerySelectorAll(".pin")); n != 2 || len(buttons) != 2 {
		t.Errorf("Expected 2 pins, got %d (%d buttons)", n, len(buttons))
	}

	if _, err := tv.ComputeLayout(context.Background(), testMap(), 800, 600, layout.ModePosition); err != nil {
		t.Errorf("ComputeLayout with custom selectors failed: %v", err)
	}
}

func TestRenderPreview(t *testing.T) {
	tv := newTestViewer(t)
	ctx := context.Background()

	result, err := tv.ComputeLayout(ctx, testMap(), 800, 600, layout.ModePosition)
	if err != nil {
		t.Fatalf("ComputeLayout failed: %v", err)
	}
	img := tv.RenderPreview(ctx, testMap(), result)
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 600 {
		t.Fatalf("Expected 800x600 preview, got %v", b)
	}
	if got := img.NRGBAAt(10, 50); got != preview.Background {
		t.Errorf("Expected letterbox at (10,50), got %v", got)
	}
	if got := img.NRGBAAt(0, 100); got != preview.Marker {
		t.Errorf("Expected corner marker at (0,100), got %v", got)
	}
}

func TestGetVersion(t *testing.T) {
	if v := GetVersion(); v != Version || v == "" {
		t.Errorf("GetVersion() = %q, want %q", v, Version)
	}
}

func BenchmarkComputeLayout(b *testing.B) {
	tv := New(fstest.MapFS{"img/floor.png": {Data: createTestImage(b)}})
	m := testMap()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tv.ComputeLayout(ctx, m, 1280, 720, layout.ModePosition)
	}
}
