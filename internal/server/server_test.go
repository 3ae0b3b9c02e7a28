package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	tourviewer "github.com/menta2k/tour-viewer"
	"github.com/menta2k/tour-viewer/internal/config"
	"github.com/menta2k/tour-viewer/pkg/suggest"
	"github.com/menta2k/tour-viewer/pkg/tour"
	"github.com/menta2k/tour-viewer/pkg/types"
)

func floorPlan(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1600, 800))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func testTour() *tour.Tour {
	return &tour.Tour{
		Name:        "Office <HQ>",
		Walkthrough: "HQ",
		Settings:    tour.Settings{MouseViewMode: "drag", FullscreenButton: true},
		Scenes: []tour.Scene{
			{ID: "lobby", Name: "Lobby", Levels: []tour.Level{{TileSize: 512, Size: 1024}},
				InfoHotspots: []tour.InfoHotspot{{Title: "Desk"}}},
			{ID: "kitchen", Name: "Kitchen", Levels: []tour.Level{{TileSize: 512, Size: 1024}}},
		},
		Map: &tour.MapConfig{
			Image: "img/floor.png",
			Buttons: []tour.MapButton{
				{ID: "b-lobby", Title: "Lobby", Href: "#lobby", LeftPercent: 50, TopPercent: 50},
				{ID: "b-kitchen", Title: "Kitchen", Href: "#kitchen", LeftPercent: 25, TopPercent: 75.5},
			},
		},
	}
}

type fakeVision struct {
	result *types.LocateResult
}

func (f *fakeVision) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return "a floor plan", nil
}

func (f *fakeVision) Locate(ctx context.Context, model, prompt, imgB64 string) (*types.LocateResult, error) {
	return f.result, nil
}

func newTestServer(t *testing.T, tr *tour.Tour, opts ...func(*TourHandler)) *httptest.Server {
	t.Helper()
	fsys := fstest.MapFS{
		"img/floor.png": {Data: floorPlan(t)},
		"style.css":     {Data: []byte("body{}")},
	}
	cfg := config.Default()
	h := NewTourHandler(tr, tourviewer.NewWithConfig(cfg, fsys, nil), cfg, nil)
	for _, opt := range opts {
		opt(h)
	}
	srv := httptest.NewServer(NewRouter(h, fsys, 5*time.Second))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestTourPage(t *testing.T) {
	srv := newTestServer(t, testTour())

	resp := get(t, srv.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Unexpected content type %q", ct)
	}

	var body bytes.Buffer
	body.ReadFrom(resp.Body)
	page := body.String()
	for _, want := range []string{
		`<title>Office &lt;HQ&gt;</title>`,
		`<div id="map" data-layout-mode="position" style="background-image: url(&quot;/static/img/floor.png&quot;)">`,
		`id="b-kitchen" href="#kitchen" data-left-percent="25" data-top-percent="75.5"`,
		`<div class="map-button-title">Kitchen</div>`,
		`class="scene" data-id="lobby"`,
		`multiple-scenes`,
		`id="fullscreenToggle"`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("Page missing %q", want)
		}
	}
}

func TestHealthAndTourJSON(t *testing.T) {
	srv := newTestServer(t, testTour())

	if resp := get(t, srv.URL+"/healthz"); resp.StatusCode != http.StatusOK {
		t.Errorf("healthz: expected 200, got %d", resp.StatusCode)
	}

	resp := get(t, srv.URL+"/api/tour")
	var got tour.Tour
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode tour: %v", err)
	}
	if len(got.Scenes) != 2 || got.Map == nil || len(got.Map.Buttons) != 2 {
		t.Errorf("Unexpected tour %+v", got)
	}
}

func TestSceneJSON(t *testing.T) {
	srv := newTestServer(t, testTour())

	resp := get(t, srv.URL+"/api/scenes/lobby")
	var got sceneResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode scene: %v", err)
	}
	if got.TileURL != "sub/HQ/tiles/lobby/{z}/{f}/{y}/{x}.jpg" || len(got.Panels) != 1 {
		t.Errorf("Unexpected scene response %+v", got)
	}

	if resp := get(t, srv.URL+"/api/scenes/attic"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown scene, got %d", resp.StatusCode)
	}
}

func TestMapLayout(t *testing.T) {
	srv := newTestServer(t, testTour())

	resp := get(t, srv.URL+"/api/map/layout?w=800&h=600")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var got tourviewer.LayoutResult
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode layout: %v", err)
	}
	if got.State.Box.OffsetY != 100 || got.State.Box.Height != 400 {
		t.Errorf("Unexpected box %+v", got.State.Box)
	}
	for _, b := range got.Buttons {
		if b.ID == "b-lobby" && (b.X != 400 || b.Y != 300) {
			t.Errorf("Unexpected lobby position %v,%v", b.X, b.Y)
		}
		if b.ID == "b-kitchen" && (b.X != 200 || b.Y != 402) {
			t.Errorf("Unexpected kitchen position %v,%v", b.X, b.Y)
		}
	}
}

func TestMapLayoutScaleMode(t *testing.T) {
	srv := newTestServer(t, testTour())

	resp := get(t, srv.URL+"/api/map/layout?w=1000&h=400&mode=scale")
	var got tourviewer.LayoutResult
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode layout: %v", err)
	}
	if got.Mode != "scale" || len(got.Buttons) == 0 || got.Buttons[0].Scale != 0.5 {
		t.Errorf("Unexpected scale layout %+v", got)
	}
}

func TestMapLayoutBadRequests(t *testing.T) {
	srv := newTestServer(t, testTour())

	for _, q := range []string{"w=0&h=10", "w=10&h=99999", "mode=zoom"} {
		if resp := get(t, srv.URL+"/api/map/layout?"+q); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestMapLayoutWithoutMap(t *testing.T) {
	tr := testTour()
	tr.Map = nil
	srv := newTestServer(t, tr)

	if resp := get(t, srv.URL+"/api/map/layout"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestMapPreview(t *testing.T) {
	srv := newTestServer(t, testTour())

	resp := get(t, srv.URL+"/api/map/preview?w=400&h=300&format=png")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Unexpected content type %q", ct)
	}
	cfg, err := png.DecodeConfig(resp.Body)
	if err != nil {
		t.Fatalf("invalid png: %v", err)
	}
	if cfg.Width != 400 || cfg.Height != 300 {
		t.Errorf("Expected 400x300, got %dx%d", cfg.Width, cfg.Height)
	}

	if resp := get(t, srv.URL+"/api/map/preview?format=gif"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for gif, got %d", resp.StatusCode)
	}
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, testTour())

	resp := get(t, srv.URL+"/static/style.css")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 for static asset, got %d", resp.StatusCode)
	}
}

func TestMapSuggest(t *testing.T) {
	srv := newTestServer(t, testTour())

	resp, err := http.Post(srv.URL+"/api/map/suggest", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without suggester, got %d", resp.StatusCode)
	}

	vision := &fakeVision{result: &types.LocateResult{
		Locations: []types.Location{{Label: "kitchen", Confidence: 0.9, Box: types.Box{X: 0.2, Y: 0.6, W: 0.1, H: 0.2}}},
	}}
	srv = newTestServer(t, testTour(), func(h *TourHandler) {
		h.WithSuggester(suggest.NewSuggester(vision))
	})

	resp, err = http.Post(srv.URL+"/api/map/suggest", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var got []suggest.Suggestion
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode suggestions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected a suggestion per button title, got %d", len(got))
	}
	if !got[0].Fallback || got[0].Label != "Lobby" {
		t.Errorf("Expected fallback for Lobby, got %+v", got[0])
	}
	if k := got[1]; k.Fallback || math.Abs(k.Anchor.XPercent-25) > 1e-9 || math.Abs(k.Anchor.YPercent-70) > 1e-9 {
		t.Errorf("Unexpected kitchen suggestion %+v", k)
	}
}
