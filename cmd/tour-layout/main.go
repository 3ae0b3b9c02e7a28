package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"

	tourviewer "github.com/menta2k/tour-viewer"
	"github.com/menta2k/tour-viewer/internal/config"
	"github.com/menta2k/tour-viewer/internal/utils"
	"github.com/menta2k/tour-viewer/pkg/layout"
	"github.com/menta2k/tour-viewer/pkg/preview"
	"github.com/menta2k/tour-viewer/pkg/suggest"
	"github.com/menta2k/tour-viewer/pkg/tour"
)

// Default viewports laid out when -w and -h are not given
var defaultViewports = [][2]int{
	{1920, 1080},
	{1280, 720},
	{1024, 768},
	{768, 1024},
	{375, 667},
}

type viewportLayout struct {
	Width  int                      `json:"width"`
	Height int                      `json:"height"`
	Result *tourviewer.LayoutResult `json:"result"`
}

func main() {
	var tourPath, mapPath, outDir, modeName, ext, configPath string
	var width, height, quality int
	var lossless, debug, copyOut bool
	var labels, backend, url, model string
	var sendSize int

	flag.StringVar(&tourPath, "tour", "", "tour configuration (data.js, .json or .yaml)")
	flag.StringVar(&mapPath, "map", "", "floor-plan image overriding the tour's map image")
	flag.IntVar(&width, "w", 0, "container width in px (0 = default viewports)")
	flag.IntVar(&height, "h", 0, "container height in px (0 = default viewports)")
	flag.StringVar(&modeName, "mode", "", "layout mode: position|scale (default from config)")
	flag.StringVar(&outDir, "out", "", "output directory (default from config)")
	flag.StringVar(&configPath, "config", "", "config file (default "+config.GetConfigPath()+")")

	flag.BoolVar(&debug, "debug", false, "write preview images of every layout")
	flag.StringVar(&ext, "ext", "", "preview format: jpg|png|webp (default from config)")
	flag.IntVar(&quality, "quality", 0, "JPEG/WebP preview quality (1-100, default from config)")
	flag.BoolVar(&lossless, "lossless", false, "WebP preview lossless mode")

	flag.StringVar(&labels, "suggest", "", "comma-separated labels to locate on the map (\"buttons\" = every button title)")
	flag.StringVar(&backend, "backend", "", "vision backend: ollama|llamacpp (default from config)")
	flag.StringVar(&url, "url", "", "vision server URL (default from config)")
	flag.StringVar(&model, "model", "", "vision model name (default from config)")
	flag.IntVar(&sendSize, "sendsize", 0, "max long side of the image sent to the model (px, default from config)")
	flag.BoolVar(&copyOut, "copy", false, "copy map-button anchor attributes to the clipboard")

	flag.Parse()
	if tourPath == "" && mapPath == "" {
		log.Fatalf("usage: %s -tour tour.yaml [-map floor.png] [-w 1280 -h 720] [-mode position|scale] [-out outdir] [-debug] [-suggest Lobby,Kitchen] [-copy]", filepath.Base(os.Args[0]))
	}

	cfg := loadConfig(configPath)
	if modeName != "" {
		cfg.Layout.Mode = modeName
	}
	if outDir != "" {
		cfg.Preview.OutputDir = outDir
	}
	if ext != "" {
		cfg.Preview.Format = strings.ToLower(ext)
	}
	if quality != 0 {
		cfg.Preview.Quality = quality
	}
	if lossless {
		cfg.Preview.Lossless = true
	}
	if backend != "" {
		cfg.Vision.Backend = backend
	}
	if url != "" {
		cfg.Vision.URL = url
	}
	if model != "" {
		cfg.Vision.Model = model
	}
	if sendSize != 0 {
		cfg.Vision.MaxDim = sendSize
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	mode, err := layout.ParseMode(cfg.Layout.Mode)
	if err != nil {
		log.Fatal(err)
	}

	t, fsys := loadTour(tourPath, mapPath)
	if err := utils.EnsureDir(cfg.Preview.OutputDir); err != nil {
		log.Fatal(err)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	tv := tourviewer.NewWithConfig(cfg, fsys, logger)
	ctx := context.Background()

	viewports := defaultViewports
	if width > 0 && height > 0 {
		viewports = [][2]int{{width, height}}
	}

	prefix := utils.SanitizeFilename(t.Name)
	if prefix == "" {
		prefix = "map"
	}

	if len(t.Map.Buttons) == 0 {
		log.Printf("map has no buttons, skipping layout")
		viewports = nil
	}

	var layouts []viewportLayout
	for _, vp := range viewports {
		w, h := vp[0], vp[1]
		result, err := tv.ComputeLayout(ctx, t.Map, float64(w), float64(h), mode)
		if err != nil {
			log.Fatalf("layout %dx%d failed: %v", w, h, err)
		}
		box := result.State.Box
		log.Printf("%dx%d: box=%.1fx%.1f@%.1f,%.1f scale=%.3f buttons=%d",
			w, h, box.Width, box.Height, box.OffsetX, box.OffsetY, box.Scale, len(result.Buttons))
		layouts = append(layouts, viewportLayout{Width: w, Height: h, Result: result})

		if debug {
			img := tv.RenderPreview(ctx, t.Map, result)
			path := utils.ViewportFilename(cfg.Preview.OutputDir, prefix, mode.String(), w, h, cfg.Preview.Format)
			if err := preview.Save(img, path, cfg.Preview.Format, cfg.Preview.Quality, cfg.Preview.Lossless); err != nil {
				log.Printf("preview save %s failed: %v", path, err)
			} else {
				log.Printf("wrote %s", path)
			}
		}
	}

	if len(layouts) > 0 {
		writeJSON(filepath.Join(cfg.Preview.OutputDir, "layout.json"), layouts)
	}

	var suggested []suggest.Suggestion
	if labels != "" {
		suggested = suggestions(ctx, tv, t, cfg, labels)
	}

	if copyOut {
		if err := clipboard.WriteAll(anchorSnippet(t.Map, suggested)); err != nil {
			log.Printf("clipboard copy failed: %v", err)
		} else {
			log.Printf("anchor attributes copied to clipboard")
		}
	}
}

// anchorSnippet renders one map-button attribute line per anchor, taking
// suggested anchors over the configured ones when labels match a title.
func anchorSnippet(m *tour.MapConfig, suggested []suggest.Suggestion) string {
	byLabel := make(map[string]suggest.Suggestion, len(suggested))
	for _, s := range suggested {
		byLabel[strings.ToLower(s.Label)] = s
	}

	var b strings.Builder
	for _, btn := range m.Buttons {
		left, top := btn.LeftPercent, btn.TopPercent
		if s, ok := byLabel[strings.ToLower(btn.Title)]; ok && !s.Fallback {
			left, top = s.Anchor.XPercent, s.Anchor.YPercent
			delete(byLabel, strings.ToLower(btn.Title))
		}
		fmt.Fprintf(&b, "<!-- %s --> id=\"%s\" data-left-percent=\"%.2f\" data-top-percent=\"%.2f\"\n", btn.Title, btn.ID, left, top)
	}
	for _, s := range suggested {
		if _, ok := byLabel[strings.ToLower(s.Label)]; !ok || s.Fallback {
			continue
		}
		fmt.Fprintf(&b, "<!-- %s --> data-left-percent=\"%.2f\" data-top-percent=\"%.2f\"\n", s.Label, s.Anchor.XPercent, s.Anchor.YPercent)
	}
	return b.String()
}

func loadConfig(path string) *config.Config {
	if path == "" {
		path = config.GetConfigPath()
		if !utils.FileExists(path) {
			return config.Default()
		}
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// loadTour reads the tour, or builds a map-only tour when just -map is
// given. Map images are resolved relative to the tour file.
func loadTour(tourPath, mapPath string) (*tour.Tour, fs.FS) {
	if tourPath == "" {
		if !utils.IsImageFile(mapPath) {
			log.Fatalf("%s is not an image", mapPath)
		}
		return &tour.Tour{Name: strings.TrimSuffix(filepath.Base(mapPath), filepath.Ext(mapPath)), Map: &tour.MapConfig{Image: mapPath}}, nil
	}

	t, err := tour.Load(tourPath)
	if err != nil {
		log.Fatal(err)
	}
	if t.Map == nil {
		log.Fatalf("%s has no map", tourPath)
	}
	if mapPath != "" {
		t.Map.Image = mapPath
		return t, nil
	}
	return t, os.DirFS(filepath.Dir(tourPath))
}

func suggestions(ctx context.Context, tv *tourviewer.TourViewer, t *tour.Tour, cfg *config.Config, labels string) []suggest.Suggestion {
	var list []string
	if labels == "buttons" {
		for _, b := range t.Map.Buttons {
			list = append(list, b.Title)
		}
	} else {
		list = strings.Split(labels, ",")
	}

	visionClient, err := suggest.NewClient(cfg.Vision.Backend, cfg.Vision.URL)
	if err != nil {
		log.Fatal(err)
	}

	img, err := tv.LoadMapImage(ctx, t.Map)
	if err != nil {
		log.Fatal(err)
	}
	imgB64, err := preview.EncodeForModel(img, "jpg", cfg.Vision.MaxDim, cfg.Preview.Quality)
	if err != nil {
		log.Fatal(err)
	}

	result, err := suggest.NewSuggester(visionClient).Suggest(ctx, cfg.Vision.Model, imgB64, list)
	if err != nil {
		log.Fatal(err)
	}
	for _, s := range result {
		log.Printf("label=%q conf=%.2f anchor=%.1f%%,%.1f%% fallback=%v",
			s.Label, s.Confidence, s.Anchor.XPercent, s.Anchor.YPercent, s.Fallback)
	}
	writeJSON(filepath.Join(cfg.Preview.OutputDir, "suggestions.json"), result)
	return result
}

func writeJSON(path string, v any) {
	js, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(path, js, 0o644); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", path)
}
