package main

import (
	"flag"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tourviewer "github.com/menta2k/tour-viewer"
	"github.com/menta2k/tour-viewer/internal/config"
	"github.com/menta2k/tour-viewer/internal/server"
	"github.com/menta2k/tour-viewer/internal/utils"
	"github.com/menta2k/tour-viewer/pkg/suggest"
	"github.com/menta2k/tour-viewer/pkg/tour"
)

func main() {
	var configPath, tourDir, tourFile, addr string
	var enableSuggest bool

	flag.StringVar(&configPath, "config", "", "config file (default "+config.GetConfigPath()+")")
	flag.StringVar(&tourDir, "dir", "", "tour directory served under /static (default from config)")
	flag.StringVar(&tourFile, "tour", "", "tour configuration inside -dir (default from config)")
	flag.StringVar(&addr, "addr", "", "listen address (default from config, $PORT wins)")
	flag.BoolVar(&enableSuggest, "suggest", false, "enable POST /api/map/suggest with the configured vision backend")
	flag.Parse()

	_ = mime.AddExtensionType(".js", "application/javascript")
	_ = mime.AddExtensionType(".css", "text/css")
	_ = mime.AddExtensionType(".wasm", "application/wasm")

	cfg := config.Default()
	if configPath == "" && utils.FileExists(config.GetConfigPath()) {
		configPath = config.GetConfigPath()
	}
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}
	if tourDir != "" {
		cfg.Server.TourDir = tourDir
	}
	if tourFile != "" {
		cfg.Server.TourFile = tourFile
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Server.Addr = ":" + port
	} else if addr != "" {
		cfg.Server.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	t, err := tour.Load(filepath.Join(cfg.Server.TourDir, cfg.Server.TourFile))
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("loaded tour %q with %d scenes", t.Name, len(t.Scenes))

	staticFS := os.DirFS(cfg.Server.TourDir)
	logger := log.New(os.Stderr, "", log.LstdFlags)
	tv := tourviewer.NewWithConfig(cfg, staticFS, logger)

	handler := server.NewTourHandler(t, tv, cfg, logger)
	if enableSuggest {
		visionClient, err := suggest.NewClient(cfg.Vision.Backend, cfg.Vision.URL)
		if err != nil {
			log.Fatal(err)
		}
		handler.WithSuggester(suggest.NewSuggester(visionClient))
		log.Printf("anchor suggestions via %s (%s)", cfg.Vision.Backend, cfg.Vision.Model)
	}

	timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.NewRouter(handler, staticFS, timeout),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("listening on http://localhost%s", cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
