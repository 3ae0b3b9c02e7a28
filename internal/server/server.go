// Package server serves a tour over HTTP: the viewer page, the tour
// configuration and server-side floor-plan layouts and previews.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	tourviewer "github.com/menta2k/tour-viewer"
	"github.com/menta2k/tour-viewer/internal/config"
	"github.com/menta2k/tour-viewer/pkg/layout"
	"github.com/menta2k/tour-viewer/pkg/preview"
	"github.com/menta2k/tour-viewer/pkg/suggest"
	"github.com/menta2k/tour-viewer/pkg/tour"
)

// StaticPath is where the tour directory is mounted
const StaticPath = "/static"

// Viewport limits accepted by the layout and preview routes
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
	MaxDimension  = 8192
)

type TourHandler struct {
	tour      *tour.Tour
	viewer    *tourviewer.TourViewer
	cfg       *config.Config
	suggester *suggest.Suggester
	logger    *log.Logger
}

func NewTourHandler(t *tour.Tour, tv *tourviewer.TourViewer, cfg *config.Config, logger *log.Logger) *TourHandler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &TourHandler{tour: t, viewer: tv, cfg: cfg, logger: logger}
}

// WithSuggester enables POST /api/map/suggest
func (h *TourHandler) WithSuggester(s *suggest.Suggester) *TourHandler {
	h.suggester = s
	return h
}

func (h *TourHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.tourPage)
	r.Get("/healthz", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/tour", h.tourJSON)
		r.Get("/scenes/{id}", h.sceneJSON)
		r.Get("/map/layout", h.mapLayout)
		r.Get("/map/preview", h.mapPreview)
		r.Post("/map/suggest", h.mapSuggest)
	})
}

// NewRouter builds the full router: middleware, static assets from static
// and the tour routes.
func NewRouter(h *TourHandler, static fs.FS, timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	if static != nil {
		r.Mount(StaticPath, http.StripPrefix(StaticPath, http.FileServer(http.FS(static))))
	}
	h.RegisterRoutes(r)
	return r
}

func (h *TourHandler) tourPage(w http.ResponseWriter, r *http.Request) {
	data := TourPage{
		Title:      h.tour.Name,
		Scenes:     h.tour.Scenes,
		Map:        h.tour.Map,
		StaticPath: StaticPath,
		LayoutMode: h.cfg.Layout.Mode,
		Autorotate: h.tour.Settings.AutorotateEnabled,
		Fullscreen: h.tour.Settings.FullscreenButton,
	}
	render(w, r, tourPage(data))
}

func (h *TourHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok", "version": tourviewer.Version})
}

func (h *TourHandler) tourJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.tour)
}

type sceneResponse struct {
	Scene      *tour.Scene  `json:"scene"`
	TileURL    string       `json:"tileUrl"`
	PreviewURL string       `json:"previewUrl"`
	Panels     []tour.Panel `json:"panels"`
}

func (h *TourHandler) sceneJSON(w http.ResponseWriter, r *http.Request) {
	s, err := h.tour.Scene(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, sceneResponse{
		Scene:      s,
		TileURL:    h.tour.TileURL(s.ID),
		PreviewURL: h.tour.PreviewURL(s.ID),
		Panels:     tour.InfoPanels(s),
	})
}

// viewport reads w, h and mode from the query string
func (h *TourHandler) viewport(r *http.Request) (width, height int, mode layout.Mode, err error) {
	q := r.URL.Query()
	width = parseInt(q.Get("w"), DefaultWidth)
	height = parseInt(q.Get("h"), DefaultHeight)
	if width < 1 || height < 1 || width > MaxDimension || height > MaxDimension {
		return 0, 0, 0, errors.New("w and h must be between 1 and 8192")
	}

	modeName := q.Get("mode")
	if modeName == "" {
		modeName = h.cfg.Layout.Mode
	}
	mode, err = layout.ParseMode(modeName)
	return width, height, mode, err
}

func (h *TourHandler) computeLayout(w http.ResponseWriter, r *http.Request) (*tourviewer.LayoutResult, bool) {
	width, height, mode, err := h.viewport(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	result, err := h.viewer.ComputeLayout(r.Context(), h.tour.Map, float64(width), float64(height), mode)
	if errors.Is(err, tourviewer.ErrNoMap) || errors.Is(err, layout.ErrMissingElement) {
		http.Error(w, "tour has no map", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.logger.Printf("server: layout failed: %v", err)
		http.Error(w, "layout failed", http.StatusInternalServerError)
		return nil, false
	}
	return result, true
}

func (h *TourHandler) mapLayout(w http.ResponseWriter, r *http.Request) {
	result, ok := h.computeLayout(w, r)
	if !ok {
		return
	}
	writeJSON(w, result)
}

func (h *TourHandler) mapPreview(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = h.cfg.Preview.Format
	}
	switch format {
	case "jpg", "jpeg", "png", "webp":
	default:
		http.Error(w, "format must be jpg, png or webp", http.StatusBadRequest)
		return
	}

	result, ok := h.computeLayout(w, r)
	if !ok {
		return
	}

	img := h.viewer.RenderPreview(r.Context(), h.tour.Map, result)
	var buf bytes.Buffer
	if err := preview.Encode(&buf, img, format, h.cfg.Preview.Quality); err != nil {
		h.logger.Printf("server: preview encode failed: %v", err)
		http.Error(w, "failed to encode preview", http.StatusInternalServerError)
		return
	}
	writeImage(w, preview.ContentType(format), &buf)
}

type suggestRequest struct {
	Labels []string `json:"labels"`
}

func (h *TourHandler) mapSuggest(w http.ResponseWriter, r *http.Request) {
	if h.suggester == nil {
		http.Error(w, "anchor suggestions are disabled", http.StatusServiceUnavailable)
		return
	}

	var req suggestRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Labels) == 0 && h.tour.Map != nil {
		for _, b := range h.tour.Map.Buttons {
			req.Labels = append(req.Labels, b.Title)
		}
	}

	img, err := h.viewer.LoadMapImage(r.Context(), h.tour.Map)
	if err != nil {
		http.Error(w, "map image unavailable", http.StatusNotFound)
		return
	}
	imgB64, err := preview.EncodeForModel(img, "jpg", h.cfg.Vision.MaxDim, h.cfg.Preview.Quality)
	if err != nil {
		http.Error(w, "failed to encode map", http.StatusInternalServerError)
		return
	}

	suggestions, err := h.suggester.Suggest(r.Context(), h.cfg.Vision.Model, imgB64, req.Labels)
	if errors.Is(err, suggest.ErrNoLabels) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Printf("server: suggestion failed: %v", err)
		http.Error(w, "vision backend failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, suggestions)
}
