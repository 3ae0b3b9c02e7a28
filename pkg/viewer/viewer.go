// Package viewer drives a panorama renderer from a tour configuration:
// scene creation, scene switching, autorotation, the scene list and the
// modal hotspot panels.
package viewer

import (
	"errors"
	"fmt"
	"html"
	"io"
	"log"
	"math"
	"sync"
	"time"

	"github.com/menta2k/tour-viewer/pkg/tour"
)

// ErrNoRenderer is returned when New is called without a renderer
var ErrNoRenderer = errors.New("no renderer")

// NoIdle disables idle movement
const NoIdle = time.Duration(math.MaxInt64)

// View limits applied to every scene, in radians
var (
	MaxResolutionFov = 100 * math.Pi / 180
	MaxFov           = 120 * math.Pi / 180
)

// Autorotate describes the automatic camera movement
type Autorotate struct {
	YawSpeed    float64
	TargetPitch float64
	TargetFov   float64
}

// DefaultAutorotate matches the classic tour behaviour
var DefaultAutorotate = Autorotate{YawSpeed: 0.03, TargetPitch: 0, TargetFov: math.Pi / 2}

// DefaultIdle is how long the view must be idle before autorotation resumes
const DefaultIdle = 3 * time.Second

// SceneHandle identifies a scene created by a Renderer
type SceneHandle any

// ViewLimits bound the field of view of a scene
type ViewLimits struct {
	FaceSize         int
	MaxResolutionFov float64
	MaxFov           float64
}

// SceneSpec is everything a renderer needs to build a scene
type SceneSpec struct {
	ID            string
	TileURL       string
	PreviewURL    string
	Levels        []tour.Level
	InitialView   tour.ViewParameters
	Limits        ViewLimits
	PinFirstLevel bool
}

// HotspotKind distinguishes scene hotspots
type HotspotKind string

const (
	HotspotLink  HotspotKind = "link"
	HotspotInfo  HotspotKind = HotspotKind(tour.PanelInfo)
	HotspotBuild HotspotKind = HotspotKind(tour.PanelBuild)
	HotspotRelax HotspotKind = HotspotKind(tour.PanelRelax)
)

// HotspotSpec is one hotspot placed on a scene. Link hotspots carry their
// target; panel hotspots carry title, text and their panel index.
type HotspotSpec struct {
	Kind       HotspotKind
	Yaw        float64
	Pitch      float64
	Rotation   float64
	Target     string
	TargetName string
	Title      string
	Text       string
	Index      int
}

// Renderer is the panorama engine
type Renderer interface {
	CreateScene(spec SceneSpec) (SceneHandle, error)
	CreateHotspot(scene SceneHandle, spec HotspotSpec) error
	SwitchTo(scene SceneHandle)
	SetParameters(scene SceneHandle, params tour.ViewParameters)
	StartMovement(a Autorotate)
	StopMovement()
	SetIdleMovement(d time.Duration, a Autorotate)
}

// Capabilities are host features detected outside the viewer
type Capabilities struct {
	Fullscreen bool
	Mobile     bool
	Touch      bool
}

// State is a snapshot of the viewer's UI state
type State struct {
	Current           string
	SceneName         string
	Autorotate        bool
	SceneListOpen     bool
	FullscreenEnabled bool
	OpenPanels        []string
}

type scene struct {
	data   *tour.Scene
	handle SceneHandle
}

// Viewer holds the scenes of one tour
type Viewer struct {
	tour       *tour.Tour
	renderer   Renderer
	caps       Capabilities
	logger     *log.Logger
	autorotate Autorotate
	idle       time.Duration

	mu       sync.Mutex
	scenes   []scene
	current  int
	rotating bool
	listOpen bool
	panels   map[string]bool
}

// Option configures a Viewer
type Option func(*Viewer)

// WithLogger sets the diagnostic logger
func WithLogger(l *log.Logger) Option {
	return func(v *Viewer) { v.logger = l }
}

// WithAutorotate replaces the autorotation movement
func WithAutorotate(a Autorotate, idle time.Duration) Option {
	return func(v *Viewer) {
		v.autorotate = a
		v.idle = idle
	}
}

// New creates every scene and hotspot on r and displays the first scene
func New(t *tour.Tour, r Renderer, caps Capabilities, opts ...Option) (*Viewer, error) {
	if r == nil {
		return nil, ErrNoRenderer
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	v := &Viewer{
		tour:       t,
		renderer:   r,
		caps:       caps,
		logger:     log.New(io.Discard, "", 0),
		autorotate: DefaultAutorotate,
		idle:       DefaultIdle,
		panels:     make(map[string]bool),
		rotating:   t.Settings.AutorotateEnabled,
		listOpen:   !caps.Mobile,
	}
	for _, opt := range opts {
		opt(v)
	}

	for i := range t.Scenes {
		data := &t.Scenes[i]
		handle, err := r.CreateScene(SceneSpec{
			ID:          data.ID,
			TileURL:     t.TileURL(data.ID),
			PreviewURL:  t.PreviewURL(data.ID),
			Levels:      data.Levels,
			InitialView: data.InitialViewParameters,
			Limits: ViewLimits{
				FaceSize:         data.FaceSize,
				MaxResolutionFov: MaxResolutionFov,
				MaxFov:           MaxFov,
			},
			PinFirstLevel: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create scene %q: %w", data.ID, err)
		}
		if err := v.createHotspots(handle, data); err != nil {
			return nil, err
		}
		v.scenes = append(v.scenes, scene{data: data, handle: handle})
	}

	v.mu.Lock()
	v.switchLocked(0)
	v.mu.Unlock()
	return v, nil
}

func (v *Viewer) createHotspots(handle SceneHandle, data *tour.Scene) error {
	for _, l := range data.LinkHotspots {
		target, _ := v.tour.Scene(l.Target)
		spec := HotspotSpec{
			Kind:       HotspotLink,
			Yaw:        l.Yaw,
			Pitch:      l.Pitch,
			Rotation:   l.Rotation,
			Target:     l.Target,
			TargetName: html.EscapeString(target.Name),
		}
		if err := v.renderer.CreateHotspot(handle, spec); err != nil {
			return fmt.Errorf("failed to create link hotspot in %q: %w", data.ID, err)
		}
	}

	for i, p := range tour.InfoPanels(data) {
		spec := HotspotSpec{
			Kind:  HotspotKind(p.Kind),
			Yaw:   p.Yaw,
			Pitch: p.Pitch,
			Title: p.Title,
			Text:  p.Text,
			Index: i,
		}
		if err := v.renderer.CreateHotspot(handle, spec); err != nil {
			return fmt.Errorf("failed to create %s hotspot in %q: %w", p.Kind, data.ID, err)
		}
	}
	return nil
}

// SwitchScene displays the scene with the given id from its initial view
func (v *Viewer) SwitchScene(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i, s := range v.scenes {
		if s.data.ID == id {
			v.switchLocked(i)
			if v.caps.Mobile {
				v.listOpen = false
			}
			return nil
		}
	}
	v.logger.Printf("viewer: warning: scene %q not found", id)
	return fmt.Errorf("%w: %q", tour.ErrUnknownScene, id)
}

func (v *Viewer) switchLocked(i int) {
	s := v.scenes[i]
	v.stopRotationLocked()
	v.renderer.SetParameters(s.handle, s.data.InitialViewParameters)
	v.renderer.SwitchTo(s.handle)
	v.startRotationLocked()
	v.current = i
	v.panels = make(map[string]bool)
}

// Navigate follows a map button link of the form "#scene-id"
func (v *Viewer) Navigate(href string) error {
	id, ok := tour.SceneLink(href)
	if !ok {
		return fmt.Errorf("%w: link %q", tour.ErrUnknownScene, href)
	}
	return v.SwitchScene(id)
}

func (v *Viewer) startRotationLocked() {
	if !v.rotating {
		return
	}
	v.renderer.StartMovement(v.autorotate)
	v.renderer.SetIdleMovement(v.idle, v.autorotate)
}

func (v *Viewer) stopRotationLocked() {
	v.renderer.StopMovement()
	v.renderer.SetIdleMovement(NoIdle, Autorotate{})
}

// ToggleAutorotate flips autorotation and reports the new setting
func (v *Viewer) ToggleAutorotate() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.rotating {
		v.rotating = false
		v.stopRotationLocked()
	} else {
		v.rotating = true
		v.startRotationLocked()
	}
	return v.rotating
}

// ToggleSceneList flips the scene list and reports whether it is open
func (v *Viewer) ToggleSceneList() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listOpen = !v.listOpen
	return v.listOpen
}

func (v *Viewer) ShowSceneList() {
	v.mu.Lock()
	v.listOpen = true
	v.mu.Unlock()
}

func (v *Viewer) HideSceneList() {
	v.mu.Lock()
	v.listOpen = false
	v.mu.Unlock()
}

// TogglePanel opens or closes a modal hotspot panel of the current scene
// and reports whether it is now visible.
func (v *Viewer) TogglePanel(kind tour.PanelKind, index int) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	panels := tour.InfoPanels(v.scenes[v.current].data)
	if index < 0 || index >= len(panels) || panels[index].Kind != kind {
		return false, fmt.Errorf("no %s panel at index %d", kind, index)
	}
	key := PanelKey(kind, index)
	v.panels[key] = !v.panels[key]
	return v.panels[key], nil
}

// PanelKey names a panel in State.OpenPanels
func PanelKey(kind tour.PanelKind, index int) string {
	return fmt.Sprintf("%s:%d", kind, index)
}

// State returns a snapshot of the UI state
func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := v.scenes[v.current].data
	st := State{
		Current:           s.ID,
		SceneName:         html.EscapeString(s.Name),
		Autorotate:        v.rotating,
		SceneListOpen:     v.listOpen,
		FullscreenEnabled: v.caps.Fullscreen && v.tour.Settings.FullscreenButton,
	}
	for i, p := range tour.InfoPanels(s) {
		if key := PanelKey(p.Kind, i); v.panels[key] {
			st.OpenPanels = append(st.OpenPanels, key)
		}
	}
	return st
}
