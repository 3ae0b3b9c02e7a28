// Package tour holds the configuration of a virtual tour: its panorama
// scenes, their hotspots and the floor-plan map with its buttons.
package tour

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownScene is returned when a scene id does not exist
	ErrUnknownScene = errors.New("unknown scene")
	// ErrInvalidConfig wraps every validation failure
	ErrInvalidConfig = errors.New("invalid tour configuration")
)

// Tour is the full tour configuration
type Tour struct {
	Name        string     `json:"name" yaml:"name"`
	Walkthrough string     `json:"walkthrough" yaml:"walkthrough"`
	Scenes      []Scene    `json:"scenes" yaml:"scenes"`
	Settings    Settings   `json:"settings" yaml:"settings"`
	Map         *MapConfig `json:"map,omitempty" yaml:"map,omitempty"`
}

// Level is one resolution level of a cube map
type Level struct {
	TileSize     int  `json:"tileSize" yaml:"tileSize"`
	Size         int  `json:"size" yaml:"size"`
	FallbackOnly bool `json:"fallbackOnly,omitempty" yaml:"fallbackOnly,omitempty"`
}

// ViewParameters orient the camera, in radians
type ViewParameters struct {
	Yaw   float64 `json:"yaw" yaml:"yaw"`
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Fov   float64 `json:"fov" yaml:"fov"`
}

// LinkHotspot jumps to another scene
type LinkHotspot struct {
	Yaw      float64 `json:"yaw" yaml:"yaw"`
	Pitch    float64 `json:"pitch" yaml:"pitch"`
	Rotation float64 `json:"rotation" yaml:"rotation"`
	Target   string  `json:"target" yaml:"target"`
}

// InfoHotspot opens a panel with a title and HTML text
type InfoHotspot struct {
	Yaw   float64 `json:"yaw" yaml:"yaw"`
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Title string  `json:"title" yaml:"title"`
	Text  string  `json:"text" yaml:"text"`
}

// Scene is one panorama
type Scene struct {
	ID                    string         `json:"id" yaml:"id"`
	Name                  string         `json:"name" yaml:"name"`
	Levels                []Level        `json:"levels" yaml:"levels"`
	FaceSize              int            `json:"faceSize" yaml:"faceSize"`
	InitialViewParameters ViewParameters `json:"initialViewParameters" yaml:"initialViewParameters"`
	LinkHotspots          []LinkHotspot  `json:"linkHotspots" yaml:"linkHotspots"`
	InfoHotspots          []InfoHotspot  `json:"infoHotspots" yaml:"infoHotspots"`
	BuildHotspots         []InfoHotspot  `json:"buildHotspots,omitempty" yaml:"buildHotspots,omitempty"`
	RelaxHotspots         []InfoHotspot  `json:"relaxHotspots,omitempty" yaml:"relaxHotspots,omitempty"`
}

// Settings are viewer-wide switches
type Settings struct {
	MouseViewMode      string `json:"mouseViewMode" yaml:"mouseViewMode"`
	AutorotateEnabled  bool   `json:"autorotateEnabled" yaml:"autorotateEnabled"`
	FullscreenButton   bool   `json:"fullscreenButton" yaml:"fullscreenButton"`
	ViewControlButtons bool   `json:"viewControlButtons" yaml:"viewControlButtons"`
}

// MapButton is a floor-plan button anchored by percentages of the image
type MapButton struct {
	ID          string  `json:"id" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	Href        string  `json:"href" yaml:"href"`
	LeftPercent float64 `json:"leftPercent" yaml:"leftPercent"`
	TopPercent  float64 `json:"topPercent" yaml:"topPercent"`
}

// MapConfig is the floor-plan overlay shown beside the panoramas
type MapConfig struct {
	Image   string      `json:"image" yaml:"image"`
	Buttons []MapButton `json:"buttons" yaml:"buttons"`
}

// PanelKind distinguishes the modal hotspot families
type PanelKind string

const (
	PanelInfo  PanelKind = "info"
	PanelBuild PanelKind = "build"
	PanelRelax PanelKind = "relax"
)

// Panel is a modal hotspot with its family
type Panel struct {
	Kind PanelKind
	InfoHotspot
}

// URLPrefix is prepended to tile and preview paths
const URLPrefix = "sub"

// Parse decodes a JSON tour. The "var APP_DATA = {...};" script form is
// accepted as well.
func Parse(data []byte) (*Tour, error) {
	data = stripScript(data)
	var t Tour
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tour: %w", err)
	}
	t.normalize()
	return &t, nil
}

// ParseYAML decodes a YAML tour
func ParseYAML(data []byte) (*Tour, error) {
	var t Tour
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tour: %w", err)
	}
	t.normalize()
	return &t, nil
}

// Load reads a tour file, choosing the decoder by extension
func Load(filename string) (*Tour, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read tour file: %w", err)
	}

	var t *Tour
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		t, err = ParseYAML(data)
	default:
		t, err = Parse(data)
	}
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func stripScript(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("var ")) {
		return data
	}
	eq := bytes.IndexByte(trimmed, '=')
	if eq < 0 {
		return data
	}
	body := bytes.TrimSpace(trimmed[eq+1:])
	return bytes.TrimSuffix(body, []byte(";"))
}

// normalize replaces nil hotspot lists so consumers can range freely
func (t *Tour) normalize() {
	for i := range t.Scenes {
		s := &t.Scenes[i]
		if s.LinkHotspots == nil {
			s.LinkHotspots = []LinkHotspot{}
		}
		if s.InfoHotspots == nil {
			s.InfoHotspots = []InfoHotspot{}
		}
	}
	if t.Settings.MouseViewMode == "" {
		t.Settings.MouseViewMode = "drag"
	}
}

// Validate checks scene ids, link targets and map buttons
func (t *Tour) Validate() error {
	if len(t.Scenes) == 0 {
		return fmt.Errorf("%w: no scenes", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(t.Scenes))
	for i, s := range t.Scenes {
		if s.ID == "" {
			return fmt.Errorf("%w: scene %d has no id", ErrInvalidConfig, i)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate scene id %q", ErrInvalidConfig, s.ID)
		}
		seen[s.ID] = true
		if len(s.Levels) == 0 {
			return fmt.Errorf("%w: scene %q has no levels", ErrInvalidConfig, s.ID)
		}
	}

	for _, s := range t.Scenes {
		for _, l := range s.LinkHotspots {
			if !seen[l.Target] {
				return fmt.Errorf("%w: scene %q links to unknown scene %q", ErrInvalidConfig, s.ID, l.Target)
			}
		}
	}

	switch t.Settings.MouseViewMode {
	case "drag", "qtvr":
	default:
		return fmt.Errorf("%w: mouse view mode %q (use drag or qtvr)", ErrInvalidConfig, t.Settings.MouseViewMode)
	}

	if t.Map != nil {
		ids := make(map[string]bool, len(t.Map.Buttons))
		for _, b := range t.Map.Buttons {
			if b.ID != "" && ids[b.ID] {
				return fmt.Errorf("%w: duplicate map button id %q", ErrInvalidConfig, b.ID)
			}
			ids[b.ID] = true
			if target, ok := SceneLink(b.Href); ok && !seen[target] {
				return fmt.Errorf("%w: map button %q links to unknown scene %q", ErrInvalidConfig, b.ID, target)
			}
		}
	}
	return nil
}

// Scene returns the scene with the given id
func (t *Tour) Scene(id string) (*Scene, error) {
	for i := range t.Scenes {
		if t.Scenes[i].ID == id {
			return &t.Scenes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScene, id)
}

// TileURL returns the tile URL template of a scene
func (t *Tour) TileURL(sceneID string) string {
	return URLPrefix + "/" + t.Walkthrough + "/tiles/" + sceneID + "/{z}/{f}/{y}/{x}.jpg"
}

// PreviewURL returns the cube map preview image of a scene
func (t *Tour) PreviewURL(sceneID string) string {
	return URLPrefix + "/" + sceneID + "/preview.jpg"
}

// InfoPanels returns every modal hotspot of s in info, build, relax order
func InfoPanels(s *Scene) []Panel {
	var out []Panel
	add := func(kind PanelKind, hs []InfoHotspot) {
		for _, h := range hs {
			out = append(out, Panel{Kind: kind, InfoHotspot: h})
		}
	}
	add(PanelInfo, s.InfoHotspots)
	add(PanelBuild, s.BuildHotspots)
	add(PanelRelax, s.RelaxHotspots)
	return out
}

// SceneLink reports the scene id of a "#scene-id" href
func SceneLink(href string) (string, bool) {
	if !strings.HasPrefix(href, "#") || len(href) < 2 {
		return "", false
	}
	return href[1:], true
}
