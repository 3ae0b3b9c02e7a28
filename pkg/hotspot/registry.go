// Package hotspot tracks overlay elements and their percentage anchors
package hotspot

import (
	"errors"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/menta2k/tour-viewer/pkg/dom"
	"github.com/menta2k/tour-viewer/pkg/types"
)

var (
	// ErrUnknownOverlay is returned for operations on unregistered elements
	ErrUnknownOverlay = errors.New("overlay not registered")
	// ErrAlreadyRegistered is returned when an element is registered twice
	ErrAlreadyRegistered = errors.New("overlay already registered")
)

// Anchor attributes, preferred over style percentages
const (
	AttrLeftPercent = "data-left-percent"
	AttrTopPercent  = "data-top-percent"
)

// Part names used for scale-aware sub-element geometry
const (
	PartHeader      = "header"
	PartIconWrapper = "iconWrapper"
	PartTitle       = "title"
)

// DefaultBaseline is used for elements that report no geometry when their
// baseline is captured, e.g. buttons added before they are attached.
var DefaultBaseline = types.Baseline{
	Width:    120,
	Height:   40,
	FontSize: 14,
	Parts: map[string]types.Size{
		PartHeader:      {Width: 120, Height: 40},
		PartIconWrapper: {Width: 40, Height: 40},
		PartTitle:       {Width: 80, Height: 40},
	},
}

// TrackedOverlay is one registered overlay
type TrackedOverlay struct {
	ID       string
	Element  dom.Element
	Anchor   types.Anchor
	Baseline *types.Baseline
}

// Registry owns the set of tracked overlays of one layout engine
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*TrackedOverlay
	order  []string
	logger *log.Logger
}

// NewRegistry creates an empty registry. A nil logger discards diagnostics.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Registry{
		byID:   make(map[string]*TrackedOverlay),
		logger: logger,
	}
}

// Register starts tracking el at anchor
func (r *Registry) Register(el dom.Element, anchor types.Anchor) (*TrackedOverlay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := el.ID()
	if existing, ok := r.byID[id]; ok {
		r.logger.Printf("hotspot: warning: overlay %s already registered", id)
		return existing, ErrAlreadyRegistered
	}

	o := &TrackedOverlay{ID: id, Element: el, Anchor: anchor}
	r.byID[id] = o
	r.order = append(r.order, id)
	return o, nil
}

// Unregister stops tracking el
func (r *Registry) Unregister(el dom.Element) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := el.ID()
	if _, ok := r.byID[id]; !ok {
		r.logger.Printf("hotspot: overlay %s not found", id)
		return ErrUnknownOverlay
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// UpdateAnchor replaces the anchor of a tracked overlay
func (r *Registry) UpdateAnchor(el dom.Element, anchor types.Anchor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byID[el.ID()]
	if !ok {
		r.logger.Printf("hotspot: warning: overlay %s not found", el.ID())
		return ErrUnknownOverlay
	}
	o.Anchor = anchor
	return nil
}

// CaptureBaseline snapshots the current geometry of el and the named parts
// as its scale multiplicand. Elements that measure as empty fall back to
// DefaultBaseline.
func (r *Registry) CaptureBaseline(el dom.Element, parts []string) error {
	b := MeasureBaseline(el, parts)
	return r.SetBaseline(el, b)
}

// SetBaseline stores an explicit baseline for a tracked overlay
func (r *Registry) SetBaseline(el dom.Element, b types.Baseline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byID[el.ID()]
	if !ok {
		r.logger.Printf("hotspot: warning: overlay %s not found", el.ID())
		return ErrUnknownOverlay
	}
	o.Baseline = &b
	return nil
}

// Get returns a copy of the tracked overlay for el
func (r *Registry) Get(el dom.Element) (TrackedOverlay, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.byID[el.ID()]
	if !ok {
		return TrackedOverlay{}, false
	}
	return *o, true
}

// All returns a snapshot of the tracked overlays in registration order
func (r *Registry) All() []TrackedOverlay {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]TrackedOverlay, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

// Len returns the number of tracked overlays
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Clear forgets every overlay
func (r *Registry) Clear() {
	r.mu.Lock()
	r.byID = make(map[string]*TrackedOverlay)
	r.order = nil
	r.mu.Unlock()
}

// MeasureBaseline reads the geometry of el and its parts
func MeasureBaseline(el dom.Element, parts []string) types.Baseline {
	g := el.Measure()
	if g.Width <= 0 && g.Height <= 0 {
		b := DefaultBaseline
		b.Parts = make(map[string]types.Size, len(DefaultBaseline.Parts))
		for k, v := range DefaultBaseline.Parts {
			b.Parts[k] = v
		}
		return b
	}

	b := types.Baseline{Width: g.Width, Height: g.Height, FontSize: g.FontSize}
	for _, name := range parts {
		p, ok := el.Part(name)
		if !ok {
			continue
		}
		pg := p.Measure()
		if b.Parts == nil {
			b.Parts = make(map[string]types.Size)
		}
		b.Parts[name] = types.Size{Width: pg.Width, Height: pg.Height}
	}
	return b
}

// ReadAnchor reads the declared percentage position of el. Per axis the
// data attribute wins over an inline percentage, which wins over a computed
// percentage; anything else is 0.
func ReadAnchor(el dom.Element) types.Anchor {
	return types.Anchor{
		XPercent: readPercent(el, AttrLeftPercent, dom.StyleLeft),
		YPercent: readPercent(el, AttrTopPercent, dom.StyleTop),
	}
}

// WriteAnchor persists anchor on el as data attributes
func WriteAnchor(el dom.Element, anchor types.Anchor) {
	el.SetAttr(AttrLeftPercent, strconv.FormatFloat(anchor.XPercent, 'f', -1, 64))
	el.SetAttr(AttrTopPercent, strconv.FormatFloat(anchor.YPercent, 'f', -1, 64))
}

func readPercent(el dom.Element, attr, prop string) float64 {
	if v, ok := el.Attr(attr); ok {
		f, _ := ParseFloat(v)
		return f
	}
	if v := el.InlineStyle(prop); strings.Contains(v, "%") {
		if f, ok := ParseFloat(v); ok {
			return f
		}
	}
	if v := el.ComputedStyle(prop); strings.Contains(v, "%") {
		if f, ok := ParseFloat(v); ok {
			return f
		}
	}
	return 0
}

var floatPrefix = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// ParseFloat parses the leading decimal number of s, ignoring leading
// whitespace and any trailing text ("25.5%" is 25.5).
func ParseFloat(s string) (float64, bool) {
	m := floatPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
