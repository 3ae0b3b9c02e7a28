// Package layout keeps percentage-anchored overlays aligned with a
// container's background image as the container is resized.
//
// The image is assumed to be drawn with "object-fit: contain" semantics:
// the engine resolves the image's natural size, computes the letterboxed
// or pillarboxed box it occupies inside the container, and translates each
// overlay to offset + percent/100 * dimension inside that box. In scale
// mode the overlays and their named parts are also resized by the box's
// scale factor relative to the natural image size.
package layout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/menta2k/tour-viewer/pkg/containment"
	"github.com/menta2k/tour-viewer/pkg/dom"
	"github.com/menta2k/tour-viewer/pkg/hotspot"
	"github.com/menta2k/tour-viewer/pkg/metrics"
	"github.com/menta2k/tour-viewer/pkg/types"
)

var (
	// ErrMissingElement means the container or every overlay is absent
	ErrMissingElement = errors.New("missing element")
	// ErrDestroyed is returned by mutating calls after Destroy
	ErrDestroyed = errors.New("layout engine destroyed")
)

// Mode selects what a layout pass applies
type Mode int

const (
	// ModePosition only translates overlays
	ModePosition Mode = iota
	// ModeScale translates overlays and scales them from their baseline
	ModeScale
)

func (m Mode) String() string {
	if m == ModeScale {
		return "scale"
	}
	return "position"
}

// ParseMode accepts "position" or "scale"
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "position":
		return ModePosition, nil
	case "scale":
		return ModeScale, nil
	default:
		return ModePosition, fmt.Errorf("unknown layout mode %q (use position or scale)", s)
	}
}

// State is the engine lifecycle state
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	default:
		return "uninitialized"
	}
}

// Defaults matching the floor-plan markup
const (
	DefaultContainerSelector = "#map"
	DefaultOverlaySelector   = ".map-button"
	DefaultDebounce          = 16 * time.Millisecond
)

// DefaultParts are the sub-elements scaled in ModeScale
var DefaultParts = []string{hotspot.PartHeader, hotspot.PartIconWrapper, hotspot.PartTitle}

// Engine positions the overlays of one container
type Engine struct {
	doc          dom.Document
	resolver     *metrics.Resolver
	registry     *hotspot.Registry
	logger       *log.Logger
	mode         Mode
	debounce     time.Duration
	containerSel string
	overlaySel   string
	parts        []string
	observeBody  bool

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	container  dom.Element
	imageURL   string
	noImage    bool
	disconnect func()
	timer      *time.Timer
	started    uint64
	applied    uint64
	passes     int
	last       types.ContainerState
	placements []types.Placement
}

// Option configures an Engine
type Option func(*Engine)

// WithMode selects position-only or position+scale layout
func WithMode(m Mode) Option {
	return func(e *Engine) { e.mode = m }
}

// WithDebounce sets how long resize signals are coalesced
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithContainerSelector sets the selector of the tracked container
func WithContainerSelector(sel string) Option {
	return func(e *Engine) { e.containerSel = sel }
}

// WithOverlaySelector sets the selector used to scan overlays on Init
func WithOverlaySelector(sel string) Option {
	return func(e *Engine) { e.overlaySel = sel }
}

// WithParts sets the sub-element names captured and scaled in ModeScale
func WithParts(parts []string) Option {
	return func(e *Engine) { e.parts = parts }
}

// WithObserveBody controls whether body resizes also trigger layout
func WithObserveBody(observe bool) Option {
	return func(e *Engine) { e.observeBody = observe }
}

// WithLogger sets the diagnostic logger
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine for doc. resolver may be shared between engines;
// a nil resolver disables image metrics and every pass uses the raw
// container box.
func New(doc dom.Document, resolver *metrics.Resolver, opts ...Option) *Engine {
	e := &Engine{
		doc:          doc,
		resolver:     resolver,
		logger:       log.Default(),
		mode:         ModePosition,
		debounce:     DefaultDebounce,
		containerSel: DefaultContainerSelector,
		overlaySel:   DefaultOverlaySelector,
		parts:        DefaultParts,
		observeBody:  true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registry = hotspot.NewRegistry(e.logger)
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e
}

// Init locates the container and overlays, starts observing resizes and
// runs the first layout pass. A page without map hotspots is valid: the
// engine then stays uninitialized and ErrMissingElement is returned.
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case StateReady:
		e.mu.Unlock()
		return nil
	case StateDestroyed:
		e.mu.Unlock()
		return ErrDestroyed
	}

	container, ok := e.doc.QuerySelector(e.containerSel)
	if !ok {
		e.mu.Unlock()
		e.logger.Printf("layout: warning: container %q not found", e.containerSel)
		return fmt.Errorf("%w: container %q", ErrMissingElement, e.containerSel)
	}

	for _, el := range e.doc.QuerySelectorAll(e.overlaySel) {
		if _, tracked := e.registry.Get(el); tracked {
			continue
		}
		anchor := hotspot.ReadAnchor(el)
		// Positioning clears inline left/top, so keep both axes where
		// Refresh can find them again.
		hotspot.WriteAnchor(el, anchor)
		e.registry.Register(el, anchor)
		if e.mode == ModeScale {
			e.registry.CaptureBaseline(el, e.parts)
		}
	}
	if e.registry.Len() == 0 {
		e.mu.Unlock()
		e.logger.Printf("layout: warning: no overlays match %q", e.overlaySel)
		return fmt.Errorf("%w: overlays %q", ErrMissingElement, e.overlaySel)
	}

	e.container = container
	e.state = StateReady
	targets := []dom.Element{container}
	if e.observeBody {
		if body := e.doc.Body(); body != nil {
			targets = append(targets, body)
		}
	}
	e.disconnect = e.doc.ObserveResize(targets, e.NotifyResize)
	e.logger.Printf("layout: tracking %d overlays in %s mode", e.registry.Len(), e.mode)
	e.mu.Unlock()

	e.Layout(ctx)
	return nil
}

// Layout recomputes the rendered image box and applies it to every tracked
// overlay. It reports the container state it computed and whether the
// result was applied; calls before Init or after Destroy do nothing.
// Overlapping passes are allowed: a pass that finishes after a newer one
// has been applied is discarded.
func (e *Engine) Layout(ctx context.Context) (state types.ContainerState, applied bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("layout: error during layout pass: %v", r)
			applied = false
		}
	}()

	e.mu.Lock()
	if e.state != StateReady {
		e.mu.Unlock()
		return types.ContainerState{}, false
	}
	e.started++
	seq := e.started
	container := e.container
	e.mu.Unlock()

	overlays := e.registry.All()
	state = e.measure(ctx, container)

	placements := make([]types.Placement, 0, len(overlays))
	for _, o := range overlays {
		x, y := containment.Position(state.Box, o.Anchor)
		scale := 1.0
		if e.mode == ModeScale {
			scale = state.Box.Scale
		}
		placements = append(placements, types.Placement{ID: o.ID, Anchor: o.Anchor, X: x, Y: y, Scale: scale})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady || seq < e.applied {
		return state, false
	}

	done := placements[:0:0]
	for i, o := range overlays {
		// Removed while this pass was measuring
		if _, ok := e.registry.Get(o.Element); !ok {
			continue
		}
		p := placements[i]
		done = append(done, p)
		o.Element.SetStyle(dom.StyleTransform, dom.Translate(p.X, p.Y))
		o.Element.SetStyle(dom.StyleLeft, "")
		o.Element.SetStyle(dom.StyleTop, "")
		if e.mode == ModeScale && o.Baseline != nil {
			applyScale(o.Element, *o.Baseline, p.Scale)
		}
	}

	e.applied = seq
	e.passes++
	e.last = state
	e.placements = done
	return state, true
}

func (e *Engine) measure(ctx context.Context, container dom.Element) types.ContainerState {
	g := container.Measure()
	state := types.ContainerState{Container: types.Size{Width: g.Width, Height: g.Height}}

	url, ok := metrics.BackgroundURL(container.ComputedStyle("background-image"))
	if !ok || e.resolver == nil {
		e.mu.Lock()
		warn := !e.noImage
		e.noImage = true
		e.mu.Unlock()
		if warn {
			e.logger.Printf("layout: warning: no background image on %q, using container box", e.containerSel)
		}
		state.Box = containment.Fallback(state.Container)
		return state
	}

	state.ImageURL = url
	e.mu.Lock()
	e.imageURL = url
	e.mu.Unlock()

	natural, err := e.resolver.Resolve(ctx, url)
	if err != nil {
		e.logger.Printf("layout: warning: %v, using container box", err)
		state.Box = containment.Fallback(state.Container)
		return state
	}

	state.NaturalSize = &natural
	state.Box = containment.ComputeRenderedBox(state.Container, &natural)
	return state
}

func applyScale(el dom.Element, b types.Baseline, scale float64) {
	if b.Width > 0 {
		el.SetStyle(dom.StyleWidth, dom.Px(b.Width*scale))
	}
	if b.Height > 0 {
		el.SetStyle(dom.StyleHeight, dom.Px(b.Height*scale))
	}
	if b.FontSize > 0 {
		el.SetStyle(dom.StyleFontSize, dom.Px(b.FontSize*scale))
	}
	for name, size := range b.Parts {
		part, ok := el.Part(name)
		if !ok {
			continue
		}
		if size.Width > 0 {
			part.SetStyle(dom.StyleWidth, dom.Px(size.Width*scale))
		}
		if size.Height > 0 {
			part.SetStyle(dom.StyleHeight, dom.Px(size.Height*scale))
		}
	}
}

func (e *Engine) clearOverrides(o hotspot.TrackedOverlay) {
	o.Element.SetStyle(dom.StyleTransform, "")
	if e.mode != ModeScale {
		return
	}
	o.Element.SetStyle(dom.StyleWidth, "")
	o.Element.SetStyle(dom.StyleHeight, "")
	o.Element.SetStyle(dom.StyleFontSize, "")
	for _, name := range e.parts {
		if part, ok := o.Element.Part(name); ok {
			part.SetStyle(dom.StyleWidth, "")
			part.SetStyle(dom.StyleHeight, "")
		}
	}
}
