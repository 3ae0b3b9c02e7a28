package layout

import (
	"context"
	"time"

	"github.com/menta2k/tour-viewer/pkg/dom"
	"github.com/menta2k/tour-viewer/pkg/hotspot"
	"github.com/menta2k/tour-viewer/pkg/types"
)

// NotifyResize schedules a layout pass. Signals arriving within the
// debounce window collapse into a single pass.
func (e *Engine) NotifyResize() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scheduleLocked()
}

func (e *Engine) scheduleLocked() {
	if e.state != StateReady {
		return
	}
	if e.timer == nil {
		e.timer = time.AfterFunc(e.debounce, func() { e.Layout(e.ctx) })
		return
	}
	e.timer.Reset(e.debounce)
}

// Add stores anchor on el as data attributes and starts tracking it
func (e *Engine) Add(el dom.Element, anchor types.Anchor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateDestroyed {
		return ErrDestroyed
	}

	if _, err := e.registry.Register(el, anchor); err != nil {
		return err
	}
	hotspot.WriteAnchor(el, anchor)
	if e.mode == ModeScale {
		e.registry.CaptureBaseline(el, e.parts)
	}
	e.scheduleLocked()
	return nil
}

// Remove stops tracking el and returns it to its natural position
func (e *Engine) Remove(el dom.Element) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateDestroyed {
		return ErrDestroyed
	}

	o, ok := e.registry.Get(el)
	if !ok {
		return e.registry.Unregister(el)
	}
	e.registry.Unregister(el)
	e.clearOverrides(o)
	e.dropPlacementLocked(o.ID)
	return nil
}

// Update moves a tracked overlay to a new anchor
func (e *Engine) Update(el dom.Element, anchor types.Anchor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateDestroyed {
		return ErrDestroyed
	}

	if err := e.registry.UpdateAnchor(el, anchor); err != nil {
		return err
	}
	hotspot.WriteAnchor(el, anchor)
	e.scheduleLocked()
	return nil
}

// Refresh re-reads every tracked overlay's anchor from the document and
// lays out again. Use it after changes a resize observer cannot see.
func (e *Engine) Refresh(ctx context.Context) (types.ContainerState, bool) {
	e.mu.Lock()
	ready := e.state == StateReady
	e.mu.Unlock()
	if !ready {
		return types.ContainerState{}, false
	}

	for _, o := range e.registry.All() {
		e.registry.UpdateAnchor(o.Element, hotspot.ReadAnchor(o.Element))
	}
	return e.Layout(ctx)
}

// Destroy stops observing, removes every style override the engine
// applied, clears the registry and leaves the engine unusable. Only this
// engine's image URL is dropped from the resolver cache, so other engines
// sharing the resolver keep their entries. Calling it again does nothing.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateDestroyed {
		return
	}

	e.state = StateDestroyed
	if e.disconnect != nil {
		e.disconnect()
		e.disconnect = nil
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.cancel()

	for _, o := range e.registry.All() {
		e.clearOverrides(o)
	}
	e.registry.Clear()
	if e.resolver != nil && e.imageURL != "" {
		e.resolver.Forget(e.imageURL)
	}
	e.placements = nil
	e.logger.Printf("layout: engine destroyed")
}

func (e *Engine) dropPlacementLocked(id string) {
	for i, p := range e.placements {
		if p.ID == id {
			e.placements = append(e.placements[:i:i], e.placements[i+1:]...)
			return
		}
	}
}

// State returns the lifecycle state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Mode returns the configured layout mode
func (e *Engine) Mode() Mode { return e.mode }

// Passes returns how many layout passes have been applied
func (e *Engine) Passes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.passes
}

// Last returns the container state of the most recently applied pass
func (e *Engine) Last() types.ContainerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Placements returns the positions applied by the most recent pass
func (e *Engine) Placements() []types.Placement {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.Placement, len(e.placements))
	copy(out, e.placements)
	return out
}

// Anchors returns the tracked overlays' percentage positions by ID
func (e *Engine) Anchors() map[string]types.Anchor {
	out := make(map[string]types.Anchor)
	for _, o := range e.registry.All() {
		out[o.ID] = o.Anchor
	}
	return out
}

// Overlays returns a snapshot of the tracked overlays
func (e *Engine) Overlays() []hotspot.TrackedOverlay {
	return e.registry.All()
}
