//go:build js && wasm

// Package jsdom adapts the browser document to the dom interfaces through
// syscall/js.
package jsdom

import (
	"sync"
	"syscall/js"

	"github.com/google/uuid"

	"github.com/menta2k/tour-viewer/pkg/dom"
	"github.com/menta2k/tour-viewer/pkg/hotspot"
)

// PartSelectors maps part names to the selectors of the sub-elements that
// are scaled with an overlay.
var PartSelectors = map[string]string{
	hotspot.PartHeader:      ".map-button-header",
	hotspot.PartIconWrapper: ".map-button-icon-wrapper",
	hotspot.PartTitle:       ".map-button-title",
}

// Element wraps a browser element
type Element struct {
	v   js.Value
	id  string
	doc *Document
}

// Value returns the underlying JS node
func (e *Element) Value() js.Value { return e.v }

func (e *Element) ID() string { return e.id }

func (e *Element) Attr(name string) (string, bool) {
	v := e.v.Call("getAttribute", name)
	if v.IsNull() || v.IsUndefined() {
		return "", false
	}
	return v.String(), true
}

func (e *Element) SetAttr(name, value string) {
	e.v.Call("setAttribute", name, value)
}

func (e *Element) InlineStyle(prop string) string {
	return e.v.Get("style").Call("getPropertyValue", prop).String()
}

func (e *Element) ComputedStyle(prop string) string {
	cs := e.doc.window.Call("getComputedStyle", e.v)
	return cs.Call("getPropertyValue", prop).String()
}

func (e *Element) SetStyle(prop, value string) {
	style := e.v.Get("style")
	if value == "" {
		style.Call("removeProperty", prop)
		return
	}
	style.Call("setProperty", prop, value)
}

func (e *Element) Measure() dom.Geometry {
	rect := e.v.Call("getBoundingClientRect")
	return dom.Geometry{
		Width:    rect.Get("width").Float(),
		Height:   rect.Get("height").Float(),
		FontSize: dom.ParsePx(e.ComputedStyle(dom.StyleFontSize)),
	}
}

func (e *Element) Part(name string) (dom.Element, bool) {
	sel, ok := PartSelectors[name]
	if !ok {
		return nil, false
	}
	v := e.v.Call("querySelector", sel)
	if v.IsNull() || v.IsUndefined() {
		return nil, false
	}
	return e.doc.wrap(v), true
}

// Document wraps the browser document
type Document struct {
	doc    js.Value
	window js.Value

	// ids maps JS nodes to their identity without touching the page
	ids js.Value

	mu    sync.Mutex
	nodes map[string]*Element
}

// New wraps the global document
func New() *Document {
	return &Document{
		doc:    js.Global().Get("document"),
		window: js.Global(),
		ids:    js.Global().Get("WeakMap").New(),
		nodes:  make(map[string]*Element),
	}
}

// Wrap returns the Element for a JS node, creating it on first use
func (d *Document) Wrap(v js.Value) *Element {
	return d.wrap(v)
}

func (d *Document) wrap(v js.Value) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id := d.ids.Call("get", v); id.Type() == js.TypeString {
		if existing, ok := d.nodes[id.String()]; ok {
			return existing
		}
	}
	el := &Element{v: v, id: uuid.NewString(), doc: d}
	d.ids.Call("set", v, el.id)
	d.nodes[el.id] = el
	return el
}

func (d *Document) QuerySelector(selector string) (dom.Element, bool) {
	v := d.doc.Call("querySelector", selector)
	if v.IsNull() || v.IsUndefined() {
		return nil, false
	}
	return d.wrap(v), true
}

func (d *Document) QuerySelectorAll(selector string) []dom.Element {
	list := d.doc.Call("querySelectorAll", selector)
	n := list.Get("length").Int()
	out := make([]dom.Element, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, d.wrap(list.Call("item", i)))
	}
	return out
}

func (d *Document) Body() dom.Element {
	body := d.doc.Get("body")
	if body.IsNull() || body.IsUndefined() {
		return nil
	}
	return d.wrap(body)
}

// ObserveResize uses ResizeObserver where available and window resize and
// orientationchange events otherwise.
func (d *Document) ObserveResize(targets []dom.Element, fn func()) func() {
	cb := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		go fn()
		return nil
	})

	var once sync.Once
	ro := d.window.Get("ResizeObserver")
	if ro.Truthy() {
		observer := ro.New(cb)
		for _, t := range targets {
			if el, ok := t.(*Element); ok {
				observer.Call("observe", el.v)
			}
		}
		return func() {
			once.Do(func() {
				observer.Call("disconnect")
				cb.Release()
			})
		}
	}

	d.window.Call("addEventListener", "resize", cb)
	d.window.Call("addEventListener", "orientationchange", cb)
	return func() {
		once.Do(func() {
			d.window.Call("removeEventListener", "resize", cb)
			d.window.Call("removeEventListener", "orientationchange", cb)
			cb.Release()
		})
	}
}
