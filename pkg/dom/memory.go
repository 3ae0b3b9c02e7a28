package dom

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Node is an in-memory element. Inline styles shadow stylesheet values in
// ComputedStyle the same way a browser cascade would.
type Node struct {
	mu      sync.RWMutex
	doc     *MemDocument
	id      string
	htmlID  string
	classes []string
	attrs   map[string]string
	inline  map[string]string
	sheet   map[string]string
	geom    Geometry
	parts   map[string]*Node
}

// NewNode creates a detached node with an optional html id and classes
func NewNode(htmlID string, classes ...string) *Node {
	return &Node{
		id:      uuid.NewString(),
		htmlID:  htmlID,
		classes: classes,
		attrs:   make(map[string]string),
		inline:  make(map[string]string),
		sheet:   make(map[string]string),
		parts:   make(map[string]*Node),
	}
}

func (n *Node) ID() string { return n.id }

// HTMLID returns the node's id attribute
func (n *Node) HTMLID() string { return n.htmlID }

// HasClass reports whether the node carries class c
func (n *Node) HasClass(c string) bool {
	for _, cls := range n.classes {
		if cls == c {
			return true
		}
	}
	return false
}

func (n *Node) Attr(name string) (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := n.attrs[name]
	return v, ok
}

func (n *Node) SetAttr(name, value string) {
	n.mu.Lock()
	n.attrs[name] = value
	n.mu.Unlock()
}

func (n *Node) InlineStyle(prop string) string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.inline[prop]
}

func (n *Node) ComputedStyle(prop string) string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if v, ok := n.inline[prop]; ok {
		return v
	}
	return n.sheet[prop]
}

func (n *Node) SetStyle(prop, value string) {
	n.mu.Lock()
	if value == "" {
		delete(n.inline, prop)
	} else {
		n.inline[prop] = value
	}
	n.mu.Unlock()
}

// SetSheetStyle sets a value that only shows up through ComputedStyle,
// standing in for a stylesheet rule.
func (n *Node) SetSheetStyle(prop, value string) *Node {
	n.mu.Lock()
	n.sheet[prop] = value
	n.mu.Unlock()
	return n
}

// SetGeometry sets the layout size the node reports when no inline size
// override is present.
func (n *Node) SetGeometry(g Geometry) *Node {
	n.mu.Lock()
	n.geom = g
	n.mu.Unlock()
	return n
}

func (n *Node) Measure() Geometry {
	n.mu.RLock()
	defer n.mu.RUnlock()
	g := n.geom
	if v := ParsePx(n.inline[StyleWidth]); v > 0 {
		g.Width = v
	}
	if v := ParsePx(n.inline[StyleHeight]); v > 0 {
		g.Height = v
	}
	if v := ParsePx(n.inline[StyleFontSize]); v > 0 {
		g.FontSize = v
	}
	return g
}

// SetPart attaches a named sub-element
func (n *Node) SetPart(name string, part *Node) *Node {
	n.mu.Lock()
	n.parts[name] = part
	n.mu.Unlock()
	return n
}

func (n *Node) Part(name string) (Element, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	p, ok := n.parts[name]
	if !ok {
		return nil, false
	}
	return p, true
}

// Resize changes the node's geometry and notifies resize observers
func (n *Node) Resize(width, height float64) {
	n.mu.Lock()
	n.geom.Width, n.geom.Height = width, height
	doc := n.doc
	n.mu.Unlock()

	if doc != nil {
		doc.notify(n)
	}
}

type observer struct {
	targets map[*Node]struct{}
	fn      func()
}

// MemDocument is an in-memory Document
type MemDocument struct {
	mu        sync.RWMutex
	body      *Node
	nodes     []*Node
	observers map[int]*observer
	nextObs   int
}

var (
	_ Document = (*MemDocument)(nil)
	_ Element  = (*Node)(nil)
)

// NewDocument creates an empty document whose body has the given viewport size
func NewDocument(viewportWidth, viewportHeight float64) *MemDocument {
	d := &MemDocument{observers: make(map[int]*observer)}
	d.body = NewNode("", "body")
	d.body.doc = d
	d.body.geom = Geometry{Width: viewportWidth, Height: viewportHeight}
	return d
}

// Append adds nodes to the document in order
func (d *MemDocument) Append(nodes ...*Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range nodes {
		n.mu.Lock()
		n.doc = d
		n.mu.Unlock()
		d.nodes = append(d.nodes, n)
	}
}

// Remove detaches a node from the document
func (d *MemDocument) Remove(target *Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, n := range d.nodes {
		if n == target {
			d.nodes = append(d.nodes[:i], d.nodes[i+1:]...)
			break
		}
	}
}

func (d *MemDocument) Body() Element { return d.body }

// BodyNode returns the body as a *Node for resizing
func (d *MemDocument) BodyNode() *Node { return d.body }

// QuerySelector supports "#id" and ".class" selectors
func (d *MemDocument) QuerySelector(selector string) (Element, bool) {
	matches := d.query(selector, true)
	if len(matches) == 0 {
		return nil, false
	}
	return matches[0], true
}

func (d *MemDocument) QuerySelectorAll(selector string) []Element {
	return d.query(selector, false)
}

func (d *MemDocument) query(selector string, first bool) []Element {
	selector = strings.TrimSpace(selector)
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []Element
	for _, n := range d.nodes {
		if !matches(n, selector) {
			continue
		}
		out = append(out, n)
		if first {
			break
		}
	}
	return out
}

func matches(n *Node, selector string) bool {
	switch {
	case strings.HasPrefix(selector, "#"):
		return selector[1:] != "" && n.htmlID == selector[1:]
	case strings.HasPrefix(selector, "."):
		return selector[1:] != "" && n.HasClass(selector[1:])
	default:
		return false
	}
}

func (d *MemDocument) ObserveResize(targets []Element, fn func()) func() {
	set := make(map[*Node]struct{}, len(targets))
	for _, t := range targets {
		if n, ok := t.(*Node); ok {
			set[n] = struct{}{}
		}
	}

	d.mu.Lock()
	key := d.nextObs
	d.nextObs++
	d.observers[key] = &observer{targets: set, fn: fn}
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.observers, key)
			d.mu.Unlock()
		})
	}
}

// Observers returns the number of active resize observers
func (d *MemDocument) Observers() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers)
}

func (d *MemDocument) notify(n *Node) {
	d.mu.RLock()
	var fns []func()
	for _, o := range d.observers {
		if _, ok := o.targets[n]; ok {
			fns = append(fns, o.fn)
		}
	}
	d.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
