// Package dom describes the small slice of a document that the hotspot
// layout engine needs, and provides an in-memory document for servers,
// tools and tests.
package dom

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Geometry is the measured box of an element
type Geometry struct {
	Width    float64
	Height   float64
	FontSize float64
}

// Element is a node that can carry an overlay or act as a container
type Element interface {
	// ID returns a stable opaque identity for the element
	ID() string
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	// InlineStyle returns the element's own style declaration for prop
	InlineStyle(prop string) string
	// ComputedStyle returns the resolved value for prop
	ComputedStyle(prop string) string
	// SetStyle sets an inline style property; an empty value removes it
	SetStyle(prop, value string)
	Measure() Geometry
	// Part returns a named sub-element such as "header" or "icon"
	Part(name string) (Element, bool)
}

// Document locates elements and reports size changes
type Document interface {
	QuerySelector(selector string) (Element, bool)
	QuerySelectorAll(selector string) []Element
	Body() Element
	// ObserveResize calls fn whenever any target changes size until the
	// returned function is called.
	ObserveResize(targets []Element, fn func()) (disconnect func())
}

// Style properties written by the layout engine
const (
	StyleTransform = "transform"
	StyleLeft      = "left"
	StyleTop       = "top"
	StyleWidth     = "width"
	StyleHeight    = "height"
	StyleFontSize  = "font-size"
)

// Px formats a length in CSS pixels
func Px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// Translate formats a translate() transform
func Translate(x, y float64) string {
	return fmt.Sprintf("translate(%spx, %spx)", strconv.FormatFloat(x, 'f', -1, 64), strconv.FormatFloat(y, 'f', -1, 64))
}

var translatePattern = regexp.MustCompile(`translate\(\s*(-?[0-9.eE+-]+)px\s*,\s*(-?[0-9.eE+-]+)px\s*\)`)

// Translation parses the translate() transform applied to el
func Translation(el Element) (x, y float64, ok bool) {
	m := translatePattern.FindStringSubmatch(el.InlineStyle(StyleTransform))
	if m == nil {
		return 0, 0, false
	}
	x, errX := strconv.ParseFloat(m[1], 64)
	y, errY := strconv.ParseFloat(m[2], 64)
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	return x, y, true
}

// ParsePx reads a pixel length such as "12.5px"; anything else is 0
func ParsePx(v string) float64 {
	v = strings.TrimSpace(v)
	if !strings.HasSuffix(v, "px") {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64)
	if err != nil {
		return 0
	}
	return f
}
