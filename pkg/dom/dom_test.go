package dom

import "testing"

func TestQuerySelector(t *testing.T) {
	doc := NewDocument(1024, 768)
	mapNode := NewNode("map")
	a := NewNode("", "map-button", "primary")
	b := NewNode("b", "map-button")
	doc.Append(mapNode, a, b)

	el, ok := doc.QuerySelector("#map")
	if !ok || el.ID() != mapNode.ID() {
		t.Errorf("Expected #map to resolve to the map node")
	}

	buttons := doc.QuerySelectorAll(".map-button")
	if len(buttons) != 2 || buttons[0] != Element(a) || buttons[1] != Element(b) {
		t.Errorf("Expected both buttons in document order, got %d", len(buttons))
	}

	if _, ok := doc.QuerySelector("#missing"); ok {
		t.Error("Unexpected match for #missing")
	}
	if got := doc.QuerySelectorAll("div"); len(got) != 0 {
		t.Errorf("Unsupported selectors should not match, got %d", len(got))
	}

	doc.Remove(a)
	if got := doc.QuerySelectorAll(".map-button"); len(got) != 1 {
		t.Errorf("Expected one button after Remove, got %d", len(got))
	}
}

func TestNodeIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewNode("").ID()
		if id == "" || seen[id] {
			t.Fatalf("Duplicate or empty id %q", id)
		}
		seen[id] = true
	}
}

func TestComputedStyleCascade(t *testing.T) {
	n := NewNode("x")
	n.SetSheetStyle("left", "25%")

	if got := n.InlineStyle("left"); got != "" {
		t.Errorf("Expected no inline left, got %q", got)
	}
	if got := n.ComputedStyle("left"); got != "25%" {
		t.Errorf("Expected computed 25%%, got %q", got)
	}

	n.SetStyle("left", "10%")
	if got := n.ComputedStyle("left"); got != "10%" {
		t.Errorf("Inline style should win, got %q", got)
	}

	n.SetStyle("left", "")
	if got := n.ComputedStyle("left"); got != "25%" {
		t.Errorf("Expected sheet value after clearing inline, got %q", got)
	}
}

func TestMeasureHonorsInlineSize(t *testing.T) {
	n := NewNode("x").SetGeometry(Geometry{Width: 100, Height: 40, FontSize: 16})
	n.SetStyle(StyleWidth, Px(50))
	n.SetStyle(StyleFontSize, Px(8))

	g := n.Measure()
	if g.Width != 50 || g.Height != 40 || g.FontSize != 8 {
		t.Errorf("Unexpected geometry %+v", g)
	}
}

func TestTranslationRoundTrip(t *testing.T) {
	n := NewNode("x")
	n.SetStyle(StyleTransform, Translate(400, 300.25))

	x, y, ok := Translation(n)
	if !ok || x != 400 || y != 300.25 {
		t.Errorf("Expected (400, 300.25), got (%f, %f, %v)", x, y, ok)
	}

	n.SetStyle(StyleTransform, Translate(-12.5, 0))
	if x, y, ok := Translation(n); !ok || x != -12.5 || y != 0 {
		t.Errorf("Expected (-12.5, 0), got (%f, %f, %v)", x, y, ok)
	}

	n.SetStyle(StyleTransform, "")
	if _, _, ok := Translation(n); ok {
		t.Error("Expected no translation after clearing transform")
	}
}

func TestObserveResize(t *testing.T) {
	doc := NewDocument(800, 600)
	container := NewNode("map")
	other := NewNode("other")
	doc.Append(container, other)

	calls := 0
	disconnect := doc.ObserveResize([]Element{container, doc.Body()}, func() { calls++ })

	container.Resize(640, 480)
	doc.BodyNode().Resize(1280, 720)
	other.Resize(10, 10)
	if calls != 2 {
		t.Errorf("Expected 2 notifications, got %d", calls)
	}
	if doc.Observers() != 1 {
		t.Errorf("Expected 1 observer, got %d", doc.Observers())
	}

	disconnect()
	disconnect()
	container.Resize(100, 100)
	if calls != 2 {
		t.Errorf("Expected no notifications after disconnect, got %d", calls)
	}
	if doc.Observers() != 0 {
		t.Errorf("Expected 0 observers, got %d", doc.Observers())
	}
}

func TestParsePx(t *testing.T) {
	cases := map[string]float64{"12px": 12, " 3.5px ": 3.5, "50%": 0, "": 0, "abcpx": 0}
	for in, want := range cases {
		if got := ParsePx(in); got != want {
			t.Errorf("ParsePx(%q) = %f, want %f", in, got, want)
		}
	}
}
