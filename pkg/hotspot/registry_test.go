package hotspot

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/menta2k/tour-viewer/pkg/dom"
	"github.com/menta2k/tour-viewer/pkg/types"
)

func TestRegisterAndAll(t *testing.T) {
	r := NewRegistry(nil)
	a, b := dom.NewNode("a"), dom.NewNode("b")

	if _, err := r.Register(a, types.Anchor{XPercent: 10, YPercent: 20}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := r.Register(b, types.Anchor{XPercent: 30, YPercent: 40}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	all := r.All()
	if len(all) != 2 {
		t.Fatalf("Expected 2 overlays, got %d", len(all))
	}
	if all[0].ID != a.ID() || all[1].ID != b.ID() {
		t.Error("Expected overlays in registration order")
	}
	if all[1].Anchor != (types.Anchor{XPercent: 30, YPercent: 40}) {
		t.Errorf("Unexpected anchor %+v", all[1].Anchor)
	}
}

func TestRegisterTwiceIsWarningNoOp(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry(log.New(&buf, "", 0))
	a := dom.NewNode("a")

	r.Register(a, types.Anchor{XPercent: 10, YPercent: 10})
	o, err := r.Register(a, types.Anchor{XPercent: 99, YPercent: 99})
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("Expected ErrAlreadyRegistered, got %v", err)
	}
	if o.Anchor.XPercent != 10 {
		t.Errorf("Second register must not change the anchor, got %+v", o.Anchor)
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 overlay, got %d", r.Len())
	}
	if !strings.Contains(buf.String(), "warning") {
		t.Errorf("Expected a warning to be logged, got %q", buf.String())
	}
}

func TestUnknownOverlayOperations(t *testing.T) {
	r := NewRegistry(nil)
	ghost := dom.NewNode("ghost")

	if err := r.Unregister(ghost); !errors.Is(err, ErrUnknownOverlay) {
		t.Errorf("Unregister: expected ErrUnknownOverlay, got %v", err)
	}
	if err := r.UpdateAnchor(ghost, types.Anchor{}); !errors.Is(err, ErrUnknownOverlay) {
		t.Errorf("UpdateAnchor: expected ErrUnknownOverlay, got %v", err)
	}
	if err := r.CaptureBaseline(ghost, nil); !errors.Is(err, ErrUnknownOverlay) {
		t.Errorf("CaptureBaseline: expected ErrUnknownOverlay, got %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", r.Len())
	}
}

func TestUnregisterAndUpdate(t *testing.T) {
	r := NewRegistry(nil)
	a, b, c := dom.NewNode("a"), dom.NewNode("b"), dom.NewNode("c")
	r.Register(a, types.Anchor{})
	r.Register(b, types.Anchor{})
	r.Register(c, types.Anchor{})

	if err := r.Unregister(b); err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}
	all := r.All()
	if len(all) != 2 || all[0].ID != a.ID() || all[1].ID != c.ID() {
		t.Errorf("Unexpected overlays after Unregister: %+v", all)
	}

	if err := r.UpdateAnchor(c, types.Anchor{XPercent: 75, YPercent: 5}); err != nil {
		t.Fatalf("UpdateAnchor failed: %v", err)
	}
	got, ok := r.Get(c)
	if !ok || got.Anchor != (types.Anchor{XPercent: 75, YPercent: 5}) {
		t.Errorf("Unexpected anchor after update: %+v", got.Anchor)
	}

	r.Clear()
	if r.Len() != 0 {
		t.Errorf("Expected empty registry after Clear, got %d", r.Len())
	}
}

func TestReadAnchorPriority(t *testing.T) {
	cases := []struct {
		name  string
		build func() *dom.Node
		want  types.Anchor
	}{
		{
			name: "data attributes win",
			build: func() *dom.Node {
				n := dom.NewNode("")
				n.SetAttr(AttrLeftPercent, "12.5")
				n.SetAttr(AttrTopPercent, "80")
				n.SetStyle("left", "50%")
				n.SetSheetStyle("top", "60%")
				return n
			},
			want: types.Anchor{XPercent: 12.5, YPercent: 80},
		},
		{
			name: "inline percentage over computed",
			build: func() *dom.Node {
				n := dom.NewNode("")
				n.SetStyle("left", "33%")
				n.SetStyle("top", "44.5%")
				n.SetSheetStyle("left", "1%")
				return n
			},
			want: types.Anchor{XPercent: 33, YPercent: 44.5},
		},
		{
			name: "computed percentage",
			build: func() *dom.Node {
				n := dom.NewNode("")
				n.SetSheetStyle("left", "70%")
				n.SetSheetStyle("top", "20%")
				return n
			},
			want: types.Anchor{XPercent: 70, YPercent: 20},
		},
		{
			name: "pixel values are ignored",
			build: func() *dom.Node {
				n := dom.NewNode("")
				n.SetStyle("left", "120px")
				n.SetSheetStyle("top", "30px")
				return n
			},
			want: types.Anchor{},
		},
		{
			name: "mixed axes",
			build: func() *dom.Node {
				n := dom.NewNode("")
				n.SetAttr(AttrLeftPercent, "5")
				n.SetStyle("top", "95%")
				return n
			},
			want: types.Anchor{XPercent: 5, YPercent: 95},
		},
		{
			name: "unparsable attribute counts as zero",
			build: func() *dom.Node {
				n := dom.NewNode("")
				n.SetAttr(AttrLeftPercent, "abc")
				n.SetStyle("left", "40%")
				return n
			},
			want: types.Anchor{},
		},
	}

	for _, c := range cases {
		if got := ReadAnchor(c.build()); got != c.want {
			t.Errorf("%s: expected %+v, got %+v", c.name, c.want, got)
		}
	}
}

func TestWriteAnchorRoundTrip(t *testing.T) {
	n := dom.NewNode("")
	n.SetStyle("left", "1%")
	WriteAnchor(n, types.Anchor{XPercent: 62.25, YPercent: -3})

	if got := ReadAnchor(n); got != (types.Anchor{XPercent: 62.25, YPercent: -3}) {
		t.Errorf("Unexpected anchor %+v", got)
	}
}

func TestCaptureBaseline(t *testing.T) {
	r := NewRegistry(nil)
	header := dom.NewNode("").SetGeometry(dom.Geometry{Width: 100, Height: 30})
	icon := dom.NewNode("").SetGeometry(dom.Geometry{Width: 30, Height: 30})
	button := dom.NewNode("").
		SetGeometry(dom.Geometry{Width: 100, Height: 60, FontSize: 12}).
		SetPart(PartHeader, header).
		SetPart(PartIconWrapper, icon)
	r.Register(button, types.Anchor{})

	if err := r.CaptureBaseline(button, []string{PartHeader, PartIconWrapper, PartTitle}); err != nil {
		t.Fatalf("CaptureBaseline failed: %v", err)
	}

	o, _ := r.Get(button)
	if o.Baseline == nil {
		t.Fatal("Expected a baseline")
	}
	b := *o.Baseline
	if b.Width != 100 || b.Height != 60 || b.FontSize != 12 {
		t.Errorf("Unexpected baseline %+v", b)
	}
	if b.Parts[PartHeader] != (types.Size{Width: 100, Height: 30}) {
		t.Errorf("Unexpected header size %+v", b.Parts[PartHeader])
	}
	if _, ok := b.Parts[PartTitle]; ok {
		t.Error("Missing parts must not be recorded")
	}
}

func TestCaptureBaselineDefaultsForUnmeasuredElement(t *testing.T) {
	b := MeasureBaseline(dom.NewNode(""), []string{PartHeader})
	if b.Width != DefaultBaseline.Width || b.Parts[PartIconWrapper] != DefaultBaseline.Parts[PartIconWrapper] {
		t.Errorf("Expected default baseline, got %+v", b)
	}

	b.Parts[PartHeader] = types.Size{Width: 1, Height: 1}
	if DefaultBaseline.Parts[PartHeader].Width == 1 {
		t.Error("MeasureBaseline must not alias DefaultBaseline parts")
	}
}

func TestParseFloat(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"25%", 25, true},
		{" 12.75% ", 12.75, true},
		{"-4.5", -4.5, true},
		{".5", 0.5, true},
		{"1e2px", 100, true},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseFloat(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("ParseFloat(%q) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}
