// Package suggest proposes percentage anchors for floor-plan buttons by
// asking a vision model where labelled rooms are on the map image.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/menta2k/tour-viewer/pkg/client"
	"github.com/menta2k/tour-viewer/pkg/types"
)

// SimpleTestPrompt checks that the model can see images at all
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

const promptTemplate = `You are a floor plan reader.

Find these places on the floor plan: %s.

Return JSON only:
{
  "locations": [
    {"label": "string", "confidence": 0.0, "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}}
  ],
  "description": "short neutral sentence"
}

HARD RULES
- All coordinates are normalized to [0,1] of the image (NOT pixels).
- Use exactly the labels given above, one entry per label.
- The box should tightly enclose the room or area with that label.
- If a place cannot be found, omit it.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// ErrNoLabels is returned when Suggest is called without labels
var ErrNoLabels = errors.New("no labels to locate")

// Suggestion is a proposed anchor for one label
type Suggestion struct {
	Label      string       `json:"label"`
	Anchor     types.Anchor `json:"anchor"`
	Confidence float64      `json:"confidence"`
	Box        types.Box    `json:"box"`
	// Fallback is set when the model did not locate the label
	Fallback bool `json:"fallback,omitempty"`
}

// Suggester turns vision model answers into anchors
type Suggester struct {
	client client.VisionClient
}

// NewSuggester creates a suggester backed by c
func NewSuggester(c client.VisionClient) *Suggester {
	return &Suggester{client: c}
}

// Prompt builds the locate prompt for labels
func Prompt(labels []string) string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = fmt.Sprintf("%q", l)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(quoted, ", "))
}

// Suggest locates every label on the image and returns one suggestion per
// label in the order given. Labels the model does not find are placed at
// the centre with zero confidence.
func (s *Suggester) Suggest(ctx context.Context, model, imgB64 string, labels []string) ([]Suggestion, error) {
	labels = normalizeLabels(labels)
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}

	res, err := s.client.Locate(ctx, model, Prompt(labels), imgB64)
	if err != nil {
		return nil, err
	}

	found := make(map[string]types.Location, len(res.Locations))
	for _, loc := range res.Locations {
		key := strings.ToLower(strings.TrimSpace(loc.Label))
		if prev, ok := found[key]; ok && prev.Confidence >= loc.Confidence {
			continue
		}
		found[key] = loc
	}

	out := make([]Suggestion, 0, len(labels))
	for _, label := range labels {
		loc, ok := found[strings.ToLower(label)]
		if !ok {
			out = append(out, Suggestion{
				Label:    label,
				Anchor:   types.Anchor{XPercent: 50, YPercent: 50},
				Box:      client.FallbackBox,
				Fallback: true,
			})
			continue
		}
		box := normalizeBox(loc.Box)
		out = append(out, Suggestion{
			Label:      label,
			Anchor:     AnchorFromBox(box),
			Confidence: clamp(loc.Confidence, 0, 1),
			Box:        box,
		})
	}
	return out, nil
}

// TestVision checks that the model can see the image
func (s *Suggester) TestVision(ctx context.Context, model, imgB64 string) (string, error) {
	return s.client.SimpleQuery(ctx, model, SimpleTestPrompt, imgB64)
}

// AnchorFromBox converts the centre of a normalized box to percentages
func AnchorFromBox(b types.Box) types.Anchor {
	cx, cy := b.Center()
	return types.Anchor{
		XPercent: clamp(cx*100, 0, 100),
		YPercent: clamp(cy*100, 0, 100),
	}
}

func normalizeLabels(labels []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		key := strings.ToLower(l)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

// normalizeBox clamps a box to the unit square
func normalizeBox(b types.Box) types.Box {
	x := clamp(b.X, 0, 1)
	y := clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: clamp(b.W, 0, 1-x),
		H: clamp(b.H, 0, 1-y),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
