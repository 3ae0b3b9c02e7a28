package client

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/tour-viewer/pkg/types"
)

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)\s+//[^"\n]*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// FallbackBox is reported when the model output cannot be used
var FallbackBox = types.Box{X: 0.45, Y: 0.45, W: 0.1, H: 0.1}

// ParseLocateResult parses a model's answer to a locate prompt. Output that
// is not usable JSON yields a single low-confidence centred location so
// callers always have something to show.
func ParseLocateResult(raw string) *types.LocateResult {
	raw = SanitizeModelJSON(raw)

	if !strings.HasPrefix(raw, "{") {
		return fallback("Model returned non-JSON response")
	}

	var result types.LocateResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return fallback("Failed to parse model response")
	}
	if len(result.Locations) == 0 {
		return fallback("No locations in model response")
	}
	return &result
}

func fallback(desc string) *types.LocateResult {
	return &types.LocateResult{
		Locations:   []types.Location{{Label: "none", Confidence: 0.1, Box: FallbackBox}},
		Description: desc,
	}
}

// SanitizeModelJSON removes code fences, comments and trailing commas
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
