package metrics

import (
	"regexp"
	"strings"
)

var backgroundURLPattern = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// BackgroundURL extracts the first image URL from a computed
// background-image value. Values such as "none" or gradients report false.
func BackgroundURL(value string) (string, bool) {
	m := backgroundURLPattern.FindStringSubmatch(value)
	if m == nil {
		return "", false
	}
	u := strings.TrimSpace(m[1])
	if u == "" {
		return "", false
	}
	return u, true
}
