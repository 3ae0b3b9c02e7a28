//go:build !js

package metrics

import (
	"bytes"
	"image"

	"github.com/chai2010/webp"
)

// fallbackDecodeConfig probes extended WebP headers that the pure Go
// decoder rejects.
func fallbackDecodeConfig(data []byte) (image.Config, error) {
	return webp.DecodeConfig(bytes.NewReader(data))
}
