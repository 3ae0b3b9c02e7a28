//go:build js

package metrics

import (
	"errors"
	"image"
)

func fallbackDecodeConfig([]byte) (image.Config, error) {
	return image.Config{}, errors.New("image: unknown format")
}
