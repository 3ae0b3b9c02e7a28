// Package containment computes where an image lands inside a container
// under "object-fit: contain" rules.
package containment

import (
	"math"

	"github.com/menta2k/tour-viewer/pkg/types"
)

// ComputeRenderedBox returns the sub-rectangle of container occupied by an
// image of the given natural size, centered, never cropped or stretched.
// A nil or unusable natural size yields the container's own box with zero
// offsets and scale 1.
func ComputeRenderedBox(container types.Size, natural *types.Size) types.RenderedBox {
	if natural == nil || !natural.Valid() || !container.Valid() {
		return Fallback(container)
	}

	containerAspect := container.Width / container.Height
	imageAspect := natural.Width / natural.Height

	var box types.RenderedBox
	if containerAspect > imageAspect {
		// Container is wider than the image: height-constrained, pillarboxed
		box.Height = container.Height
		box.Width = box.Height * imageAspect
		box.OffsetX = (container.Width - box.Width) / 2
	} else {
		// Container is taller than the image: width-constrained, letterboxed
		box.Width = container.Width
		box.Height = box.Width / imageAspect
		box.OffsetY = (container.Height - box.Height) / 2
	}
	box.Scale = box.Width / natural.Width

	return box
}

// Fallback is the box used when image metrics are unavailable
func Fallback(container types.Size) types.RenderedBox {
	w, h := container.Width, container.Height
	if w < 0 || math.IsNaN(w) {
		w = 0
	}
	if h < 0 || math.IsNaN(h) {
		h = 0
	}
	return types.RenderedBox{Width: w, Height: h, Scale: 1}
}

// Position maps a percentage anchor into absolute container coordinates
func Position(box types.RenderedBox, anchor types.Anchor) (float64, float64) {
	x := box.OffsetX + anchor.XPercent/100*box.Width
	y := box.OffsetY + anchor.YPercent/100*box.Height
	return x, y
}

// Fits reports whether box lies inside container, touches it edge to edge
// on at least one axis and is centered on the other. eps absorbs float
// rounding.
func Fits(box types.RenderedBox, container types.Size, eps float64) bool {
	if box.OffsetX < -eps || box.OffsetY < -eps {
		return false
	}
	if box.OffsetX+box.Width > container.Width+eps || box.OffsetY+box.Height > container.Height+eps {
		return false
	}

	touchesX := math.Abs(box.Width-container.Width) <= eps && math.Abs(box.OffsetX) <= eps
	touchesY := math.Abs(box.Height-container.Height) <= eps && math.Abs(box.OffsetY) <= eps
	if !touchesX && !touchesY {
		return false
	}
	if !touchesX && math.Abs(box.OffsetX-(container.Width-box.Width)/2) > eps {
		return false
	}
	if !touchesY && math.Abs(box.OffsetY-(container.Height-box.Height)/2) > eps {
		return false
	}
	return true
}
