// Package preview renders debug images of a floor-plan layout: the map drawn
// into its contained box inside the container, with a marker at every
// placed overlay.
package preview

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/tour-viewer/pkg/types"
)

// Colors used for preview drawing
var (
	Background = color.NRGBA{32, 32, 32, 255}
	BoxColor   = color.NRGBA{255, 204, 0, 255}
	Marker     = color.NRGBA{255, 0, 0, 255}
	Center     = color.NRGBA{0, 170, 255, 255}
)

// Load reads an image from a file path or an http(s) URL
func Load(ctx context.Context, source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return LoadFromURL(ctx, source)
	}

	if img, err := imaging.Open(source); err == nil {
		return img, nil
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// LoadFromURL downloads and decodes an image
func LoadFromURL(ctx context.Context, imageURL string) (image.Image, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsed.Scheme)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", "Tour-Viewer/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %v", err)
	}
	return Decode(data)
}

// Decode decodes any registered format, falling back to the WebP decoder
func Decode(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// Render draws mapImg into box on a container-sized canvas and marks each
// placement. A nil mapImg leaves the box empty.
func Render(mapImg image.Image, container types.Size, box types.RenderedBox, placements []types.Placement) *image.NRGBA {
	w := maxInt(1, int(math.Round(container.Width)))
	h := maxInt(1, int(math.Round(container.Height)))
	canvas := imaging.New(w, h, Background)

	bw := int(math.Round(box.Width))
	bh := int(math.Round(box.Height))
	origin := image.Pt(int(math.Round(box.OffsetX)), int(math.Round(box.OffsetY)))
	if mapImg != nil && bw > 0 && bh > 0 {
		scaled := imaging.Resize(mapImg, bw, bh, imaging.Lanczos)
		canvas = imaging.Paste(canvas, scaled, origin)
	}

	stroke := maxInt(1, int(0.004*float64(minInt(w, h))))
	drawRect(canvas, origin.X, origin.Y, origin.X+bw, origin.Y+bh, BoxColor, stroke)

	cross := maxInt(4, int(0.015*float64(minInt(w, h))))
	for _, p := range placements {
		px, py := int(math.Round(p.X)), int(math.Round(p.Y))
		for s := -stroke / 2; s <= stroke/2; s++ {
			drawHLine(canvas, py+s, px-cross, px+cross+1, Marker)
			drawVLine(canvas, px+s, py-cross, py+cross+1, Marker)
		}
	}

	cx, cy := origin.X+bw/2, origin.Y+bh/2
	drawHLine(canvas, cy, cx-6, cx+6, Center)
	drawVLine(canvas, cx, cy-6, cy+6, Center)
	return canvas
}

// Save writes img as jpg, png or webp
func Save(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Lossless: lossless, Quality: float32(quality)})
	case "png":
		return imaging.Save(img, path)
	default:
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// Encode writes img in the given format to w
func Encode(w io.Writer, img image.Image, format string, quality int) error {
	switch strings.ToLower(format) {
	case "webp":
		return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	case "png":
		return png.Encode(w, img)
	default:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	}
}

// ContentType returns the MIME type for a format accepted by Encode
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "webp":
		return "image/webp"
	case "png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}

// EncodeForModel downsizes img to maxDim and returns it base64 encoded for a
// vision model.
func EncodeForModel(img image.Image, format string, maxDim, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		if b.Dx() > maxDim || b.Dy() > maxDim {
			if b.Dx() >= b.Dy() {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	if strings.ToLower(format) == "png" {
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	} else if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func drawRect(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA, stroke int) {
	if x1 <= x0 || y1 <= y0 {
		return
	}
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	b := img.Bounds()
	if y < 0 || y >= b.Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0, x1 = maxInt(x0, 0), minInt(x1, b.Dx())
	for x := x0; x < x1; x++ {
		img.SetNRGBA(x, y, c)
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	b := img.Bounds()
	if x < 0 || x >= b.Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	y0, y1 = maxInt(y0, 0), minInt(y1, b.Dy())
	for y := y0; y < y1; y++ {
		img.SetNRGBA(x, y, c)
	}
}
