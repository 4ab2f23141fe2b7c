package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Marker describes one detected bubble to draw on an overlay.
type Marker struct {
	X          int     // center X in pixel coordinates
	Y          int     // center Y in pixel coordinates
	Radius     int     // radius in pixels
	Confidence float64 // detection confidence in [0, 1], drives the ring color
}

// AnnotateResult contains the source image with detection markers drawn on
// top, encoded as base64 PNG.
type AnnotateResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Annotate draws a ring around every marker on a copy of the source image.
//
// Ring color ramps from red (confidence 0) through yellow to green
// (confidence 1). The overlay is a review aid for operators grading sheets
// the pipeline flagged as ambiguous; it plays no part in detection itself.
//
// Parameters:
//   - img: Source image. It is copied, never modified.
//   - markers: Detected bubbles to draw.
//   - maxWidth: If > 0 and the image is wider, the annotated copy is
//     downscaled to this width to keep response payloads small.
//
// Returns an error only if PNG encoding fails.
func Annotate(img image.Image, markers []Marker, maxWidth int) (*AnnotateResult, error) {
	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)

	for _, mk := range markers {
		c := confidenceColor(mk.Confidence)
		// Two concentric rings for visibility on noisy scans.
		drawRing(canvas, mk.X, mk.Y, mk.Radius+2, c)
		drawRing(canvas, mk.X, mk.Y, mk.Radius+3, c)
	}

	var out image.Image = canvas
	if maxWidth > 0 && canvas.Bounds().Dx() > maxWidth {
		out = imaging.Resize(canvas, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode annotated image: %w", err)
	}

	return &AnnotateResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// confidenceColor maps a confidence in [0, 1] onto a red-to-green hue ramp.
func confidenceColor(confidence float64) colorful.Color {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return colorful.Hsv(confidence*120, 1, 0.9)
}

// drawRing draws a one-pixel circle outline using the midpoint algorithm.
func drawRing(img *image.RGBA, cx, cy, radius int, c colorful.Color) {
	col := c.Clamped()
	x := radius
	y := 0
	err := 0

	for x >= y {
		setRGBA(img, cx+x, cy+y, col)
		setRGBA(img, cx+y, cy+x, col)
		setRGBA(img, cx-y, cy+x, col)
		setRGBA(img, cx-x, cy+y, col)
		setRGBA(img, cx-x, cy-y, col)
		setRGBA(img, cx-y, cy-x, col)
		setRGBA(img, cx+y, cy-x, col)
		setRGBA(img, cx+x, cy-y, col)

		if err <= 0 {
			y++
			err += 2*y + 1
		}
		if err > 0 {
			x--
			err -= 2*x + 1
		}
	}
}

func setRGBA(img *image.RGBA, x, y int, c colorful.Color) {
	bounds := img.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return
	}
	r, g, b := c.RGB255()
	img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
}
