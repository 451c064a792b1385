// Package render composes the final map image: basemap, pins, connector
// lines, rounded label boxes and label text.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/rotisserie/eris"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/sells-group/placemap/internal/layout"
	"github.com/sells-group/placemap/internal/place"
)

const (
	// DefaultPinRadius is the marker radius in pixels at the base pin size.
	DefaultPinRadius = 8

	boxCornerRadius = 4
	boxBorderWidth  = 2
)

var (
	white = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
)

// LoadFace opens a TTF or OTF file. Korean label text needs a CJK font; the
// bundled Go Regular face covers Latin only.
func LoadFace(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "render: read font file")
	}
	ft, err := opentype.Parse(data)
	if err != nil {
		return nil, eris.Wrap(err, "render: parse font")
	}
	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, eris.Wrap(err, "render: build font face")
	}
	return face, nil
}

// DefaultFace returns the bundled Go Regular face, or the fixed 7x13 bitmap
// face if parsing fails.
func DefaultFace(size float64) font.Face {
	ft, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

// Measure returns a text measuring function for the layout engine.
func Measure(face font.Face) func(s string) (w, h float64) {
	m := face.Metrics()
	h := float64((m.Ascent + m.Descent).Ceil())
	return func(s string) (float64, float64) {
		return float64(font.MeasureString(face, s).Ceil()), h
	}
}

// ScaleCrop resamples src about its center by factor and crops the result
// back to width x height. Basemaps come back at integer zoom levels; a
// fractional viewport zoom is reached by enlarging the fetched image by
// 2^(zoom - apiZoom) so overlay projection and basemap agree.
func ScaleCrop(src image.Image, factor float64, width, height int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	if factor == 1 {
		draw.Draw(out, out.Bounds(), src, src.Bounds().Min, draw.Src)
		return out
	}

	sw := int(math.Round(float64(src.Bounds().Dx()) * factor))
	sh := int(math.Round(float64(src.Bounds().Dy()) * factor))
	scaled := image.NewRGBA(image.Rect(0, 0, sw, sh))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	off := image.Pt((sw-width)/2, (sh-height)/2)
	draw.Draw(out, out.Bounds(), scaled, off, draw.Src)
	return out
}

// Pin pairs a record with its canvas position.
type Pin struct {
	Record place.Record
	X, Y   float64
	Radius float64
}

// Compose draws pins and placed labels over the basemap and returns the
// finished image. The basemap is copied, never modified in place. Pins and
// placed are parallel slices.
func Compose(basemap image.Image, pins []Pin, placed []layout.PlacedLabel, face font.Face) *image.RGBA {
	bounds := basemap.Bounds()
	img := image.NewRGBA(bounds)
	draw.Draw(img, bounds, basemap, bounds.Min, draw.Src)

	// Pins go down first so a label box riding a pin overpaints it; the
	// connector starts at the pin edge, and the box covers its far end.
	for _, p := range pins {
		drawPin(img, p)
	}
	for i, p := range pins {
		drawConnector(img, p, placed[i].Box)
	}
	for i, p := range pins {
		drawLabelBox(img, placed[i].Box, p.Record.Color())
	}
	for i, p := range pins {
		drawCenteredText(img, p.Record.DisplayName, placed[i].Box, p.Record.Color(), face)
	}
	return img
}

// drawPin paints a white disc with a colored ring.
func drawPin(img *image.RGBA, p Pin) {
	r := p.Radius
	outline := p.Record.Color()
	for y := int(p.Y - r - 1); y <= int(p.Y+r+1); y++ {
		for x := int(p.X - r - 1); x <= int(p.X+r+1); x++ {
			d := math.Hypot(float64(x)-p.X, float64(y)-p.Y)
			switch {
			case d <= r-boxBorderWidth:
				img.Set(x, y, white)
			case d <= r:
				img.Set(x, y, outline)
			}
		}
	}
}

// drawLabelBox fills a rounded rectangle in white and strokes its border in
// the category color.
func drawLabelBox(img *image.RGBA, box layout.Rect, border color.RGBA) {
	x0, y0, x1, y1 := box.X0, box.Y0, box.X1, box.Y1
	for y := int(y0); y <= int(y1); y++ {
		for x := int(x0); x <= int(x1); x++ {
			d := cornerDistance(float64(x), float64(y), x0, y0, x1, y1)
			switch {
			case d > boxCornerRadius:
				// Outside the rounded corner.
			case d > boxCornerRadius-boxBorderWidth:
				img.Set(x, y, border)
			default:
				img.Set(x, y, white)
			}
		}
	}
}

// cornerDistance measures how far a pixel sits outside the corner-inset
// rectangle, so a single threshold yields both the rounded outline and the
// fill. Interior pixels report zero.
func cornerDistance(x, y, x0, y0, x1, y1 float64) float64 {
	ix0, iy0 := x0+boxCornerRadius, y0+boxCornerRadius
	ix1, iy1 := x1-boxCornerRadius, y1-boxCornerRadius

	dx := math.Max(math.Max(ix0-x, x-ix1), 0)
	dy := math.Max(math.Max(iy0-y, y-iy1), 0)
	return math.Hypot(dx, dy)
}

// drawConnector draws a line from the pin edge to the nearest point on the
// label box. Boxes hugging the pin need no connector.
func drawConnector(img *image.RGBA, p Pin, box layout.Rect) {
	// Nearest point on the box to the pin center.
	nx := math.Min(math.Max(p.X, box.X0), box.X1)
	ny := math.Min(math.Max(p.Y, box.Y0), box.Y1)

	dist := math.Hypot(nx-p.X, ny-p.Y)
	if dist <= p.Radius {
		return
	}

	// Start at the pin edge, not its center.
	ux, uy := (nx-p.X)/dist, (ny-p.Y)/dist
	sx, sy := p.X+ux*p.Radius, p.Y+uy*p.Radius
	drawLine(img, sx, sy, nx, ny, p.Record.Color())
}

func drawLine(img *image.RGBA, x0, y0, x1, y1 float64, c color.RGBA) {
	steps := int(math.Max(math.Abs(x1-x0), math.Abs(y1-y0))) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(x0 + (x1-x0)*t))
		y := int(math.Round(y0 + (y1-y0)*t))
		img.Set(x, y, c)
		img.Set(x+1, y, c)
	}
}

func drawCenteredText(img *image.RGBA, text string, box layout.Rect, c color.RGBA, face font.Face) {
	w := font.MeasureString(face, text).Ceil()
	m := face.Metrics()
	h := (m.Ascent + m.Descent).Ceil()

	x := int(box.X0) + (int(box.W())-w)/2
	y := int(box.Y0) + (int(box.H())-h)/2 + m.Ascent.Ceil()

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// WritePNG encodes the image to w.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return eris.Wrap(err, "render: encode png")
	}
	return nil
}
