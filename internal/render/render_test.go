package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"

	"github.com/sells-group/placemap/internal/layout"
	"github.com/sells-group/placemap/internal/place"
)

func grayBase(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	gray := color.RGBA{0x80, 0x80, 0x80, 0xFF}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, gray)
		}
	}
	return img
}

func at(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func TestMeasure(t *testing.T) {
	measure := Measure(basicfont.Face7x13)
	w, h := measure("hello")
	assert.Equal(t, float64(5*7), w)
	assert.Greater(t, h, 10.0)

	w2, _ := measure("hi")
	assert.Less(t, w2, w)
}

func TestDefaultFace_NeverNil(t *testing.T) {
	assert.NotNil(t, DefaultFace(13))
}

func TestLoadFace_MissingFile(t *testing.T) {
	_, err := LoadFace("/nonexistent/font.ttf", 13)
	assert.Error(t, err)
}

func TestCompose_PinGlyph(t *testing.T) {
	rec := place.New("서울", "A점", place.TypeB, 0)
	pins := []Pin{{Record: rec, X: 100, Y: 100, Radius: 8}}
	placed := []layout.PlacedLabel{{
		AnchorX: 100, AnchorY: 100,
		Box: layout.Rect{X0: 60, Y0: 60, X1: 140, Y1: 80},
		Dir: layout.DirTop,
	}}

	img := Compose(grayBase(200, 200), pins, placed, basicfont.Face7x13)

	assert.Equal(t, white, at(img, 100, 100), "pin center is white")
	assert.Equal(t, rec.Color(), at(img, 100, 108), "pin ring uses the category color")
	assert.Equal(t, color.RGBA{0x80, 0x80, 0x80, 0xFF}, at(img, 100, 115), "outside the pin stays basemap")
}

func TestCompose_LabelBox(t *testing.T) {
	rec := place.New("서울", "A점", place.TypeA, 0)
	box := layout.Rect{X0: 20, Y0: 20, X1: 120, Y1: 50}
	pins := []Pin{{Record: rec, X: 160, Y: 160, Radius: 8}}
	placed := []layout.PlacedLabel{{AnchorX: 160, AnchorY: 160, Box: box, Dir: layout.DirTopLeft}}

	img := Compose(grayBase(200, 200), pins, placed, basicfont.Face7x13)

	assert.Equal(t, white, at(img, 70, 40), "box interior is white")
	assert.Equal(t, rec.Color(), at(img, 70, 20), "top border uses the category color")
	assert.Equal(t, color.RGBA{0x80, 0x80, 0x80, 0xFF}, at(img, 20, 20), "rounded corner pixel stays basemap")
}

func TestCompose_ConnectorDrawnForDistantBox(t *testing.T) {
	rec := place.New("서울", "A", place.TypeC, 0)
	box := layout.Rect{X0: 20, Y0: 90, X1: 60, Y1: 110}
	pins := []Pin{{Record: rec, X: 160, Y: 100, Radius: 8}}
	placed := []layout.PlacedLabel{{AnchorX: 160, AnchorY: 100, Box: box, Dir: layout.DirLeft}}

	img := Compose(grayBase(200, 200), pins, placed, basicfont.Face7x13)

	// Midway between pin edge and box edge along the horizontal line.
	assert.Equal(t, rec.Color(), at(img, 100, 100))
	// Inside the pin the connector must not show.
	assert.Equal(t, white, at(img, 160, 100))
}

func TestCompose_ConnectorSkippedForAdjacentBox(t *testing.T) {
	rec := place.New("서울", "A", place.TypeD, 0)
	// Box edge within the pin radius.
	box := layout.Rect{X0: 100, Y0: 60, X1: 180, Y1: 95}
	pins := []Pin{{Record: rec, X: 140, Y: 100, Radius: 8}}
	placed := []layout.PlacedLabel{{AnchorX: 140, AnchorY: 100, Box: box, Dir: layout.DirTop}}

	img := Compose(grayBase(220, 220), pins, placed, basicfont.Face7x13)

	// The gap row between box bottom (95) and pin top (~92) carries no
	// stray connector pixels left or right of the pin.
	assert.Equal(t, color.RGBA{0x80, 0x80, 0x80, 0xFF}, at(img, 120, 97))
}

func TestCompose_BoxOverpaintsItsPin(t *testing.T) {
	rec := place.New("서울", "A", place.TypeB, 0)
	pins := []Pin{{Record: rec, X: 100, Y: 100, Radius: 8}}
	// Relaxation can leave a box straddling its own pin; the box wins.
	box := layout.Rect{X0: 60, Y0: 90, X1: 140, Y1: 110}
	placed := []layout.PlacedLabel{{AnchorX: 100, AnchorY: 100, Box: box, Dir: layout.DirTop}}

	img := Compose(grayBase(200, 200), pins, placed, basicfont.Face7x13)

	// Ring pixels inside the box interior show the box fill, not the ring.
	assert.Equal(t, white, at(img, 107, 100))
	assert.Equal(t, white, at(img, 93, 100))
	assert.Equal(t, rec.Color(), at(img, 100, 90), "box border drawn over the pin")
}

func TestScaleCrop_FactorOneCopies(t *testing.T) {
	src := grayBase(50, 50)
	src.Set(10, 10, color.RGBA{0xFF, 0x00, 0x00, 0xFF})

	out := ScaleCrop(src, 1, 50, 50)
	assert.Equal(t, color.RGBA{0xFF, 0x00, 0x00, 0xFF}, at(out, 10, 10))
	assert.Equal(t, color.RGBA{0x80, 0x80, 0x80, 0xFF}, at(out, 30, 30))
}

func TestScaleCrop_DoublesDistanceFromCenter(t *testing.T) {
	black := color.RGBA{0x00, 0x00, 0x00, 0xFF}
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			src.Set(x, y, white)
		}
	}
	// A block 20 px right of center.
	for y := 45; y < 55; y++ {
		for x := 70; x < 80; x++ {
			src.Set(x, y, black)
		}
	}

	out := ScaleCrop(src, 2, 100, 100)
	require.Equal(t, 100, out.Bounds().Dx())
	require.Equal(t, 100, out.Bounds().Dy())

	// Scaling about the center doubles the offset, so the block now starts
	// 40 px right of center and its old location reads the background.
	assert.Equal(t, black, at(out, 95, 50))
	assert.Equal(t, white, at(out, 75, 50))
	assert.Equal(t, white, at(out, 50, 50), "center pixel is a fixed point")
}

func TestCompose_DoesNotMutateBasemap(t *testing.T) {
	base := grayBase(100, 100)
	rec := place.New("서울", "A", place.TypeA, 0)
	pins := []Pin{{Record: rec, X: 50, Y: 50, Radius: 8}}
	placed := []layout.PlacedLabel{{Box: layout.Rect{X0: 10, Y0: 10, X1: 40, Y1: 30}}}

	_ = Compose(base, pins, placed, basicfont.Face7x13)
	assert.Equal(t, color.RGBA{0x80, 0x80, 0x80, 0xFF}, at(base, 50, 50))
}

func TestWritePNG_RoundTrip(t *testing.T) {
	img := grayBase(10, 10)
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, img))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 10), decoded.Bounds())
}
