// Package colormap renders duration rasters into quick-look PNG images.
//
// The palette reproduces the "crest" sequential colormap (pale green through
// deep blue) by perceptual Lab-space interpolation between its anchor
// colors, which reads naturally for water duration: the longer a pixel stays
// wet, the deeper the blue.
package colormap

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/floats"

	"github.com/wetlandtools/hydroperiod/pkg/raster"
)

// crest anchor colors, pale green to deep blue
var crestAnchors = [][3]uint8{
	{165, 205, 144},
	{136, 194, 157},
	{109, 182, 167},
	{84, 169, 173},
	{63, 155, 175},
	{47, 140, 174},
	{38, 124, 169},
	{35, 106, 160},
	{37, 88, 146},
	{42, 68, 128},
}

// Ramp is a continuous colormap built from a list of anchor colors.
type Ramp struct {
	stops []colorful.Color
}

// Crest returns the default duration ramp.
func Crest() *Ramp {
	stops := make([]colorful.Color, len(crestAnchors))
	for i, a := range crestAnchors {
		stops[i] = colorful.Color{
			R: float64(a[0]) / 255.0,
			G: float64(a[1]) / 255.0,
			B: float64(a[2]) / 255.0,
		}
	}
	return &Ramp{stops: stops}
}

// At maps t in [0,1] to a palette color, interpolating between the two
// nearest anchors in Lab space. Out-of-range t is clamped.
func (r *Ramp) At(t float64) colorful.Color {
	if t <= 0 {
		return r.stops[0]
	}
	if t >= 1 {
		return r.stops[len(r.stops)-1]
	}
	pos := t * float64(len(r.stops)-1)
	i := int(pos)
	frac := pos - float64(i)
	return r.stops[i].BlendLab(r.stops[i+1], frac).Clamped()
}

// Render paints a duration raster through the ramp. Values are shifted up by
// one so the -1 sentinel lands on zero, then min-max normalized across the
// raster. Pixels at the bottom of the range paint white, which keeps
// sentinel and never-wet areas from reading as shallow water; a flat raster
// comes out all white.
func Render(g *raster.Grid, ramp *Ramp) *image.RGBA {
	shifted := make([]float64, len(g.Data))
	for i, v := range g.Data {
		shifted[i] = v + 1
	}

	var lo, hi float64
	if len(shifted) > 0 {
		lo = floats.Min(shifted)
		hi = floats.Max(shifted)
	}
	span := hi - lo

	img := image.NewRGBA(image.Rect(0, 0, g.Cols, g.Rows))
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			v := shifted[row*g.Cols+col]
			if span == 0 || v == lo {
				img.SetRGBA(col, row, white)
				continue
			}
			cr, cg, cb := ramp.At((v - lo) / span).RGB255()
			img.SetRGBA(col, row, color.RGBA{R: cr, G: cg, B: cb, A: 255})
		}
	}
	return img
}

// WritePNG renders the raster and writes it as a PNG file.
func WritePNG(fp string, g *raster.Grid, ramp *Ramp) error {
	f, err := os.Create(fp)
	if err != nil {
		return err
	}
	if err := png.Encode(f, Render(g, ramp)); err != nil {
		f.Close()
		return fmt.Errorf("png %s: %w", fp, err)
	}
	return f.Close()
}
