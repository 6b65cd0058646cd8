// Package raster provides an in-memory model for single-band rasters along
// with the codecs the hydroperiod pipeline exchanges data through: ESRI
// BIL/HDR binary grids, grayscale TIFF classification masks, ESRI world
// files, and a single-band float64 GeoTIFF writer for final products.
package raster

import (
	"fmt"
	"math"
)

// GeoRef carries the georeferencing of a raster: a six-coefficient affine
// transform in GDAL order plus an optional projection description (WKT).
//
// Transform maps pixel (col, row) to map coordinates:
//
//	X = Transform[0] + col*Transform[1] + row*Transform[2]
//	Y = Transform[3] + col*Transform[4] + row*Transform[5]
//
// with (Transform[0], Transform[3]) at the outer corner of the upper-left
// pixel. Transform[5] is negative for north-up rasters.
type GeoRef struct {
	Transform  [6]float64
	Projection string
}

// NorthUp reports whether the transform has no rotation terms.
func (g *GeoRef) NorthUp() bool {
	return g.Transform[2] == 0 && g.Transform[4] == 0
}

// PixelSize returns the absolute cell dimensions.
func (g *GeoRef) PixelSize() (dx, dy float64) {
	return math.Abs(g.Transform[1]), math.Abs(g.Transform[5])
}

// Shape is a raster's (rows, cols) dimensions.
type Shape struct {
	Rows, Cols int
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Rows, s.Cols)
}

// Grid is a single-band raster held in memory as row-major float64 values.
// Pixel values carry whatever the source format stored; classification
// semantics (0 dry, 1 wet) belong to the callers.
type Grid struct {
	Rows, Cols int
	Data       []float64
	GeoRef     *GeoRef
}

// New creates a zero-filled grid.
func New(rows, cols int) *Grid {
	return &Grid{
		Rows: rows,
		Cols: cols,
		Data: make([]float64, rows*cols),
	}
}

// NewFilled creates a grid with every pixel set to v.
func NewFilled(rows, cols int, v float64) *Grid {
	g := New(rows, cols)
	if v != 0 {
		for i := range g.Data {
			g.Data[i] = v
		}
	}
	return g
}

// Shape returns the grid's dimensions.
func (g *Grid) Shape() Shape {
	return Shape{Rows: g.Rows, Cols: g.Cols}
}

// At returns the pixel value at (row, col).
func (g *Grid) At(row, col int) float64 {
	return g.Data[row*g.Cols+col]
}

// Set stores a pixel value at (row, col).
func (g *Grid) Set(row, col int, v float64) {
	g.Data[row*g.Cols+col] = v
}

// SameShape reports whether two grids have identical dimensions.
func (g *Grid) SameShape(other *Grid) bool {
	return g.Rows == other.Rows && g.Cols == other.Cols
}

// Clone returns a deep copy of the grid, sharing nothing with the original.
func (g *Grid) Clone() *Grid {
	c := &Grid{
		Rows: g.Rows,
		Cols: g.Cols,
		Data: append([]float64(nil), g.Data...),
	}
	if g.GeoRef != nil {
		ref := *g.GeoRef
		c.GeoRef = &ref
	}
	return c
}
