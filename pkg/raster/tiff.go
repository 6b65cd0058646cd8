package raster

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/tiff"
)

// ReadTIFF decodes a grayscale classification mask from a TIFF file into a
// grid of raw pixel values. Values are deliberately NOT thresholded or
// rescaled: a mask that carries anything other than clean 0/1 classes must
// arrive at the accumulator unchanged so its sentinel policy can flag it.
//
// Georeference comes from a world-file sidecar (.tfw) and a .prj sidecar
// when present; embedded GeoTIFF keys are not parsed.
func ReadTIFF(fp string) (*Grid, error) {
	f, err := os.Open(fp)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("tiff %s: %w", fp, err)
	}

	b := img.Bounds()
	g := New(b.Dy(), b.Dx())

	switch m := img.(type) {
	case *image.Gray:
		for row := 0; row < g.Rows; row++ {
			for col := 0; col < g.Cols; col++ {
				g.Set(row, col, float64(m.GrayAt(b.Min.X+col, b.Min.Y+row).Y))
			}
		}
	case *image.Gray16:
		for row := 0; row < g.Rows; row++ {
			for col := 0; col < g.Cols; col++ {
				g.Set(row, col, float64(m.Gray16At(b.Min.X+col, b.Min.Y+row).Y))
			}
		}
	case *image.Paletted:
		// palette indices are the class values
		for row := 0; row < g.Rows; row++ {
			for col := 0; col < g.Cols; col++ {
				g.Set(row, col, float64(m.ColorIndexAt(b.Min.X+col, b.Min.Y+row)))
			}
		}
	default:
		for row := 0; row < g.Rows; row++ {
			for col := 0; col < g.Cols; col++ {
				gray := color.GrayModel.Convert(img.At(b.Min.X+col, b.Min.Y+row)).(color.Gray)
				g.Set(row, col, float64(gray.Y))
			}
		}
	}

	if ref, err := ReadWorldFile(WorldFilePath(fp)); err == nil {
		ref.Projection = readProjectionSidecar(fp)
		g.GeoRef = ref
	}

	return g, nil
}

// WriteMaskTIFF writes a grid of small non-negative integer classes as an
// 8-bit grayscale TIFF with world-file and .prj sidecars. Values outside
// [0,255] are clipped; this writer serves mask generation, not final
// duration products (see WriteGeoTIFF).
func WriteMaskTIFF(fp string, g *Grid) error {
	img := image.NewGray(image.Rect(0, 0, g.Cols, g.Rows))
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			v := g.At(row, col)
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			img.SetGray(col, row, color.Gray{Y: uint8(v)})
		}
	}

	f, err := os.Create(fp)
	if err != nil {
		return err
	}
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Uncompressed}); err != nil {
		f.Close()
		return fmt.Errorf("tiff %s: %w", fp, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	if g.GeoRef != nil {
		if err := WriteWorldFile(WorldFilePath(fp), g.GeoRef); err != nil {
			return err
		}
		if err := writeProjectionSidecar(fp, g.GeoRef.Projection); err != nil {
			return err
		}
	}
	return nil
}
