package raster

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// World files (.tfw for TIFF, .blw for BIL) are the six-line ESRI sidecar
// carrying an affine transform. The file stores the CENTER of the upper-left
// pixel; GeoRef.Transform stores its outer corner, so reading and writing
// apply the half-pixel shift.
//
// Line order: x pixel size, y rotation, x rotation, y pixel size (negative
// for north-up), x center of UL pixel, y center of UL pixel.

// ReadWorldFile parses a world file into a GeoRef (projection left empty).
func ReadWorldFile(fp string) (*GeoRef, error) {
	raw, err := os.ReadFile(fp)
	if err != nil {
		return nil, err
	}

	var vals []float64
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("world file %s: bad coefficient %q: %w", fp, line, err)
		}
		vals = append(vals, v)
	}
	if len(vals) != 6 {
		return nil, fmt.Errorf("world file %s: expected 6 coefficients, found %d", fp, len(vals))
	}

	a, d, b, e, c, f := vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]
	ref := &GeoRef{}
	ref.Transform[1] = a
	ref.Transform[4] = d
	ref.Transform[2] = b
	ref.Transform[5] = e
	// shift from pixel center to outer corner
	ref.Transform[0] = c - a/2 - b/2
	ref.Transform[3] = f - d/2 - e/2
	return ref, nil
}

// WriteWorldFile writes ref as a world file at fp.
func WriteWorldFile(fp string, ref *GeoRef) error {
	gt := ref.Transform
	cx := gt[0] + gt[1]/2 + gt[2]/2
	cy := gt[3] + gt[4]/2 + gt[5]/2

	var sb strings.Builder
	for _, v := range []float64{gt[1], gt[4], gt[2], gt[5], cx, cy} {
		fmt.Fprintf(&sb, "%.10f\n", v)
	}
	return os.WriteFile(fp, []byte(sb.String()), 0644)
}

// WorldFilePath returns the conventional world file path for a raster file:
// first and last characters of the extension plus "w" (.tif → .tfw,
// .bil → .blw).
func WorldFilePath(rasterPath string) string {
	ext := filepath.Ext(rasterPath)
	if len(ext) >= 3 {
		short := string(ext[1]) + string(ext[len(ext)-1]) + "w"
		return strings.TrimSuffix(rasterPath, ext) + "." + short
	}
	return rasterPath + ".wld"
}

// projectionPath returns the .prj sidecar path for a raster file.
func projectionPath(rasterPath string) string {
	ext := filepath.Ext(rasterPath)
	return strings.TrimSuffix(rasterPath, ext) + ".prj"
}

// readProjectionSidecar loads the WKT from a .prj sidecar if one exists.
func readProjectionSidecar(rasterPath string) string {
	raw, err := os.ReadFile(projectionPath(rasterPath))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// writeProjectionSidecar writes the WKT next to the raster when non-empty.
func writeProjectionSidecar(rasterPath, wkt string) error {
	if wkt == "" {
		return nil
	}
	return os.WriteFile(projectionPath(rasterPath), []byte(wkt+"\n"), 0644)
}
