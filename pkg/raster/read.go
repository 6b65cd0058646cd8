package raster

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ReadFile loads a raster, choosing the codec from the file extension.
func ReadFile(fp string) (*Grid, error) {
	switch strings.ToLower(filepath.Ext(fp)) {
	case ".tif", ".tiff":
		return ReadTIFF(fp)
	case ".bil":
		return ReadBIL(fp)
	default:
		return nil, fmt.Errorf("raster %s: unsupported extension", fp)
	}
}
