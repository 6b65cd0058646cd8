package raster

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// The BIL codec speaks the ESRI band-interleaved-by-line layout: a flat
// binary file of pixel values plus a plain-text .hdr sidecar. Values are
// written as little-endian float32, the interchange format used across the
// goHydro-style tooling this pipeline sits next to.

// ReadBIL loads a single-band .bil raster and its .hdr sidecar. 8-bit
// unsigned and 32-bit float pixel types are supported; the georeference is
// assembled from the header's map keys and a .prj sidecar when present.
func ReadBIL(fp string) (*Grid, error) {
	hdr, err := readHDR(hdrPath(fp))
	if err != nil {
		return nil, err
	}

	rows, cols := hdr.nrows, hdr.ncols
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("bil %s: header has no grid dimensions", fp)
	}
	if hdr.nbands != 1 {
		return nil, fmt.Errorf("bil %s: %d bands unsupported (single-band only)", fp, hdr.nbands)
	}

	raw, err := os.ReadFile(fp)
	if err != nil {
		return nil, err
	}

	n := rows * cols
	g := New(rows, cols)

	switch {
	case hdr.nbits == 32 && hdr.pixeltype == "FLOAT":
		if len(raw) < n*4 {
			return nil, fmt.Errorf("bil %s: %d bytes, need %d for %dx%d float32", fp, len(raw), n*4, rows, cols)
		}
		for i := 0; i < n; i++ {
			bits := hdr.order.Uint32(raw[i*4 : i*4+4])
			g.Data[i] = float64(math.Float32frombits(bits))
		}
	case hdr.nbits == 8:
		if len(raw) < n {
			return nil, fmt.Errorf("bil %s: %d bytes, need %d for %dx%d byte", fp, len(raw), n, rows, cols)
		}
		for i := 0; i < n; i++ {
			g.Data[i] = float64(raw[i])
		}
	default:
		return nil, fmt.Errorf("bil %s: unsupported pixel type %s/%d bits", fp, hdr.pixeltype, hdr.nbits)
	}

	if hdr.hasMap {
		ref := &GeoRef{Projection: readProjectionSidecar(fp)}
		ref.Transform[1] = hdr.xdim
		ref.Transform[5] = -hdr.ydim
		// ULXMAP/ULYMAP address the center of the upper-left pixel
		ref.Transform[0] = hdr.ulx - hdr.xdim/2
		ref.Transform[3] = hdr.uly + hdr.ydim/2
		g.GeoRef = ref
	}

	return g, nil
}

// WriteBIL writes the grid as little-endian float32 with an ESRI .hdr
// sidecar, a .prj sidecar when a projection is known, and the given nodata
// value advertised in the header.
func WriteBIL(fp string, g *Grid, nodata float64) error {
	f32 := make([]float32, len(g.Data))
	for i, v := range g.Data {
		f32[i] = float32(v)
	}
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, f32)
	if err := os.WriteFile(fp, buf.Bytes(), 0644); err != nil {
		return err
	}

	if err := writeHDRFloat(hdrPath(fp), g, nodata); err != nil {
		return err
	}
	if g.GeoRef != nil {
		if err := writeProjectionSidecar(fp, g.GeoRef.Projection); err != nil {
			return err
		}
	}
	return nil
}

func hdrPath(fp string) string {
	ext := filepath.Ext(fp)
	return strings.TrimSuffix(fp, ext) + ".hdr"
}

func writeHDRFloat(fp string, g *Grid, nodata float64) error {
	rowBytes := g.Cols * 4

	var sb strings.Builder
	fmt.Fprintf(&sb, "BYTEORDER      I\n")
	fmt.Fprintf(&sb, "LAYOUT         BIL\n")
	fmt.Fprintf(&sb, "NROWS          %d\n", g.Rows)
	fmt.Fprintf(&sb, "NCOLS          %d\n", g.Cols)
	fmt.Fprintf(&sb, "NBANDS         1\n")
	fmt.Fprintf(&sb, "NBITS          32\n")
	fmt.Fprintf(&sb, "PIXELTYPE      FLOAT\n")
	fmt.Fprintf(&sb, "BANDROWBYTES   %d\n", rowBytes)
	fmt.Fprintf(&sb, "TOTALROWBYTES  %d\n", rowBytes)
	if g.GeoRef != nil {
		gt := g.GeoRef.Transform
		dx, dy := g.GeoRef.PixelSize()
		fmt.Fprintf(&sb, "ULXMAP         %.10f\n", gt[0]+dx/2)
		fmt.Fprintf(&sb, "ULYMAP         %.10f\n", gt[3]-dy/2)
		fmt.Fprintf(&sb, "XDIM           %.10f\n", dx)
		fmt.Fprintf(&sb, "YDIM           %.10f\n", dy)
	}
	fmt.Fprintf(&sb, "NODATA         %g\n", nodata)
	return os.WriteFile(fp, []byte(sb.String()), 0644)
}

type bilHeader struct {
	nrows, ncols, nbands, nbits int
	pixeltype                   string
	order                       binary.ByteOrder
	ulx, uly, xdim, ydim        float64
	hasMap                      bool
}

func readHDR(fp string) (*bilHeader, error) {
	raw, err := os.ReadFile(fp)
	if err != nil {
		return nil, fmt.Errorf("bil header: %w", err)
	}

	hdr := &bilHeader{nbands: 1, nbits: 8, pixeltype: "UNSIGNEDINT", order: binary.LittleEndian}
	var haveX, haveY, haveDX, haveDY bool

	for _, line := range strings.Split(string(raw), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		key := strings.ToUpper(fields[0])
		val := fields[1]
		switch key {
		case "NROWS":
			hdr.nrows, err = strconv.Atoi(val)
		case "NCOLS":
			hdr.ncols, err = strconv.Atoi(val)
		case "NBANDS":
			hdr.nbands, err = strconv.Atoi(val)
		case "NBITS":
			hdr.nbits, err = strconv.Atoi(val)
		case "PIXELTYPE":
			hdr.pixeltype = strings.ToUpper(val)
		case "BYTEORDER":
			if strings.EqualFold(val, "M") {
				hdr.order = binary.BigEndian
			}
		case "ULXMAP":
			hdr.ulx, err = strconv.ParseFloat(val, 64)
			haveX = true
		case "ULYMAP":
			hdr.uly, err = strconv.ParseFloat(val, 64)
			haveY = true
		case "XDIM":
			hdr.xdim, err = strconv.ParseFloat(val, 64)
			haveDX = true
		case "YDIM":
			hdr.ydim, err = strconv.ParseFloat(val, 64)
			haveDY = true
		}
		if err != nil {
			return nil, fmt.Errorf("bil header %s: bad %s value %q: %w", fp, key, val, err)
		}
	}

	// 32-bit data with no explicit PIXELTYPE is float by ESRI convention
	if hdr.nbits == 32 && hdr.pixeltype == "UNSIGNEDINT" {
		hdr.pixeltype = "FLOAT"
	}
	hdr.hasMap = haveX && haveY && haveDX && haveDY
	return hdr, nil
}
