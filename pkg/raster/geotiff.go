package raster

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// WriteGeoTIFF writes the grid as a single-band, single-strip, uncompressed
// little-endian GeoTIFF with 64-bit IEEE float samples, the nodata value in
// the GDAL_NODATA tag, and the georeference embedded as ModelPixelScale +
// ModelTiepoint (or ModelTransformation for rotated grids) with a minimal
// GeoKey directory. The projection WKT additionally goes to a .prj sidecar,
// which downstream GIS tools accept when they ignore the citation key.
//
// The encoder is deliberately in-repo: the pure-Go TIFF package cannot emit
// float samples or GeoTIFF tags, and the ecosystem alternatives are cgo GDAL
// bindings.
func WriteGeoTIFF(fp string, g *Grid, nodata float64) error {
	if g.Rows <= 0 || g.Cols <= 0 {
		return fmt.Errorf("geotiff %s: empty grid", fp)
	}

	enc := newTIFFEncoder()

	dataLen := uint32(g.Rows * g.Cols * 8)
	const dataOffset = uint32(8) // pixel strip sits right after the header

	enc.addLong(tagImageWidth, uint32(g.Cols))
	enc.addLong(tagImageLength, uint32(g.Rows))
	enc.addShort(tagBitsPerSample, 64)
	enc.addShort(tagCompression, 1) // none
	enc.addShort(tagPhotometric, 1) // BlackIsZero
	enc.addLong(tagStripOffsets, dataOffset)
	enc.addShort(tagSamplesPerPixel, 1)
	enc.addLong(tagRowsPerStrip, uint32(g.Rows))
	enc.addLong(tagStripByteCounts, dataLen)
	enc.addShort(tagPlanarConfig, 1)
	enc.addShort(tagSampleFormat, 3) // IEEE floating point

	if ref := g.GeoRef; ref != nil {
		gt := ref.Transform
		if ref.NorthUp() {
			dx, dy := ref.PixelSize()
			enc.addDoubles(tagModelPixelScale, []float64{dx, dy, 0})
			// raster (0,0,0) ties to the upper-left corner
			enc.addDoubles(tagModelTiepoint, []float64{0, 0, 0, gt[0], gt[3], 0})
		} else {
			enc.addDoubles(tagModelTransformation, []float64{
				gt[1], gt[2], 0, gt[0],
				gt[4], gt[5], 0, gt[3],
				0, 0, 0, 0,
				0, 0, 0, 1,
			})
		}

		keys := [][4]uint16{{geoKeyRasterType, 0, 1, 1}} // PixelIsArea
		var ascii string
		if ref.Projection != "" {
			ascii = ref.Projection + "|"
			keys = append(keys, [4]uint16{geoKeyCitation, tagGeoAsciiParams, uint16(len(ascii)), 0})
		}
		dir := []uint16{1, 1, 0, uint16(len(keys))}
		for _, k := range keys {
			dir = append(dir, k[0], k[1], k[2], k[3])
		}
		enc.addShorts(tagGeoKeyDirectory, dir)
		if ascii != "" {
			enc.addASCII(tagGeoAsciiParams, ascii)
		}
	}

	enc.addASCII(tagGDALNoData, fmt.Sprintf("%g", nodata))

	pixels := new(bytes.Buffer)
	pixels.Grow(int(dataLen))
	binary.Write(pixels, binary.LittleEndian, g.Data)

	out, err := enc.assemble(pixels.Bytes())
	if err != nil {
		return fmt.Errorf("geotiff %s: %w", fp, err)
	}
	if err := os.WriteFile(fp, out, 0644); err != nil {
		return err
	}
	if g.GeoRef != nil {
		return writeProjectionSidecar(fp, g.GeoRef.Projection)
	}
	return nil
}

// TIFF tag and type constants used by the encoder.
const (
	tagImageWidth          = 256
	tagImageLength         = 257
	tagBitsPerSample       = 258
	tagCompression         = 259
	tagPhotometric         = 262
	tagStripOffsets        = 273
	tagSamplesPerPixel     = 277
	tagRowsPerStrip        = 278
	tagStripByteCounts     = 279
	tagPlanarConfig        = 284
	tagSampleFormat        = 339
	tagModelPixelScale     = 33550
	tagModelTiepoint       = 33922
	tagModelTransformation = 34264
	tagGeoKeyDirectory     = 34735
	tagGeoAsciiParams      = 34737
	tagGDALNoData          = 42113

	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12

	geoKeyRasterType = 1025
	geoKeyCitation   = 1026
)

type tiffField struct {
	tag   uint16
	typ   uint16
	count uint32
	value uint32 // inline value, used when raw is nil
	raw   []byte // out-of-line payload
}

type tiffEncoder struct {
	fields []tiffField
}

func newTIFFEncoder() *tiffEncoder {
	return &tiffEncoder{}
}

func (e *tiffEncoder) addShort(tag uint16, v uint16) {
	e.fields = append(e.fields, tiffField{tag: tag, typ: typeShort, count: 1, value: uint32(v)})
}

func (e *tiffEncoder) addLong(tag uint16, v uint32) {
	e.fields = append(e.fields, tiffField{tag: tag, typ: typeLong, count: 1, value: v})
}

func (e *tiffEncoder) addShorts(tag uint16, vs []uint16) {
	raw := make([]byte, 2*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint16(raw[i*2:], v)
	}
	e.fields = append(e.fields, tiffField{tag: tag, typ: typeShort, count: uint32(len(vs)), raw: raw})
}

func (e *tiffEncoder) addDoubles(tag uint16, vs []float64) {
	raw := new(bytes.Buffer)
	binary.Write(raw, binary.LittleEndian, vs)
	e.fields = append(e.fields, tiffField{tag: tag, typ: typeDouble, count: uint32(len(vs)), raw: raw.Bytes()})
}

func (e *tiffEncoder) addASCII(tag uint16, s string) {
	raw := append([]byte(s), 0)
	e.fields = append(e.fields, tiffField{tag: tag, typ: typeASCII, count: uint32(len(raw)), raw: raw})
}

// assemble lays out header + pixel strip + IFD + out-of-line values and
// returns the finished file. Fields must have been added in ascending tag
// order, which the TIFF specification requires of the IFD.
func (e *tiffEncoder) assemble(pixels []byte) ([]byte, error) {
	for i := 1; i < len(e.fields); i++ {
		if e.fields[i-1].tag >= e.fields[i].tag {
			return nil, fmt.Errorf("ifd tags out of order: %d before %d", e.fields[i-1].tag, e.fields[i].tag)
		}
	}

	ifdOffset := 8 + len(pixels)
	if ifdOffset%2 != 0 {
		pixels = append(pixels, 0)
		ifdOffset++
	}
	ifdSize := 2 + 12*len(e.fields) + 4
	extraOffset := ifdOffset + ifdSize

	// place out-of-line payloads
	extra := new(bytes.Buffer)
	for i := range e.fields {
		f := &e.fields[i]
		if f.raw == nil {
			continue
		}
		if len(f.raw) <= 4 {
			// small payloads pack into the value word directly
			var word [4]byte
			copy(word[:], f.raw)
			f.value = binary.LittleEndian.Uint32(word[:])
			f.raw = nil
			continue
		}
		if extra.Len()%2 != 0 {
			extra.WriteByte(0)
		}
		f.value = uint32(extraOffset + extra.Len())
		extra.Write(f.raw)
	}

	out := new(bytes.Buffer)
	out.Grow(ifdOffset + ifdSize + extra.Len())

	// header
	out.WriteString("II")
	binary.Write(out, binary.LittleEndian, uint16(42))
	binary.Write(out, binary.LittleEndian, uint32(ifdOffset))

	out.Write(pixels)

	// IFD
	binary.Write(out, binary.LittleEndian, uint16(len(e.fields)))
	for _, f := range e.fields {
		binary.Write(out, binary.LittleEndian, f.tag)
		binary.Write(out, binary.LittleEndian, f.typ)
		binary.Write(out, binary.LittleEndian, f.count)
		binary.Write(out, binary.LittleEndian, f.value)
	}
	binary.Write(out, binary.LittleEndian, uint32(0)) // no next IFD

	out.Write(extra.Bytes())
	return out.Bytes(), nil
}
