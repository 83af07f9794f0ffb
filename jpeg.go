package tiff

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/gen2brain/jpegn"

	"github.com/finn-no/TwelveMonkeys/internal/jfif"
)

// maxUnboundedTile caps a tile read when the file omits byte counts; the
// embedded decoder stops at the EOI marker, so over-reading is harmless.
const maxUnboundedTile = 1 << 20

// decodeNewJPEG handles compression 7. The IFD may carry a JPEGTables entry,
// an abbreviated stream whose quantization and Huffman tables apply to every
// tile; those tables are spliced into each tile's stream before it is handed
// to the JPEG decoder.
func (d *Decoder) decodeNewJPEG(dir *Directory, it ImageType, dst *Raster,
	region image.Rectangle, off image.Point, width, height int) error {

	if err := checkJPEGPhotometric(it); err != nil {
		return err
	}
	g, err := resolveGeometry(dir, width, height, 1, d.warn)
	if err != nil {
		return err
	}

	var tables []byte
	if e := dir.EntryByTag(tagJPEGTables); e != nil {
		tables, _ = e.Value.([]byte)
	}
	if tables == nil {
		d.warn("missing JPEGTables for image with compression 7 (JPEG), expecting self-contained tiles")
	}

	row := 0
	for ty := 0; ty < g.tilesDown; ty++ {
		rowsInTile := min(g.tileHeight, height-row)
		col := 0
		for tx := 0; tx < g.tilesAcross; tx++ {
			i := ty*g.tilesAcross + tx
			colsInTile := min(g.tileWidth, width-col)

			body, err := d.readTileBytes(g, 0, i)
			if err != nil {
				return err
			}
			stream := body
			if tables != nil {
				if stream, err = jfif.InsertTables(body, tables); err != nil {
					return &CodecError{Codec: "jpeg", Err: err}
				}
			}

			img, err := jpegn.Decode(bytes.NewReader(stream))
			if err != nil {
				return &CodecError{Codec: "jpeg", Err: err}
			}
			if err := blitImage(dst, img, region, off, col, row, colsInTile, rowsInTile); err != nil {
				return err
			}

			if d.cancelled.Load() {
				d.warn("decode cancelled")
				return nil
			}
			col += colsInTile
		}
		row += rowsInTile
		d.progress(100 * float64(row) / float64(height))
	}

	return nil
}

// decodeOldJPEG handles the withdrawn compression 6. With a
// JPEGInterchangeFormat tag the image is one self-contained JFIF stream;
// without it, a stream is synthesized per tile from the quantization and
// Huffman table tags.
func (d *Decoder) decodeOldJPEG(dir *Directory, it ImageType, dst *Raster,
	region image.Rectangle, off image.Point, width, height int) error {

	if err := checkJPEGPhotometric(it); err != nil {
		return err
	}

	proc := tagLongWithDefault(dir, tagJPEGProc, jpegProcBaseline)
	switch proc {
	case jpegProcBaseline:
	case jpegProcLossless:
		return UnsupportedError("JPEGProc 14 (lossless)")
	default:
		return FormatError(fmt.Sprintf("unknown JPEGProc value: %d", proc))
	}

	if jpegOffset, ok := tagLong(dir, tagJPEGInterchangeFormat); ok {
		return d.decodeOldJPEGInterchange(dir, dst, region, off, width, height, jpegOffset)
	}
	return d.decodeOldJPEGSynthesized(dir, it, dst, region, off, width, height)
}

func (d *Decoder) decodeOldJPEGInterchange(dir *Directory, dst *Raster,
	region image.Rectangle, off image.Point, width, height int, jpegOffset int64) error {

	if dir.EntryByTag(tagJPEGQTables) != nil || dir.EntryByTag(tagJPEGDCTables) != nil ||
		dir.EntryByTag(tagJPEGACTables) != nil {
		d.warn("old-style JPEG with JFIF stream, ignoring JPEG tables, reading as single tile")
	} else {
		d.warn("old-style JPEG with JFIF stream, reading as single tile")
	}

	length := tagLongWithDefault(dir, tagJPEGInterchangeFormatLen, -1)
	src, err := d.r.section(jpegOffset, length)
	if err != nil {
		return err
	}
	if length < 0 {
		d.warn("missing JPEGInterchangeFormatLength, reading to end of stream")
		src = io.LimitReader(src, maxUnboundedTile)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}

	img, err := jpegn.Decode(bytes.NewReader(data))
	if err != nil {
		return &CodecError{Codec: "jpeg", Err: err}
	}
	if err := blitImage(dst, img, region, off, 0, 0, width, height); err != nil {
		return err
	}
	d.progress(100)
	return nil
}

func (d *Decoder) decodeOldJPEGSynthesized(dir *Directory, it ImageType, dst *Raster,
	region image.Rectangle, off image.Point, width, height int) error {

	d.warn("old-style JPEG without JFIF stream, re-creating JFIF stream from table tags")

	g, err := resolveGeometry(dir, width, height, 1, d.warn)
	if err != nil {
		return err
	}

	qTables, err := d.readOldJPEGTables(dir, tagJPEGQTables, false)
	if err != nil {
		return err
	}
	dcTables, err := d.readOldJPEGTables(dir, tagJPEGDCTables, true)
	if err != nil {
		return err
	}
	acTables, err := d.readOldJPEGTables(dir, tagJPEGACTables, true)
	if err != nil {
		return err
	}

	components := int(tagLongWithDefault(dir, tagSamplesPerPixel, 1))
	sampling, err := d.frameSampling(dir, it, components)
	if err != nil {
		return err
	}

	row := 0
	for ty := 0; ty < g.tilesDown; ty++ {
		rowsInTile := min(g.tileHeight, height-row)
		col := 0
		for tx := 0; tx < g.tilesAcross; tx++ {
			i := ty*g.tilesAcross + tx
			colsInTile := min(g.tileWidth, width-col)

			body, err := d.readTileBytes(g, 0, i)
			if err != nil {
				return err
			}
			stream := jfif.Synthesize(jfif.FrameSpec{
				Width:      colsInTile,
				Height:     rowsInTile,
				Components: components,
				Sampling:   sampling,
			}, qTables, dcTables, acTables, body)

			img, err := jpegn.Decode(bytes.NewReader(stream))
			if err != nil {
				return &CodecError{Codec: "jpeg", Err: err}
			}
			if err := blitImage(dst, img, region, off, col, row, colsInTile, rowsInTile); err != nil {
				return err
			}

			if d.cancelled.Load() {
				d.warn("decode cancelled")
				return nil
			}
			col += colsInTile
		}
		row += rowsInTile
		d.progress(100 * float64(row) / float64(height))
	}

	return nil
}

// readOldJPEGTables reads the per-component tables an old-style tag points
// at. Quantization tables have the canonical 64-byte size; Huffman tables
// are sized from their own code-length counts. Adjacent offsets are used
// only as a sanity cross-check.
func (d *Decoder) readOldJPEGTables(dir *Directory, tag uint16, huffman bool) ([][]byte, error) {
	offsets := tagLongArray(dir, tag)
	if offsets == nil {
		return nil, &MissingTagError{Tag: tag}
	}

	tables := make([][]byte, len(offsets))
	for j, off := range offsets {
		if huffman {
			var counts [16]byte
			if err := d.r.readAt(counts[:], off); err != nil {
				return nil, err
			}
			n, err := jfif.HuffmanTableLength(counts[:])
			if err != nil {
				return nil, &CodecError{Codec: "jpeg", Err: err}
			}
			tables[j] = make([]byte, n)
		} else {
			tables[j] = make([]byte, jfif.QuantTableLength)
		}
		if err := d.r.readAt(tables[j], off); err != nil {
			return nil, err
		}
	}

	if len(offsets) > 1 {
		if delta := offsets[1] - offsets[0]; delta > 0 && int(delta) != len(tables[0]) {
			d.warn(fmt.Sprintf("%s offsets suggest table length %d, using self-described length %d",
				TagName(tag), delta, len(tables[0])))
		}
	}

	return tables, nil
}

// frameSampling builds the per-component sampling factors for a synthesized
// frame header. The luma component takes its factors from YCbCrSubSampling
// (default 2x2); chroma components and single-component images are 1x1.
func (d *Decoder) frameSampling(dir *Directory, it ImageType, components int) ([]byte, error) {
	sampling := make([]byte, components)
	for c := range sampling {
		sampling[c] = 0x11
	}
	if components > 1 && it.Photometric == photometricYCbCr {
		ycc, err := readYCbCrParams(dir, d.warn)
		if err != nil {
			return nil, err
		}
		sampling[0] = byte(ycc.subH)<<4 | byte(ycc.subV)
	} else if components > 1 {
		sampling[0] = 0x22
	}
	return sampling, nil
}

// readTileBytes reads one tile's compressed body.
func (d *Decoder) readTileBytes(g *geometry, plane, i int) ([]byte, error) {
	n := g.tileByteCount(plane, i)
	if n < 0 {
		n = maxUnboundedTile
	}
	src, err := d.r.section(g.tileOffset(plane, i), n)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(src)
}

// blitImage maps a decoded tile at image position (col, row) through the
// source region and destination offset, then paints the visible part.
func blitImage(dst *Raster, img image.Image, region image.Rectangle, off image.Point,
	col, row, colsInTile, rowsInTile int) error {

	tileRect := image.Rect(col, row, col+colsInTile, row+rowsInTile)
	vis := tileRect.Intersect(region)
	if vis.Empty() {
		return nil
	}
	return dst.drawImage(img,
		vis.Min.X-region.Min.X+off.X, vis.Min.Y-region.Min.Y+off.Y,
		vis.Min.X-col, vis.Min.Y-row,
		vis.Dx(), vis.Dy())
}

// checkJPEGPhotometric rejects interpretations the JPEG path cannot deliver
// faithfully into the destination models this decoder allocates.
func checkJPEGPhotometric(it ImageType) error {
	if it.Model == ModelCMYK {
		return UnsupportedPhotometricError(photometricSeparated)
	}
	return nil
}
