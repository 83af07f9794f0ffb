package tiff

import (
	"fmt"
	"image"
	"io"
	"sync/atomic"
)

// Options configure a decode session.
type Options struct {
	// OnWarning receives non-fatal diagnostics (missing byte counts, spec
	// violations the decoder recovers from, ...). Nil discards them.
	OnWarning func(message string)
	// OnProgress receives the completion percentage (0..100) after each row
	// of tiles. Nil discards it.
	OnProgress func(percent float64)
}

// ReadParam narrows a single Decode call. The zero value decodes the whole
// image into a fresh raster.
type ReadParam struct {
	// SourceRegion restricts decoding to a sub-rectangle of the image; it is
	// clipped to the image bounds.
	SourceRegion *image.Rectangle
	// DestOffset places the decoded region at an offset in the destination.
	DestOffset image.Point
	// DestRaster reuses an existing raster instead of allocating one. Its
	// layout must match the image and it must be large enough.
	DestRaster *Raster

	// BandSubset and Subsampling are recognized but not implemented; setting
	// them fails with ErrUnsupportedParam.
	BandSubset             []int
	SubsampleX, SubsampleY int
}

// Decoder is a TIFF decode session over one input. It is not safe for
// concurrent use; independent sessions over independent inputs are.
type Decoder struct {
	r    *reader
	opts Options

	ifds      *CompoundDirectory
	sessErr   error
	cancelled atomic.Bool
}

// Open starts a decode session. The IFD chain is read lazily on first query
// and cached for the life of the session.
func Open(rs io.ReadSeeker, optFns ...func(*Options)) (*Decoder, error) {
	d := &Decoder{r: newReader(rs)}
	for _, fn := range optFns {
		if fn != nil {
			fn(&d.opts)
		}
	}
	return d, nil
}

func (d *Decoder) warn(msg string) {
	if d.opts.OnWarning != nil {
		d.opts.OnWarning(msg)
	}
}

func (d *Decoder) progress(pct float64) {
	if d.opts.OnProgress != nil {
		d.opts.OnProgress(pct)
	}
}

// Cancel requests that an in-flight Decode stop. The decode returns the
// raster as filled so far and reports the cancellation through the warning
// callback; the session stays usable.
func (d *Decoder) Cancel() {
	d.cancelled.Store(true)
}

func (d *Decoder) readMetadata() (*CompoundDirectory, error) {
	if d.sessErr != nil {
		return nil, d.sessErr
	}
	if d.ifds == nil {
		ifds, err := readDirectories(d.r, d.warn)
		if err != nil {
			// Structural failures poison the session.
			d.sessErr = err
			return nil, err
		}
		d.ifds = ifds
	}
	return d.ifds, nil
}

// Directories returns the parsed IFD chain.
func (d *Decoder) Directories() (*CompoundDirectory, error) {
	return d.readMetadata()
}

// NumImages returns the number of images (top-level IFDs) in the file.
func (d *Decoder) NumImages() (int, error) {
	ifds, err := d.readMetadata()
	if err != nil {
		return 0, err
	}
	return ifds.Count(), nil
}

func (d *Decoder) directory(i int) (*Directory, error) {
	ifds, err := d.readMetadata()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= ifds.Count() {
		return nil, fmt.Errorf("tiff: image index %d out of range [0, %d)", i, ifds.Count())
	}
	return ifds.Directory(i), nil
}

// Width returns the pixel width of image i.
func (d *Decoder) Width(i int) (int, error) {
	dir, err := d.directory(i)
	if err != nil {
		return 0, err
	}
	w, ok := tagLong(dir, tagImageWidth)
	if !ok {
		return 0, &MissingTagError{Tag: tagImageWidth}
	}
	return int(w), nil
}

// Height returns the pixel height of image i.
func (d *Decoder) Height(i int) (int, error) {
	dir, err := d.directory(i)
	if err != nil {
		return 0, err
	}
	h, ok := tagLong(dir, tagImageHeight)
	if !ok {
		return 0, &MissingTagError{Tag: tagImageHeight}
	}
	return int(h), nil
}

// RawImageType returns the destination layout image i decodes into.
func (d *Decoder) RawImageType(i int) (ImageType, error) {
	dir, err := d.directory(i)
	if err != nil {
		return ImageType{}, err
	}
	return rawImageType(dir)
}

// ImageTypes returns the raw layout, followed by the four-band RGBA layout
// when the raw layout is 8-bit three-band RGB. No other conversions are
// listed.
func (d *Decoder) ImageTypes(i int) ([]ImageType, error) {
	raw, err := d.RawImageType(i)
	if err != nil {
		return nil, err
	}
	types := []ImageType{raw}
	if raw.Model == ModelRGB && raw.Bands == 3 && raw.Transfer == TransferByte {
		conv := raw
		conv.Bands = 4
		conv.HasAlpha = true
		types = append(types, conv)
	}
	return types, nil
}

// ICCProfile returns the raw embedded ICC profile of image i, or nil.
// Applying the profile is the caller's concern.
func (d *Decoder) ICCProfile(i int) ([]byte, error) {
	dir, err := d.directory(i)
	if err != nil {
		return nil, err
	}
	e := dir.EntryByTag(tagICCProfile)
	if e == nil {
		return nil, nil
	}
	profile, ok := e.Value.([]byte)
	if !ok {
		return nil, InconsistentMetadataError(fmt.Sprintf("ICCProfile has field type %d", e.Type))
	}
	return profile, nil
}

// Decode reads image i into a raster. Per-image failures (unsupported
// layouts, codec errors) leave the session usable for other images.
func (d *Decoder) Decode(i int, paramFns ...func(*ReadParam)) (*Raster, error) {
	dir, err := d.directory(i)
	if err != nil {
		return nil, err
	}

	var param ReadParam
	for _, fn := range paramFns {
		if fn != nil {
			fn(&param)
		}
	}
	if len(param.BandSubset) > 0 || param.SubsampleX > 1 || param.SubsampleY > 1 {
		return nil, ErrUnsupportedParam
	}

	width, err := d.Width(i)
	if err != nil {
		return nil, err
	}
	height, err := d.Height(i)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, InconsistentMetadataError(fmt.Sprintf("invalid image size %dx%d", width, height))
	}

	it, err := rawImageType(dir)
	if err != nil {
		return nil, err
	}

	compression := int(tagLongWithDefault(dir, tagCompression, compressionNone))
	if err := checkCompression(compression); err != nil {
		return nil, err
	}
	if fo := tagLongWithDefault(dir, tagFillOrder, 1); fo != 1 {
		return nil, UnsupportedError(fmt.Sprintf("FillOrder %d", fo))
	}

	region := image.Rect(0, 0, width, height)
	if param.SourceRegion != nil {
		region = region.Intersect(*param.SourceRegion)
		if region.Empty() {
			return nil, UnsupportedError("source region outside image bounds")
		}
	}
	needW := param.DestOffset.X + region.Dx()
	needH := param.DestOffset.Y + region.Dy()

	dst := param.DestRaster
	if dst != nil {
		if !dst.compatible(it, needW, needH) {
			return nil, UnsupportedError(fmt.Sprintf(
				"destination raster does not match layout %v (%dx%d needed)", it, needW, needH))
		}
	} else {
		dst = newRaster(it, needW, needH)
	}

	d.cancelled.Store(false)

	switch compression {
	case compressionJPEG:
		err = d.decodeNewJPEG(dir, it, dst, region, param.DestOffset, width, height)
	case compressionOldJPEG:
		err = d.decodeOldJPEG(dir, it, dst, region, param.DestOffset, width, height)
	default:
		err = d.decodeBaseline(dir, it, dst, region, param.DestOffset, width, height, compression)
	}
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// decodeBaseline drives the strip/tile loop for the non-JPEG compressions:
// seek, codec stream, optional chroma upsampling, then per row predictor
// reversal, photometric normalization and the destination blit.
func (d *Decoder) decodeBaseline(dir *Directory, it ImageType, dst *Raster,
	region image.Rectangle, off image.Point, width, height, compression int) error {

	predictor := int(tagLongWithDefault(dir, tagPredictor, predictorNone))
	if err := checkPredictor(predictor); err != nil {
		return err
	}

	spp := int(tagLongWithDefault(dir, tagSamplesPerPixel, 1))
	planes := 1
	bandsPerRead := spp
	if it.Planar {
		planes = spp
		bandsPerRead = 1
	}

	g, err := resolveGeometry(dir, width, height, planes, d.warn)
	if err != nil {
		return err
	}

	var ycc *ycbcrParams
	if it.Photometric == photometricYCbCr {
		if ycc, err = readYCbCrParams(dir, d.warn); err != nil {
			return err
		}
	}

	var pal *palette
	if it.Photometric == photometricPalette {
		if pal, err = newPalette(dir.EntryByTag(tagColorMap)); err != nil {
			return err
		}
	}

	t := &tileReader{
		d:            d,
		it:           it,
		dst:          dst,
		region:       region,
		off:          off,
		g:            g,
		compression:  compression,
		predictor:    predictor,
		bandsPerRead: bandsPerRead,
		ycc:          ycc,
		pal:          pal,
	}
	t.alloc()

	row := 0
	for ty := 0; ty < g.tilesDown; ty++ {
		rowsInTile := min(g.tileHeight, height-row)
		col := 0
		for tx := 0; tx < g.tilesAcross; tx++ {
			colsInTile := min(g.tileWidth, width-col)
			i := ty*g.tilesAcross + tx

			for plane := 0; plane < planes; plane++ {
				if err := t.readTile(plane, i, col, row, colsInTile, rowsInTile); err != nil {
					return err
				}
				if d.cancelled.Load() {
					d.warn("decode cancelled")
					return nil
				}
			}
			col += colsInTile
		}
		row += rowsInTile
		d.progress(100 * float64(row) / float64(height))
		if d.cancelled.Load() {
			d.warn("decode cancelled")
			return nil
		}
	}

	return nil
}

// tileReader holds the per-image state and scratch buffers of the baseline
// tile loop.
type tileReader struct {
	d   *Decoder
	it  ImageType
	dst *Raster

	region image.Rectangle
	off    image.Point

	g            *geometry
	compression  int
	predictor    int
	bandsPerRead int

	ycc *ycbcrParams
	pal *palette

	raw    []byte
	row8   []byte
	row16  []uint16
	row32  []uint32
	rgbRow []byte
}

func (t *tileReader) alloc() {
	samples := t.g.tileWidth * t.bandsPerRead
	switch {
	case t.it.Bits <= 8:
		t.raw = make([]byte, (samples*t.it.Bits+7)/8)
		t.row8 = make([]byte, samples)
	case t.it.Bits <= 16:
		t.raw = make([]byte, 2*samples)
		t.row16 = make([]uint16, samples)
	default:
		t.raw = make([]byte, 4*samples)
		t.row32 = make([]uint32, samples)
	}
	if t.ycc != nil {
		t.rgbRow = make([]byte, t.g.tileWidth*3)
	}
	if t.pal != nil {
		t.rgbRow = make([]byte, t.g.tileWidth*3)
	}
}

// readTile decompresses one strip/tile (or one plane of it) and blits its
// rows into the destination.
func (t *tileReader) readTile(plane, i, col, startRow, colsInTile, rowsInTile int) error {
	src, err := t.d.r.section(t.g.tileOffset(plane, i), t.g.tileByteCount(plane, i))
	if err != nil {
		return err
	}
	stream, err := newCodecReader(t.compression, src)
	if err != nil {
		return err
	}
	if t.ycc != nil {
		stream = newYCbCrUpsampler(stream, t.ycc, colsInTile)
	}

	for j := 0; j < rowsInTile; j++ {
		if t.d.cancelled.Load() {
			return nil
		}
		if err := t.readRow(stream, plane, col, startRow+j, colsInTile); err != nil {
			return err
		}
	}
	return nil
}

func (t *tileReader) readRow(stream io.Reader, plane, col, y, colsInTile int) error {
	if t.ycc != nil {
		return t.readRowYCbCr(stream, col, y, colsInTile)
	}

	switch {
	case t.it.Bits <= 8:
		return t.readRow8(stream, plane, col, y, colsInTile)
	case t.it.Bits <= 16:
		return t.readRow16(stream, plane, col, y, colsInTile)
	default:
		return t.readRow32(stream, plane, col, y, colsInTile)
	}
}

// readRowYCbCr consumes one upsampled RGB row. Predictors do not apply to
// subsampled YCbCr data.
func (t *tileReader) readRowYCbCr(stream io.Reader, col, y, colsInTile int) error {
	row := t.rgbRow[:colsInTile*3]
	if _, err := io.ReadFull(stream, row); err != nil {
		return &CodecError{Codec: "ycbcr", Err: err}
	}
	t.blit8(row, 3, col, y, colsInTile)
	return nil
}

func (t *tileReader) readRow8(stream io.Reader, plane, col, y, colsInTile int) error {
	samples := t.g.tileWidth * t.bandsPerRead
	bits := t.it.Bits

	packed := t.raw[:(samples*bits+7)/8]
	if _, err := io.ReadFull(stream, packed); err != nil {
		return codecReadError(t.compression, err)
	}

	row := t.row8[:samples]
	if bits == 8 {
		copy(row, packed)
	} else {
		unpackBits(row, packed, bits)
	}

	unpredict8(t.predictor, row, t.g.tileWidth, t.bandsPerRead)

	switch t.it.Photometric {
	case photometricWhiteIsZero:
		invert8(row, uint8(1<<bits-1))
		scaleToByte(row, bits)
	case photometricBlackIsZero:
		scaleToByte(row, bits)
	case photometricPalette:
		rgb := t.rgbRow[:t.g.tileWidth*3]
		t.pal.expand8(row, rgb)
		t.blit8(rgb, 3, col, y, colsInTile)
		return nil
	}

	if t.it.Planar {
		t.blitBand8(row, plane, col, y, colsInTile)
		return nil
	}
	t.blit8(row, t.bandsPerRead, col, y, colsInTile)
	return nil
}

func (t *tileReader) readRow16(stream io.Reader, plane, col, y, colsInTile int) error {
	samples := t.g.tileWidth * t.bandsPerRead

	raw := t.raw[:2*samples]
	if _, err := io.ReadFull(stream, raw); err != nil {
		return codecReadError(t.compression, err)
	}
	row := t.row16[:samples]
	order := t.d.r.order
	for i := range row {
		row[i] = order.Uint16(raw[2*i:])
	}

	unpredict16(t.predictor, row, t.g.tileWidth, t.bandsPerRead)

	switch t.it.Photometric {
	case photometricWhiteIsZero:
		invert16(row)
	case photometricPalette:
		rgb := t.rgbRow[:t.g.tileWidth*3]
		t.pal.expand16(row, rgb)
		t.blit8(rgb, 3, col, y, colsInTile)
		return nil
	}

	if t.it.Planar {
		vis, destX, destY, srcOff, pixels := t.clip(col, y, colsInTile, 1)
		if vis {
			t.dst.setRowBand16(destX, destY, plane, row[srcOff:], pixels)
		}
		return nil
	}
	vis, destX, destY, srcOff, pixels := t.clip(col, y, colsInTile, t.bandsPerRead)
	if vis {
		t.dst.setRow16(destX, destY, row[srcOff:], pixels)
	}
	return nil
}

func (t *tileReader) readRow32(stream io.Reader, plane, col, y, colsInTile int) error {
	samples := t.g.tileWidth * t.bandsPerRead

	raw := t.raw[:4*samples]
	if _, err := io.ReadFull(stream, raw); err != nil {
		return codecReadError(t.compression, err)
	}
	row := t.row32[:samples]
	order := t.d.r.order
	for i := range row {
		row[i] = order.Uint32(raw[4*i:])
	}

	unpredict32(t.predictor, row, t.g.tileWidth, t.bandsPerRead)

	if t.it.Photometric == photometricWhiteIsZero {
		invert32(row)
	}

	if t.it.Planar {
		vis, destX, destY, srcOff, pixels := t.clip(col, y, colsInTile, 1)
		if vis {
			t.dst.setRowBand32(destX, destY, plane, row[srcOff:], pixels)
		}
		return nil
	}
	vis, destX, destY, srcOff, pixels := t.clip(col, y, colsInTile, t.bandsPerRead)
	if vis {
		t.dst.setRow32(destX, destY, row[srcOff:], pixels)
	}
	return nil
}

// clip maps an absolute image row span onto destination coordinates,
// honoring the source region and destination offset. srcOff is in samples.
func (t *tileReader) clip(col, y, colsInTile, bands int) (visible bool, destX, destY, srcOff, pixels int) {
	if y < t.region.Min.Y || y >= t.region.Max.Y {
		return false, 0, 0, 0, 0
	}
	vis0 := max(col, t.region.Min.X)
	vis1 := min(col+colsInTile, t.region.Max.X)
	if vis0 >= vis1 {
		return false, 0, 0, 0, 0
	}
	destX = vis0 - t.region.Min.X + t.off.X
	destY = y - t.region.Min.Y + t.off.Y
	srcOff = (vis0 - col) * bands
	pixels = vis1 - vis0
	return true, destX, destY, srcOff, pixels
}

func (t *tileReader) blit8(row []byte, bands, col, y, colsInTile int) {
	vis, destX, destY, srcOff, pixels := t.clip(col, y, colsInTile, bands)
	if !vis {
		return
	}
	t.dst.setRow8(destX, destY, row[srcOff:], pixels)
}

func (t *tileReader) blitBand8(row []byte, plane, col, y, colsInTile int) {
	vis, destX, destY, srcOff, pixels := t.clip(col, y, colsInTile, 1)
	if !vis {
		return
	}
	t.dst.setRowBand8(destX, destY, plane, row[srcOff:], pixels)
}

// codecReadError classifies a short read inside the tile loop. Truncated
// codec output is a codec failure, not a structural one.
func codecReadError(compression int, err error) error {
	name := "uncompressed"
	switch compression {
	case compressionLZW:
		name = "lzw"
	case compressionPackBits:
		name = "packbits"
	case compressionZLib, compressionDeflate:
		name = "zlib"
	}
	return &CodecError{Codec: name, Err: err}
}
