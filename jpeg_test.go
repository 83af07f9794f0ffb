package tiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/gen2brain/jpegn"

	"github.com/finn-no/TwelveMonkeys/internal/jfif"
)

// testJPEG encodes a 16x16 grayscale gradient with the standard library
// encoder and returns the stream plus the gray pixels the pipeline's own
// JPEG decoder produces for it, which is what the TIFF paths must match.
func testJPEG(t *testing.T) ([]byte, []byte) {
	t.Helper()

	src := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			src.SetGray(x, y, color.Gray{Y: uint8(16*y + x)})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 100}); err != nil {
		t.Fatal(err)
	}

	img, err := jpegn.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reference decode: %v", err)
	}
	want := make([]byte, 16*16)
	b := img.Bounds()
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			want[y*16+x] = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
		}
	}
	return buf.Bytes(), want
}

func oldJPEGBase(width, height int) []testEntry {
	return []testEntry{
		shortEntry(tagImageWidth, uint16(width)),
		shortEntry(tagImageHeight, uint16(height)),
		shortEntry(tagBitsPerSample, 8),
		shortEntry(tagPhotometricInterpretation, photometricBlackIsZero),
		shortEntry(tagCompression, compressionOldJPEG),
	}
}

func TestDecodeOldJPEGInterchange(t *testing.T) {
	jpegData, want := testJPEG(t)

	entries := append(oldJPEGBase(16, 16),
		longEntry(tagJPEGInterchangeFormat, 8),
		longEntry(tagJPEGInterchangeFormatLen, uint32(len(jpegData))),
	)

	var warnings []string
	d, err := Open(bytes.NewReader(makeTIFF(jpegData, entries)), func(opt *Options) {
		opt.OnWarning = func(msg string) { warnings = append(warnings, msg) }
	})
	if err != nil {
		t.Fatal(err)
	}
	raster, err := d.Decode(0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(raster.Pix, want) {
		t.Error("interchange decode does not match the reference JPEG decode")
	}
	if !containsWarning(warnings, "single tile") {
		t.Errorf("expected a single-tile warning, got %v", warnings)
	}
}

func TestDecodeNewJPEGSelfContained(t *testing.T) {
	jpegData, want := testJPEG(t)

	entries := []testEntry{
		shortEntry(tagImageWidth, 16),
		shortEntry(tagImageHeight, 16),
		shortEntry(tagBitsPerSample, 8),
		shortEntry(tagPhotometricInterpretation, photometricBlackIsZero),
		shortEntry(tagCompression, compressionJPEG),
		longEntry(tagStripOffsets, 8),
		longEntry(tagStripByteCounts, uint32(len(jpegData))),
		shortEntry(tagRowsPerStrip, 16),
	}

	var warnings []string
	d, err := Open(bytes.NewReader(makeTIFF(jpegData, entries)), func(opt *Options) {
		opt.OnWarning = func(msg string) { warnings = append(warnings, msg) }
	})
	if err != nil {
		t.Fatal(err)
	}
	raster, err := d.Decode(0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(raster.Pix, want) {
		t.Error("new-style decode does not match the reference JPEG decode")
	}
	if !containsWarning(warnings, "JPEGTables") {
		t.Errorf("expected a missing-tables warning, got %v", warnings)
	}
}

// New-style with shared tables: the DQT/DHT segments move into a JPEGTables
// entry and are spliced back into the (table-less) tile stream.
func TestDecodeNewJPEGSharedTables(t *testing.T) {
	jpegData, want := testJPEG(t)

	tables, body := splitTables(t, jpegData)

	entries := []testEntry{
		shortEntry(tagImageWidth, 16),
		shortEntry(tagImageHeight, 16),
		shortEntry(tagBitsPerSample, 8),
		shortEntry(tagPhotometricInterpretation, photometricBlackIsZero),
		shortEntry(tagCompression, compressionJPEG),
		undefinedEntry(tagJPEGTables, tables...),
		longEntry(tagStripOffsets, 8),
		longEntry(tagStripByteCounts, uint32(len(body))),
		shortEntry(tagRowsPerStrip, 16),
	}

	raster := decodeTest(t, makeTIFF(body, entries))
	if !bytes.Equal(raster.Pix, want) {
		t.Error("shared-tables decode does not match the reference JPEG decode")
	}
}

// Old-style without an interchange stream: quantization and Huffman tables
// live behind offset tags and a JFIF stream is synthesized per tile.
func TestDecodeOldJPEGSynthesized(t *testing.T) {
	jpegData, want := testJPEG(t)

	q, dc, ac, body := dissectJPEG(t, jpegData)
	if len(q) == 0 || len(dc) == 0 || len(ac) == 0 {
		t.Fatal("reference stream is missing tables")
	}

	// Pixel area layout: q table, DC table, AC table, entropy body.
	var area []byte
	qOff := uint32(8 + len(area))
	area = append(area, q[0]...)
	dcOff := uint32(8 + len(area))
	area = append(area, dc[0]...)
	acOff := uint32(8 + len(area))
	area = append(area, ac[0]...)
	bodyOff := uint32(8 + len(area))
	area = append(area, body...)

	entries := append(oldJPEGBase(16, 16),
		shortEntry(tagJPEGProc, jpegProcBaseline),
		longEntry(tagJPEGQTables, qOff),
		longEntry(tagJPEGDCTables, dcOff),
		longEntry(tagJPEGACTables, acOff),
		longEntry(tagStripOffsets, bodyOff),
		longEntry(tagStripByteCounts, uint32(len(body))),
		shortEntry(tagRowsPerStrip, 16),
	)

	var warnings []string
	d, err := Open(bytes.NewReader(makeTIFF(area, entries)), func(opt *Options) {
		opt.OnWarning = func(msg string) { warnings = append(warnings, msg) }
	})
	if err != nil {
		t.Fatal(err)
	}
	raster, err := d.Decode(0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(raster.Pix, want) {
		t.Error("synthesized decode does not match the reference JPEG decode")
	}
	if !containsWarning(warnings, "re-creating JFIF stream") {
		t.Errorf("expected a synthesis warning, got %v", warnings)
	}
}

func TestOldJPEGLosslessRejected(t *testing.T) {
	entries := append(oldJPEGBase(16, 16),
		shortEntry(tagJPEGProc, jpegProcLossless),
		longEntry(tagJPEGInterchangeFormat, 8),
	)
	d := openTest(t, makeTIFF([]byte{0}, entries))

	var wantErr UnsupportedError
	if _, err := d.Decode(0); !errors.As(err, &wantErr) {
		t.Fatalf("expected UnsupportedError for lossless JPEGProc, got %v", err)
	}
}

func TestJPEGPathRejectsCMYK(t *testing.T) {
	entries := []testEntry{
		shortEntry(tagImageWidth, 8),
		shortEntry(tagImageHeight, 8),
		shortEntry(tagBitsPerSample, 8, 8, 8, 8),
		shortEntry(tagSamplesPerPixel, 4),
		shortEntry(tagPhotometricInterpretation, photometricSeparated),
		shortEntry(tagCompression, compressionJPEG),
		longEntry(tagStripOffsets, 8),
		longEntry(tagStripByteCounts, 1),
		shortEntry(tagRowsPerStrip, 8),
	}
	d := openTest(t, makeTIFF([]byte{0}, entries))

	var wantErr UnsupportedPhotometricError
	if _, err := d.Decode(0); !errors.As(err, &wantErr) {
		t.Fatalf("expected UnsupportedPhotometricError, got %v", err)
	}
}

// splitTables separates a complete JFIF stream into an abbreviated tables
// stream (SOI, DQT/DHT, EOI) and the remaining stream with those segments
// removed.
func splitTables(t *testing.T, stream []byte) (tables, body []byte) {
	t.Helper()

	var tbl bytes.Buffer
	tbl.Write([]byte{0xFF, jfif.SOI})

	var rest bytes.Buffer
	rest.Write([]byte{0xFF, jfif.SOI})

	pos := 2
	for pos+3 < len(stream) {
		if stream[pos] != 0xFF {
			t.Fatalf("lost marker sync at %d", pos)
		}
		marker := stream[pos+1]
		if marker == jfif.EOI {
			break
		}
		segLen := int(binary.BigEndian.Uint16(stream[pos+2:]))
		seg := stream[pos : pos+2+segLen]
		switch marker {
		case jfif.DQT, jfif.DHT:
			tbl.Write(seg)
		case jfif.SOS:
			rest.Write(stream[pos:]) // scan header, entropy data, EOI
			tbl.Write([]byte{0xFF, jfif.EOI})
			return tbl.Bytes(), rest.Bytes()
		default:
			rest.Write(seg)
		}
		pos += 2 + segLen
	}
	t.Fatal("no SOS in reference stream")
	return nil, nil
}

// dissectJPEG pulls the raw table data (without marker framing or class/id
// bytes) and the entropy-coded body out of a baseline stream, mirroring the
// way the old-style TIFF tags store them.
func dissectJPEG(t *testing.T, stream []byte) (q, dc, ac [][]byte, body []byte) {
	t.Helper()

	pos := 2
	for pos+3 < len(stream) {
		if stream[pos] != 0xFF {
			t.Fatalf("lost marker sync at %d", pos)
		}
		marker := stream[pos+1]
		if marker == jfif.EOI {
			break
		}
		segLen := int(binary.BigEndian.Uint16(stream[pos+2:]))
		payload := stream[pos+4 : pos+2+segLen]

		switch marker {
		case jfif.DQT:
			for len(payload) >= 1+jfif.QuantTableLength {
				if payload[0]>>4 != 0 {
					t.Fatal("unexpected 16-bit quantization table")
				}
				q = append(q, append([]byte(nil), payload[1:1+jfif.QuantTableLength]...))
				payload = payload[1+jfif.QuantTableLength:]
			}
		case jfif.DHT:
			for len(payload) > 0 {
				class := payload[0] >> 4
				n, err := jfif.HuffmanTableLength(payload[1:])
				if err != nil {
					t.Fatal(err)
				}
				table := append([]byte(nil), payload[1:1+n]...)
				if class == 0 {
					dc = append(dc, table)
				} else {
					ac = append(ac, table)
				}
				payload = payload[1+n:]
			}
		case jfif.SOS:
			body = append([]byte(nil), stream[pos+2+segLen:]...)
			return q, dc, ac, body
		}
		pos += 2 + segLen
	}
	t.Fatal("no SOS in reference stream")
	return nil, nil, nil, nil
}
