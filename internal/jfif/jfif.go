// Package jfif provides the minimal JPEG stream surgery needed for
// JPEG-in-TIFF: extracting table-definition segments from an abbreviated
// stream, splicing them into per-tile streams, and synthesizing a complete
// baseline stream from bare table data.
package jfif

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	markerStart = 0xFF

	SOI  = 0xD8
	EOI  = 0xD9
	SOS  = 0xDA
	DQT  = 0xDB
	DHT  = 0xC4
	DRI  = 0xDD
	SOF0 = 0xC0
	TEM  = 0x01
)

// QuantTableLength is the size of one baseline quantization table: 64 bytes,
// one per DCT coefficient, in zigzag order.
const QuantTableLength = 64

var (
	errNotJPEG   = errors.New("jfif: stream does not start with SOI")
	errTruncated = errors.New("jfif: truncated marker segment")
)

// Segment is one marker segment, payload excluding the two length bytes.
type Segment struct {
	Marker  byte
	Payload []byte
}

// HuffmanTableLength returns the byte length of a raw Huffman table as the
// old-style JPEG tags store it: sixteen Li code-length counts followed by
// the code values the counts announce. The length is self-describing, which
// makes the adjacent-offset arithmetic some files require merely a
// cross-check.
func HuffmanTableLength(p []byte) (int, error) {
	if len(p) < 16 {
		return 0, errTruncated
	}
	n := 16
	for _, li := range p[:16] {
		n += int(li)
	}
	return n, nil
}

// TableSegments returns the DQT, DHT and DRI segments of an abbreviated
// table-specification stream (SOI, tables..., EOI) in order of appearance.
func TableSegments(stream []byte) ([]Segment, error) {
	if len(stream) < 2 || stream[0] != markerStart || stream[1] != SOI {
		return nil, errNotJPEG
	}
	var segs []Segment
	pos := 2
	for pos+1 < len(stream) {
		if stream[pos] != markerStart {
			pos++
			continue
		}
		for pos < len(stream) && stream[pos] == markerStart {
			pos++
		}
		if pos >= len(stream) {
			break
		}
		marker := stream[pos]
		pos++
		if marker == EOI || marker == SOS {
			break
		}
		if marker == TEM || (marker >= 0xD0 && marker <= 0xD7) {
			continue
		}
		if pos+1 >= len(stream) {
			return nil, errTruncated
		}
		segLen := int(binary.BigEndian.Uint16(stream[pos:]))
		if segLen < 2 || pos+segLen > len(stream) {
			return nil, errTruncated
		}
		switch marker {
		case DQT, DHT, DRI:
			segs = append(segs, Segment{
				Marker:  marker,
				Payload: append([]byte(nil), stream[pos+2:pos+segLen]...),
			})
		}
		pos += segLen
	}
	return segs, nil
}

// InsertTables splices the table segments of an abbreviated tables stream
// into a tile stream, directly after the tile's SOI. Tiles in a
// new-style-JPEG TIFF reference tables they do not carry themselves; the
// result is a self-contained stream any baseline decoder accepts.
func InsertTables(body, tables []byte) ([]byte, error) {
	if len(body) < 2 || body[0] != markerStart || body[1] != SOI {
		return nil, errNotJPEG
	}
	segs, err := TableSegments(tables)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return body, nil
	}

	var out bytes.Buffer
	out.Grow(len(body) + len(tables))
	out.WriteByte(markerStart)
	out.WriteByte(SOI)
	for _, s := range segs {
		writeSegment(&out, s.Marker, s.Payload)
	}
	out.Write(body[2:])
	return out.Bytes(), nil
}

// HasEOI reports whether the stream ends with an EOI marker (ignoring
// trailing padding zero bytes).
func HasEOI(stream []byte) bool {
	i := len(stream)
	for i > 0 && stream[i-1] == 0 {
		i--
	}
	return i >= 2 && stream[i-2] == markerStart && stream[i-1] == EOI
}

func writeSegment(out *bytes.Buffer, marker byte, payload []byte) {
	out.WriteByte(markerStart)
	out.WriteByte(marker)
	length := uint16(len(payload) + 2)
	out.WriteByte(byte(length >> 8))
	out.WriteByte(byte(length))
	out.Write(payload)
}

func writeMarker(out *bytes.Buffer, marker byte) {
	out.WriteByte(markerStart)
	out.WriteByte(marker)
}
