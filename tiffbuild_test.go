package tiff

import (
	"encoding/binary"
	"sort"
)

// Test-side construction of little-endian TIFF blobs. The layout mirrors the
// one the x/image/tiff encoder produces: header, pixel data at offset 8,
// then the IFD chain with out-of-line values trailing each IFD.

var le = binary.LittleEndian

type testEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte // raw little-endian value bytes
}

func byteEntry(tag uint16, v ...byte) testEntry {
	return testEntry{tag: tag, typ: dtByte, count: uint32(len(v)), data: v}
}

func undefinedEntry(tag uint16, v ...byte) testEntry {
	return testEntry{tag: tag, typ: dtUndefined, count: uint32(len(v)), data: v}
}

func asciiEntry(tag uint16, s string) testEntry {
	data := append([]byte(s), 0)
	return testEntry{tag: tag, typ: dtASCII, count: uint32(len(data)), data: data}
}

func shortEntry(tag uint16, v ...uint16) testEntry {
	data := make([]byte, 2*len(v))
	for i, n := range v {
		le.PutUint16(data[2*i:], n)
	}
	return testEntry{tag: tag, typ: dtShort, count: uint32(len(v)), data: data}
}

func longEntry(tag uint16, v ...uint32) testEntry {
	data := make([]byte, 4*len(v))
	for i, n := range v {
		le.PutUint32(data[4*i:], n)
	}
	return testEntry{tag: tag, typ: dtLong, count: uint32(len(v)), data: data}
}

func rationalEntry(tag uint16, v ...uint32) testEntry {
	data := make([]byte, 4*len(v))
	for i, n := range v {
		le.PutUint32(data[4*i:], n)
	}
	return testEntry{tag: tag, typ: dtRational, count: uint32(len(v) / 2), data: data}
}

// makeTIFF builds a little-endian classic TIFF: 8-byte header, pixel data at
// offset 8, then one IFD per entry list, chained in order. Strip or tile
// offset entries refer into the pixel data area (offset 8 for the first
// strip).
func makeTIFF(pixel []byte, ifds ...[]testEntry) []byte {
	const headerLen = 8

	// Lay out the IFDs after the pixel data, each followed by its
	// out-of-line values.
	type layout struct {
		start   int
		valOffs []int
	}
	layouts := make([]layout, len(ifds))

	pos := headerLen + len(pixel)
	pos += pos & 1
	for i, entries := range ifds {
		layouts[i].start = pos
		pos += 2 + ifdEntryLen*len(entries) + 4
		layouts[i].valOffs = make([]int, len(entries))
		for j, e := range entries {
			if len(e.data) > 4 {
				layouts[i].valOffs[j] = pos
				pos += len(e.data) + (len(e.data) & 1)
			}
		}
	}

	out := make([]byte, pos)
	copy(out, "II")
	le.PutUint16(out[2:], tiffMagic)
	le.PutUint32(out[4:], uint32(layouts[0].start))
	copy(out[headerLen:], pixel)

	for i, entries := range ifds {
		sorted := append([]testEntry(nil), entries...)
		sort.Slice(sorted, func(a, b int) bool { return sorted[a].tag < sorted[b].tag })

		p := layouts[i].start
		le.PutUint16(out[p:], uint16(len(sorted)))
		p += 2
		for _, e := range sorted {
			le.PutUint16(out[p:], e.tag)
			le.PutUint16(out[p+2:], e.typ)
			le.PutUint32(out[p+4:], e.count)
			if len(e.data) <= 4 {
				copy(out[p+8:p+12], e.data)
			} else {
				// Out-of-line values were laid out in pre-sort order; find
				// this entry's slot by matching tags.
				off := valOffsetFor(entries, layouts[i].valOffs, e.tag)
				le.PutUint32(out[p+8:], uint32(off))
				copy(out[off:], e.data)
			}
			p += ifdEntryLen
		}
		next := 0
		if i+1 < len(ifds) {
			next = layouts[i+1].start
		}
		le.PutUint32(out[p:], uint32(next))
	}

	return out
}

func valOffsetFor(entries []testEntry, valOffs []int, tag uint16) int {
	for j, e := range entries {
		if e.tag == tag {
			return valOffs[j]
		}
	}
	return 0
}

// grayIFD returns the tag set for a minimal single-strip grayscale image
// with pixel data at offset 8.
func grayIFD(width, height, bits int, photometric uint16, byteCount int) []testEntry {
	return []testEntry{
		shortEntry(tagImageWidth, uint16(width)),
		shortEntry(tagImageHeight, uint16(height)),
		shortEntry(tagBitsPerSample, uint16(bits)),
		shortEntry(tagCompression, compressionNone),
		shortEntry(tagPhotometricInterpretation, photometric),
		longEntry(tagStripOffsets, 8),
		longEntry(tagStripByteCounts, uint32(byteCount)),
		shortEntry(tagRowsPerStrip, uint16(height)),
	}
}

func replaceEntry(entries []testEntry, e testEntry) []testEntry {
	out := make([]testEntry, 0, len(entries)+1)
	for _, x := range entries {
		if x.tag != e.tag {
			out = append(out, x)
		}
	}
	return append(out, e)
}

func dropEntry(entries []testEntry, tag uint16) []testEntry {
	out := make([]testEntry, 0, len(entries))
	for _, x := range entries {
		if x.tag != tag {
			out = append(out, x)
		}
	}
	return out
}
