package tiff

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

const (
	orderMarkLittle = 0x4949 // "II"
	orderMarkBig    = 0x4D4D // "MM"
	tiffMagic       = 42
	ifdEntryLen     = 12
)

// ifdParser walks the IFD chain. Offsets of every directory visited (both
// top-level and sub-IFDs) are tracked so that malicious or corrupt chains
// cannot loop forever.
type ifdParser struct {
	r       *reader
	warn    func(string)
	visited map[int64]bool
}

// readDirectories parses the TIFF header and the complete IFD chain,
// latching the byte order into r as a side effect.
func readDirectories(r *reader, warn func(string)) (*CompoundDirectory, error) {
	if warn == nil {
		warn = func(string) {}
	}
	p := &ifdParser{r: r, warn: warn, visited: make(map[int64]bool)}

	var header [4]byte
	if err := r.readAt(header[:], 0); err != nil {
		return nil, err
	}
	switch binary.BigEndian.Uint16(header[:2]) {
	case orderMarkLittle:
		r.order = binary.LittleEndian
	case orderMarkBig:
		r.order = binary.BigEndian
	default:
		return nil, ErrBadOrder
	}
	if r.order.Uint16(header[2:4]) != tiffMagic {
		return nil, ErrBadMagic
	}

	offset, err := r.u32()
	if err != nil {
		return nil, err
	}

	compound := &CompoundDirectory{}
	next := int64(offset)
	for next != 0 {
		if p.visited[next] {
			return nil, ErrCyclicIFD
		}
		p.visited[next] = true

		dir, nextOffset, err := p.readIFD(next)
		if err != nil {
			return nil, err
		}
		compound.dirs = append(compound.dirs, dir)
		next = nextOffset
	}

	if len(compound.dirs) == 0 {
		return nil, FormatError("no image file directories")
	}

	return compound, nil
}

// readIFD parses one directory at the given offset and returns it along with
// the offset of the next directory in the chain (0 terminates).
func (p *ifdParser) readIFD(offset int64) (*Directory, int64, error) {
	if err := p.r.seek(offset); err != nil {
		return nil, 0, err
	}
	count, err := p.r.u16()
	if err != nil {
		return nil, 0, err
	}

	raw := make([]byte, int(count)*ifdEntryLen)
	if err := p.r.readFull(raw); err != nil {
		return nil, 0, err
	}
	nextOffset, err := p.r.u32()
	if err != nil {
		return nil, 0, err
	}

	dir := &Directory{}
	for i := 0; i < int(count); i++ {
		rec := raw[i*ifdEntryLen : (i+1)*ifdEntryLen]
		entry, ok, err := p.parseEntry(rec)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			continue
		}
		if !dir.add(entry) {
			p.warn(fmt.Sprintf("duplicate tag %d in IFD, keeping first occurrence", entry.Tag))
		}
	}

	return dir, int64(nextOffset), nil
}

// parseEntry decodes one 12-byte IFD record. Unknown field types are skipped
// with a warning rather than failing the parse.
func (p *ifdParser) parseEntry(rec []byte) (Entry, bool, error) {
	order := p.r.order
	tag := order.Uint16(rec[0:2])
	typ := order.Uint16(rec[2:4])
	count := order.Uint32(rec[4:8])

	if int(typ) >= len(typeLengths) || typeLengths[typ] == 0 {
		p.warn(fmt.Sprintf("unknown TIFF field type %d for tag %d, skipping entry", typ, tag))
		return Entry{}, false, nil
	}

	size := typeLengths[typ] * count
	var raw []byte
	if size <= 4 {
		raw = rec[8 : 8+size]
	} else {
		valueOffset := order.Uint32(rec[8:12])
		pos, err := p.r.pos()
		if err != nil {
			return Entry{}, false, err
		}
		raw = make([]byte, size)
		if err := p.r.readAt(raw, int64(valueOffset)); err != nil {
			return Entry{}, false, err
		}
		if err := p.r.seek(pos); err != nil {
			return Entry{}, false, err
		}
	}

	value := decodeValue(typ, count, raw, order)

	entry := Entry{Tag: tag, Type: typ, Count: count, Value: value}

	if isSubIFDTag(tag) {
		if target, ok := entry.Long(); ok {
			sub, err := p.readSubIFD(target)
			if err != nil {
				return Entry{}, false, err
			}
			entry.Value = sub
		}
	}

	return entry, true, nil
}

func isSubIFDTag(tag uint16) bool {
	switch tag {
	case tagExifIFD, tagGPSIFD, tagInteropIFD:
		return true
	}
	return false
}

func (p *ifdParser) readSubIFD(offset int64) (*Directory, error) {
	if p.visited[offset] {
		return nil, ErrCyclicIFD
	}
	p.visited[offset] = true

	pos, err := p.r.pos()
	if err != nil {
		return nil, err
	}
	dir, _, err := p.readIFD(offset)
	if err != nil {
		return nil, err
	}
	if err := p.r.seek(pos); err != nil {
		return nil, err
	}
	return dir, nil
}

// decodeValue converts the raw value bytes of one entry into the concrete Go
// shape for its field type.
func decodeValue(typ uint16, count uint32, raw []byte, order binary.ByteOrder) interface{} {
	n := int(count)
	switch typ {
	case dtByte, dtUndefined:
		return append([]byte(nil), raw...)
	case dtASCII:
		return strings.TrimRight(string(raw), "\x00")
	case dtShort:
		out := make([]uint16, n)
		for i := range out {
			out[i] = order.Uint16(raw[2*i:])
		}
		return out
	case dtLong:
		out := make([]uint32, n)
		for i := range out {
			out[i] = order.Uint32(raw[4*i:])
		}
		return out
	case dtLong8:
		out := make([]uint64, n)
		for i := range out {
			out[i] = order.Uint64(raw[8*i:])
		}
		return out
	case dtRational:
		out := make([]Rational, n)
		for i := range out {
			out[i] = Rational{Num: order.Uint32(raw[8*i:]), Den: order.Uint32(raw[8*i+4:])}
		}
		return out
	case dtSByte:
		out := make([]int8, n)
		for i := range out {
			out[i] = int8(raw[i])
		}
		return out
	case dtSShort:
		out := make([]int16, n)
		for i := range out {
			out[i] = int16(order.Uint16(raw[2*i:]))
		}
		return out
	case dtSLong:
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(order.Uint32(raw[4*i:]))
		}
		return out
	case dtSRational:
		out := make([]SRational, n)
		for i := range out {
			out[i] = SRational{Num: int32(order.Uint32(raw[8*i:])), Den: int32(order.Uint32(raw[8*i+4:]))}
		}
		return out
	case dtFloat:
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(order.Uint32(raw[4*i:]))
		}
		return out
	case dtDouble:
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(order.Uint64(raw[8*i:]))
		}
		return out
	}
	return append([]byte(nil), raw...)
}
