// Package lzw implements the TIFF variant of Lempel-Ziv-Welch compression.
//
// TIFF LZW differs from the GIF flavor handled by compress/lzw in two ways:
// codes are normally packed most-significant-bit first, and the code width
// grows one code earlier than the textbook rule ("early change"). A withdrawn
// legacy variant packs codes least-significant-bit first and uses the
// textbook change point; such streams are recognizable by their first two
// bytes (0x00, odd).
package lzw

import (
	"errors"
	"io"
)

// Order specifies the bit packing of codes within the byte stream.
type Order int

const (
	// MSB packs codes starting from the most significant bit of each byte.
	// This is the order written by all modern TIFF encoders and implies the
	// early-change code width rule.
	MSB Order = iota
	// LSB packs codes starting from the least significant bit, as written by
	// obsolete pre-TIFF-5.0 encoders. LSB streams use the late (textbook)
	// change rule.
	LSB
)

const (
	litWidth  = 8
	maxWidth  = 12
	clearCode = 1 << litWidth       // 256, resets the dictionary
	eofCode   = clearCode + 1       // 257, terminates the stream
	maxCode   = (1 << maxWidth) - 1 // 4095

	invalidCode = 0xffff

	// flushBuffer is the decoder output watermark; the second half of the
	// output array holds one in-flight expansion (at most maxCode bytes).
	flushBuffer = 1 << maxWidth
)

var errInvalidCode = errors.New("lzw: invalid code")

// Reader decompresses a TIFF LZW stream.
type Reader struct {
	r     io.ByteReader
	order Order
	// earlyChange is 1 when the code width grows one entry before the table
	// index overflows the current width (TIFF rule), 0 for the legacy rule.
	earlyChange uint32

	bits  uint32
	nBits uint
	width uint

	err      error
	output   [2 * flushBuffer]byte
	o        int
	toRead   []byte
	hi       uint32
	overflow uint32
	last     uint16

	suffix [1 << maxWidth]uint8
	prefix [1 << maxWidth]uint16
}

// NewReader returns a reader decompressing from r with the given bit order.
// The early-change rule is coupled to the order: MSB streams use it, legacy
// LSB streams do not.
func NewReader(r io.Reader, order Order) *Reader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReader{r: r}
	}
	early := uint32(1)
	if order == LSB {
		early = 0
	}
	d := &Reader{
		r:           br,
		order:       order,
		earlyChange: early,
	}
	d.reset()
	return d
}

func (d *Reader) reset() {
	d.width = litWidth + 1
	d.hi = eofCode
	d.overflow = 1 << d.width
	d.last = invalidCode
}

func (d *Reader) readCode() (uint16, error) {
	for d.nBits < d.width {
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, err
		}
		if d.order == MSB {
			d.bits |= uint32(b) << (24 - d.nBits)
		} else {
			d.bits |= uint32(b) << d.nBits
		}
		d.nBits += 8
	}
	var code uint16
	if d.order == MSB {
		code = uint16(d.bits >> (32 - d.width))
		d.bits <<= d.width
	} else {
		code = uint16(d.bits & (1<<d.width - 1))
		d.bits >>= d.width
	}
	d.nBits -= d.width
	return code, nil
}

func (d *Reader) Read(p []byte) (int, error) {
	for {
		if len(d.toRead) > 0 {
			n := copy(p, d.toRead)
			d.toRead = d.toRead[n:]
			return n, nil
		}
		if d.err != nil {
			return 0, d.err
		}
		d.decode()
	}
}

// decode converts codes into decompressed bytes until the output buffer
// needs flushing or the stream ends. A stream that ends without an EOI code
// is treated as complete; real-world TIFF strips are often terminated by the
// byte count alone.
func (d *Reader) decode() {
loop:
	for {
		code, err := d.readCode()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				err = io.EOF
			}
			d.err = err
			break
		}
		switch {
		case code < clearCode:
			d.output[d.o] = uint8(code)
			d.o++
			if d.last != invalidCode {
				d.suffix[d.hi] = uint8(code)
				d.prefix[d.hi] = d.last
			}
		case code == clearCode:
			d.reset()
			continue
		case code == eofCode:
			d.err = io.EOF
			break loop
		case uint32(code) <= d.hi:
			c, i := code, len(d.output)-1
			if uint32(code) == d.hi && d.last != invalidCode {
				// code == hi expands to the previous expansion plus its own
				// head byte; walk the prefix chain to find the head.
				c = d.last
				for c >= clearCode {
					c = d.prefix[c]
				}
				d.output[i] = uint8(c)
				i--
				c = d.last
			}
			for c >= clearCode {
				d.output[i] = d.suffix[c]
				i--
				c = d.prefix[c]
			}
			d.output[i] = uint8(c)
			if d.last != invalidCode {
				d.suffix[d.hi] = uint8(c)
				d.prefix[d.hi] = d.last
			}
			d.o += copy(d.output[d.o:], d.output[i:])
		default:
			d.err = errInvalidCode
			break loop
		}
		d.last, d.hi = code, d.hi+1
		if d.hi+d.earlyChange >= d.overflow {
			if d.width == maxWidth {
				d.last = invalidCode
			} else {
				d.width++
				d.overflow <<= 1
			}
		}
		if d.o >= flushBuffer {
			break
		}
	}
	d.toRead = d.output[:d.o]
	d.o = 0
}

// Close discards any remaining compressed input. The reader must not be used
// afterwards.
func (d *Reader) Close() error {
	d.err = errors.New("lzw: reader closed")
	return nil
}

type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	n, err := b.r.Read(b.buf[:])
	if n == 0 && err == nil {
		err = io.ErrNoProgress
	}
	if n == 1 {
		return b.buf[0], nil
	}
	return 0, err
}
