// Package packbits implements the PackBits run-length scheme used by TIFF
// compression 32773 (and originally by MacPaint).
package packbits

import "io"

// Reader decompresses a PackBits stream. A source that ends in the middle of
// a literal run or before a repeat byte yields a short read, not an error;
// TIFF strips are bounded by their byte counts and decoders are expected to
// stop at whatever the bound yields.
type Reader struct {
	r io.Reader

	literal int // literal bytes left to copy through
	repeat  int // repeats of rb left to emit
	rb      byte
	err     error
}

// NewReader returns a reader decompressing from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (d *Reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		switch {
		case d.repeat > 0:
			p[n] = d.rb
			n++
			d.repeat--
		case d.literal > 0:
			want := d.literal
			if want > len(p)-n {
				want = len(p) - n
			}
			m, err := io.ReadFull(d.r, p[n:n+want])
			n += m
			d.literal -= m
			if err != nil {
				d.err = eofOnly(err)
				return n, d.err
			}
		case d.err != nil:
			return n, d.err
		default:
			var hdr [1]byte
			if _, err := d.r.Read(hdr[:]); err != nil {
				d.err = eofOnly(err)
				if n > 0 {
					return n, nil
				}
				return 0, d.err
			}
			switch h := int8(hdr[0]); {
			case h >= 0:
				d.literal = int(h) + 1
			case h == -128:
				// No-op header.
			default:
				var b [1]byte
				if _, err := io.ReadFull(d.r, b[:]); err != nil {
					d.err = eofOnly(err)
					if n > 0 {
						return n, nil
					}
					return 0, d.err
				}
				d.rb = b[0]
				d.repeat = int(-h) + 1
			}
		}
	}
	return n, nil
}

// eofOnly maps the truncation errors onto plain io.EOF: an exhausted bounded
// input terminates the stream rather than failing it.
func eofOnly(err error) error {
	if err == io.ErrUnexpectedEOF {
		return io.EOF
	}
	return err
}

// AppendEncoded appends the PackBits encoding of src to dst. The encoder
// favors repeat runs of three or more bytes, matching the TIFF 6.0
// recommendation.
func AppendEncoded(dst, src []byte) []byte {
	for len(src) > 0 {
		// Find the length of the run starting at src[0].
		run := 1
		for run < len(src) && run < 128 && src[run] == src[0] {
			run++
		}
		if run >= 3 {
			dst = append(dst, byte(-(run - 1)), src[0])
			src = src[run:]
			continue
		}
		// Literal segment: up to the next run of >= 3 or 128 bytes.
		lit := run
		for lit < len(src) && lit < 128 {
			if lit+2 < len(src) && src[lit] == src[lit+1] && src[lit] == src[lit+2] {
				break
			}
			lit++
		}
		dst = append(dst, byte(lit-1))
		dst = append(dst, src[:lit]...)
		src = src[lit:]
	}
	return dst
}
