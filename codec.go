package tiff

import (
	"bufio"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/finn-no/TwelveMonkeys/internal/lzw"
	"github.com/finn-no/TwelveMonkeys/internal/packbits"
)

// newCodecReader wraps a (usually length-bounded) tile stream with the
// streaming decoder for the given compression scheme. JPEG compressions are
// not stream codecs and are handled by the JPEG interop path instead.
func newCodecReader(compression int, r io.Reader) (io.Reader, error) {
	switch compression {
	case compressionNone:
		return r, nil
	case compressionPackBits:
		return packbits.NewReader(r), nil
	case compressionLZW:
		br := bufio.NewReader(r)
		return lzw.NewReader(br, sniffLZWOrder(br)), nil
	case compressionZLib, compressionDeflate:
		// TIFF specification supplement 2: ZLib (8) and Deflate (32946) are
		// identical algorithms.
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, &CodecError{Codec: "zlib", Err: err}
		}
		return zr, nil
	}
	return nil, UnsupportedCompressionError(compression)
}

// sniffLZWOrder inspects the first two bytes of an LZW stream. A modern
// MSB-first stream opens with the clear code packed as 0x80 in the first
// byte; the obsolete bit-reversed variant packs it as 0x00 followed by a
// byte with the low bit set.
func sniffLZWOrder(br *bufio.Reader) lzw.Order {
	p, err := br.Peek(2)
	if err != nil || len(p) < 2 {
		return lzw.MSB
	}
	if p[0] == 0x00 && p[1]&0x01 == 1 {
		return lzw.LSB
	}
	return lzw.MSB
}

// checkCompression validates a Compression value up front, so an unsupported
// scheme fails before any tile I/O happens.
func checkCompression(compression int) error {
	switch compression {
	case compressionNone, compressionLZW, compressionOldJPEG, compressionJPEG,
		compressionZLib, compressionPackBits, compressionDeflate:
		return nil
	}
	return UnsupportedCompressionError(compression)
}
