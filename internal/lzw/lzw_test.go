package lzw

import (
	"bytes"
	"io"
	"math/rand"
	"testing"
)

func roundTrip(t *testing.T, data []byte, order Order) {
	t.Helper()

	var packed bytes.Buffer
	w := NewWriter(&packed, order)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := io.ReadAll(NewReader(bytes.NewReader(packed.Bytes()), order))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: %d bytes in, %d bytes out", len(data), len(got))
	}
}

func TestRoundTripBothOrders(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0},
		{0x42},
		[]byte("TOBEORNOTTOBEORTOBEORNOT"),
		bytes.Repeat([]byte{0xAA}, 5000),
	}

	// Random and compressible payloads up to 64 KiB; the large ones force
	// the code width through every step and across dictionary resets.
	rng := rand.New(rand.NewSource(42))
	random := make([]byte, 64<<10)
	rng.Read(random)
	inputs = append(inputs, random)

	gradient := make([]byte, 64<<10)
	for i := range gradient {
		gradient[i] = byte(i / 97)
	}
	inputs = append(inputs, gradient)

	for _, order := range []Order{MSB, LSB} {
		for _, data := range inputs {
			roundTrip(t, data, order)
		}
	}
}

// The first code of a stream is the clear code; its packing identifies the
// bit order (0x80... for MSB, 0x00 followed by an odd byte for the legacy
// variant).
func TestStreamSignature(t *testing.T) {
	var msb, lsb bytes.Buffer

	w := NewWriter(&msb, MSB)
	w.Write([]byte{7})
	w.Close()
	if msb.Bytes()[0] != 0x80 {
		t.Errorf("MSB stream starts %#x, expected 0x80", msb.Bytes()[0])
	}

	w = NewWriter(&lsb, LSB)
	w.Write([]byte{7})
	w.Close()
	if lsb.Bytes()[0] != 0x00 || lsb.Bytes()[1]&0x01 != 1 {
		t.Errorf("LSB stream starts %#x %#x, expected 0x00 with odd second byte",
			lsb.Bytes()[0], lsb.Bytes()[1])
	}
}

// A known MSB vector, hand-packed: CLEAR, 'A', 'A', EOI. The second 'A'
// exercises the dictionary-pending entry path.
func TestDecodeHandPacked(t *testing.T) {
	// 9-bit codes: 256, 65, 65, 257.
	// 100000000 001000001 001000001 100000001 -> padded to bytes.
	packed := packBitsMSB([]uint32{256, 65, 65, 257}, 9)
	got, err := io.ReadAll(NewReader(bytes.NewReader(packed), MSB))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("AA")) {
		t.Fatalf("got %q, expected \"AA\"", got)
	}
}

// Streams often end without an explicit EOI; decoding stops cleanly at the
// end of input.
func TestDecodeMissingEOI(t *testing.T) {
	packed := packBitsMSB([]uint32{256, 65, 66}, 9)
	got, err := io.ReadAll(NewReader(bytes.NewReader(packed), MSB))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("AB")) {
		t.Fatalf("got %q, expected \"AB\"", got)
	}
}

func TestDecodeInvalidCode(t *testing.T) {
	// A code far beyond the next dictionary entry is invalid.
	packed := packBitsMSB([]uint32{256, 65, 400}, 9)
	if _, err := io.ReadAll(NewReader(bytes.NewReader(packed), MSB)); err == nil {
		t.Fatal("expected an invalid code error")
	}
}

// The early-change rule: with 253 literals consumed after CLEAR, the next
// assigned entry would be 510, so codes switch to 10 bits one entry before
// the strict rule. The encoder and decoder must agree on the exact point;
// a long stream crossing 510/1022/2046 entries proves they do.
func TestEarlyChangeBoundary(t *testing.T) {
	data := make([]byte, 3000)
	for i := range data {
		data[i] = byte(i) // mostly unique pairs, one entry per input byte
	}
	roundTrip(t, data, MSB)
	roundTrip(t, data, LSB)
}

func packBitsMSB(codes []uint32, width uint) []byte {
	var out []byte
	var bits uint32
	var nBits uint
	for _, c := range codes {
		bits |= c << (32 - width - nBits)
		nBits += width
		for nBits >= 8 {
			out = append(out, byte(bits>>24))
			bits <<= 8
			nBits -= 8
		}
	}
	if nBits > 0 {
		out = append(out, byte(bits>>24))
	}
	return out
}

func BenchmarkDecode(b *testing.B) {
	data := make([]byte, 256<<10)
	for i := range data {
		data[i] = byte(i * i / 300)
	}
	var packed bytes.Buffer
	w := NewWriter(&packed, MSB)
	w.Write(data)
	w.Close()

	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	for i := 0; i < b.N; i++ {
		if _, err := io.ReadAll(NewReader(bytes.NewReader(packed.Bytes()), MSB)); err != nil {
			b.Fatal(err)
		}
	}
}
