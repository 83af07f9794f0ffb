package tiff

import (
	"bytes"
	"math/rand"
	"testing"
)

// unpredict(predict(row)) is the identity for every sample width.
func TestPredictorRoundTrip8(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, bands := range []int{1, 3, 4} {
		const cols = 257
		row := make([]byte, cols*bands)
		rng.Read(row)
		orig := append([]byte(nil), row...)

		predict8(row, cols, bands)
		if bytes.Equal(row, orig) {
			t.Fatalf("bands %d: differencing changed nothing", bands)
		}
		unpredict8(predictorHorizontal, row, cols, bands)
		if !bytes.Equal(row, orig) {
			t.Errorf("bands %d: round trip mismatch", bands)
		}
	}
}

func TestPredictorRoundTrip16(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for _, bands := range []int{1, 3} {
		const cols = 100
		row := make([]uint16, cols*bands)
		for i := range row {
			row[i] = uint16(rng.Uint32())
		}
		orig := append([]uint16(nil), row...)

		// Differencing, the encode direction.
		for x := cols - 1; x >= 1; x-- {
			for b := 0; b < bands; b++ {
				row[x*bands+b] -= row[(x-1)*bands+b]
			}
		}
		unpredict16(predictorHorizontal, row, cols, bands)
		for i := range row {
			if row[i] != orig[i] {
				t.Fatalf("bands %d: sample %d = %d, expected %d", bands, i, row[i], orig[i])
			}
		}
	}
}

func TestPredictorRoundTrip32(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const cols, bands = 64, 1
	row := make([]uint32, cols*bands)
	for i := range row {
		row[i] = rng.Uint32()
	}
	orig := append([]uint32(nil), row...)

	for x := cols - 1; x >= 1; x-- {
		row[x] -= row[x-1]
	}
	unpredict32(predictorHorizontal, row, cols, bands)
	for i := range row {
		if row[i] != orig[i] {
			t.Fatalf("sample %d = %d, expected %d", i, row[i], orig[i])
		}
	}
}

func TestPredictorNoneIsIdentity(t *testing.T) {
	row := []byte{5, 9, 200, 3}
	orig := append([]byte(nil), row...)
	unpredict8(predictorNone, row, 4, 1)
	if !bytes.Equal(row, orig) {
		t.Error("predictor 1 must not modify the row")
	}
}

func TestCheckPredictor(t *testing.T) {
	if err := checkPredictor(predictorNone); err != nil {
		t.Error(err)
	}
	if err := checkPredictor(predictorHorizontal); err != nil {
		t.Error(err)
	}
	if err := checkPredictor(predictorFloating); err == nil {
		t.Error("floating point predictor must be rejected")
	}
	if err := checkPredictor(42); err == nil {
		t.Error("unknown predictor must be rejected")
	}
}
