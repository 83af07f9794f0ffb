package tiff

// Horizontal differencing predictor reversal, TIFF 6.0 section 14. Each
// sample is stored as the difference from the sample one pixel to the left
// within the same band; undoing it is a running sum across the row, modulo
// the sample width. For planar data every plane is a single band.

func checkPredictor(predictor int) error {
	switch predictor {
	case predictorNone, predictorHorizontal:
		return nil
	default:
		return UnsupportedPredictorError(predictor)
	}
}

func unpredict8(predictor int, row []byte, cols, bands int) {
	if predictor != predictorHorizontal {
		return
	}
	for x := 1; x < cols; x++ {
		off := x * bands
		for b := 0; b < bands; b++ {
			row[off+b] += row[off-bands+b]
		}
	}
}

func unpredict16(predictor int, row []uint16, cols, bands int) {
	if predictor != predictorHorizontal {
		return
	}
	for x := 1; x < cols; x++ {
		off := x * bands
		for b := 0; b < bands; b++ {
			row[off+b] += row[off-bands+b]
		}
	}
}

func unpredict32(predictor int, row []uint32, cols, bands int) {
	if predictor != predictorHorizontal {
		return
	}
	for x := 1; x < cols; x++ {
		off := x * bands
		for b := 0; b < bands; b++ {
			row[off+b] += row[off-bands+b]
		}
	}
}

// predict8 applies horizontal differencing to a row. It is the encode-side
// inverse of unpredict8 and exists for the round-trip tests and fixtures.
func predict8(row []byte, cols, bands int) {
	for x := cols - 1; x >= 1; x-- {
		off := x * bands
		for b := 0; b < bands; b++ {
			row[off+b] -= row[off-bands+b]
		}
	}
}
