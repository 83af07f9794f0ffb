package tiff

import "fmt"

// FormatError reports that the input is not a valid TIFF.
type FormatError string

func (e FormatError) Error() string { return "tiff: invalid format: " + string(e) }

// UnsupportedError reports valid TIFF data that this decoder does not handle.
type UnsupportedError string

func (e UnsupportedError) Error() string { return "tiff: unsupported feature: " + string(e) }

// Structural parse failures. These poison the whole session.
var (
	ErrBadMagic  = FormatError("not a TIFF file (bad magic)")
	ErrBadOrder  = FormatError("invalid byte order mark")
	ErrTruncated = FormatError("unexpected end of input")
	ErrCyclicIFD = FormatError("cyclic IFD chain")
)

// ErrUnsupportedParam is returned when a ReadParam field outside the
// supported subset is set.
var ErrUnsupportedParam = UnsupportedError("read param")

// MissingTagError reports a required tag absent from the current IFD.
// It is fatal for the current image only.
type MissingTagError struct {
	Tag uint16
}

func (e *MissingTagError) Error() string {
	if name := TagName(e.Tag); name != "" {
		return "tiff: missing required tag: " + name
	}
	return fmt.Sprintf("tiff: missing required tag: %d", e.Tag)
}

// UnsupportedCompressionError reports a Compression value outside the
// supported set (including the known CCITT/JBIG/JPEG2000 schemes).
type UnsupportedCompressionError int

func (e UnsupportedCompressionError) Error() string {
	return fmt.Sprintf("tiff: unsupported compression: %d", int(e))
}

// UnsupportedPhotometricError reports a PhotometricInterpretation value the
// decoder cannot deliver.
type UnsupportedPhotometricError int

func (e UnsupportedPhotometricError) Error() string {
	return fmt.Sprintf("tiff: unsupported photometric interpretation: %d", int(e))
}

// UnsupportedPredictorError reports a Predictor value other than 1 or 2.
type UnsupportedPredictorError int

func (e UnsupportedPredictorError) Error() string {
	return fmt.Sprintf("tiff: unsupported predictor: %d", int(e))
}

// InconsistentMetadataError reports tag combinations the TIFF spec allows but
// that contradict each other or vary where this decoder requires uniformity,
// e.g. per-sample BitsPerSample values that differ.
type InconsistentMetadataError string

func (e InconsistentMetadataError) Error() string {
	return "tiff: inconsistent metadata: " + string(e)
}

// CodecError wraps a failure inside a compression codec or the embedded JPEG
// decoder. It aborts the current image but not the session.
type CodecError struct {
	Codec string
	Err   error
}

func (e *CodecError) Error() string { return "tiff: " + e.Codec + ": " + e.Err.Error() }

func (e *CodecError) Unwrap() error { return e.Err }
