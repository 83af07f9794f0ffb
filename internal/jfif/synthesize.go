package jfif

import "bytes"

// FrameSpec describes the frame header of a synthesized stream.
type FrameSpec struct {
	Width      int
	Height     int
	Components int
	// Sampling holds one packed horizontal<<4|vertical factor per component.
	Sampling []byte
}

// Synthesize builds a complete baseline JFIF stream for one tile of an
// old-style (compression 6) JPEG TIFF that carries no interchange stream:
// SOI, SOF0, one DQT per quantization table, one DHT per DC and AC table,
// SOS, the entropy-coded body, EOI.
//
// Component i selects quantization table i and DC/AC tables i, mirroring
// the per-component table layout the old-style tags mandate.
func Synthesize(frame FrameSpec, qTables, dcTables, acTables [][]byte, body []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(body) + 1024)

	writeMarker(&out, SOI)

	// SOF0
	sof := make([]byte, 0, 6+3*frame.Components)
	sof = append(sof, 8) // sample precision
	sof = append(sof, byte(frame.Height>>8), byte(frame.Height))
	sof = append(sof, byte(frame.Width>>8), byte(frame.Width))
	sof = append(sof, byte(frame.Components))
	for c := 0; c < frame.Components; c++ {
		sof = append(sof, byte(c), frame.Sampling[c], byte(c))
	}
	writeSegment(&out, SOF0, sof)

	for i, table := range qTables {
		payload := make([]byte, 0, 1+len(table))
		payload = append(payload, byte(i)) // Pq=0 (8-bit), Tq=i
		payload = append(payload, table...)
		writeSegment(&out, DQT, payload)
	}

	for i, table := range dcTables {
		payload := make([]byte, 0, 1+len(table))
		payload = append(payload, byte(i)) // Tc=0 (DC), Th=i
		payload = append(payload, table...)
		writeSegment(&out, DHT, payload)
	}

	for i, table := range acTables {
		payload := make([]byte, 0, 1+len(table))
		payload = append(payload, 0x10|byte(i&0x0F)) // Tc=1 (AC), Th=i
		payload = append(payload, table...)
		writeSegment(&out, DHT, payload)
	}

	// SOS. The trailer is the baseline scan header: spectral selection
	// 0..63, no successive approximation.
	sos := make([]byte, 0, 4+2*frame.Components)
	sos = append(sos, byte(frame.Components))
	for c := 0; c < frame.Components; c++ {
		sos = append(sos, byte(c), byte(c)<<4|byte(c))
	}
	sos = append(sos, 0x00, 0x3F, 0x00)
	writeSegment(&out, SOS, sos)

	out.Write(body)

	if !HasEOI(body) {
		writeMarker(&out, EOI)
	}

	return out.Bytes()
}
