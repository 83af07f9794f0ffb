package tiff

import (
	"fmt"
	"io"
)

// ccir601Coefficients are the default luma coefficients (CCIR Recommendation
// 601-1) used when the YCbCrCoefficients tag is absent.
var ccir601Coefficients = [3]float64{0.299, 0.587, 0.114}

// ycbcrParams captures the YCbCr-related tags of one IFD.
type ycbcrParams struct {
	subH, subV  int
	positioning int
	coeff       [3]float64
}

// readYCbCrParams validates the subsampling/positioning/coefficient tags,
// applying the TIFF defaults for missing ones.
func readYCbCrParams(d *Directory, warn func(string)) (*ycbcrParams, error) {
	p := &ycbcrParams{subH: 2, subV: 2, positioning: ycbcrPositioningCentered, coeff: ccir601Coefficients}

	if e := d.EntryByTag(tagYCbCrSubSampling); e != nil {
		v, ok := e.LongArray()
		if !ok || len(v) != 2 {
			return nil, InconsistentMetadataError("YCbCrSubSampling must hold two integers")
		}
		if !validSubsampling(v[0]) || !validSubsampling(v[1]) {
			return nil, InconsistentMetadataError(fmt.Sprintf("bad YCbCrSubSampling value: [%d, %d]", v[0], v[1]))
		}
		if v[0] < v[1] {
			warn(fmt.Sprintf("unusual YCbCr subsampling, expected horizontal >= vertical: [%d, %d]", v[0], v[1]))
		}
		p.subH, p.subV = int(v[0]), int(v[1])
	}

	pos := tagLongWithDefault(d, tagYCbCrPositioning, ycbcrPositioningCentered)
	if pos != ycbcrPositioningCentered && pos != ycbcrPositioningCosited {
		warn(fmt.Sprintf("unknown YCbCrPositioning value, expected 1 or 2: %d", pos))
	}
	p.positioning = int(pos)

	if e := d.EntryByTag(tagYCbCrCoefficients); e != nil {
		v, ok := e.Value.([]Rational)
		if !ok || len(v) != 3 {
			return nil, InconsistentMetadataError("YCbCrCoefficients must hold three rationals")
		}
		for i := range p.coeff {
			p.coeff[i] = v[i].Float()
		}
	}

	return p, nil
}

func validSubsampling(v int64) bool {
	return v == 1 || v == 2 || v == 4
}

// ycbcrUpsampler reads raw subsampled YCbCr data units (subH x subV luma
// samples followed by one Cb and one Cr) and yields interleaved RGB rows.
// Chroma is replicated to the covered luma positions; the conversion uses
// the configured luma coefficients and clamps to 0..255.
type ycbcrUpsampler struct {
	r    io.Reader
	p    *ycbcrParams
	cols int

	unit []byte
	band []byte // subV decoded rows of cols*3 bytes
	pos  int
	err  error
}

// newYCbCrUpsampler wraps r, which must produce the data units covering a
// tile of the given column count.
func newYCbCrUpsampler(r io.Reader, p *ycbcrParams, cols int) *ycbcrUpsampler {
	u := &ycbcrUpsampler{
		r:    r,
		p:    p,
		cols: cols,
		unit: make([]byte, p.subH*p.subV+2),
		band: make([]byte, p.subV*cols*3),
	}
	u.pos = len(u.band)
	return u
}

func (u *ycbcrUpsampler) Read(p []byte) (int, error) {
	for {
		if u.pos < len(u.band) {
			n := copy(p, u.band[u.pos:])
			u.pos += n
			return n, nil
		}
		if u.err != nil {
			return 0, u.err
		}
		u.fillBand()
	}
}

// fillBand decodes one horizontal band of subV rows.
func (u *ycbcrUpsampler) fillBand() {
	sh, sv := u.p.subH, u.p.subV
	unitsAcross := (u.cols + sh - 1) / sh

	for ux := 0; ux < unitsAcross; ux++ {
		if _, err := io.ReadFull(u.r, u.unit); err != nil {
			if err == io.ErrUnexpectedEOF && ux > 0 {
				err = io.EOF
			}
			u.err = err
			if ux == 0 {
				return
			}
			break
		}
		cb := u.unit[sh*sv]
		cr := u.unit[sh*sv+1]
		for r := 0; r < sv; r++ {
			for c := 0; c < sh; c++ {
				x := ux*sh + c
				if x >= u.cols {
					continue
				}
				y := u.unit[r*sh+c]
				off := (r*u.cols + x) * 3
				u.band[off], u.band[off+1], u.band[off+2] = u.convert(y, cb, cr)
			}
		}
	}
	u.pos = 0
}

func (u *ycbcrUpsampler) convert(y, cb, cr uint8) (uint8, uint8, uint8) {
	lr, lg, lb := u.p.coeff[0], u.p.coeff[1], u.p.coeff[2]

	yy := float64(y)
	r := yy + 2*(1-lr)*(float64(cr)-128)
	b := yy + 2*(1-lb)*(float64(cb)-128)
	g := (yy - lr*r - lb*b) / lg

	return clamp8(r), clamp8(g), clamp8(b)
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
