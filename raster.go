package tiff

import (
	"fmt"
	"image"
	"image/color"
)

// TransferType is the numeric width samples are delivered in.
type TransferType int

const (
	TransferByte   TransferType = iota // bits per sample <= 8
	TransferUint16                     // bits per sample <= 16
	TransferUint32                     // bits per sample <= 32
)

func (t TransferType) String() string {
	switch t {
	case TransferByte:
		return "byte"
	case TransferUint16:
		return "uint16"
	case TransferUint32:
		return "uint32"
	}
	return fmt.Sprintf("TransferType(%d)", int(t))
}

// ColorModel is the semantic interpretation of a raster's bands.
type ColorModel int

const (
	ModelGray ColorModel = iota
	ModelRGB
	ModelCMYK
)

func (m ColorModel) String() string {
	switch m {
	case ModelGray:
		return "Gray"
	case ModelRGB:
		return "RGB"
	case ModelCMYK:
		return "CMYK"
	}
	return fmt.Sprintf("ColorModel(%d)", int(m))
}

// Raster is a decoded image: interleaved samples in row-major order, in
// exactly one of Pix/Pix16/Pix32 according to Transfer.
type Raster struct {
	Width, Height int
	Bands         int
	Transfer      TransferType
	Model         ColorModel

	HasAlpha           bool
	AlphaPremultiplied bool

	Pix   []byte
	Pix16 []uint16
	Pix32 []uint32
}

func newRaster(it ImageType, width, height int) *Raster {
	r := &Raster{
		Width:              width,
		Height:             height,
		Bands:              it.Bands,
		Transfer:           it.Transfer,
		Model:              it.Model,
		HasAlpha:           it.HasAlpha,
		AlphaPremultiplied: it.AlphaPremultiplied,
	}
	n := width * height * it.Bands
	switch it.Transfer {
	case TransferByte:
		r.Pix = make([]byte, n)
	case TransferUint16:
		r.Pix16 = make([]uint16, n)
	case TransferUint32:
		r.Pix32 = make([]uint32, n)
	}
	return r
}

// compatible reports whether the raster can serve as a destination for the
// given layout and size.
func (r *Raster) compatible(it ImageType, width, height int) bool {
	return r.Width >= width && r.Height >= height &&
		r.Bands == it.Bands && r.Transfer == it.Transfer && r.Model == it.Model
}

func (r *Raster) offset(x, y int) int { return (y*r.Width + x) * r.Bands }

// setRow8 blits pixels interleaved samples from row into the raster at
// (x, y), clipping to the raster bounds.
func (r *Raster) setRow8(x, y int, row []byte, pixels int) {
	if y < 0 || y >= r.Height || x >= r.Width {
		return
	}
	if x+pixels > r.Width {
		pixels = r.Width - x
	}
	copy(r.Pix[r.offset(x, y):], row[:pixels*r.Bands])
}

func (r *Raster) setRow16(x, y int, row []uint16, pixels int) {
	if y < 0 || y >= r.Height || x >= r.Width {
		return
	}
	if x+pixels > r.Width {
		pixels = r.Width - x
	}
	copy(r.Pix16[r.offset(x, y):], row[:pixels*r.Bands])
}

func (r *Raster) setRow32(x, y int, row []uint32, pixels int) {
	if y < 0 || y >= r.Height || x >= r.Width {
		return
	}
	if x+pixels > r.Width {
		pixels = r.Width - x
	}
	copy(r.Pix32[r.offset(x, y):], row[:pixels*r.Bands])
}

// setRowBand blits a single band of a row (planar data), one sample per
// pixel, into band b of the raster.
func (r *Raster) setRowBand8(x, y, b int, row []byte, pixels int) {
	if y < 0 || y >= r.Height || x >= r.Width {
		return
	}
	if x+pixels > r.Width {
		pixels = r.Width - x
	}
	base := r.offset(x, y) + b
	for i := 0; i < pixels; i++ {
		r.Pix[base+i*r.Bands] = row[i]
	}
}

func (r *Raster) setRowBand16(x, y, b int, row []uint16, pixels int) {
	if y < 0 || y >= r.Height || x >= r.Width {
		return
	}
	if x+pixels > r.Width {
		pixels = r.Width - x
	}
	base := r.offset(x, y) + b
	for i := 0; i < pixels; i++ {
		r.Pix16[base+i*r.Bands] = row[i]
	}
}

func (r *Raster) setRowBand32(x, y, b int, row []uint32, pixels int) {
	if y < 0 || y >= r.Height || x >= r.Width {
		return
	}
	if x+pixels > r.Width {
		pixels = r.Width - x
	}
	base := r.offset(x, y) + b
	for i := 0; i < pixels; i++ {
		r.Pix32[base+i*r.Bands] = row[i]
	}
}

// drawImage paints a w x h region of a decoded image (a JPEG tile) starting
// at source position (srcX, srcY) into the raster at (x, y), clipping to
// both the image and raster bounds. Only byte rasters can be JPEG
// destinations.
func (r *Raster) drawImage(img image.Image, x, y, srcX, srcY, w, h int) error {
	if r.Transfer != TransferByte {
		return UnsupportedError(fmt.Sprintf("JPEG tile into %v raster", r.Transfer))
	}
	b := img.Bounds()
	if w > b.Dx()-srcX {
		w = b.Dx() - srcX
	}
	if h > b.Dy()-srcY {
		h = b.Dy() - srcY
	}
	for dy := 0; dy < h; dy++ {
		ty := y + dy
		if ty >= r.Height {
			break
		}
		for dx := 0; dx < w; dx++ {
			tx := x + dx
			if tx >= r.Width {
				break
			}
			c := img.At(b.Min.X+srcX+dx, b.Min.Y+srcY+dy)
			off := r.offset(tx, ty)
			switch r.Model {
			case ModelGray:
				r.Pix[off] = color.GrayModel.Convert(c).(color.Gray).Y
			case ModelRGB:
				cr, cg, cb, ca := c.RGBA()
				r.Pix[off] = uint8(cr >> 8)
				r.Pix[off+1] = uint8(cg >> 8)
				r.Pix[off+2] = uint8(cb >> 8)
				if r.HasAlpha && r.Bands >= 4 {
					r.Pix[off+3] = uint8(ca >> 8)
				}
			case ModelCMYK:
				cc := color.CMYKModel.Convert(c).(color.CMYK)
				r.Pix[off] = cc.C
				r.Pix[off+1] = cc.M
				r.Pix[off+2] = cc.Y
				r.Pix[off+3] = cc.K
			}
		}
	}
	return nil
}

// Image converts the raster to a standard library image. Supported are 8- and
// 16-bit gray, 8-bit RGB with or without alpha, 16-bit RGB without alpha and
// 8-bit CMYK without alpha; any other raster (32-bit samples, 16-bit RGB with
// alpha, 16-bit CMYK, CMYK with alpha) returns an error.
func (r *Raster) Image() (image.Image, error) {
	rect := image.Rect(0, 0, r.Width, r.Height)

	switch {
	case r.Model == ModelGray && r.Bands == 1 && r.Transfer == TransferByte:
		img := image.NewGray(rect)
		copy(img.Pix, r.Pix)
		return img, nil

	case r.Model == ModelGray && r.Bands == 1 && r.Transfer == TransferUint16:
		img := image.NewGray16(rect)
		for i, v := range r.Pix16 {
			img.Pix[2*i] = uint8(v >> 8)
			img.Pix[2*i+1] = uint8(v)
		}
		return img, nil

	case r.Model == ModelRGB && r.Bands == 3 && r.Transfer == TransferByte:
		img := image.NewRGBA(rect)
		for i := 0; i < r.Width*r.Height; i++ {
			img.Pix[4*i] = r.Pix[3*i]
			img.Pix[4*i+1] = r.Pix[3*i+1]
			img.Pix[4*i+2] = r.Pix[3*i+2]
			img.Pix[4*i+3] = 0xff
		}
		return img, nil

	case r.Model == ModelRGB && r.Bands == 4 && r.Transfer == TransferByte:
		if r.AlphaPremultiplied {
			img := image.NewRGBA(rect)
			copy(img.Pix, r.Pix)
			return img, nil
		}
		img := image.NewNRGBA(rect)
		copy(img.Pix, r.Pix)
		return img, nil

	case r.Model == ModelRGB && r.Bands == 3 && r.Transfer == TransferUint16:
		img := image.NewRGBA64(rect)
		for i := 0; i < r.Width*r.Height; i++ {
			putU16BE(img.Pix[8*i:], r.Pix16[3*i])
			putU16BE(img.Pix[8*i+2:], r.Pix16[3*i+1])
			putU16BE(img.Pix[8*i+4:], r.Pix16[3*i+2])
			putU16BE(img.Pix[8*i+6:], 0xffff)
		}
		return img, nil

	case r.Model == ModelCMYK && r.Bands == 4 && r.Transfer == TransferByte:
		img := image.NewCMYK(rect)
		copy(img.Pix, r.Pix)
		return img, nil
	}

	return nil, UnsupportedError(fmt.Sprintf(
		"no standard image type for %v raster with %d bands (%v)", r.Model, r.Bands, r.Transfer))
}

func putU16BE(p []byte, v uint16) {
	p[0] = uint8(v >> 8)
	p[1] = uint8(v)
}
