package tiff

import (
	"bytes"
	"image"
	"io"
)

// Decode reads a TIFF image from r and returns the first image in the file
// as an [image.Image].
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	d, err := Open(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	raster, err := d.Decode(0)
	if err != nil {
		return nil, err
	}
	return raster.Image()
}

// DecodeConfig returns the color model and dimensions of the first image
// without decoding pixel data.
func DecodeConfig(r io.Reader) (image.Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return image.Config{}, err
	}
	d, err := Open(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, err
	}
	width, err := d.Width(0)
	if err != nil {
		return image.Config{}, err
	}
	height, err := d.Height(0)
	if err != nil {
		return image.Config{}, err
	}
	it, err := d.RawImageType(0)
	if err != nil {
		return image.Config{}, err
	}
	raster := newRaster(it, 0, 0)
	img, err := raster.Image()
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: img.ColorModel(), Width: width, Height: height}, nil
}

// init registers the format with the standard library's image package for
// both byte orders, so image.Decode recognizes TIFF files.
func init() {
	image.RegisterFormat("tiff", "II\x2A\x00", Decode, DecodeConfig)
	image.RegisterFormat("tiff", "MM\x00\x2A", Decode, DecodeConfig)
}
