package tiff

import "fmt"

// ImageType describes the destination pixel layout chosen for one IFD.
type ImageType struct {
	Model    ColorModel
	Bands    int // bands in the destination raster
	Bits     int // bits per sample in the file
	Transfer TransferType
	Planar   bool

	HasAlpha           bool
	AlphaPremultiplied bool

	// Photometric is the source interpretation; palette and YCbCr images
	// select an RGB destination but keep their source interpretation here.
	Photometric int
}

func (it ImageType) String() string {
	s := fmt.Sprintf("%v %d-band %d-bit", it.Model, it.Bands, it.Bits)
	if it.Planar {
		s += " planar"
	}
	if it.HasAlpha {
		if it.AlphaPremultiplied {
			s += " premultiplied-alpha"
		} else {
			s += " alpha"
		}
	}
	return s
}

// rawImageType classifies the photometric interpretation, sample count and
// depth of one IFD into a destination layout. Every combination is either
// mapped or rejected; there is no fallback path.
func rawImageType(d *Directory) (ImageType, error) {
	if err := checkSampleFormat(d); err != nil {
		return ImageType{}, err
	}
	bits, err := bitsPerSample(d)
	if err != nil {
		return ImageType{}, err
	}

	photometric, ok := tagLong(d, tagPhotometricInterpretation)
	if !ok {
		return ImageType{}, &MissingTagError{Tag: tagPhotometricInterpretation}
	}
	samplesPerPixel := int(tagLongWithDefault(d, tagSamplesPerPixel, 1))
	planar := tagLongWithDefault(d, tagPlanarConfiguration, planarConfigChunky) == planarConfigPlanar

	transfer, err := transferType(bits)
	if err != nil {
		return ImageType{}, err
	}

	it := ImageType{
		Bits:        bits,
		Transfer:    transfer,
		Planar:      planar,
		Photometric: int(photometric),
	}

	switch photometric {
	case photometricWhiteIsZero, photometricBlackIsZero:
		if samplesPerPixel != 1 {
			return ImageType{}, UnsupportedError(fmt.Sprintf(
				"SamplesPerPixel %d for bi-level/gray image (expected 1)", samplesPerPixel))
		}
		switch bits {
		case 1, 2, 4, 8, 16, 32:
			it.Model = ModelGray
			it.Bands = 1
			return it, nil
		}
		return ImageType{}, UnsupportedError(fmt.Sprintf(
			"BitsPerSample %d for bi-level/gray image (expected 1, 2, 4, 8, 16 or 32)", bits))

	case photometricRGB:
		if bits != 8 && bits != 16 {
			return ImageType{}, UnsupportedError(fmt.Sprintf(
				"BitsPerSample %d for RGB image (expected 8 or 16)", bits))
		}
		switch samplesPerPixel {
		case 3:
			it.Model = ModelRGB
			it.Bands = 3
			return it, nil
		case 4:
			premul, err := alphaKind(d)
			if err != nil {
				return ImageType{}, err
			}
			it.Model = ModelRGB
			it.Bands = 4
			it.HasAlpha = true
			it.AlphaPremultiplied = premul
			return it, nil
		}
		return ImageType{}, UnsupportedError(fmt.Sprintf(
			"SamplesPerPixel %d for RGB image (expected 3 or 4)", samplesPerPixel))

	case photometricPalette:
		if samplesPerPixel != 1 {
			return ImageType{}, UnsupportedError(fmt.Sprintf(
				"SamplesPerPixel %d for palette image (expected 1)", samplesPerPixel))
		}
		if bits <= 0 || bits > 16 {
			return ImageType{}, UnsupportedError(fmt.Sprintf(
				"BitsPerSample %d for palette image (expected <= 16)", bits))
		}
		if d.EntryByTag(tagColorMap) == nil {
			return ImageType{}, &MissingTagError{Tag: tagColorMap}
		}
		// Indices are expanded against the color map during decode, so the
		// destination is plain 8-bit RGB regardless of the index depth.
		it.Model = ModelRGB
		it.Bands = 3
		it.Transfer = TransferByte
		return it, nil

	case photometricSeparated:
		if bits != 8 && bits != 16 {
			return ImageType{}, UnsupportedError(fmt.Sprintf(
				"BitsPerSample %d for separated image (expected 8 or 16)", bits))
		}
		switch samplesPerPixel {
		case 4:
			it.Model = ModelCMYK
			it.Bands = 4
			return it, nil
		case 5:
			premul, err := alphaKind(d)
			if err != nil {
				return ImageType{}, err
			}
			it.Model = ModelCMYK
			it.Bands = 5
			it.HasAlpha = true
			it.AlphaPremultiplied = premul
			return it, nil
		}
		return ImageType{}, UnsupportedError(fmt.Sprintf(
			"SamplesPerPixel %d for separated image (expected 4 or 5)", samplesPerPixel))

	case photometricYCbCr:
		if samplesPerPixel != 3 {
			return ImageType{}, UnsupportedError(fmt.Sprintf(
				"SamplesPerPixel %d for YCbCr image (expected 3)", samplesPerPixel))
		}
		if bits != 8 {
			return ImageType{}, UnsupportedError(fmt.Sprintf(
				"BitsPerSample %d for YCbCr image (expected 8)", bits))
		}
		if planar {
			return ImageType{}, UnsupportedError("planar YCbCr image")
		}
		it.Model = ModelRGB
		it.Bands = 3
		return it, nil

	case photometricMask:
		return ImageType{}, UnsupportedPhotometricError(photometric)
	}

	return ImageType{}, UnsupportedPhotometricError(photometric)
}

// checkSampleFormat rejects anything but uniform unsigned integer samples.
// The tag defaults to unsigned when absent.
func checkSampleFormat(d *Directory) error {
	v := tagLongArray(d, tagSampleFormat)
	if v == nil {
		return nil
	}
	for _, f := range v[1:] {
		if f != v[0] {
			return InconsistentMetadataError(fmt.Sprintf("variable SampleFormat: %v", v))
		}
	}
	if v[0] != sampleFormatUInt {
		return UnsupportedError(fmt.Sprintf("SampleFormat %d (expected 1, unsigned integer)", v[0]))
	}
	return nil
}

// bitsPerSample returns the (uniform) sample depth, defaulting to 1.
func bitsPerSample(d *Directory) (int, error) {
	v := tagLongArray(d, tagBitsPerSample)
	if len(v) == 0 {
		return 1, nil
	}
	for _, b := range v[1:] {
		if b != v[0] {
			return 0, InconsistentMetadataError(fmt.Sprintf("variable BitsPerSample: %v", v))
		}
	}
	return int(v[0]), nil
}

func transferType(bits int) (TransferType, error) {
	switch {
	case bits <= 8:
		return TransferByte, nil
	case bits <= 16:
		return TransferUint16, nil
	case bits <= 32:
		return TransferUint32, nil
	}
	return 0, UnsupportedError(fmt.Sprintf("BitsPerSample %d", bits))
}

// alphaKind reads the ExtraSamples tag for layouts with one extra sample and
// reports whether the alpha is premultiplied.
func alphaKind(d *Directory) (bool, error) {
	v := tagLongArray(d, tagExtraSamples)
	if v == nil {
		return false, &MissingTagError{Tag: tagExtraSamples}
	}
	switch v[0] {
	case extraSampleAssociatedAlpha:
		return true, nil
	case extraSampleUnassociated, extraSampleUnspecified:
		return false, nil
	}
	return false, UnsupportedError(fmt.Sprintf("ExtraSamples type %d", v[0]))
}
