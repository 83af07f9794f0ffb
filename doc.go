// Package tiff implements a decoder for the Tagged Image File Format (TIFF).
//
// The decoder reads bi-level, grayscale, palette and RGB images (the CCITT fax
// compressions are not supported), and supports common extensions: tiling, LZW (both bit
// orders), PackBits, ZLib/Deflate, horizontal differencing predictor, CMYK,
// YCbCr, alpha via ExtraSamples, planar data, ICC profile extraction, and
// JPEG-in-TIFF (both 'new-style' compression 7 and the withdrawn 'old-style'
// compression 6, for which a JFIF stream is re-created from tag data when the
// file carries none).
//
// Embedded JPEG streams are handed to github.com/gen2brain/jpegn, which falls
// back to the standard library decoder for streams it cannot handle.
package tiff
