package tiff

import "fmt"

// geometry is the unified strip/tile layout of one image: strips are tiles of
// tileWidth == image width and tileHeight == RowsPerStrip. offsets and
// byteCounts index tiles in row-major order, one run of tilesAcross*tilesDown
// entries per plane when the data is planar.
type geometry struct {
	tileWidth  int
	tileHeight int

	tilesAcross int
	tilesDown   int
	planes      int

	offsets    []int64
	byteCounts []int64 // nil when the file omits the byte count tag
}

func (g *geometry) tilesPerPlane() int { return g.tilesAcross * g.tilesDown }

// tileOffset returns the file offset for a tile index within a plane.
func (g *geometry) tileOffset(plane, i int) int64 {
	return g.offsets[plane*g.tilesPerPlane()+i]
}

// tileByteCount returns the byte count for a tile index within a plane, or -1
// when byte counts are missing.
func (g *geometry) tileByteCount(plane, i int) int64 {
	if g.byteCounts == nil {
		return -1
	}
	return g.byteCounts[plane*g.tilesPerPlane()+i]
}

// resolveGeometry reads the strip or tile layout tags. When a file carries
// both, the tile tags win (the TIFF spec forbids mixing; a warning is
// raised).
func resolveGeometry(d *Directory, width, height, planes int, warn func(string)) (*geometry, error) {
	g := &geometry{tileWidth: width, tileHeight: height, planes: planes}

	tileOffsets := d.EntryByTag(tagTileOffsets)
	stripOffsets := d.EntryByTag(tagStripOffsets)

	switch {
	case tileOffsets != nil:
		if stripOffsets != nil {
			warn("both strip and tile tags present, using tile layout")
		}

		tw, ok := tagLong(d, tagTileWidth)
		if !ok {
			return nil, &MissingTagError{Tag: tagTileWidth}
		}
		th, ok := tagLong(d, tagTileHeight)
		if !ok {
			return nil, &MissingTagError{Tag: tagTileHeight}
		}
		if tw <= 0 || th <= 0 {
			return nil, InconsistentMetadataError(fmt.Sprintf("invalid tile size %dx%d", tw, th))
		}
		g.tileWidth = int(tw)
		g.tileHeight = int(th)

		g.offsets, _ = tileOffsets.LongArray()
		g.byteCounts = tagLongArray(d, tagTileByteCounts)
		if g.byteCounts == nil {
			warn("missing TileByteCounts for tiled image")
		}

	case stripOffsets != nil:
		if rps, ok := tagLong(d, tagRowsPerStrip); ok && rps > 0 && rps < int64(height) {
			g.tileHeight = int(rps)
		}

		g.offsets, _ = stripOffsets.LongArray()
		g.byteCounts = tagLongArray(d, tagStripByteCounts)
		if g.byteCounts == nil {
			warn("missing StripByteCounts")
		}

	default:
		return nil, &MissingTagError{Tag: tagStripOffsets}
	}

	g.tilesAcross = (width + g.tileWidth - 1) / g.tileWidth
	g.tilesDown = (height + g.tileHeight - 1) / g.tileHeight

	want := g.tilesPerPlane() * planes
	if len(g.offsets) < want {
		return nil, InconsistentMetadataError(fmt.Sprintf(
			"expected %d strip/tile offsets, found %d", want, len(g.offsets)))
	}
	if g.byteCounts != nil && len(g.byteCounts) < want {
		warn(fmt.Sprintf("expected %d strip/tile byte counts, found %d, ignoring byte counts",
			want, len(g.byteCounts)))
		g.byteCounts = nil
	}

	return g, nil
}

// tagLong returns the first value of an integer tag.
func tagLong(d *Directory, tag uint16) (int64, bool) {
	e := d.EntryByTag(tag)
	if e == nil {
		return 0, false
	}
	return e.Long()
}

// tagLongWithDefault returns the first value of an integer tag, or def when
// the tag is absent.
func tagLongWithDefault(d *Directory, tag uint16, def int64) int64 {
	if v, ok := tagLong(d, tag); ok {
		return v
	}
	return def
}

// tagLongArray returns an integer tag's values widened to int64, or nil.
func tagLongArray(d *Directory, tag uint16) []int64 {
	e := d.EntryByTag(tag)
	if e == nil {
		return nil
	}
	v, ok := e.LongArray()
	if !ok {
		return nil
	}
	return v
}
