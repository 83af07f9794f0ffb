package tiff

import "testing"

func discardWarn(string) {}

func TestGeometryStripsDefaultRowsPerStrip(t *testing.T) {
	dir := &Directory{}
	dir.add(longEntryValue(tagStripOffsets, 8))
	dir.add(longEntryValue(tagStripByteCounts, 100))

	g, err := resolveGeometry(dir, 10, 10, 1, discardWarn)
	if err != nil {
		t.Fatal(err)
	}
	if g.tileWidth != 10 || g.tileHeight != 10 {
		t.Errorf("strip geometry = %dx%d, expected 10x10", g.tileWidth, g.tileHeight)
	}
	if g.tilesAcross != 1 || g.tilesDown != 1 {
		t.Errorf("tiles = %dx%d", g.tilesAcross, g.tilesDown)
	}
}

func TestGeometryPartialEdgeTiles(t *testing.T) {
	dir := &Directory{}
	dir.add(shortEntryValue(tagTileWidth, 16))
	dir.add(shortEntryValue(tagTileHeight, 16))
	offsets := make([]uint32, 7*4)
	counts := make([]uint32, 7*4)
	dir.add(longEntryValue(tagTileOffsets, offsets...))
	dir.add(longEntryValue(tagTileByteCounts, counts...))

	g, err := resolveGeometry(dir, 100, 50, 1, discardWarn)
	if err != nil {
		t.Fatal(err)
	}
	if g.tilesAcross != 7 || g.tilesDown != 4 {
		t.Fatalf("tiles = %dx%d, expected 7x4", g.tilesAcross, g.tilesDown)
	}
	// The valid region of the right and bottom edge tiles.
	if cols := min(16, 100-6*16); cols != 4 {
		t.Errorf("edge tile columns = %d, expected 4", cols)
	}
	if rows := min(16, 50-3*16); rows != 2 {
		t.Errorf("edge tile rows = %d, expected 2", rows)
	}
}

func TestGeometryOffsetCountMismatch(t *testing.T) {
	dir := &Directory{}
	dir.add(shortEntryValue(tagTileWidth, 16))
	dir.add(shortEntryValue(tagTileHeight, 16))
	dir.add(longEntryValue(tagTileOffsets, 8)) // needs 4 tiles

	if _, err := resolveGeometry(dir, 32, 32, 1, discardWarn); err == nil {
		t.Fatal("expected an error for too few tile offsets")
	}
}

func TestGeometryMissingLayout(t *testing.T) {
	dir := &Directory{}
	if _, err := resolveGeometry(dir, 8, 8, 1, discardWarn); err == nil {
		t.Fatal("expected an error when neither strip nor tile tags exist")
	}
}

func TestGeometryPlanarOffsets(t *testing.T) {
	dir := &Directory{}
	dir.add(longEntryValue(tagStripOffsets, 8, 100, 200))
	dir.add(longEntryValue(tagStripByteCounts, 50, 50, 50))

	g, err := resolveGeometry(dir, 10, 5, 3, discardWarn)
	if err != nil {
		t.Fatal(err)
	}
	if g.tileOffset(0, 0) != 8 || g.tileOffset(1, 0) != 100 || g.tileOffset(2, 0) != 200 {
		t.Errorf("per-plane offsets wrong: %v", g.offsets)
	}
	if g.tileByteCount(2, 0) != 50 {
		t.Errorf("per-plane byte count wrong")
	}
}

func TestGeometryMissingByteCountsIsMinusOne(t *testing.T) {
	dir := &Directory{}
	dir.add(longEntryValue(tagStripOffsets, 8))

	g, err := resolveGeometry(dir, 4, 4, 1, discardWarn)
	if err != nil {
		t.Fatal(err)
	}
	if g.tileByteCount(0, 0) != -1 {
		t.Errorf("missing byte counts should read as -1, got %d", g.tileByteCount(0, 0))
	}
}

// Helpers turning builder-style entries into decoded Entry values for
// geometry tests that bypass the file parser.
func longEntryValue(tag uint16, v ...uint32) Entry {
	return Entry{Tag: tag, Type: dtLong, Count: uint32(len(v)), Value: v}
}

func shortEntryValue(tag uint16, v ...uint16) Entry {
	return Entry{Tag: tag, Type: dtShort, Count: uint32(len(v)), Value: v}
}
