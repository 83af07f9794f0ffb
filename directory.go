package tiff

import "strings"

// Directory is one IFD: its entries in file order, with lookup by tag.
// A tag appears at most once per directory.
type Directory struct {
	entries []Entry
}

// Size returns the number of entries.
func (d *Directory) Size() int { return len(d.entries) }

// Entries returns the entries in file order. The slice is shared, not a copy.
func (d *Directory) Entries() []Entry { return d.entries }

// EntryByTag returns the entry with the given tag, or nil.
func (d *Directory) EntryByTag(tag uint16) *Entry {
	for i := range d.entries {
		if d.entries[i].Tag == tag {
			return &d.entries[i]
		}
	}
	return nil
}

func (d *Directory) add(e Entry) bool {
	if d.EntryByTag(e.Tag) != nil {
		return false
	}
	d.entries = append(d.entries, e)
	return true
}

func (d *Directory) String() string {
	var sb strings.Builder
	for i := range d.entries {
		sb.WriteString(d.entries[i].String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// CompoundDirectory is the flattened top-level IFD chain (IFD0, IFD1, ...).
// Sub-IFDs (EXIF, GPS, Interoperability) stay reachable through the value of
// the entry that points at them.
type CompoundDirectory struct {
	dirs []*Directory
}

// Count returns the number of linked top-level directories.
func (c *CompoundDirectory) Count() int { return len(c.dirs) }

// Directory returns the i'th top-level directory.
func (c *CompoundDirectory) Directory(i int) *Directory { return c.dirs[i] }

// EntryByTag searches all top-level directories in chain order and returns
// the first entry with the given tag, or nil.
func (c *CompoundDirectory) EntryByTag(tag uint16) *Entry {
	for _, d := range c.dirs {
		if e := d.EntryByTag(tag); e != nil {
			return e
		}
	}
	return nil
}

// Size returns the total entry count across all top-level directories.
func (c *CompoundDirectory) Size() int {
	n := 0
	for _, d := range c.dirs {
		n += d.Size()
	}
	return n
}
