// Package fs defines the domain model shared by every vcmc backend: directory
// entries, sort modes, backend specs and the error/logging surface.
package fs

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// EntryType classifies a directory entry.
type EntryType int

// Entry types
const (
	EntryDirectory EntryType = iota
	EntryFile
	EntrySymlink
	EntryOther
)

// String returns a short name for the entry type
func (t EntryType) String() string {
	switch t {
	case EntryDirectory:
		return "dir"
	case EntryFile:
		return "file"
	case EntrySymlink:
		return "symlink"
	}
	return "other"
}

// Entry is one element of a directory listing. Path is absolute in the
// coordinates of the backend that produced it.
type Entry struct {
	Name       string
	Path       string
	Type       EntryType
	Size       int64
	ModTime    time.Time // zero when the backend has no timestamp
	Executable bool
	Hidden     bool
	Virtual    bool // synthesized ".." parent link, not actionable
}

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool {
	return e.Type == EntryDirectory
}

// ParentLink synthesizes the virtual ".." entry pointing at parent.
func ParentLink(parent string) Entry {
	return Entry{
		Name:    "..",
		Path:    parent,
		Type:    EntryDirectory,
		Virtual: true,
	}
}

// SortMode selects the listing order within an entry group.
type SortMode int

// Sort modes
const (
	SortName SortMode = iota
	SortSize
	SortModTime
)

// Next cycles Name -> Size -> ModTime -> Name.
func (m SortMode) Next() SortMode {
	switch m {
	case SortName:
		return SortSize
	case SortSize:
		return SortModTime
	}
	return SortName
}

// String returns the flag/name form of the sort mode
func (m SortMode) String() string {
	switch m {
	case SortSize:
		return "size"
	case SortModTime:
		return "modified"
	}
	return "name"
}

func entryGroup(e *Entry) int {
	if e.Type == EntryDirectory {
		return 0
	}
	return 1
}

func lessName(a, b *Entry) bool {
	return strings.ToLower(a.Name) < strings.ToLower(b.Name)
}

// SortEntries orders entries in place: directories first, then the
// mode-specific key with name as tie-breaker. The order is what every
// backend returns from ListDir, before the ".." link is prepended.
func SortEntries(entries []Entry, mode SortMode) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		if ga, gb := entryGroup(a), entryGroup(b); ga != gb {
			return ga < gb
		}
		switch mode {
		case SortSize:
			if a.Size != b.Size {
				return a.Size > b.Size
			}
		case SortModTime:
			// missing timestamps sort as the epoch
			if !a.ModTime.Equal(b.ModTime) {
				return a.ModTime.After(b.ModTime)
			}
		}
		return lessName(a, b)
	})
}

// FormatSize renders a byte count in the compact 1024-based form used by the
// status line and the viewer header.
func FormatSize(bytes int64) string {
	units := []string{"B", "K", "M", "G", "T"}
	size := float64(bytes)
	idx := 0
	for size >= 1024 && idx < len(units)-1 {
		size /= 1024
		idx++
	}
	if idx == 0 {
		return fmt.Sprintf("%d%s", bytes, units[idx])
	}
	return fmt.Sprintf("%.1f%s", size, units[idx])
}
