package app

import (
	gopath "path"
	"strings"

	"github.com/gigimon/vcmc/fs"
)

// PanelID names one of the two panes.
type PanelID int

// Panel ids
const (
	PanelLeft PanelID = iota
	PanelRight
)

// String returns the panel display name
func (id PanelID) String() string {
	if id == PanelRight {
		return "Right"
	}
	return "Left"
}

// Other returns the opposite panel id.
func (id PanelID) Other() PanelID {
	if id == PanelLeft {
		return PanelRight
	}
	return PanelLeft
}

// Panel is the state of one pane: its backend, listing, cursor, marks and
// filter.
type Panel struct {
	Cwd        string
	Spec       fs.BackendSpec
	AllEntries []fs.Entry
	Entries    []fs.Entry
	Selected   int
	Selection  map[string]bool
	Anchor     *int
	Sort       fs.SortMode
	ShowHidden bool
	Search     string
	ErrorMsg   string

	// set while browsing an archive so GoToParent at "/" can restore the
	// previous backend
	ReturnSpec *fs.BackendSpec
	ReturnCwd  string
}

// NewPanel returns a local panel rooted at cwd.
func NewPanel(cwd string, showHidden bool) Panel {
	return Panel{
		Cwd:        cwd,
		Spec:       fs.LocalSpec(),
		Selection:  map[string]bool{},
		ShowHidden: showHidden,
	}
}

// SetEntries installs a fresh listing, reapplies the search filter, prunes
// the selection set to surviving names and clamps the cursor.
func (p *Panel) SetEntries(entries []fs.Entry) {
	p.AllEntries = entries
	p.applyFilter()

	if len(p.Selection) > 0 {
		alive := map[string]bool{}
		for i := range p.AllEntries {
			e := &p.AllEntries[i]
			if !e.Virtual && p.Selection[e.Name] {
				alive[e.Name] = true
			}
		}
		p.Selection = alive
	}
	p.Anchor = nil
	p.NormalizeSelection()
}

// applyFilter recomputes Entries as the subsequence of AllEntries whose
// names contain the search query case-insensitively. The virtual parent
// link is always kept.
func (p *Panel) applyFilter() {
	query := strings.ToLower(p.Search)
	if query == "" {
		p.Entries = append([]fs.Entry(nil), p.AllEntries...)
		return
	}
	filtered := make([]fs.Entry, 0, len(p.AllEntries))
	for i := range p.AllEntries {
		e := &p.AllEntries[i]
		if e.Virtual || strings.Contains(strings.ToLower(e.Name), query) {
			filtered = append(filtered, *e)
		}
	}
	p.Entries = filtered
}

// ApplySearchFilter refilters after a query edit and clamps the cursor.
func (p *Panel) ApplySearchFilter() {
	p.applyFilter()
	p.NormalizeSelection()
}

// ClearSearch drops the query and restores the unfiltered view.
func (p *Panel) ClearSearch() {
	p.Search = ""
	p.ApplySearchFilter()
}

// NormalizeSelection clamps the cursor into the listing.
func (p *Panel) NormalizeSelection() {
	if len(p.Entries) == 0 {
		p.Selected = 0
		return
	}
	if p.Selected > len(p.Entries)-1 {
		p.Selected = len(p.Entries) - 1
	}
	if p.Selected < 0 {
		p.Selected = 0
	}
}

// MoveSelectionUp moves the cursor one row up.
func (p *Panel) MoveSelectionUp() {
	if p.Selected > 0 {
		p.Selected--
	}
}

// MoveSelectionDown moves the cursor one row down.
func (p *Panel) MoveSelectionDown() {
	if len(p.Entries) == 0 {
		p.Selected = 0
		return
	}
	if p.Selected < len(p.Entries)-1 {
		p.Selected++
	}
}

// SelectedEntry returns the highlighted entry, or nil on an empty listing.
func (p *Panel) SelectedEntry() *fs.Entry {
	if p.Selected < 0 || p.Selected >= len(p.Entries) {
		return nil
	}
	return &p.Entries[p.Selected]
}

// ClearAnchor drops the shift-range anchor; any movement without shift
// does this.
func (p *Panel) ClearAnchor() {
	p.Anchor = nil
}

// ToggleCurrentSelection flips the highlighted non-virtual entry in the
// selection set. Returns whether the set changed.
func (p *Panel) ToggleCurrentSelection() bool {
	entry := p.SelectedEntry()
	if entry == nil || entry.Virtual {
		return false
	}
	if p.Selection[entry.Name] {
		delete(p.Selection, entry.Name)
	} else {
		p.Selection[entry.Name] = true
	}
	return true
}

// SelectRangeFromAnchor marks every index between the pinned anchor and
// cur inclusive. The anchor is pinned at prev when unset. Returns how many
// entries were newly selected.
func (p *Panel) SelectRangeFromAnchor(prev, cur int) int {
	if len(p.Entries) == 0 {
		return 0
	}
	if p.Anchor == nil {
		anchor := prev
		p.Anchor = &anchor
	}
	lo, hi := *p.Anchor, cur
	if lo > hi {
		lo, hi = hi, lo
	}
	changed := 0
	for i := lo; i <= hi && i < len(p.Entries); i++ {
		e := &p.Entries[i]
		if e.Virtual || p.Selection[e.Name] {
			continue
		}
		p.Selection[e.Name] = true
		changed++
	}
	return changed
}

// InvertSelection toggles every non-virtual entry. Returns how many
// entries changed state.
func (p *Panel) InvertSelection() int {
	changed := 0
	for i := range p.Entries {
		e := &p.Entries[i]
		if e.Virtual {
			continue
		}
		if p.Selection[e.Name] {
			delete(p.Selection, e.Name)
		} else {
			p.Selection[e.Name] = true
		}
		changed++
	}
	return changed
}

// SelectByMask marks entries whose names match the glob-style mask.
// Returns the number of newly selected entries.
func (p *Panel) SelectByMask(mask string) int {
	changed := 0
	for i := range p.Entries {
		e := &p.Entries[i]
		if e.Virtual || p.Selection[e.Name] || !MatchMask(mask, e.Name) {
			continue
		}
		p.Selection[e.Name] = true
		changed++
	}
	return changed
}

// DeselectByMask unmarks matching entries. Returns how many were dropped.
func (p *Panel) DeselectByMask(mask string) int {
	changed := 0
	for i := range p.Entries {
		e := &p.Entries[i]
		if e.Virtual || !p.Selection[e.Name] || !MatchMask(mask, e.Name) {
			continue
		}
		delete(p.Selection, e.Name)
		changed++
	}
	return changed
}

// SelectionSummary returns the count and byte total of marked entries.
func (p *Panel) SelectionSummary() (int, int64) {
	count := 0
	var bytes int64
	for i := range p.Entries {
		e := &p.Entries[i]
		if !e.Virtual && p.Selection[e.Name] {
			count++
			bytes += e.Size
		}
	}
	return count, bytes
}

// SelectedSet returns the marked entries in listing order.
func (p *Panel) SelectedSet() []fs.Entry {
	var out []fs.Entry
	for i := range p.Entries {
		e := &p.Entries[i]
		if !e.Virtual && p.Selection[e.Name] {
			out = append(out, *e)
		}
	}
	return out
}

// MatchMask matches a mask with "*" and "?" wildcards against a whole
// entry name.
func MatchMask(mask, name string) bool {
	if ok, err := gopath.Match(mask, name); err == nil {
		return ok
	}
	return false
}
