package app

import (
	"github.com/gdamore/tcell/v2"

	"github.com/gigimon/vcmc/backend"
	"github.com/gigimon/vcmc/fs"
	"github.com/gigimon/vcmc/viewer"
)

// openViewer loads the highlighted file into the viewer overlay. Non-local
// backends feed the viewer through ReadFile.
func (a *App) openViewer() (bool, error) {
	entry, err := a.selectedActionEntry()
	if err != nil {
		return true, err
	}
	if entry.Type == fs.EntryDirectory {
		a.pushLog(entry.Name + " is not a file")
		return true, nil
	}

	panel := a.state.ActivePanel()
	var state *viewer.State
	if panel.Spec.Kind == fs.BackendLocal {
		state, err = viewer.Load(entry.Path, entry.Name, entry.Size)
		if err != nil {
			return true, err
		}
	} else {
		b, err := backend.FromSpec(panel.Spec)
		if err != nil {
			return true, err
		}
		data, err := b.ReadFile(entry.Path)
		if err != nil {
			return true, err
		}
		state = viewer.LoadBytes(entry.Path, entry.Name, data)
	}

	a.state.clearPrompts()
	a.state.Viewer = state
	a.state.ViewerSearching = false
	a.state.StatusLine = "viewing " + entry.Name
	return true, nil
}

func (a *App) closeViewer() {
	a.state.Viewer = nil
	a.state.ViewerSearching = false
	a.state.StatusLine = "viewer closed"
}

// viewerPageSize derives the scroll page from the terminal height.
func (a *App) viewerPageSize() int {
	page := a.state.Height - 4
	if page < 1 {
		page = 1
	}
	return page
}

// handleViewerKey drives the viewer overlay, including its incremental
// search input.
func (a *App) handleViewerKey(key *tcell.EventKey) (bool, bool) {
	v := a.state.Viewer
	if v == nil {
		return false, false
	}

	if a.state.ViewerSearching {
		return true, a.handleViewerSearchKey(v, key)
	}

	maxOffset := len(v.Lines) - 1
	if maxOffset < 0 {
		maxOffset = 0
	}
	switch key.Key() {
	case tcell.KeyEscape:
		a.closeViewer()
		return true, true
	case tcell.KeyUp:
		if v.ScrollOffset > 0 {
			v.ScrollOffset--
		}
		return true, true
	case tcell.KeyDown:
		if v.ScrollOffset < maxOffset {
			v.ScrollOffset++
		}
		return true, true
	case tcell.KeyPgUp:
		v.ScrollOffset -= a.viewerPageSize()
		if v.ScrollOffset < 0 {
			v.ScrollOffset = 0
		}
		return true, true
	case tcell.KeyPgDn:
		v.ScrollOffset += a.viewerPageSize()
		if v.ScrollOffset > maxOffset {
			v.ScrollOffset = maxOffset
		}
		return true, true
	case tcell.KeyHome:
		v.ScrollOffset = 0
		return true, true
	case tcell.KeyEnd:
		v.ScrollOffset = maxOffset
		return true, true
	case tcell.KeyF4:
		if v.Mode == viewer.ModeText {
			v.SetMode(viewer.ModeHex)
		} else {
			v.SetMode(viewer.ModeText)
		}
		return true, true
	case tcell.KeyRune:
		switch key.Rune() {
		case 'q':
			a.closeViewer()
			return true, true
		case 't':
			v.SetMode(viewer.ModeText)
			return true, true
		case 'x':
			v.SetMode(viewer.ModeHex)
			return true, true
		case '/':
			a.state.ViewerSearching = true
			a.state.StatusLine = "viewer search: " + v.SearchQuery
			return true, true
		case 'n':
			if v.JumpToMatch(true) < 0 {
				a.state.StatusLine = "no matches"
			}
			return true, true
		case 'N':
			if v.JumpToMatch(false) < 0 {
				a.state.StatusLine = "no matches"
			}
			return true, true
		}
	}
	return true, false
}

func (a *App) handleViewerSearchKey(v *viewer.State, key *tcell.EventKey) bool {
	switch key.Key() {
	case tcell.KeyEscape:
		a.state.ViewerSearching = false
		v.SearchQuery = ""
		v.RefreshSearch()
		a.state.StatusLine = "viewer search cleared"
		return true
	case tcell.KeyEnter:
		a.state.ViewerSearching = false
		a.state.StatusLine = "viewer search: " + v.SearchQuery
		return true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if v.SearchQuery != "" {
			runes := []rune(v.SearchQuery)
			v.SearchQuery = string(runes[:len(runes)-1])
		}
		v.RefreshSearch()
		a.state.StatusLine = "viewer search: " + v.SearchQuery
		return true
	case tcell.KeyRune:
		if !plainOrShift(key) {
			return false
		}
		v.SearchQuery += string(key.Rune())
		v.RefreshSearch()
		a.state.StatusLine = "viewer search: " + v.SearchQuery
		return true
	}
	return false
}
