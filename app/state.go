package app

import (
	"github.com/gigimon/vcmc/jobs"
	"github.com/gigimon/vcmc/viewer"
)

// maxActivityLog caps the scrollback kept for the activity pane.
const maxActivityLog = 16

// LinePrompt is a single-line editable prompt (rename, mask, connect...).
type LinePrompt struct {
	Title string
	Value string
}

// DialogOption is one selectable action of a modal dialog.
type DialogOption struct {
	Hotkey rune
	Label  string
}

// Dialog is a modal with a body and hotkey-selectable options. A dialog
// with no options is informational and dismissed by Enter/Esc.
type Dialog struct {
	Title      string
	Body       string
	Options    []DialogOption
	Cancelable bool
}

// MenuState tracks the open menu bar group and highlighted item.
type MenuState struct {
	Group int
	Item  int
}

// State is everything the renderer projects to the screen. The reducer is
// its only mutator.
type State struct {
	Active PanelID
	Left   Panel
	Right  Panel

	StatusLine  string
	ActivityLog []string
	Jobs        []jobs.Job

	Width  int
	Height int

	// mutually-exclusive prompt slots; at most one is active
	ConfirmPrompt string
	RenamePrompt  *LinePrompt
	MaskPrompt    *LinePrompt
	InputPrompt   *LinePrompt
	AlertPrompt   string
	Dialog        *Dialog
	Menu          *MenuState

	Viewer          *viewer.State
	ViewerSearching bool

	DefaultEditor string
}

// NewState builds the initial state with both panels at cwd.
func NewState(leftCwd, rightCwd string, showHidden bool) State {
	return State{
		Left:       NewPanel(leftCwd, showHidden),
		Right:      NewPanel(rightCwd, showHidden),
		StatusLine: "Ready",
	}
}

// Panel returns the panel with the given id.
func (s *State) Panel(id PanelID) *Panel {
	if id == PanelRight {
		return &s.Right
	}
	return &s.Left
}

// ActivePanel returns the panel receiving commands.
func (s *State) ActivePanel() *Panel {
	return s.Panel(s.Active)
}

// InactivePanel returns the other panel.
func (s *State) InactivePanel() *Panel {
	return s.Panel(s.Active.Other())
}

// PromptActive reports whether any modal prompt slot is occupied.
func (s *State) PromptActive() bool {
	return s.ConfirmPrompt != "" || s.RenamePrompt != nil || s.MaskPrompt != nil ||
		s.InputPrompt != nil || s.AlertPrompt != "" || s.Dialog != nil || s.Menu != nil
}

// clearPrompts drops every prompt slot; activating a prompt calls this
// first so the single-active-prompt invariant holds.
func (s *State) clearPrompts() {
	s.ConfirmPrompt = ""
	s.RenamePrompt = nil
	s.MaskPrompt = nil
	s.InputPrompt = nil
	s.AlertPrompt = ""
	s.Dialog = nil
	s.Menu = nil
}
