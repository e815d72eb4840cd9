package app

import "github.com/gdamore/tcell/v2"

// Command is a key-mapped panel action.
type Command int

// Commands
const (
	CmdNone Command = iota
	CmdQuit
	CmdSwitchPanel
	CmdMoveUp
	CmdMoveDown
	CmdSelectRangeUp
	CmdSelectRangeDown
	CmdOpenSelected
	CmdGoToParent
	CmdGoHome
	CmdRefresh
	CmdCopy
	CmdMove
	CmdDelete
	CmdMkdir
	CmdToggleSort
	CmdStartSearch
	CmdToggleSelect
	CmdSelectByMask
	CmdDeselectByMask
	CmdInvertSelection
	CmdOpenViewer
	CmdEditFile
	CmdOpenMenu
)

// plainOrShift reports whether the key carries no modifiers beyond Shift.
func plainOrShift(key *tcell.EventKey) bool {
	return key.Modifiers()&^tcell.ModShift == 0
}

// mapKey resolves a terminal key to a command. Alt+rune opens the matching
// menu group and is handled before this map.
func mapKey(key *tcell.EventKey) Command {
	switch key.Key() {
	case tcell.KeyTab:
		return CmdSwitchPanel
	case tcell.KeyUp:
		if key.Modifiers()&tcell.ModShift != 0 {
			return CmdSelectRangeUp
		}
		return CmdMoveUp
	case tcell.KeyDown:
		if key.Modifiers()&tcell.ModShift != 0 {
			return CmdSelectRangeDown
		}
		return CmdMoveDown
	case tcell.KeyEnter:
		return CmdOpenSelected
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return CmdGoToParent
	case tcell.KeyHome:
		return CmdGoHome
	case tcell.KeyInsert:
		return CmdToggleSelect
	case tcell.KeyF2:
		return CmdToggleSort
	case tcell.KeyF3:
		return CmdOpenViewer
	case tcell.KeyF4:
		return CmdEditFile
	case tcell.KeyF5:
		return CmdCopy
	case tcell.KeyF6:
		return CmdMove
	case tcell.KeyF7:
		return CmdMkdir
	case tcell.KeyF8:
		return CmdDelete
	case tcell.KeyF9:
		return CmdOpenMenu
	case tcell.KeyRune:
		if !plainOrShift(key) {
			return CmdNone
		}
		switch key.Rune() {
		case 'q':
			return CmdQuit
		case ' ':
			return CmdToggleSelect
		case '+':
			return CmdSelectByMask
		case '-':
			return CmdDeselectByMask
		case '*':
			return CmdInvertSelection
		case 'r':
			return CmdRefresh
		case '/':
			return CmdStartSearch
		case '~':
			return CmdGoHome
		case 'v':
			return CmdOpenViewer
		}
	}
	return CmdNone
}
