package app

// MenuAction identifies what a menu item does when activated.
type MenuAction int

// Menu actions
const (
	MenuNone MenuAction = iota // separators
	MenuActivatePanel
	MenuPanelHome
	MenuPanelParent
	MenuPanelCopy
	MenuPanelMove
	MenuPanelDelete
	MenuPanelMkdir
	MenuPanelConnectSftp
	MenuPanelOpenArchive
	MenuPanelOpenShell
	MenuPanelCommandLine
	MenuPanelFind
	MenuToggleSort
	MenuRefresh
	MenuViewerModes
	MenuEditorSettings
)

// MenuItem is one row of a menu group.
type MenuItem struct {
	Label  string
	Action MenuAction
	Panel  PanelID
}

// Selectable reports whether the item can be activated.
func (m *MenuItem) Selectable() bool {
	return m.Action != MenuNone
}

// MenuGroup is one pull-down of the menu bar.
type MenuGroup struct {
	Label  string
	Hotkey rune
	Items  []MenuItem
}

func panelMenuItems(id PanelID) []MenuItem {
	return []MenuItem{
		{Label: "Activate " + id.String(), Action: MenuActivatePanel, Panel: id},
		{Label: "Home", Action: MenuPanelHome, Panel: id},
		{Label: "Parent", Action: MenuPanelParent, Panel: id},
		{Label: "──── Files ────"},
		{Label: "Copy", Action: MenuPanelCopy, Panel: id},
		{Label: "Move", Action: MenuPanelMove, Panel: id},
		{Label: "Delete", Action: MenuPanelDelete, Panel: id},
		{Label: "Mkdir", Action: MenuPanelMkdir, Panel: id},
		{Label: "─── Command ───"},
		{Label: "Connect SFTP", Action: MenuPanelConnectSftp, Panel: id},
		{Label: "Command Line", Action: MenuPanelCommandLine, Panel: id},
		{Label: "Shell", Action: MenuPanelOpenShell, Panel: id},
		{Label: "Find (fd)", Action: MenuPanelFind, Panel: id},
		{Label: "Archive VFS", Action: MenuPanelOpenArchive, Panel: id},
	}
}

var menuGroups = []MenuGroup{
	{Label: "Left", Hotkey: 'l', Items: panelMenuItems(PanelLeft)},
	{Label: "Options", Hotkey: 'o', Items: []MenuItem{
		{Label: "Sort", Action: MenuToggleSort},
		{Label: "Refresh", Action: MenuRefresh},
		{Label: "Viewer Modes", Action: MenuViewerModes},
		{Label: "Editor Settings", Action: MenuEditorSettings},
	}},
	{Label: "Right", Hotkey: 'r', Items: panelMenuItems(PanelRight)},
}

// MenuGroups exposes the menu bar definition to the renderer.
func MenuGroups() []MenuGroup {
	return menuGroups
}

func menuGroupByHotkey(r rune) int {
	for i, group := range menuGroups {
		if group.Hotkey == r {
			return i
		}
	}
	return -1
}

// firstSelectable returns the index of the first activatable item.
func firstSelectable(items []MenuItem) int {
	for i := range items {
		if items[i].Selectable() {
			return i
		}
	}
	return 0
}

func nextSelectable(items []MenuItem, from, dir int) int {
	idx := from
	for i := 0; i < len(items); i++ {
		idx += dir
		if idx < 0 {
			idx = len(items) - 1
		}
		if idx >= len(items) {
			idx = 0
		}
		if items[idx].Selectable() {
			return idx
		}
	}
	return from
}
