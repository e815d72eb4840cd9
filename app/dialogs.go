package app

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/gigimon/vcmc/fs"
)

// editorCandidates is the PATH scan order of the editor chooser.
var editorCandidates = []string{"nvim", "vim", "nano", "hx", "micro", "emacs", "code"}

// openDialog installs a modal dialog. handler receives the chosen option
// hotkey and returns whether to redraw.
func (a *App) openDialog(dialog *Dialog, handler func(hotkey rune) bool) {
	a.state.clearPrompts()
	a.state.Dialog = dialog
	a.dialogHandler = handler
}

// handleDialogKey routes keys into the active dialog. Options accept their
// hotkey with or without Alt; informational dialogs close on Enter/Esc.
func (a *App) handleDialogKey(key *tcell.EventKey) (bool, bool) {
	dialog := a.state.Dialog
	if dialog == nil {
		return false, false
	}

	if key.Key() == tcell.KeyEscape && dialog.Cancelable {
		a.closeDialog()
		a.pushLog("dialog canceled")
		return true, true
	}
	if len(dialog.Options) == 0 {
		if key.Key() == tcell.KeyEnter || key.Key() == tcell.KeyEscape {
			a.closeDialog()
			return true, true
		}
		return true, false
	}
	if key.Key() != tcell.KeyRune {
		return true, false
	}

	r := key.Rune()
	for _, opt := range dialog.Options {
		if opt.Hotkey != r {
			continue
		}
		handler := a.dialogHandler
		a.closeDialog()
		if handler != nil {
			return true, handler(r)
		}
		return true, true
	}
	return true, false
}

func (a *App) closeDialog() {
	a.state.Dialog = nil
	a.dialogHandler = nil
}

// openMenu opens the menu bar on the given group.
func (a *App) openMenu(group int) {
	a.state.clearPrompts()
	a.state.Menu = &MenuState{
		Group: group,
		Item:  firstSelectable(menuGroups[group].Items),
	}
	a.state.StatusLine = "menu: " + menuGroups[group].Label
}

// handleMenuKey drives the open menu bar.
func (a *App) handleMenuKey(key *tcell.EventKey) (bool, bool) {
	menu := a.state.Menu
	if menu == nil {
		return false, false
	}
	items := menuGroups[menu.Group].Items

	switch key.Key() {
	case tcell.KeyEscape:
		a.state.Menu = nil
		return true, true
	case tcell.KeyLeft:
		menu.Group = (menu.Group + len(menuGroups) - 1) % len(menuGroups)
		menu.Item = firstSelectable(menuGroups[menu.Group].Items)
		return true, true
	case tcell.KeyRight:
		menu.Group = (menu.Group + 1) % len(menuGroups)
		menu.Item = firstSelectable(menuGroups[menu.Group].Items)
		return true, true
	case tcell.KeyUp:
		menu.Item = nextSelectable(items, menu.Item, -1)
		return true, true
	case tcell.KeyDown:
		menu.Item = nextSelectable(items, menu.Item, 1)
		return true, true
	case tcell.KeyEnter:
		item := items[menu.Item]
		a.state.Menu = nil
		return true, a.activateMenuItem(&item)
	case tcell.KeyRune:
		if key.Modifiers()&tcell.ModAlt != 0 {
			if idx := menuGroupByHotkey(key.Rune()); idx >= 0 {
				menu.Group = idx
				menu.Item = firstSelectable(menuGroups[idx].Items)
				return true, true
			}
		}
	}
	return true, false
}

func (a *App) activateMenuItem(item *MenuItem) bool {
	switch item.Action {
	case MenuActivatePanel:
		a.state.Active = item.Panel
		return true
	case MenuPanelHome:
		a.state.Active = item.Panel
		return a.applyCommand(CmdGoHome)
	case MenuPanelParent:
		a.state.Active = item.Panel
		return a.applyCommand(CmdGoToParent)
	case MenuPanelCopy:
		a.state.Active = item.Panel
		return a.applyCommand(CmdCopy)
	case MenuPanelMove:
		a.state.Active = item.Panel
		return a.applyCommand(CmdMove)
	case MenuPanelDelete:
		a.state.Active = item.Panel
		return a.applyCommand(CmdDelete)
	case MenuPanelMkdir:
		a.state.Active = item.Panel
		return a.applyCommand(CmdMkdir)
	case MenuPanelConnectSftp:
		a.state.Active = item.Panel
		a.startConnectPrompt()
		return true
	case MenuPanelCommandLine:
		a.state.Active = item.Panel
		a.startCommandPrompt()
		return true
	case MenuPanelOpenShell:
		a.state.Active = item.Panel
		a.openShell(item.Panel)
		return true
	case MenuPanelFind:
		a.state.Active = item.Panel
		a.startFindPrompt()
		return true
	case MenuPanelOpenArchive:
		a.state.Active = item.Panel
		a.openArchiveVfs(item.Panel)
		return true
	case MenuToggleSort:
		return a.applyCommand(CmdToggleSort)
	case MenuRefresh:
		return a.applyCommand(CmdRefresh)
	case MenuViewerModes:
		a.showViewerModesInfo()
		return true
	case MenuEditorSettings:
		a.showEditorChooser()
		return true
	}
	return false
}

// openArchiveVfs rebinds the panel to the selected tar container.
func (a *App) openArchiveVfs(id PanelID) {
	panel := a.state.Panel(id)
	if panel.Spec.Kind != fs.BackendLocal {
		a.showAlert("archive VFS requires a local panel")
		return
	}
	entry := panel.SelectedEntry()
	if entry == nil || entry.Virtual || entry.Type == fs.EntryDirectory {
		a.showAlert("select a tar archive to open")
		return
	}
	if !strings.HasSuffix(strings.ToLower(entry.Name), ".tar") {
		a.showAlert("archive VFS supports tar containers")
		return
	}

	returnSpec := panel.Spec
	panel.ReturnSpec = &returnSpec
	panel.ReturnCwd = panel.Cwd
	panel.Spec = fs.ArchiveSpec(entry.Path)
	panel.Cwd = "/"
	panel.Search = ""
	if err := a.reloadPanel(id, true); err != nil {
		panel.Spec = *panel.ReturnSpec
		panel.Cwd = panel.ReturnCwd
		panel.ReturnSpec = nil
		_ = a.reloadPanel(id, false)
		a.showAlert("archive open failed: " + err.Error())
		return
	}
	a.pushLog("archive opened: " + entry.Name)
}

func (a *App) showViewerModesInfo() {
	a.openDialog(&Dialog{
		Title: "Viewer Modes",
		Body: "F3/v opens the viewer.\n" +
			"Text mode: UTF-8 with tabs expanded, long lines clamped.\n" +
			"Hex mode: 16 bytes per line with printable ASCII.\n" +
			"t/x switch modes, / searches, n/N cycle matches.",
		Cancelable: true,
	}, nil)
}

// showEditorChooser scans PATH for known editors and offers a numbered
// choice.
func (a *App) showEditorChooser() {
	type candidate struct {
		name string
		path string
	}
	var found []candidate
	for _, name := range editorCandidates {
		if path, err := exec.LookPath(name); err == nil {
			found = append(found, candidate{name: name, path: path})
		}
	}

	if len(found) == 0 {
		a.openDialog(&Dialog{
			Title:      "Error",
			Body:       "No supported editors found in PATH (nvim/vim/nano/hx/micro/emacs/code)",
			Cancelable: true,
		}, nil)
		return
	}

	var body strings.Builder
	body.WriteString("Choose default editor:\n")
	options := make([]DialogOption, 0, len(found))
	for i, c := range found {
		fmt.Fprintf(&body, "  %d: %s (%s)\n", i+1, c.name, c.path)
		options = append(options, DialogOption{Hotkey: rune('1' + i), Label: c.name})
		if i == 8 {
			break
		}
	}

	names := found
	a.openDialog(&Dialog{
		Title:      "Editor Setup",
		Body:       body.String(),
		Options:    options,
		Cancelable: true,
	}, func(hotkey rune) bool {
		idx := int(hotkey - '1')
		if idx < 0 || idx >= len(names) {
			return true
		}
		a.state.DefaultEditor = names[idx].name
		a.pushLog("default editor: " + names[idx].name)
		return true
	})
}

// editSelected runs the configured editor on the highlighted file.
func (a *App) editSelected() (bool, error) {
	entry, err := a.selectedActionEntry()
	if err != nil {
		return true, err
	}
	if entry.Type == fs.EntryDirectory {
		a.pushLog(entry.Name + " is not a file")
		return true, nil
	}
	panel := a.state.ActivePanel()
	if panel.Spec.Kind != fs.BackendLocal {
		return true, fs.PreconditionError("edit", "editing requires a local panel")
	}
	if a.runner == nil {
		return true, fs.PreconditionError("edit", "no terminal available for an editor")
	}

	editor := a.resolveEditor()
	if editor == "" {
		return true, fs.PreconditionError("edit", "no editor configured (Options -> Editor Settings)")
	}
	if err := a.runner.RunCommand(panel.Cwd, editor, entry.Path); err != nil {
		a.pushLog(fmt.Sprintf("editor failed: %v", err))
	} else {
		a.pushLog("edited: " + entry.Name)
	}
	_ = a.reloadPanel(PanelLeft, false)
	_ = a.reloadPanel(PanelRight, false)
	return true, nil
}

func (a *App) resolveEditor() string {
	if a.state.DefaultEditor != "" {
		return a.state.DefaultEditor
	}
	if editor := strings.TrimSpace(os.Getenv("EDITOR")); editor != "" {
		return editor
	}
	if _, err := exec.LookPath("vi"); err == nil {
		return "vi"
	}
	return ""
}
