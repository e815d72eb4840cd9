package app

import (
	"fmt"
	"os"
	gopath "path"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/gigimon/vcmc/backend"
	"github.com/gigimon/vcmc/find"
	"github.com/gigimon/vcmc/fs"
	"github.com/gigimon/vcmc/jobs"
)

// lineAction is the outcome of feeding one key to a line prompt.
type lineAction int

const (
	lineIgnored lineAction = iota
	lineEdited
	lineAccepted
	lineCanceled
)

// editLine applies one key to an editable prompt value.
func editLine(prompt *LinePrompt, key *tcell.EventKey) lineAction {
	switch key.Key() {
	case tcell.KeyEscape:
		return lineCanceled
	case tcell.KeyEnter:
		return lineAccepted
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if prompt.Value != "" {
			runes := []rune(prompt.Value)
			prompt.Value = string(runes[:len(runes)-1])
		}
		return lineEdited
	case tcell.KeyRune:
		if !plainOrShift(key) {
			return lineIgnored
		}
		r := key.Rune()
		if r == 0 {
			return lineIgnored
		}
		prompt.Value += string(r)
		return lineEdited
	}
	return lineIgnored
}

// handleAlertKey dismisses an active alert on any key.
func (a *App) handleAlertKey(*tcell.EventKey) (bool, bool) {
	if a.state.AlertPrompt == "" {
		return false, false
	}
	a.state.AlertPrompt = ""
	return true, true
}

// handleConfirmKey drives the single-entry delete confirmation.
func (a *App) handleConfirmKey(key *tcell.EventKey) (bool, bool) {
	if a.pendingDelete == nil || a.state.ConfirmPrompt == "" {
		return false, false
	}
	switch {
	case key.Key() == tcell.KeyRune && (key.Rune() == 'y' || key.Rune() == 'Y'):
		pending := a.pendingDelete
		a.pendingDelete = nil
		a.state.ConfirmPrompt = ""
		msg := "delete queued: " + pending.name
		if pending.isDir {
			msg = "delete queued (recursive): " + pending.name
		}
		a.enqueueJob(jobs.KindDelete, pending.spec, nil, pending.path, "", 0, msg)
		return true, true
	case key.Key() == tcell.KeyRune && (key.Rune() == 'n' || key.Rune() == 'N'),
		key.Key() == tcell.KeyEscape,
		key.Key() == tcell.KeyEnter:
		a.pendingDelete = nil
		a.state.ConfirmPrompt = ""
		a.pushLog("delete canceled")
		return true, true
	}
	return true, false
}

// handleRenameKey drives the copy/move rename prompt.
func (a *App) handleRenameKey(key *tcell.EventKey) (bool, bool) {
	if a.pendingRename == nil || a.state.RenamePrompt == nil {
		return false, false
	}
	switch editLine(a.state.RenamePrompt, key) {
	case lineCanceled:
		a.pendingRename = nil
		a.state.RenamePrompt = nil
		a.pushLog("copy/move canceled")
		return true, true
	case lineAccepted:
		pending := a.pendingRename
		a.pendingRename = nil
		requested := strings.TrimSpace(a.state.RenamePrompt.Value)
		a.state.RenamePrompt = nil

		if requested == "" {
			a.showAlert("name cannot be empty")
			return true, true
		}
		if strings.Contains(requested, "/") {
			a.showAlert("name cannot contain '/'")
			return true, true
		}

		destination := gopath.Join(pending.dstDir, requested)
		verb := "move queued"
		if pending.kind == jobs.KindCopy {
			verb = "copy queued"
		}
		msg := fmt.Sprintf("%s: %s", verb, pending.sourceName)
		if requested != pending.sourceName {
			msg = fmt.Sprintf("%s: %s -> %s", verb, pending.sourceName, requested)
		}
		dstSpec := pending.dstSpec
		a.enqueueJob(pending.kind, pending.srcSpec, &dstSpec, pending.sourcePath, destination, 0, msg)
		return true, true
	case lineEdited:
		return true, true
	}
	return true, false
}

// handleMaskKey drives the select/deselect-by-mask prompt.
func (a *App) handleMaskKey(key *tcell.EventKey) (bool, bool) {
	if !a.maskActive || a.state.MaskPrompt == nil {
		return false, false
	}
	switch editLine(a.state.MaskPrompt, key) {
	case lineCanceled:
		a.maskActive = false
		a.state.MaskPrompt = nil
		a.pushLog("mask selection canceled")
		return true, true
	case lineAccepted:
		mask := a.state.MaskPrompt.Value
		a.maskActive = false
		a.state.MaskPrompt = nil

		panel := a.state.Panel(a.maskPanel)
		var changed int
		if a.maskSelect {
			changed = panel.SelectByMask(mask)
		} else {
			changed = panel.DeselectByMask(mask)
		}
		a.updateSelectionStatus()
		if a.maskSelect {
			a.pushLog(fmt.Sprintf("selected %d by mask", changed))
		} else {
			a.pushLog(fmt.Sprintf("deselected %d by mask", changed))
		}
		return true, true
	case lineEdited:
		return true, true
	}
	return true, false
}

// handleInputKey drives the generic one-line prompts (connect, find,
// command line).
func (a *App) handleInputKey(key *tcell.EventKey) (bool, bool) {
	if a.pendingInput == inputNone || a.state.InputPrompt == nil {
		return false, false
	}
	switch editLine(a.state.InputPrompt, key) {
	case lineCanceled:
		a.pendingInput = inputNone
		a.state.InputPrompt = nil
		a.pushLog("input canceled")
		return true, true
	case lineAccepted:
		kind := a.pendingInput
		value := strings.TrimSpace(a.state.InputPrompt.Value)
		a.pendingInput = inputNone
		a.state.InputPrompt = nil
		switch kind {
		case inputConnectSftp:
			a.connectSftp(value)
		case inputFind:
			a.startFind(value)
		case inputCommandLine:
			a.runCommandLine(value)
		}
		return true, true
	case lineEdited:
		return true, true
	}
	return true, false
}

// handleSearchKey drives the live panel filter.
func (a *App) handleSearchKey(key *tcell.EventKey) (bool, bool) {
	if a.searchPanel == nil {
		return false, false
	}
	panel := a.state.Panel(*a.searchPanel)
	switch key.Key() {
	case tcell.KeyRune:
		if !plainOrShift(key) {
			return true, false
		}
		panel.Search += string(key.Rune())
		panel.ApplySearchFilter()
		a.state.StatusLine = "search: " + panel.Search
		return true, true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if panel.Search != "" {
			runes := []rune(panel.Search)
			panel.Search = string(runes[:len(runes)-1])
		}
		panel.ApplySearchFilter()
		if panel.Search == "" {
			a.state.StatusLine = "search: type to filter, Enter apply, Esc clear"
		} else {
			a.state.StatusLine = "search: " + panel.Search
		}
		return true, true
	case tcell.KeyEscape:
		a.searchPanel = nil
		panel.ClearSearch()
		a.state.StatusLine = "search cleared"
		return true, true
	case tcell.KeyEnter:
		a.searchPanel = nil
		if panel.Search == "" {
			a.state.StatusLine = "search off"
		} else {
			a.state.StatusLine = "search applied: " + panel.Search
		}
		return true, true
	}
	return true, false
}

func (a *App) startMaskPrompt(selectMode bool) (bool, error) {
	a.state.clearPrompts()
	a.maskActive = true
	a.maskSelect = selectMode
	a.maskPanel = a.state.Active

	title := "Deselect by mask (Enter apply, Esc cancel)"
	status := "deselect by mask"
	if selectMode {
		title = "Select by mask (Enter apply, Esc cancel)"
		status = "select by mask"
	}
	a.state.MaskPrompt = &LinePrompt{Title: title, Value: "*"}
	a.state.StatusLine = status
	return true, nil
}

// selectedActionEntry returns the highlighted entry, rejecting the virtual
// ".." row.
func (a *App) selectedActionEntry() (*fs.Entry, error) {
	entry := a.state.ActivePanel().SelectedEntry()
	if entry == nil {
		return nil, fs.PreconditionError("select", "no selected entry")
	}
	if entry.Virtual {
		return nil, fs.PreconditionError("select",
			fmt.Sprintf("action is not allowed for navigation entry '%s'", entry.Name))
	}
	return entry, nil
}

func (a *App) openRenamePrompt(kind jobs.Kind, entry *fs.Entry) (bool, error) {
	a.state.clearPrompts()
	inactive := a.state.InactivePanel()
	a.pendingRename = &pendingRename{
		kind:       kind,
		sourcePath: entry.Path,
		sourceName: entry.Name,
		srcSpec:    a.state.ActivePanel().Spec,
		dstSpec:    inactive.Spec,
		dstDir:     inactive.Cwd,
	}
	verb := "Move as"
	if kind == jobs.KindCopy {
		verb = "Copy as"
	}
	a.state.RenamePrompt = &LinePrompt{
		Title: verb + " (Enter apply, Esc cancel)",
		Value: entry.Name,
	}
	a.state.StatusLine = fmt.Sprintf("%s: %s", verb, entry.Name)
	return true, nil
}

// startDelete guards the target, then confirms: a prompt for a single
// entry, a dialog for a selection set.
func (a *App) startDelete() (bool, error) {
	panel := a.state.ActivePanel()
	if selected := panel.SelectedSet(); len(selected) > 0 {
		return a.startBatchDelete(selected)
	}

	entry, err := a.selectedActionEntry()
	if err != nil {
		return true, err
	}
	b, err := a.panelBackend(a.state.Active)
	if err != nil {
		return true, err
	}
	path, err := b.NormalizeExistingPath("delete", entry.Path)
	if err != nil {
		return true, err
	}
	if err := a.guardDeleteTarget(path); err != nil {
		return true, err
	}

	a.state.clearPrompts()
	a.pendingDelete = &pendingDelete{
		path:  path,
		name:  entry.Name,
		isDir: entry.Type == fs.EntryDirectory,
		spec:  panel.Spec,
	}
	if a.pendingDelete.isDir {
		a.state.ConfirmPrompt = fmt.Sprintf("Delete directory '%s' recursively and permanently? [y/N]", entry.Name)
	} else {
		a.state.ConfirmPrompt = fmt.Sprintf("Delete '%s' permanently? [y/N]", entry.Name)
	}
	return true, nil
}

// guardDeleteTarget refuses the filesystem root and the HOME directory.
func (a *App) guardDeleteTarget(target string) error {
	if target == "/" {
		return fs.PreconditionError("delete", "refusing to delete root directory '/' in interactive mode")
	}
	if home := os.Getenv("HOME"); home != "" && a.state.ActivePanel().Spec.Kind == fs.BackendLocal {
		local, err := backend.FromSpec(fs.LocalSpec())
		if err != nil {
			return err
		}
		homePath, err := local.NormalizeExistingPath("delete", home)
		if err != nil {
			return err
		}
		if target == homePath {
			return fs.PreconditionError("delete", "refusing to delete HOME directory: "+homePath)
		}
	}
	return nil
}

func (a *App) startConnectPrompt() {
	a.state.clearPrompts()
	a.pendingInput = inputConnectSftp
	a.inputPanel = a.state.Active
	a.state.InputPrompt = &LinePrompt{
		Title: "Connect SFTP: user@host[:port][/root] (Enter connect, Esc cancel)",
	}
	a.state.StatusLine = "connect sftp"
}

func (a *App) startFindPrompt() {
	a.state.clearPrompts()
	a.pendingInput = inputFind
	a.inputPanel = a.state.Active
	a.state.InputPrompt = &LinePrompt{
		Title: "Find (fd): query [--glob --hidden --follow] (Enter run, Esc cancel)",
	}
	a.state.StatusLine = "find"
}

func (a *App) startCommandPrompt() {
	a.state.clearPrompts()
	a.pendingInput = inputCommandLine
	a.inputPanel = a.state.Active
	a.state.InputPrompt = &LinePrompt{
		Title: "Command (Enter run, Esc cancel)",
	}
	a.state.StatusLine = "command line"
}

// connectSftp parses "user@host[:port][/root]" and rebinds the panel.
func (a *App) connectSftp(value string) {
	info, err := parseSftpTarget(value)
	if err != nil {
		a.showAlert(err.Error())
		return
	}
	panel := a.state.Panel(a.inputPanel)
	panel.Spec = fs.SftpSpec(info)
	panel.ReturnSpec = nil
	panel.Cwd = info.RootPath
	panel.Search = ""
	if err := a.reloadPanel(a.inputPanel, true); err != nil {
		// fall back to the local view so the panel stays usable
		panel.Spec = fs.LocalSpec()
		panel.Cwd = a.state.Panel(a.inputPanel.Other()).Cwd
		_ = a.reloadPanel(a.inputPanel, false)
		a.showAlert("sftp connect failed: " + err.Error())
		return
	}
	a.pushLog(fmt.Sprintf("connected sftp %s@%s:%d", info.User, info.Host, info.Port))
}

func parseSftpTarget(value string) (fs.SftpConnInfo, error) {
	info := fs.SftpConnInfo{Port: 22, RootPath: "/"}
	user, rest, ok := strings.Cut(value, "@")
	if !ok || user == "" || rest == "" {
		return info, fs.InvalidPathError("connect", value, "expected user@host[:port][/root]")
	}
	info.User = user

	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		info.RootPath = rest[idx:]
		rest = rest[:idx]
	}
	if host, port, ok := strings.Cut(rest, ":"); ok {
		info.Host = host
		var parsed int
		if _, err := fmt.Sscanf(port, "%d", &parsed); err != nil || parsed <= 0 {
			return info, fs.InvalidPathError("connect", value, "invalid port")
		}
		info.Port = parsed
	} else {
		info.Host = rest
	}
	if info.Host == "" {
		return info, fs.InvalidPathError("connect", value, "missing host")
	}

	switch {
	case os.Getenv("VCMC_SFTP_PASSWORD") != "":
		info.Auth = fs.SftpAuth{Method: fs.SftpAuthPassword, Password: os.Getenv("VCMC_SFTP_PASSWORD")}
	case os.Getenv("VCMC_SFTP_KEY") != "":
		info.Auth = fs.SftpAuth{
			Method:     fs.SftpAuthKeyFile,
			KeyFile:    os.Getenv("VCMC_SFTP_KEY"),
			Passphrase: os.Getenv("VCMC_SFTP_PASSPHRASE"),
		}
	default:
		info.Auth = fs.SftpAuth{Method: fs.SftpAuthAgent}
	}
	return info, nil
}

// startFind parses the prompt line and spawns the fd driver.
func (a *App) startFind(value string) {
	panel := a.state.Panel(a.inputPanel)
	if panel.Spec.Kind != fs.BackendLocal {
		a.showAlert("find requires a local panel")
		return
	}
	input, err := find.ParseInput(value, panel.ShowHidden)
	if err != nil {
		a.showAlert(err.Error())
		return
	}

	id := a.nextJobID()
	a.findID = id
	a.findPanel = a.inputPanel
	sink := a.sink
	find.Spawn(find.Request{
		ID:            id,
		Root:          panel.Cwd,
		Query:         input.Query,
		Glob:          input.Glob,
		Hidden:        input.Hidden,
		FollowSymlink: input.FollowSymlink,
	}, func(update find.Update) bool {
		return sink(FindEvent(update))
	})
	a.pushLog(fmt.Sprintf("find started: '%s' under %s", input.Query, panel.Cwd))
}

// runCommandLine hands the terminal to "sh -c <line>" in the panel cwd.
func (a *App) runCommandLine(value string) {
	if value == "" {
		return
	}
	if a.runner == nil {
		a.showAlert("no terminal available for commands")
		return
	}
	panel := a.state.Panel(a.inputPanel)
	if panel.Spec.Kind != fs.BackendLocal {
		a.showAlert("command line requires a local panel")
		return
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	err := a.runner.RunCommand(panel.Cwd, shell, "-c", value)
	if err != nil {
		a.pushLog(fmt.Sprintf("command failed: %v", err))
	} else {
		a.pushLog("command finished: " + value)
	}
	_ = a.reloadPanel(PanelLeft, false)
	_ = a.reloadPanel(PanelRight, false)
}

// openShell hands the terminal to an interactive shell in the panel cwd.
func (a *App) openShell(id PanelID) {
	if a.runner == nil {
		a.showAlert("no terminal available for a shell")
		return
	}
	panel := a.state.Panel(id)
	if panel.Spec.Kind != fs.BackendLocal {
		a.showAlert("shell requires a local panel")
		return
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	if err := a.runner.RunCommand(panel.Cwd, shell); err != nil {
		a.pushLog(fmt.Sprintf("shell failed: %v", err))
	} else {
		a.pushLog("shell closed")
	}
	_ = a.reloadPanel(PanelLeft, false)
	_ = a.reloadPanel(PanelRight, false)
}
