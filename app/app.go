// Package app is the interactive core: a single-threaded reducer that
// ingests terminal, timer, job and find events and derives the next
// renderable state. It is the only mutator of State.
package app

import (
	"fmt"
	"os"
	gopath "path"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"

	"github.com/gigimon/vcmc/backend"
	"github.com/gigimon/vcmc/find"
	"github.com/gigimon/vcmc/fs"
	"github.com/gigimon/vcmc/jobs"
)

// TerminalRunner lets the reducer hand the terminal to a child process
// (shell, editor) and take it back. Implemented by the ui layer.
type TerminalRunner interface {
	RunCommand(dir, name string, args ...string) error
}

// EventSink delivers an event into the main loop's queue. It reports false
// when the loop has shut down.
type EventSink func(Event) bool

// Config carries the bootstrap parameters.
type Config struct {
	LeftDir    string
	RightDir   string
	ShowHidden bool
	Workers    int
	Runner     TerminalRunner
	Sink       EventSink
}

type pendingDelete struct {
	path  string
	name  string
	isDir bool
	spec  fs.BackendSpec
}

type pendingRename struct {
	kind       jobs.Kind
	sourcePath string
	sourceName string
	srcSpec    fs.BackendSpec
	dstSpec    fs.BackendSpec
	dstDir     string
}

// inputKind names what the generic input prompt is collecting.
type inputKind int

const (
	inputNone inputKind = iota
	inputConnectSftp
	inputFind
	inputCommandLine
)

// App owns the application state and the worker pool.
type App struct {
	state   State
	running bool
	pool    *jobs.Pool
	runner  TerminalRunner
	sink    EventSink

	nextID uint64

	pendingDelete *pendingDelete
	pendingRename *pendingRename
	maskActive    bool
	maskSelect    bool
	maskPanel     PanelID
	pendingInput  inputKind
	inputPanel    PanelID
	searchPanel   *PanelID

	// modal dialog dispatch; returns true when the key was consumed
	dialogHandler func(hotkey rune) bool

	plan *transferPlan

	findID    uint64
	findPanel PanelID
}

// Bootstrap normalizes the start directories, loads both panels and starts
// the worker pool.
func Bootstrap(cfg Config) (*App, error) {
	local, err := backend.FromSpec(fs.LocalSpec())
	if err != nil {
		return nil, err
	}
	leftCwd, err := local.NormalizeExistingPath("bootstrap", cfg.LeftDir)
	if err != nil {
		return nil, err
	}
	rightCwd, err := local.NormalizeExistingPath("bootstrap", cfg.RightDir)
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = jobs.DefaultWorkers
	}
	a := &App{
		state:   NewState(leftCwd, rightCwd, cfg.ShowHidden),
		running: true,
		runner:  cfg.Runner,
		sink:    cfg.Sink,
		nextID:  1,
	}
	a.pool = jobs.NewPool(workers, func(update jobs.Update) {
		a.sink(JobEvent(update))
	})

	if err := a.reloadPanel(PanelLeft, true); err != nil {
		return nil, err
	}
	if err := a.reloadPanel(PanelRight, false); err != nil {
		return nil, err
	}
	return a, nil
}

// State exposes the renderable state.
func (a *App) State() *State {
	return &a.state
}

// Running reports whether the main loop should continue.
func (a *App) Running() bool {
	return a.running
}

// Shutdown drains the worker pool. Outstanding jobs complete first.
func (a *App) Shutdown() {
	a.pool.Close()
}

// OnEvent reduces one event and reports whether a redraw is needed.
func (a *App) OnEvent(ev Event) bool {
	switch ev.Kind {
	case EventKey:
		return a.onKey(ev.Key)
	case EventTick:
		return false
	case EventResize:
		a.state.Width, a.state.Height = ev.Width, ev.Height
		return true
	case EventJob:
		return a.onJobUpdate(ev.Job)
	case EventFind:
		return a.onFindUpdate(ev.Find)
	}
	return false
}

// onKey walks the modal layers in priority order before falling back to
// the command map.
func (a *App) onKey(key *tcell.EventKey) bool {
	if handled, redraw := a.handleAlertKey(key); handled {
		return redraw
	}
	if handled, redraw := a.handleConfirmKey(key); handled {
		return redraw
	}
	if handled, redraw := a.handleRenameKey(key); handled {
		return redraw
	}
	if handled, redraw := a.handleMaskKey(key); handled {
		return redraw
	}
	if handled, redraw := a.handleInputKey(key); handled {
		return redraw
	}
	if handled, redraw := a.handleDialogKey(key); handled {
		return redraw
	}
	if handled, redraw := a.handleMenuKey(key); handled {
		return redraw
	}
	if handled, redraw := a.handleViewerKey(key); handled {
		return redraw
	}
	if handled, redraw := a.handleSearchKey(key); handled {
		return redraw
	}

	// Alt+<hotkey> opens a menu group from anywhere outside a modal.
	if key.Key() == tcell.KeyRune && key.Modifiers()&tcell.ModAlt != 0 {
		if idx := menuGroupByHotkey(key.Rune()); idx >= 0 {
			a.openMenu(idx)
			return true
		}
	}

	if cmd := mapKey(key); cmd != CmdNone {
		return a.applyCommand(cmd)
	}
	return false
}

func (a *App) applyCommand(cmd Command) bool {
	redraw, err := a.runCommand(cmd)
	if err != nil {
		a.showAlert(err.Error())
		return true
	}
	return redraw
}

func (a *App) runCommand(cmd Command) (bool, error) {
	switch cmd {
	case CmdQuit:
		a.running = false
		return false, nil
	case CmdSwitchPanel:
		a.state.Active = a.state.Active.Other()
		a.dropPendingInput()
		return true, nil
	case CmdMoveUp:
		p := a.state.ActivePanel()
		p.MoveSelectionUp()
		p.ClearAnchor()
		return true, nil
	case CmdMoveDown:
		p := a.state.ActivePanel()
		p.MoveSelectionDown()
		p.ClearAnchor()
		return true, nil
	case CmdSelectRangeUp:
		return a.selectRange(-1), nil
	case CmdSelectRangeDown:
		return a.selectRange(1), nil
	case CmdOpenSelected:
		return a.openSelected()
	case CmdGoToParent:
		return a.goToParent()
	case CmdGoHome:
		return a.goHome()
	case CmdRefresh:
		if err := a.reloadPanel(PanelLeft, true); err != nil {
			return true, err
		}
		return true, a.reloadPanel(PanelRight, false)
	case CmdCopy:
		return a.startTransfer(jobs.KindCopy)
	case CmdMove:
		return a.startTransfer(jobs.KindMove)
	case CmdDelete:
		return a.startDelete()
	case CmdMkdir:
		return a.startMkdir()
	case CmdToggleSort:
		p := a.state.ActivePanel()
		p.Sort = p.Sort.Next()
		return true, a.reloadPanel(a.state.Active, true)
	case CmdStartSearch:
		return a.startSearch()
	case CmdToggleSelect:
		p := a.state.ActivePanel()
		changed := p.ToggleCurrentSelection()
		p.ClearAnchor()
		a.updateSelectionStatus()
		return changed, nil
	case CmdSelectByMask:
		return a.startMaskPrompt(true)
	case CmdDeselectByMask:
		return a.startMaskPrompt(false)
	case CmdInvertSelection:
		changed := a.state.ActivePanel().InvertSelection()
		a.state.ActivePanel().ClearAnchor()
		a.updateSelectionStatus()
		return changed > 0, nil
	case CmdOpenViewer:
		return a.openViewer()
	case CmdEditFile:
		return a.editSelected()
	case CmdOpenMenu:
		a.openMenu(0)
		return true, nil
	}
	return false, nil
}

func (a *App) selectRange(dir int) bool {
	p := a.state.ActivePanel()
	prev := p.Selected
	if dir < 0 {
		p.MoveSelectionUp()
	} else {
		p.MoveSelectionDown()
	}
	cur := p.Selected
	changed := p.SelectRangeFromAnchor(prev, cur)
	a.updateSelectionStatus()
	return changed > 0 || prev != cur
}

// dropPendingInput cancels any in-progress prompt or input mode, keeping
// alerts and dialogs intact.
func (a *App) dropPendingInput() {
	a.pendingRename = nil
	a.maskActive = false
	a.searchPanel = nil
	a.pendingInput = inputNone
	a.state.RenamePrompt = nil
	a.state.MaskPrompt = nil
	a.state.InputPrompt = nil
	a.state.Menu = nil
}

// panelBackend resolves the backend of a panel.
func (a *App) panelBackend(id PanelID) (backend.Backend, error) {
	return backend.FromSpec(a.state.Panel(id).Spec)
}

func (a *App) reloadPanel(id PanelID, updateStatus bool) error {
	p := a.state.Panel(id)
	b, err := backend.FromSpec(p.Spec)
	if err != nil {
		p.ErrorMsg = err.Error()
		return err
	}
	entries, err := b.ListDir(p.Cwd, p.Sort, p.ShowHidden)
	if err != nil {
		p.AllEntries = nil
		p.Entries = nil
		p.Selected = 0
		p.ErrorMsg = err.Error()
		return err
	}
	p.SetEntries(entries)
	p.ErrorMsg = ""
	if updateStatus {
		a.state.StatusLine = "Loaded " + p.Cwd
	}
	return nil
}

func (a *App) openSelected() (bool, error) {
	p := a.state.ActivePanel()
	entry := p.SelectedEntry()
	if entry == nil {
		return false, nil
	}
	if entry.Type != fs.EntryDirectory {
		a.pushLog(entry.Name + " is not a directory")
		return true, nil
	}
	b, err := a.panelBackend(a.state.Active)
	if err != nil {
		return true, err
	}
	next, err := b.NormalizeExistingPath("open", entry.Path)
	if err != nil {
		return true, err
	}
	p.Cwd = next
	p.Search = ""
	return true, a.reloadPanel(a.state.Active, true)
}

func (a *App) goToParent() (bool, error) {
	p := a.state.ActivePanel()

	// leaving an archive root restores the local view
	if p.Spec.Kind == fs.BackendArchive && (p.Cwd == "/" || p.Cwd == "") {
		if p.ReturnSpec != nil {
			p.Spec = *p.ReturnSpec
			p.Cwd = p.ReturnCwd
			p.ReturnSpec = nil
			p.ReturnCwd = ""
			return true, a.reloadPanel(a.state.Active, true)
		}
		return false, nil
	}

	parent := parentOf(p)
	if parent == p.Cwd {
		return false, nil
	}
	b, err := a.panelBackend(a.state.Active)
	if err != nil {
		return true, err
	}
	normalized, err := b.NormalizeExistingPath("parent", parent)
	if err != nil {
		return true, err
	}
	p.Cwd = normalized
	p.Search = ""
	return true, a.reloadPanel(a.state.Active, true)
}

func parentOf(p *Panel) string {
	if p.Spec.Kind == fs.BackendLocal {
		return filepath.Dir(p.Cwd)
	}
	return gopath.Dir(p.Cwd)
}

func (a *App) goHome() (bool, error) {
	home := os.Getenv("HOME")
	if home == "" {
		return true, errors.New("HOME environment variable is not set")
	}
	local, err := backend.FromSpec(fs.LocalSpec())
	if err != nil {
		return true, err
	}
	normalized, err := local.NormalizeExistingPath("home", home)
	if err != nil {
		return true, err
	}
	p := a.state.ActivePanel()
	p.Spec = fs.LocalSpec()
	p.ReturnSpec = nil
	p.Cwd = normalized
	p.Search = ""
	return true, a.reloadPanel(a.state.Active, true)
}

func (a *App) startMkdir() (bool, error) {
	p := a.state.ActivePanel()
	b, err := a.panelBackend(a.state.Active)
	if err != nil {
		return true, err
	}
	target := availableName(b, p.Cwd, "new_dir")
	a.enqueueJob(jobs.KindMkdir, p.Spec, nil, target, "", 0, "mkdir queued")
	return true, nil
}

// availableName probes new_dir, new_dir_1, ... for the first free name.
func availableName(b backend.Backend, dir, stem string) string {
	candidate := joinFor(dir, stem)
	for i := 1; ; i++ {
		if _, err := b.StatEntry(candidate); err != nil {
			return candidate
		}
		candidate = joinFor(dir, fmt.Sprintf("%s_%d", stem, i))
	}
}

func joinFor(dir, name string) string {
	return gopath.Join(dir, name)
}

func (a *App) startSearch() (bool, error) {
	id := a.state.Active
	a.state.MaskPrompt = nil
	a.searchPanel = &id
	query := a.state.Panel(id).Search
	if query == "" {
		a.state.StatusLine = "search: type to filter, Enter apply, Esc clear"
	} else {
		a.state.StatusLine = "search: " + query
	}
	return true, nil
}

func (a *App) updateSelectionStatus() {
	count, bytes := a.state.ActivePanel().SelectionSummary()
	if count == 0 {
		a.state.StatusLine = "selection: none"
		return
	}
	a.state.StatusLine = fmt.Sprintf("selection: %d item(s), %s", count, fs.FormatSize(bytes))
}

// onJobUpdate folds a worker update into the job table, the log and the
// panels.
func (a *App) onJobUpdate(update jobs.Update) bool {
	statusLine := update.Message
	if statusLine == "" {
		switch update.Status {
		case jobs.StatusFailed:
			statusLine = "job failed"
		case jobs.StatusDone:
			statusLine = "job finished"
		default:
			statusLine = "job updated"
		}
	}

	found := false
	for i := range a.state.Jobs {
		job := &a.state.Jobs[i]
		if job.ID != update.ID {
			continue
		}
		job.Status = update.Status
		job.Message = update.Message
		if update.Destination != "" {
			job.Destination = update.Destination
		}
		found = true
		break
	}
	if !found {
		a.state.Jobs = append(a.state.Jobs, update.Job())
	}

	switch update.Status {
	case jobs.StatusFailed:
		a.showAlert(statusLine)
	case jobs.StatusDone:
		a.pushLog(statusLine)
	default:
		// Running transitions stay off the log to keep it to outcomes
	}

	if update.Status == jobs.StatusDone {
		if err := a.reloadPanel(PanelLeft, false); err != nil {
			a.showAlert("refresh left failed: " + err.Error())
		}
		if err := a.reloadPanel(PanelRight, false); err != nil {
			a.showAlert("refresh right failed: " + err.Error())
		}
	}
	return true
}

func (a *App) onFindUpdate(update find.Update) bool {
	if update.ID != a.findID {
		return false
	}
	switch {
	case update.Failed:
		a.findID = 0
		a.showAlert("find failed: " + update.ErrorMsg)
	case update.Done:
		a.findID = 0
		p := a.state.Panel(a.findPanel)
		p.SetEntries(update.Entries)
		a.pushLog(fmt.Sprintf("find: %d match(es) for '%s'", update.Matches, update.Query))
	default:
		a.state.StatusLine = fmt.Sprintf("find: %d match(es) so far for '%s'", update.Matches, update.Query)
	}
	return true
}

// nextJobID hands out dense monotonic ids shared by jobs and batches.
func (a *App) nextJobID() uint64 {
	id := a.nextID
	a.nextID++
	return id
}

func (a *App) enqueueJob(kind jobs.Kind, srcSpec fs.BackendSpec, dstSpec *fs.BackendSpec, source, destination string, batchID uint64, queuedMsg string) uint64 {
	id := a.nextJobID()
	a.state.Jobs = append(a.state.Jobs, jobs.Job{
		ID:          id,
		BatchID:     batchID,
		Kind:        kind,
		Status:      jobs.StatusQueued,
		Source:      source,
		Destination: destination,
		Message:     queuedMsg,
	})
	a.pushLog(queuedMsg)
	a.pool.Submit(jobs.Request{
		ID:                 id,
		BatchID:            batchID,
		Kind:               kind,
		SourceBackend:      srcSpec,
		DestinationBackend: dstSpec,
		Source:             source,
		Destination:        destination,
	})
	return id
}

func (a *App) pushLog(message string) {
	a.state.StatusLine = message
	a.state.ActivityLog = append(a.state.ActivityLog, message)
	if len(a.state.ActivityLog) > maxActivityLog {
		a.state.ActivityLog = a.state.ActivityLog[len(a.state.ActivityLog)-maxActivityLog:]
	}
	fs.Infof(nil, "%s", message)
}

func (a *App) showAlert(message string) {
	a.state.AlertPrompt = message
	a.pushLog(message)
}
