package app

import (
	"fmt"
	gopath "path"
	"strings"

	"github.com/gigimon/vcmc/backend"
	"github.com/gigimon/vcmc/fs"
	"github.com/gigimon/vcmc/jobs"
)

// transferPlan is a batch copy/move in flight: confirmed once, then
// advanced item by item with a conflict dialog wherever the destination
// name is already taken.
type transferPlan struct {
	kind    jobs.Kind
	srcSpec fs.BackendSpec
	dstSpec fs.BackendSpec
	dstDir  string
	items   []fs.Entry
	next    int
	batchID uint64
}

// startTransfer begins F5/F6: the whole selection set when one exists,
// otherwise the single-entry rename prompt.
func (a *App) startTransfer(kind jobs.Kind) (bool, error) {
	panel := a.state.ActivePanel()
	selected := panel.SelectedSet()
	if len(selected) == 0 {
		entry, err := a.selectedActionEntry()
		if err != nil {
			return true, err
		}
		return a.openRenamePrompt(kind, entry)
	}

	inactive := a.state.InactivePanel()
	a.plan = &transferPlan{
		kind:    kind,
		srcSpec: panel.Spec,
		dstSpec: inactive.Spec,
		dstDir:  inactive.Cwd,
		items:   selected,
	}

	verb := "Move"
	if kind == jobs.KindCopy {
		verb = "Copy"
	}
	a.openDialog(&Dialog{
		Title:      "Confirm",
		Body:       fmt.Sprintf("%s %d item(s) to %s?", verb, len(selected), inactive.Cwd),
		Options:    []DialogOption{{Hotkey: 'y', Label: "yes"}, {Hotkey: 'n', Label: "no"}},
		Cancelable: true,
	}, func(hotkey rune) bool {
		if hotkey != 'y' {
			a.plan = nil
			a.pushLog("batch canceled")
			return true
		}
		a.plan.batchID = a.nextJobID()
		a.advanceTransfer()
		return true
	})
	return true, nil
}

// startBatchDelete confirms once, then enqueues one delete per item.
func (a *App) startBatchDelete(selected []fs.Entry) (bool, error) {
	panel := a.state.ActivePanel()
	for i := range selected {
		if err := a.guardDeleteTarget(selected[i].Path); err != nil {
			return true, err
		}
	}
	spec := panel.Spec
	items := selected
	a.openDialog(&Dialog{
		Title:      "Confirm",
		Body:       fmt.Sprintf("Delete %d selected item(s) permanently?", len(selected)),
		Options:    []DialogOption{{Hotkey: 'y', Label: "yes"}, {Hotkey: 'n', Label: "no"}},
		Cancelable: true,
	}, func(hotkey rune) bool {
		if hotkey != 'y' {
			a.pushLog("delete canceled")
			return true
		}
		batchID := a.nextJobID()
		for i := range items {
			entry := &items[i]
			msg := "delete queued: " + entry.Name
			if entry.Type == fs.EntryDirectory {
				msg = "delete queued (recursive): " + entry.Name
			}
			a.enqueueJob(jobs.KindDelete, spec, nil, entry.Path, "", batchID, msg)
		}
		panel.Selection = map[string]bool{}
		return true
	})
	return true, nil
}

// advanceTransfer enqueues plan items until it hits a conflict, which it
// surfaces as a dialog; the chosen action re-enters this loop.
func (a *App) advanceTransfer() {
	plan := a.plan
	if plan == nil {
		return
	}
	dst, err := backend.FromSpec(plan.dstSpec)
	if err != nil {
		a.plan = nil
		a.showAlert(err.Error())
		return
	}

	for plan.next < len(plan.items) {
		entry := plan.items[plan.next]
		target := gopath.Join(plan.dstDir, entry.Name)
		if _, err := dst.StatEntry(target); err != nil {
			// no conflict
			plan.next++
			a.enqueueTransferItem(&entry, target)
			continue
		}

		a.openDialog(&Dialog{
			Title: "Conflict " + entry.Name,
			Body:  fmt.Sprintf("'%s' already exists in %s", entry.Name, plan.dstDir),
			Options: []DialogOption{
				{Hotkey: 'o', Label: "overwrite"},
				{Hotkey: 'r', Label: "rename"},
				{Hotkey: 's', Label: "skip"},
				{Hotkey: 'a', Label: "abort"},
			},
			Cancelable: true,
		}, a.conflictChoice(entry, target))
		return
	}

	// batch fully enqueued
	count := len(plan.items)
	a.plan = nil
	a.state.ActivePanel().Selection = map[string]bool{}
	a.state.StatusLine = fmt.Sprintf("batch queued: %d item(s)", count)
}

func (a *App) conflictChoice(entry fs.Entry, target string) func(rune) bool {
	return func(hotkey rune) bool {
		plan := a.plan
		if plan == nil {
			return true
		}
		switch hotkey {
		case 'o':
			plan.next++
			a.enqueueTransferItem(&entry, target)
		case 'r':
			plan.next++
			renamed, err := a.renamedTarget(plan, &entry)
			if err != nil {
				a.showAlert(err.Error())
				return true
			}
			a.enqueueTransferItem(&entry, renamed)
		case 's':
			plan.next++
			a.pushLog("skipped: " + entry.Name)
		case 'a':
			skipped := len(plan.items) - plan.next
			a.plan = nil
			a.pushLog(fmt.Sprintf("batch aborted, %d item(s) skipped", skipped))
			return true
		default:
			return true
		}
		a.advanceTransfer()
		return true
	}
}

func (a *App) enqueueTransferItem(entry *fs.Entry, target string) {
	plan := a.plan
	verb := "move queued"
	if plan.kind == jobs.KindCopy {
		verb = "copy queued"
	}
	dstSpec := plan.dstSpec
	a.enqueueJob(plan.kind, plan.srcSpec, &dstSpec, entry.Path, target,
		plan.batchID, fmt.Sprintf("%s: %s", verb, entry.Name))
}

// renamedTarget derives a conflict-free "<stem>_copy<ext>" name in the
// destination directory.
func (a *App) renamedTarget(plan *transferPlan, entry *fs.Entry) (string, error) {
	dst, err := backend.FromSpec(plan.dstSpec)
	if err != nil {
		return "", err
	}
	name := RenameWithCopySuffix(entry.Name, 0)
	for i := 1; ; i++ {
		candidate := gopath.Join(plan.dstDir, name)
		if _, err := dst.StatEntry(candidate); err != nil {
			return candidate, nil
		}
		name = RenameWithCopySuffix(entry.Name, i)
	}
}

// RenameWithCopySuffix inserts "_copy" (or "_copy_<n>") before the
// extension: alpha.txt -> alpha_copy.txt.
func RenameWithCopySuffix(name string, n int) string {
	suffix := "_copy"
	if n > 0 {
		suffix = fmt.Sprintf("_copy_%d", n)
	}
	ext := gopath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		return name + suffix
	}
	return stem + suffix + ext
}
