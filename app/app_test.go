package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gigimon/vcmc/backend/archive"
	_ "github.com/gigimon/vcmc/backend/local"
	"github.com/gigimon/vcmc/jobs"
)

type testHarness struct {
	app    *App
	events chan Event
}

func newHarness(t *testing.T, left, right string) *testHarness {
	t.Helper()
	events := make(chan Event, 1024)
	a, err := Bootstrap(Config{
		LeftDir:  left,
		RightDir: right,
		Workers:  1,
		Sink: func(ev Event) bool {
			events <- ev
			return true
		},
	})
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return &testHarness{app: a, events: events}
}

func (h *testHarness) press(key tcell.Key, r rune, mod tcell.ModMask) {
	h.app.OnEvent(KeyEvent(tcell.NewEventKey(key, r, mod)))
}

func (h *testHarness) pressRune(r rune) {
	h.press(tcell.KeyRune, r, tcell.ModNone)
}

func (h *testHarness) typeString(s string) {
	for _, r := range s {
		h.pressRune(r)
	}
}

// moveTo walks the cursor onto the named entry of the active panel.
func (h *testHarness) moveTo(t *testing.T, name string) {
	t.Helper()
	panel := h.app.State().ActivePanel()
	target := -1
	for i := range panel.Entries {
		if panel.Entries[i].Name == name {
			target = i
		}
	}
	require.GreaterOrEqual(t, target, 0, "entry %q not in listing", name)
	for panel.Selected != target {
		if panel.Selected < target {
			h.press(tcell.KeyDown, 0, tcell.ModNone)
		} else {
			h.press(tcell.KeyUp, 0, tcell.ModNone)
		}
	}
}

// waitJobs feeds pending events to the reducer until no job is queued or
// running.
func (h *testHarness) waitJobs(t *testing.T) {
	t.Helper()
	deadline := time.After(20 * time.Second)
	for {
		active := false
		for i := range h.app.State().Jobs {
			st := h.app.State().Jobs[i].Status
			if st == jobs.StatusQueued || st == jobs.StatusRunning {
				active = true
			}
		}
		if !active {
			return
		}
		select {
		case ev := <-h.events:
			h.app.OnEvent(ev)
		case <-deadline:
			t.Fatal("timed out waiting for jobs")
		}
	}
}

func listingNames(p *Panel) []string {
	var names []string
	for i := range p.Entries {
		if !p.Entries[i].Virtual {
			names = append(names, p.Entries[i].Name)
		}
	}
	return names
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestMkdirGeneratesUniqueNames(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, dir)

	h.press(tcell.KeyF7, 0, tcell.ModNone)
	h.waitJobs(t)
	h.press(tcell.KeyF7, 0, tcell.ModNone)
	h.waitJobs(t)

	names := listingNames(&h.app.State().Left)
	assert.Contains(t, names, "new_dir")
	assert.Contains(t, names, "new_dir_1")
}

func TestBatchDeleteSelectedEntries(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"one.txt", "two.txt", "three.txt"} {
		writeFile(t, filepath.Join(dir, name), name)
	}
	h := newHarness(t, dir, dir)

	// range-select the three files below the ".." row
	h.press(tcell.KeyDown, 0, tcell.ModShift)
	h.press(tcell.KeyDown, 0, tcell.ModShift)
	h.press(tcell.KeyDown, 0, tcell.ModShift)
	count, _ := h.app.State().ActivePanel().SelectionSummary()
	require.Equal(t, 3, count)

	h.press(tcell.KeyF8, 0, tcell.ModNone)
	require.NotNil(t, h.app.State().Dialog)
	assert.Equal(t, "Confirm", h.app.State().Dialog.Title)

	h.pressRune('y')
	h.waitJobs(t)

	assert.Empty(t, listingNames(&h.app.State().Left))
	doneLines := 0
	for _, line := range h.app.State().ActivityLog {
		if line == "delete done: "+filepath.Join(dir, "one.txt") ||
			line == "delete done: "+filepath.Join(dir, "two.txt") ||
			line == "delete done: "+filepath.Join(dir, "three.txt") {
			doneLines++
		}
	}
	assert.Equal(t, 3, doneLines)
	assert.Contains(t, h.app.State().StatusLine, "delete done: ")
}

func TestDeleteGuardRefusesHomeDirectory(t *testing.T) {
	root := t.TempDir()
	home := filepath.Join(root, "home_dir")
	require.NoError(t, os.Mkdir(home, 0755))
	t.Setenv("HOME", home)

	h := newHarness(t, root, root)
	h.moveTo(t, "home_dir")
	h.press(tcell.KeyF8, 0, tcell.ModNone)

	assert.Empty(t, h.app.State().ConfirmPrompt)
	assert.Contains(t, h.app.State().AlertPrompt, "refusing to delete HOME directory")
}

func TestDeleteVirtualEntryIsRefused(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, dir)

	// cursor starts on ".."
	h.press(tcell.KeyF8, 0, tcell.ModNone)
	assert.Contains(t, h.app.State().AlertPrompt, "not allowed for navigation entry")
}

func TestAlertDismissedByAnyKey(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, dir)
	h.app.showAlert("boom")
	require.NotEmpty(t, h.app.State().AlertPrompt)

	h.pressRune('z')
	assert.Empty(t, h.app.State().AlertPrompt)
}

func TestCopyWithRenamePrompt(t *testing.T) {
	left := t.TempDir()
	right := t.TempDir()
	writeFile(t, filepath.Join(left, "source.txt"), "payload")
	h := newHarness(t, left, right)

	h.moveTo(t, "source.txt")
	h.press(tcell.KeyF5, 0, tcell.ModNone)
	require.NotNil(t, h.app.State().RenamePrompt)
	assert.Equal(t, "source.txt", h.app.State().RenamePrompt.Value)

	// erase "source.txt", type "renamed.txt"
	for i := 0; i < len("source.txt"); i++ {
		h.press(tcell.KeyBackspace2, 0, tcell.ModNone)
	}
	h.typeString("renamed.txt")
	h.press(tcell.KeyEnter, 0, tcell.ModNone)
	h.waitJobs(t)

	data, err := os.ReadFile(filepath.Join(right, "renamed.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	// source untouched
	_, err = os.Stat(filepath.Join(left, "source.txt"))
	assert.NoError(t, err)
}

func TestRenamePromptRejectsSlash(t *testing.T) {
	left := t.TempDir()
	right := t.TempDir()
	writeFile(t, filepath.Join(left, "a.txt"), "x")
	h := newHarness(t, left, right)

	h.moveTo(t, "a.txt")
	h.press(tcell.KeyF6, 0, tcell.ModNone)
	require.NotNil(t, h.app.State().RenamePrompt)
	h.typeString("/etc")
	h.press(tcell.KeyEnter, 0, tcell.ModNone)

	assert.Contains(t, h.app.State().AlertPrompt, "name cannot contain '/'")
	_, err := os.Stat(filepath.Join(left, "a.txt"))
	assert.NoError(t, err)
}

func TestMoveJobRemovesSource(t *testing.T) {
	left := t.TempDir()
	right := t.TempDir()
	writeFile(t, filepath.Join(left, "mv.txt"), "go")
	h := newHarness(t, left, right)

	h.moveTo(t, "mv.txt")
	h.press(tcell.KeyF6, 0, tcell.ModNone)
	h.press(tcell.KeyEnter, 0, tcell.ModNone)
	h.waitJobs(t)

	_, err := os.Stat(filepath.Join(left, "mv.txt"))
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(filepath.Join(right, "mv.txt"))
	require.NoError(t, err)
	assert.Equal(t, "go", string(data))
}

func TestConflictMatrixRenameAndSkip(t *testing.T) {
	left := t.TempDir()
	right := t.TempDir()
	writeFile(t, filepath.Join(left, "alpha.txt"), "alpha-new")
	writeFile(t, filepath.Join(left, "beta.txt"), "beta-new")
	writeFile(t, filepath.Join(right, "alpha.txt"), "alpha-old")
	writeFile(t, filepath.Join(right, "beta.txt"), "beta-old")
	h := newHarness(t, left, right)

	h.moveTo(t, "alpha.txt")
	h.pressRune(' ')
	h.moveTo(t, "beta.txt")
	h.pressRune(' ')

	h.press(tcell.KeyF5, 0, tcell.ModNone)
	require.NotNil(t, h.app.State().Dialog)
	assert.Equal(t, "Confirm", h.app.State().Dialog.Title)
	h.pressRune('y')

	// first conflict: rename
	require.NotNil(t, h.app.State().Dialog)
	assert.Contains(t, h.app.State().Dialog.Title, "Conflict ")
	h.pressRune('r')
	// second conflict: skip
	require.NotNil(t, h.app.State().Dialog)
	assert.Contains(t, h.app.State().Dialog.Title, "Conflict ")
	h.pressRune('s')

	h.waitJobs(t)

	entries, err := os.ReadDir(right)
	require.NoError(t, err)
	var renamed []string
	for _, e := range entries {
		if e.Name() != "alpha.txt" && e.Name() != "beta.txt" {
			renamed = append(renamed, e.Name())
		}
	}
	require.Len(t, renamed, 1)
	assert.Contains(t, renamed[0], "_copy")

	// conflict targets stay untouched
	alpha, err := os.ReadFile(filepath.Join(right, "alpha.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha-old", string(alpha))
	beta, err := os.ReadFile(filepath.Join(right, "beta.txt"))
	require.NoError(t, err)
	assert.Equal(t, "beta-old", string(beta))
}

func TestConflictAbortDropsRemainder(t *testing.T) {
	left := t.TempDir()
	right := t.TempDir()
	writeFile(t, filepath.Join(left, "a.txt"), "new")
	writeFile(t, filepath.Join(right, "a.txt"), "old")
	h := newHarness(t, left, right)

	h.moveTo(t, "a.txt")
	h.pressRune(' ')
	h.press(tcell.KeyF5, 0, tcell.ModNone)
	h.pressRune('y')
	require.NotNil(t, h.app.State().Dialog)
	h.pressRune('a')
	h.waitJobs(t)

	data, err := os.ReadFile(filepath.Join(right, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestMaskSelectionPrompt(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one.go"), "1")
	writeFile(t, filepath.Join(dir, "two.go"), "2")
	writeFile(t, filepath.Join(dir, "three.md"), "3")
	h := newHarness(t, dir, dir)

	h.pressRune('+')
	require.NotNil(t, h.app.State().MaskPrompt)
	assert.Equal(t, "*", h.app.State().MaskPrompt.Value)

	h.press(tcell.KeyBackspace2, 0, tcell.ModNone)
	h.typeString("*.go")
	h.press(tcell.KeyEnter, 0, tcell.ModNone)

	count, _ := h.app.State().ActivePanel().SelectionSummary()
	assert.Equal(t, 2, count)
	assert.Contains(t, h.app.State().StatusLine, "selected 2 by mask")
}

func TestPanelSearchFiltersLive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "alpha.txt"), "a")
	writeFile(t, filepath.Join(dir, "beta.txt"), "b")
	h := newHarness(t, dir, dir)

	h.pressRune('/')
	h.typeString("alp")
	assert.Equal(t, []string{"alpha.txt"}, listingNames(h.app.State().ActivePanel()))

	h.press(tcell.KeyEscape, 0, tcell.ModNone)
	assert.Len(t, listingNames(h.app.State().ActivePanel()), 2)
}

func TestSwitchPanelTogglesActive(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, dir)
	require.Equal(t, PanelLeft, h.app.State().Active)
	h.press(tcell.KeyTab, 0, tcell.ModNone)
	assert.Equal(t, PanelRight, h.app.State().Active)
	h.press(tcell.KeyTab, 0, tcell.ModNone)
	assert.Equal(t, PanelLeft, h.app.State().Active)
}

func TestOpenSelectedDirectoryAndParent(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	writeFile(t, filepath.Join(sub, "inner.txt"), "x")
	h := newHarness(t, dir, dir)

	h.moveTo(t, "sub")
	h.press(tcell.KeyEnter, 0, tcell.ModNone)
	assert.Contains(t, listingNames(h.app.State().ActivePanel()), "inner.txt")

	h.press(tcell.KeyBackspace2, 0, tcell.ModNone)
	assert.Contains(t, listingNames(h.app.State().ActivePanel()), "sub")
}

func TestToggleSortCycles(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, dir)
	require.EqualValues(t, 0, h.app.State().ActivePanel().Sort)
	h.press(tcell.KeyF2, 0, tcell.ModNone)
	assert.EqualValues(t, 1, h.app.State().ActivePanel().Sort)
	h.press(tcell.KeyF2, 0, tcell.ModNone)
	h.press(tcell.KeyF2, 0, tcell.ModNone)
	assert.EqualValues(t, 0, h.app.State().ActivePanel().Sort)
}

func TestQuitStopsLoop(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, dir)
	require.True(t, h.app.Running())
	h.pressRune('q')
	assert.False(t, h.app.Running())
}

func TestJobIDsAreDenseAndMonotonic(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, dir)

	h.press(tcell.KeyF7, 0, tcell.ModNone)
	h.waitJobs(t)
	h.press(tcell.KeyF7, 0, tcell.ModNone)
	h.waitJobs(t)

	st := h.app.State()
	require.Len(t, st.Jobs, 2)
	assert.Greater(t, st.Jobs[1].ID, st.Jobs[0].ID)
	assert.Equal(t, st.Jobs[0].ID+1, st.Jobs[1].ID)
}

func TestActivityLogIsCapped(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, dir)
	for i := 0; i < 40; i++ {
		h.app.pushLog("line")
	}
	assert.LessOrEqual(t, len(h.app.State().ActivityLog), 16)
}

func TestMenuOpensAndActivatesRefresh(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, dir)

	h.press(tcell.KeyRune, 'o', tcell.ModAlt)
	require.NotNil(t, h.app.State().Menu)
	assert.Equal(t, 1, h.app.State().Menu.Group)

	h.press(tcell.KeyDown, 0, tcell.ModNone) // Sort -> Refresh
	h.press(tcell.KeyEnter, 0, tcell.ModNone)
	assert.Nil(t, h.app.State().Menu)
	assert.Contains(t, h.app.State().StatusLine, "Loaded ")
}

func TestArchiveVfsBrowseAndLeave(t *testing.T) {
	dir := t.TempDir()
	buildTestTar(t, filepath.Join(dir, "bundle.tar"), "docs/readme.txt", "archive payload\n")
	h := newHarness(t, dir, dir)

	h.moveTo(t, "bundle.tar")
	h.app.openArchiveVfs(PanelLeft)
	require.Empty(t, h.app.State().AlertPrompt, "alert: %s", h.app.State().AlertPrompt)

	panel := &h.app.State().Left
	assert.Equal(t, "/", panel.Cwd)
	assert.Contains(t, listingNames(panel), "docs")

	h.moveTo(t, "docs")
	h.press(tcell.KeyEnter, 0, tcell.ModNone)
	assert.Contains(t, listingNames(panel), "readme.txt")

	// viewer works through the archive backend
	h.moveTo(t, "readme.txt")
	h.pressRune('v')
	require.NotNil(t, h.app.State().Viewer)
	assert.Contains(t, h.app.State().Viewer.Lines[0], "archive payload")
	h.press(tcell.KeyEscape, 0, tcell.ModNone)
	require.Nil(t, h.app.State().Viewer)

	// two levels up leaves the archive
	h.press(tcell.KeyBackspace2, 0, tcell.ModNone)
	h.press(tcell.KeyBackspace2, 0, tcell.ModNone)
	assert.Equal(t, dir, panel.Cwd)
	assert.Contains(t, listingNames(panel), "bundle.tar")
}

func TestViewerOverlayScrollAndSearch(t *testing.T) {
	dir := t.TempDir()
	content := ""
	for i := 0; i < 50; i++ {
		content += "filler line\n"
	}
	content += "needle here\n"
	writeFile(t, filepath.Join(dir, "view.txt"), content)
	h := newHarness(t, dir, dir)

	h.moveTo(t, "view.txt")
	h.press(tcell.KeyF3, 0, tcell.ModNone)
	v := h.app.State().Viewer
	require.NotNil(t, v)
	require.EqualValues(t, 0, v.ScrollOffset)

	h.press(tcell.KeyDown, 0, tcell.ModNone)
	assert.Equal(t, 1, v.ScrollOffset)

	h.pressRune('/')
	h.typeString("needle")
	h.press(tcell.KeyEnter, 0, tcell.ModNone)
	assert.Equal(t, 50, v.ScrollOffset)

	h.pressRune('q')
	assert.Nil(t, h.app.State().Viewer)
}
