package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigimon/vcmc/fs"
)

func listing(names ...string) []fs.Entry {
	entries := []fs.Entry{fs.ParentLink("/parent")}
	for _, name := range names {
		entries = append(entries, fs.Entry{Name: name, Path: "/dir/" + name, Type: fs.EntryFile})
	}
	return entries
}

func testPanel(names ...string) Panel {
	p := NewPanel("/dir", false)
	p.SetEntries(listing(names...))
	return p
}

func TestMoveSelectionClampsToBounds(t *testing.T) {
	p := testPanel("a", "b")
	assert.Equal(t, 0, p.Selected)
	p.MoveSelectionUp()
	assert.Equal(t, 0, p.Selected)
	p.MoveSelectionDown()
	p.MoveSelectionDown()
	p.MoveSelectionDown()
	assert.Equal(t, 2, p.Selected)
}

func TestMoveSelectionOnEmptyListingIsNoop(t *testing.T) {
	p := NewPanel("/dir", false)
	p.SetEntries(nil)
	p.MoveSelectionDown()
	p.MoveSelectionUp()
	assert.Equal(t, 0, p.Selected)
}

func TestToggleCurrentSelectionSkipsVirtual(t *testing.T) {
	p := testPanel("a", "b")
	assert.False(t, p.ToggleCurrentSelection(), "virtual .. must not be selectable")

	p.MoveSelectionDown()
	assert.True(t, p.ToggleCurrentSelection())
	assert.True(t, p.Selection["a"])
	assert.True(t, p.ToggleCurrentSelection())
	assert.False(t, p.Selection["a"])
}

func TestSelectRangeFromAnchorPinsFirstEndpoint(t *testing.T) {
	p := testPanel("a", "b", "c", "d")
	p.Selected = 1

	prev := p.Selected
	p.MoveSelectionDown()
	changed := p.SelectRangeFromAnchor(prev, p.Selected)
	assert.Equal(t, 2, changed)
	require.NotNil(t, p.Anchor)
	assert.Equal(t, 1, *p.Anchor)

	prev = p.Selected
	p.MoveSelectionDown()
	p.SelectRangeFromAnchor(prev, p.Selected)
	assert.True(t, p.Selection["a"])
	assert.True(t, p.Selection["b"])
	assert.True(t, p.Selection["c"])
	assert.False(t, p.Selection["d"])
	count, _ := p.SelectionSummary()
	assert.Equal(t, 3, count)
}

func TestInvertSelectionTogglesNonVirtual(t *testing.T) {
	p := testPanel("a", "b", "c")
	p.Selection["a"] = true
	changed := p.InvertSelection()
	assert.Equal(t, 3, changed)
	assert.False(t, p.Selection["a"])
	assert.True(t, p.Selection["b"])
	assert.True(t, p.Selection["c"])
}

func TestMaskSelection(t *testing.T) {
	p := testPanel("main.go", "main_test.go", "README.md")
	selected := p.SelectByMask("*.go")
	assert.Equal(t, 2, selected)
	assert.True(t, p.Selection["main.go"])
	assert.True(t, p.Selection["main_test.go"])
	assert.False(t, p.Selection["README.md"])

	dropped := p.DeselectByMask("main.?o")
	assert.Equal(t, 1, dropped)
	assert.False(t, p.Selection["main.go"])
	assert.True(t, p.Selection["main_test.go"])
}

func TestMatchMaskWildcards(t *testing.T) {
	assert.True(t, MatchMask("*", "anything"))
	assert.True(t, MatchMask("?.txt", "a.txt"))
	assert.False(t, MatchMask("?.txt", "ab.txt"))
	assert.True(t, MatchMask("*.tar", "bundle.tar"))
	assert.False(t, MatchMask("*.tar", "bundle.tar.gz"))
}

func TestSearchFilterKeepsOrderAndVirtual(t *testing.T) {
	p := testPanel("alpha.txt", "beta.txt", "alphabet.md")
	p.Search = "alpha"
	p.ApplySearchFilter()

	require.Len(t, p.Entries, 3)
	assert.Equal(t, "..", p.Entries[0].Name)
	assert.Equal(t, "alpha.txt", p.Entries[1].Name)
	assert.Equal(t, "alphabet.md", p.Entries[2].Name)

	p.ClearSearch()
	assert.Len(t, p.Entries, 4)
}

func TestSearchFilterIsCaseInsensitive(t *testing.T) {
	p := testPanel("README.md", "readme.txt")
	p.Search = "readme"
	p.ApplySearchFilter()
	assert.Len(t, p.Entries, 3)
}

func TestSetEntriesPrunesSelectionAndClampsCursor(t *testing.T) {
	p := testPanel("a", "b", "c")
	p.Selection["a"] = true
	p.Selection["c"] = true
	p.Selected = 3

	p.SetEntries(listing("a"))
	assert.True(t, p.Selection["a"])
	assert.False(t, p.Selection["c"])
	assert.Equal(t, 1, p.Selected)
}

func TestSelectionSummaryCountsBytes(t *testing.T) {
	p := NewPanel("/dir", false)
	p.SetEntries([]fs.Entry{
		{Name: "a", Path: "/dir/a", Type: fs.EntryFile, Size: 100},
		{Name: "b", Path: "/dir/b", Type: fs.EntryFile, Size: 28},
	})
	p.Selection["a"] = true
	p.Selection["b"] = true
	count, bytes := p.SelectionSummary()
	assert.Equal(t, 2, count)
	assert.EqualValues(t, 128, bytes)
}
