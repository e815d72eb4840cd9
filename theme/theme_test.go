package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigimon/vcmc/fs"
)

func TestApplyDircolorsTokensAndExtensions(t *testing.T) {
	th := Fallback()
	th.applyDircolorsText(`
# comment line
DIR 01;34
LINK 01;36
EXEC 01;32
*.go 00;33
RESET 0
`)
	assert.Equal(t, named(Blue), th.Dir.Fg)
	assert.True(t, th.Dir.Bold)
	assert.Equal(t, named(Cyan), th.Link.Fg)
	require.NotNil(t, th.Exec)
	assert.Equal(t, named(Green), th.Exec.Fg)
	assert.Equal(t, named(Yellow), th.Exts["*.go"].Fg)
}

func TestApplyLsColorsOverrides(t *testing.T) {
	th := Fallback()
	th.applyLsColors("di=01;32:ln=35:*.jpg=38;5;208:broken")
	assert.Equal(t, named(Green), th.Dir.Fg)
	assert.Equal(t, named(Magenta), th.Link.Fg)
	jpg := th.Exts["*.jpg"]
	assert.Equal(t, ColorIndexed, jpg.Fg.Kind)
	assert.Equal(t, 208, jpg.Fg.Index)
}

func TestParseStyleCodesBoldAndColor(t *testing.T) {
	style, ok := parseStyleCodes("01;31")
	require.True(t, ok)
	assert.True(t, style.Bold)
	assert.Equal(t, named(Red), style.Fg)
}

func TestParseStyleCodesTruecolor(t *testing.T) {
	style, ok := parseStyleCodes("01;38;2;255;121;198")
	require.True(t, ok)
	assert.True(t, style.Bold)
	assert.Equal(t, ColorRGB, style.Fg.Kind)
	assert.Equal(t, uint8(255), style.Fg.R)
	assert.Equal(t, uint8(121), style.Fg.G)
	assert.Equal(t, uint8(198), style.Fg.B)
}

func TestParseStyleCodesBrightRange(t *testing.T) {
	style, ok := parseStyleCodes("95")
	require.True(t, ok)
	assert.Equal(t, named(BrightMagenta), style.Fg)
}

func TestParseStyleCodesRejectsNoise(t *testing.T) {
	_, ok := parseStyleCodes("target")
	assert.False(t, ok)
}

func TestNormalizeExtensionKeySupportsDotSyntax(t *testing.T) {
	assert.Equal(t, "*.jpg", normalizeExtensionKey(".jpg"))
	assert.Equal(t, "*.png", normalizeExtensionKey("*.png"))
	assert.Equal(t, "*.png", normalizeExtensionKey("*.PNG"))
	assert.Equal(t, "", normalizeExtensionKey("*."))
	assert.Equal(t, "", normalizeExtensionKey("di"))
}

func TestStyleForEntryVirtualIsBoldYellow(t *testing.T) {
	th := Fallback()
	link := fs.ParentLink("/srv")
	style := th.StyleForEntry(&link)
	assert.Equal(t, named(Yellow), style.Fg)
	assert.True(t, style.Bold)
}

func TestStyleForEntryExtensionBeatsType(t *testing.T) {
	th := Fallback()
	th.Exts["*.go"] = Style{Fg: named(Cyan)}
	entry := fs.Entry{Name: "main.go", Path: "/src/main.go", Type: fs.EntryFile}
	assert.Equal(t, named(Cyan), th.StyleForEntry(&entry).Fg)
}

func TestStyleForEntryFallsBackByType(t *testing.T) {
	th := Fallback()
	dir := fs.Entry{Name: "src", Path: "/src", Type: fs.EntryDirectory}
	assert.Equal(t, named(Blue), th.StyleForEntry(&dir).Fg)
	link := fs.Entry{Name: "l", Path: "/l", Type: fs.EntrySymlink}
	assert.Equal(t, named(Magenta), th.StyleForEntry(&link).Fg)
}
