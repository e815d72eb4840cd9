// Package theme loads entry coloring from dircolors files and LS_COLORS.
package theme

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gigimon/vcmc/fs"
)

// Color is a terminal color in theme coordinates; the ui package maps it to
// the screen.
type Color struct {
	// Named is one of the 16 ANSI slots (0-15) when Kind is ColorNamed.
	Named   int
	Index   int
	R, G, B uint8
	Kind    ColorKind
}

// ColorKind discriminates Color.
type ColorKind int

// Color kinds
const (
	ColorNone ColorKind = iota
	ColorNamed
	ColorIndexed
	ColorRGB
)

// ANSI slots for Color.Named.
const (
	Black = iota
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
	BrightBlack
	BrightRed
	BrightGreen
	BrightYellow
	BrightBlue
	BrightMagenta
	BrightCyan
	BrightWhite
)

// Style is the rendered attribute set for one entry class.
type Style struct {
	Fg   Color
	Bold bool
}

func named(slot int) Color {
	return Color{Kind: ColorNamed, Named: slot}
}

// Theme maps entry classes to styles.
type Theme struct {
	Dir   Style
	Link  Style
	Exec  *Style
	Reset Style
	Exts  map[string]Style
}

// Fallback is the built-in palette used when no dircolors data is found.
func Fallback() *Theme {
	return &Theme{
		Dir:  Style{Fg: named(Blue)},
		Link: Style{Fg: named(Magenta)},
		Exts: map[string]Style{},
	}
}

// StyleForEntry resolves the style of one listing entry. The virtual ".."
// link is always bold yellow.
func (t *Theme) StyleForEntry(entry *fs.Entry) Style {
	if entry.Virtual {
		return Style{Fg: named(Yellow), Bold: true}
	}
	if ext := extensionKey(entry); ext != "" {
		if style, ok := t.Exts[ext]; ok {
			return style
		}
	}
	switch entry.Type {
	case fs.EntryDirectory:
		return t.Dir
	case fs.EntrySymlink:
		return t.Link
	case fs.EntryFile:
		if entry.Executable && t.Exec != nil {
			return *t.Exec
		}
	}
	return Style{}
}

// LoadFromEnvironment builds the theme from the discovered dircolors file
// with LS_COLORS applied as an override on top.
func LoadFromEnvironment() *Theme {
	t := Fallback()
	if path := discoverDircolorsPath(); path != "" {
		if content, err := os.ReadFile(path); err == nil {
			t.applyDircolorsText(string(content))
		}
	}
	if lsColors := strings.TrimSpace(os.Getenv("LS_COLORS")); lsColors != "" {
		t.applyLsColors(lsColors)
	}
	return t
}

func discoverDircolorsPath() string {
	if path := os.Getenv("VCMC_DIRCOLORS_PATH"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	var candidates []string
	if home := os.Getenv("HOME"); home != "" {
		candidates = append(candidates,
			filepath.Join(home, ".dir_colors"),
			filepath.Join(home, ".dircolors"))
	}
	candidates = append(candidates, "/etc/DIR_COLORS", "/etc/dircolors")
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (t *Theme) applyDircolorsText(content string) {
	for _, rawLine := range strings.Split(content, "\n") {
		line := rawLine
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if style, ok := parseStyleCodes(fields[1]); ok {
			t.applyToken(fields[0], style)
		}
	}
}

func (t *Theme) applyLsColors(value string) {
	for _, item := range strings.Split(value, ":") {
		key, code, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		if style, parsed := parseStyleCodes(code); parsed {
			t.applyToken(key, style)
		}
	}
}

func (t *Theme) applyToken(rawKey string, style Style) {
	key := strings.TrimSpace(rawKey)
	switch strings.ToUpper(key) {
	case "DIR", "DI":
		t.Dir = style
	case "LINK", "LN":
		t.Link = style
	case "EXEC", "EX":
		s := style
		t.Exec = &s
	case "RESET", "RS":
		t.Reset = style
	default:
		if ext := normalizeExtensionKey(key); ext != "" {
			t.Exts[ext] = style
		}
	}
}

func extensionKey(entry *fs.Entry) string {
	ext := filepath.Ext(entry.Path)
	if len(ext) < 2 {
		return ""
	}
	return "*" + strings.ToLower(ext)
}

func normalizeExtensionKey(key string) string {
	key = strings.TrimSpace(key)
	if strings.HasPrefix(key, "*.") {
		if len(key) <= 2 {
			return ""
		}
		return strings.ToLower(key)
	}
	if strings.HasPrefix(key, ".") && len(key) > 1 {
		return "*" + strings.ToLower(key)
	}
	return ""
}

// parseStyleCodes parses a semicolon-separated SGR code list. Returns false
// when no recognized code was present.
func parseStyleCodes(value string) (Style, bool) {
	var codes []int
	for _, part := range strings.Split(value, ";") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			codes = append(codes, n)
		}
	}

	var style Style
	seen := false
	for idx := 0; idx < len(codes); {
		code := codes[idx]
		switch {
		case code == 0:
			style = Style{}
			seen = true
			idx++
		case code == 1:
			style.Bold = true
			seen = true
			idx++
		case code == 22:
			style.Bold = false
			seen = true
			idx++
		case (code >= 30 && code <= 37) || (code >= 90 && code <= 97):
			style.Fg = mapSGRColor(code)
			seen = true
			idx++
		case code == 38:
			if color, consumed, ok := parseExtendedColor(codes, idx); ok {
				style.Fg = color
				seen = true
				idx += consumed
			} else {
				idx++
			}
		case code == 39:
			style.Fg = Color{}
			seen = true
			idx++
		default:
			idx++
		}
	}
	return style, seen
}

func parseExtendedColor(codes []int, idx int) (Color, int, bool) {
	if idx+1 >= len(codes) {
		return Color{}, 0, false
	}
	switch codes[idx+1] {
	case 5:
		if idx+2 >= len(codes) || codes[idx+2] < 0 || codes[idx+2] > 255 {
			return Color{}, 0, false
		}
		return Color{Kind: ColorIndexed, Index: codes[idx+2]}, 3, true
	case 2:
		if idx+4 >= len(codes) {
			return Color{}, 0, false
		}
		for i := idx + 2; i <= idx+4; i++ {
			if codes[i] < 0 || codes[i] > 255 {
				return Color{}, 0, false
			}
		}
		return Color{
			Kind: ColorRGB,
			R:    uint8(codes[idx+2]),
			G:    uint8(codes[idx+3]),
			B:    uint8(codes[idx+4]),
		}, 5, true
	}
	return Color{}, 0, false
}

func mapSGRColor(code int) Color {
	if code >= 30 && code <= 37 {
		return named(code - 30)
	}
	return named(code - 90 + BrightBlack)
}
