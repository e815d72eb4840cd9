// Package viewer builds the text/hex preview model for the built-in file
// viewer: bounded preview loading, binary detection, line rendering and
// incremental search over the rendered lines.
package viewer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gigimon/vcmc/fs"
)

// Limits and rendering constants.
const (
	PreviewLimit = 256 * 1024

	binaryPreviewLimit = 8 * 1024
	maxTextLineChars   = 512
	tabWidth           = 4
	hexLineBytes       = 16

	binaryNonPrintableThreshold = 0.30
)

// Mode selects which rendered line set is active.
type Mode int

// Viewer modes
const (
	ModeText Mode = iota
	ModeHex
)

// String returns the mode display name
func (m Mode) String() string {
	if m == ModeHex {
		return "hex"
	}
	return "text"
}

// State is the full viewer model for one previewed file.
type State struct {
	Path             string
	Title            string
	ByteSize         int64
	BinaryLike       bool
	PreviewTruncated bool
	Mode             Mode
	TextLines        []string
	HexLines         []string
	Lines            []string // the set selected by Mode
	ScrollOffset     int
	SearchQuery      string
	SearchMatches    []int
	SearchMatchIndex int
}

// Load reads up to PreviewLimit+1 bytes of path and builds the state.
func Load(path, title string, byteSize int64) (*State, error) {
	data, truncated, err := readPreview(path, PreviewLimit)
	if err != nil {
		return nil, err
	}
	return FromPreview(path, title, byteSize, data, truncated), nil
}

// LoadBytes builds the state from in-memory content, applying the same
// preview limit. Used for files read through non-local backends.
func LoadBytes(path, title string, data []byte) *State {
	size := int64(len(data))
	truncated := len(data) > PreviewLimit
	if truncated {
		data = data[:PreviewLimit]
	}
	return FromPreview(path, title, size, data, truncated)
}

// FromPreview builds the state from already-loaded preview bytes.
func FromPreview(path, title string, byteSize int64, data []byte, truncated bool) *State {
	binaryLike := DetectBinary(data)
	var textLines []string
	if binaryLike {
		textLines = buildBinaryLines(path, byteSize, data, truncated)
	} else {
		textLines = BuildTextLines(data, truncated)
	}
	hexLines := BuildHexLines(data, truncated)

	mode := ModeText
	if binaryLike {
		mode = ModeHex
	}
	s := &State{
		Path:             path,
		Title:            title,
		ByteSize:         byteSize,
		BinaryLike:       binaryLike,
		PreviewTruncated: truncated,
		Mode:             mode,
		TextLines:        textLines,
		HexLines:         hexLines,
	}
	s.Lines = s.linesFor(mode)
	return s
}

func readPreview(path string, limit int) ([]byte, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, false, fs.IOError("viewer_open", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(file, int64(limit)+1))
	if err != nil {
		return nil, false, fs.IOError("viewer_read", path, err)
	}
	truncated := len(data) > limit
	if truncated {
		data = data[:limit]
	}
	return data, truncated, nil
}

func (s *State) linesFor(mode Mode) []string {
	if mode == ModeHex {
		return s.HexLines
	}
	return s.TextLines
}

// SetMode swaps the active line set, clamps the scroll offset and reruns
// the search over the new lines.
func (s *State) SetMode(mode Mode) {
	if s.Mode == mode {
		return
	}
	s.Mode = mode
	s.Lines = s.linesFor(mode)
	if max := len(s.Lines) - 1; s.ScrollOffset > max {
		if max < 0 {
			max = 0
		}
		s.ScrollOffset = max
	}
	s.RefreshSearch()
}

// RefreshSearch recomputes the match list for the current query and places
// the match index on the first match at or after the scroll offset.
func (s *State) RefreshSearch() {
	query := strings.ToLower(strings.TrimSpace(s.SearchQuery))
	if query == "" {
		s.SearchMatches = nil
		s.SearchMatchIndex = 0
		return
	}

	s.SearchMatches = s.SearchMatches[:0]
	for idx, line := range s.Lines {
		if strings.Contains(strings.ToLower(line), query) {
			s.SearchMatches = append(s.SearchMatches, idx)
		}
	}
	if len(s.SearchMatches) == 0 {
		s.SearchMatchIndex = 0
		return
	}

	s.SearchMatchIndex = 0
	for i, line := range s.SearchMatches {
		if line >= s.ScrollOffset {
			s.SearchMatchIndex = i
			break
		}
	}
	s.ScrollOffset = s.SearchMatches[s.SearchMatchIndex]
}

// JumpToMatch cycles to the next (or previous) match and scrolls to it.
// Returns the new scroll offset, or -1 when there are no matches.
func (s *State) JumpToMatch(forward bool) int {
	n := len(s.SearchMatches)
	if n == 0 {
		return -1
	}
	if forward {
		s.SearchMatchIndex = (s.SearchMatchIndex + 1) % n
	} else if s.SearchMatchIndex == 0 {
		s.SearchMatchIndex = n - 1
	} else {
		s.SearchMatchIndex--
	}
	line := s.SearchMatches[s.SearchMatchIndex]
	if max := len(s.Lines) - 1; line > max {
		line = max
	}
	s.ScrollOffset = line
	return s.ScrollOffset
}

// DetectBinary reports whether the preview bytes look binary: any NUL, or
// more than 30% non-printable bytes below 0x80.
func DetectBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	nonPrintable := 0
	for _, b := range data {
		if b == 0 {
			return true
		}
		if !isTextFriendly(b) {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(data)) > binaryNonPrintableThreshold
}

func isTextFriendly(b byte) bool {
	switch b {
	case '\n', '\r', '\t':
		return true
	}
	return (b >= 0x20 && b <= 0x7e) || b >= 0x80
}

// BuildTextLines decodes the preview as lossy UTF-8, normalizes newlines,
// expands tabs and clamps overlong lines.
func BuildTextLines(data []byte, truncated bool) []string {
	if len(data) == 0 {
		return nil
	}
	text := NormalizeNewlines(strings.ToValidUTF8(string(data), "�"))
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw)+2)
	for _, line := range raw {
		lines = append(lines, clampLine(expandTabs(line), maxTextLineChars))
	}
	if truncated {
		lines = append(lines, "", fmt.Sprintf("[preview truncated to %d KB]", PreviewLimit/1024))
	}
	return lines
}

// NormalizeNewlines folds CRLF and lone CR into LF.
func NormalizeNewlines(input string) string {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	return strings.ReplaceAll(input, "\r", "\n")
}

func expandTabs(line string) string {
	if !strings.ContainsRune(line, '\t') {
		return line
	}
	var out strings.Builder
	out.Grow(len(line))
	column := 0
	for _, ch := range line {
		if ch == '\t' {
			spaces := tabWidth - column%tabWidth
			for i := 0; i < spaces; i++ {
				out.WriteByte(' ')
			}
			column += spaces
			continue
		}
		out.WriteRune(ch)
		column++
	}
	return out.String()
}

func clampLine(line string, maxChars int) string {
	runes := []rune(line)
	if len(runes) <= maxChars {
		return line
	}
	if maxChars <= 3 {
		return strings.Repeat(".", maxChars)
	}
	return string(runes[:maxChars-3]) + "..."
}

// buildBinaryLines renders the header+lossy-ASCII summary used as the Text
// view of a binary-like file.
func buildBinaryLines(path string, byteSize int64, data []byte, truncated bool) []string {
	previewLen := len(data)
	if previewLen > binaryPreviewLimit {
		previewLen = binaryPreviewLimit
	}
	preview := data[:previewLen]

	loaded := fmt.Sprintf("Loaded preview: %d byte(s)", len(data))
	if truncated {
		loaded += " (truncated)"
	}
	lines := []string{
		"Binary-like content detected.",
		"Path: " + path,
		"Type: binary-like",
		"Size: " + fs.FormatSize(byteSize),
		loaded,
		"",
		fmt.Sprintf("Lossy preview (first %d KB):", binaryPreviewLimit/1024),
	}
	if len(preview) == 0 {
		return append(lines, "<empty>")
	}
	for off := 0; off < len(preview); off += 64 {
		end := off + 64
		if end > len(preview) {
			end = len(preview)
		}
		lines = append(lines, lossyASCII(preview[off:end]))
	}
	if len(data) > previewLen {
		lines = append(lines, "", fmt.Sprintf("[binary preview clipped to %d KB]", binaryPreviewLimit/1024))
	}
	return lines
}

// BuildHexLines renders 16 bytes per line as
// "OFFSET  HH HH ... HH  |printable|".
func BuildHexLines(data []byte, truncated bool) []string {
	if len(data) == 0 {
		return []string{"<empty>"}
	}
	lines := make([]string, 0, len(data)/hexLineBytes+2)
	var hex strings.Builder
	for off := 0; off < len(data); off += hexLineBytes {
		end := off + hexLineBytes
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]

		hex.Reset()
		for i, b := range chunk {
			if i > 0 {
				hex.WriteByte(' ')
			}
			fmt.Fprintf(&hex, "%02X", b)
		}
		if pad := (hexLineBytes - len(chunk)) * 3; pad > 0 {
			hex.WriteString(strings.Repeat(" ", pad))
		}
		lines = append(lines, fmt.Sprintf("%08X  %s  |%s|", off, hex.String(), lossyASCII(chunk)))
	}
	if truncated {
		lines = append(lines, "", fmt.Sprintf("[hex preview truncated to %d KB]", PreviewLimit/1024))
	}
	return lines
}

func lossyASCII(chunk []byte) string {
	var out strings.Builder
	out.Grow(len(chunk))
	for _, b := range chunk {
		if b >= 0x20 && b <= 0x7e {
			out.WriteByte(b)
		} else {
			out.WriteByte('.')
		}
	}
	return out.String()
}
