package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/gigimon/vcmc/app"
	"github.com/gigimon/vcmc/fs"
	"github.com/gigimon/vcmc/theme"
)

var (
	styleDefault  = tcell.StyleDefault
	styleHeader   = tcell.StyleDefault.Reverse(true)
	styleCursor   = tcell.StyleDefault.Reverse(true)
	styleMarked   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleError    = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleHelp     = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleOverlay  = tcell.StyleDefault
	styleTitleBox = tcell.StyleDefault.Bold(true)
)

// Render projects the app state onto the screen. One call per processed
// event that reports a redraw.
func Render(screen *Screen, state *app.State, th *theme.Theme) {
	screen.Clear()
	width, height := screen.Size()
	if width <= 0 || height < 4 {
		screen.Show()
		return
	}

	drawMenuBar(screen, state, width)

	panelTop := 1
	panelHeight := height - 3
	leftWidth := width / 2
	drawPanel(screen, state, th, app.PanelLeft, 0, panelTop, leftWidth, panelHeight)
	drawPanel(screen, state, th, app.PanelRight, leftWidth, panelTop, width-leftWidth, panelHeight)

	drawStatus(screen, state, width, height-2)
	drawHelp(screen, width, height-1)

	drawOverlays(screen, state, width, height)
	screen.Show()
}

func drawMenuBar(screen *Screen, state *app.State, width int) {
	fill(screen, 0, 0, width, 1, styleHeader)
	x := 1
	for i, group := range app.MenuGroups() {
		label := fmt.Sprintf(" %s ", group.Label)
		style := styleHeader
		if state.Menu != nil && state.Menu.Group == i {
			style = styleHeader.Bold(true).Underline(true)
		}
		drawText(screen, x, 0, style, label)
		x += runewidth.StringWidth(label) + 1
	}
	title := "vcmc"
	drawText(screen, width-runewidth.StringWidth(title)-1, 0, styleHeader, title)
}

func drawPanel(screen *Screen, state *app.State, th *theme.Theme, id app.PanelID, x, y, w, h int) {
	if w < 4 || h < 3 {
		return
	}
	panel := state.Panel(id)
	active := state.Active == id

	title := fmt.Sprintf(" %s:%s ", panel.Spec.Kind.String(), truncate(panel.Cwd, w-14))
	if active {
		title = fmt.Sprintf(" %s:%s * ", panel.Spec.Kind.String(), truncate(panel.Cwd, w-16))
	}
	if panel.Search != "" {
		title += fmt.Sprintf("[/%s] ", panel.Search)
	}
	drawBox(screen, x, y, w, h, styleDefault)
	boxTitle := truncate(title, w-2)
	style := styleTitleBox
	if active {
		style = style.Foreground(tcell.ColorGreen)
	}
	drawText(screen, x+1, y, style, boxTitle)

	inner := h - 2
	if inner < 1 {
		return
	}
	if panel.ErrorMsg != "" {
		drawText(screen, x+1, y+1, styleError, truncate(panel.ErrorMsg, w-2))
		return
	}

	// keep the cursor visible
	first := 0
	if panel.Selected >= inner {
		first = panel.Selected - inner + 1
	}
	for row := 0; row < inner; row++ {
		idx := first + row
		if idx >= len(panel.Entries) {
			break
		}
		entry := &panel.Entries[idx]
		drawEntryRow(screen, th, panel, entry, idx, x+1, y+1+row, w-2, active)
	}
}

func drawEntryRow(screen *Screen, th *theme.Theme, panel *app.Panel, entry *fs.Entry, idx, x, y, w int, active bool) {
	style := styleFromTheme(th.StyleForEntry(entry))
	marked := !entry.Virtual && panel.Selection[entry.Name]
	if marked {
		style = styleMarked
	}
	if idx == panel.Selected && active {
		style = styleCursor
	}

	marker := " "
	if marked {
		marker = "*"
	}
	name := entry.Name
	switch entry.Type {
	case fs.EntryDirectory:
		name = "/" + name
	case fs.EntrySymlink:
		name = "@" + name
	default:
		if entry.Executable {
			name = "*" + name
		} else {
			name = " " + name
		}
	}

	size := fs.FormatSize(entry.Size)
	if entry.Type == fs.EntryDirectory {
		size = "<dir>"
	}
	if entry.Virtual {
		size = ""
	}

	avail := w - runewidth.StringWidth(marker) - runewidth.StringWidth(size) - 2
	if avail < 1 {
		avail = 1
	}
	line := marker + pad(truncate(name, avail), avail) + " " + size
	drawText(screen, x, y, style, pad(line, w))
}

func drawStatus(screen *Screen, state *app.State, width, y int) {
	line := state.StatusLine
	style := styleDefault
	switch {
	case state.RenamePrompt != nil:
		line = state.RenamePrompt.Title + " " + state.RenamePrompt.Value + "_"
	case state.MaskPrompt != nil:
		line = state.MaskPrompt.Title + " " + state.MaskPrompt.Value + "_"
	case state.InputPrompt != nil:
		line = state.InputPrompt.Title + " " + state.InputPrompt.Value + "_"
	case state.ConfirmPrompt != "":
		line = state.ConfirmPrompt
		style = styleError
	}
	drawText(screen, 0, y, style, pad(truncate(line, width), width))
}

func drawHelp(screen *Screen, width, y int) {
	help := "F2 Sort  F3 View  F4 Edit  F5 Copy  F6 Move  F7 Mkdir  F8 Delete  Tab Switch  / Search  q Quit"
	drawText(screen, 0, y, styleHelp, truncate(help, width))
}

func drawOverlays(screen *Screen, state *app.State, width, height int) {
	if state.Viewer != nil {
		drawViewer(screen, state, width, height)
		return
	}
	if state.Menu != nil {
		drawMenuDropdown(screen, state, width)
	}
	if state.Dialog != nil {
		drawDialog(screen, state.Dialog, width, height)
	}
	if state.AlertPrompt != "" {
		drawAlert(screen, state.AlertPrompt, width, height)
	}
}

func drawMenuDropdown(screen *Screen, state *app.State, width int) {
	groups := app.MenuGroups()
	menu := state.Menu
	items := groups[menu.Group].Items

	// anchor the dropdown under the group label
	x := 1
	for i := 0; i < menu.Group; i++ {
		x += runewidth.StringWidth(groups[i].Label) + 3
	}
	boxW := 4
	for _, item := range items {
		if w := runewidth.StringWidth(item.Label) + 4; w > boxW {
			boxW = w
		}
	}
	if x+boxW >= width {
		x = width - boxW - 1
		if x < 0 {
			x = 0
		}
	}
	boxH := len(items) + 2
	drawBox(screen, x, 1, boxW, boxH, styleOverlay)
	fill(screen, x+1, 2, boxW-2, boxH-2, styleOverlay)
	for i, item := range items {
		style := styleOverlay
		if !item.Selectable() {
			style = style.Dim(true)
		}
		if i == menu.Item {
			style = styleCursor
		}
		drawText(screen, x+2, 2+i, style, pad(truncate(item.Label, boxW-4), boxW-4))
	}
}

func drawDialog(screen *Screen, dialog *app.Dialog, width, height int) {
	lines := strings.Split(strings.TrimRight(dialog.Body, "\n"), "\n")
	boxW := runewidth.StringWidth(dialog.Title) + 6
	for _, line := range lines {
		if w := runewidth.StringWidth(line) + 4; w > boxW {
			boxW = w
		}
	}
	var optLine string
	if len(dialog.Options) > 0 {
		parts := make([]string, len(dialog.Options))
		for i, opt := range dialog.Options {
			parts[i] = fmt.Sprintf("(%c)%s", opt.Hotkey, opt.Label)
		}
		optLine = strings.Join(parts, "  ")
		if w := runewidth.StringWidth(optLine) + 4; w > boxW {
			boxW = w
		}
	}
	if boxW > width-2 {
		boxW = width - 2
	}
	boxH := len(lines) + 2
	if optLine != "" {
		boxH += 2
	}
	x := (width - boxW) / 2
	y := (height - boxH) / 2
	if y < 1 {
		y = 1
	}

	drawBox(screen, x, y, boxW, boxH, styleOverlay)
	fill(screen, x+1, y+1, boxW-2, boxH-2, styleOverlay)
	drawText(screen, x+2, y, styleTitleBox, " "+truncate(dialog.Title, boxW-4)+" ")
	for i, line := range lines {
		drawText(screen, x+2, y+1+i, styleOverlay, truncate(line, boxW-4))
	}
	if optLine != "" {
		drawText(screen, x+2, y+boxH-2, styleTitleBox, truncate(optLine, boxW-4))
	}
}

func drawAlert(screen *Screen, message string, width, height int) {
	boxW := runewidth.StringWidth(message) + 4
	if boxW > width-2 {
		boxW = width - 2
	}
	x := (width - boxW) / 2
	y := height/2 - 1
	if y < 1 {
		y = 1
	}
	drawBox(screen, x, y, boxW, 3, styleError)
	fill(screen, x+1, y+1, boxW-2, 1, styleDefault)
	drawText(screen, x+2, y, styleError, " Alert ")
	drawText(screen, x+2, y+1, styleDefault, truncate(message, boxW-4))
}

func drawViewer(screen *Screen, state *app.State, width, height int) {
	v := state.Viewer
	fill(screen, 0, 0, width, height, styleDefault)

	header := fmt.Sprintf(" %s  %s  [%s]", v.Title, fs.FormatSize(v.ByteSize), v.Mode)
	if v.PreviewTruncated {
		header += "  (truncated)"
	}
	if len(v.SearchMatches) > 0 {
		header += fmt.Sprintf("  match %d/%d", v.SearchMatchIndex+1, len(v.SearchMatches))
	}
	drawText(screen, 0, 0, styleHeader, pad(truncate(header, width), width))

	body := height - 2
	for row := 0; row < body; row++ {
		idx := v.ScrollOffset + row
		if idx >= len(v.Lines) {
			break
		}
		style := styleDefault
		for _, m := range v.SearchMatches {
			if m == idx {
				style = styleMarked
				break
			}
		}
		drawText(screen, 0, 1+row, style, truncate(v.Lines[idx], width))
	}

	footer := "Esc/q close  t/x mode  / search  n/N match  arrows scroll"
	if state.ViewerSearching {
		footer = "search: " + v.SearchQuery + "_"
	}
	drawText(screen, 0, height-1, styleHelp, pad(truncate(footer, width), width))
}

func styleFromTheme(s theme.Style) tcell.Style {
	style := tcell.StyleDefault
	switch s.Fg.Kind {
	case theme.ColorNamed:
		style = style.Foreground(tcell.PaletteColor(s.Fg.Named))
	case theme.ColorIndexed:
		style = style.Foreground(tcell.PaletteColor(s.Fg.Index))
	case theme.ColorRGB:
		style = style.Foreground(tcell.NewRGBColor(int32(s.Fg.R), int32(s.Fg.G), int32(s.Fg.B)))
	}
	if s.Bold {
		style = style.Bold(true)
	}
	return style
}

func drawText(screen *Screen, x, y int, style tcell.Style, text string) {
	col := x
	for _, r := range text {
		screen.SetContent(col, y, r, nil, style)
		col += runewidth.RuneWidth(r)
	}
}

func drawBox(screen *Screen, x, y, w, h int, style tcell.Style) {
	if w < 2 || h < 2 {
		return
	}
	for col := x + 1; col < x+w-1; col++ {
		screen.SetContent(col, y, tcell.RuneHLine, nil, style)
		screen.SetContent(col, y+h-1, tcell.RuneHLine, nil, style)
	}
	for row := y + 1; row < y+h-1; row++ {
		screen.SetContent(x, row, tcell.RuneVLine, nil, style)
		screen.SetContent(x+w-1, row, tcell.RuneVLine, nil, style)
	}
	screen.SetContent(x, y, tcell.RuneULCorner, nil, style)
	screen.SetContent(x+w-1, y, tcell.RuneURCorner, nil, style)
	screen.SetContent(x, y+h-1, tcell.RuneLLCorner, nil, style)
	screen.SetContent(x+w-1, y+h-1, tcell.RuneLRCorner, nil, style)
}

func fill(screen *Screen, x, y, w, h int, style tcell.Style) {
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max, "…")
}

func pad(s string, width int) string {
	return s + strings.Repeat(" ", maxInt(0, width-runewidth.StringWidth(s)))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
