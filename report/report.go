// Package report renders the diagnostic summary and the -d symbol table
// dump. It builds the text the same way the teacher's debugger TUI
// builds panel content -- a tview.TextView with SetDynamicColors(true)
// and "[red]...[white]" color tags -- but instead of driving a live
// terminal event loop, it draws that single TextView once against a
// tcell.NewSimulationScreen, the same headless-rendering technique the
// teacher's own tui_internal_test.go uses to exercise the TUI without a
// real terminal. Reading the simulated screen's cells back out lets a
// one-shot CLI reuse tview's color markup for a colorized terminal
// report instead of an interactive application.
package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lookbusy1344/polyasm/diag"
	"github.com/lookbusy1344/polyasm/pipeline"
	"github.com/lookbusy1344/polyasm/symtab"
)

// IsTerminal reports whether f is attached to a character device, the
// same stat-based check a CLI without a terminal library dependency
// uses to decide whether to emit color. See DESIGN.md for why this
// stays on stdlib rather than importing a terminal-detection package.
func IsTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// ColorEnabled decides whether color output should be produced, honoring
// NO_COLOR (https://no-color.org) and falling back to terminal detection
// when forced is nil. The CLI passes its -color flag as forced; the
// profile's color_output setting is not consulted.
func ColorEnabled(forced *bool, out *os.File) bool {
	if forced != nil {
		return *forced
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return IsTerminal(out)
}

// Summary renders the diagnostic counts and every diagnostic's message,
// color-tagged by severity the way the teacher's TUI tags its own
// messages ("[red]Error:[white] ...").
func Summary(diags []diag.Diagnostic, color bool) string {
	var b strings.Builder

	var errs, warns int
	for _, d := range diags {
		if d.Severity == diag.SeverityError {
			errs++
		} else {
			warns++
		}
	}

	if errs == 0 && warns == 0 {
		fmt.Fprintf(&b, "[green]assembly succeeded, no diagnostics[white]\n")
	} else {
		fmt.Fprintf(&b, "[yellow]%d error(s), %d warning(s)[white]\n", errs, warns)
	}

	for _, d := range diags {
		tag := "yellow"
		label := "warning"
		if d.Severity == diag.SeverityError {
			tag = "red"
			label = "error"
		}
		if d.Pass > 0 {
			fmt.Fprintf(&b, "[%s]line %d (pass %d) %s:[white] %s\n", tag, d.Line, d.Pass, label, d.Message)
		} else {
			fmt.Fprintf(&b, "[%s]line %d %s:[white] %s\n", tag, d.Line, label, d.Message)
		}
	}

	return render(b.String(), color)
}

// SymbolDump renders every macro, alias, function, and memory block
// entry in tab, one color-tagged section per namespace.
func SymbolDump(tab *symtab.Table, color bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[yellow]Macros:[white]\n")
	for _, name := range tab.MacroNames() {
		e := tab.Macros[name]
		if e.Resolved {
			fmt.Fprintf(&b, "  #%s = %d\n", name, e.Value)
		} else {
			fmt.Fprintf(&b, "  [red]#%s = <unresolved>[white]\n", name)
		}
	}

	fmt.Fprintf(&b, "[yellow]Aliases:[white]\n")
	for _, name := range tab.AliasNames() {
		e := tab.Aliases[name]
		fmt.Fprintf(&b, "  @%s = 0x%08X\n", name, e.Address)
	}

	fmt.Fprintf(&b, "[yellow]Functions:[white]\n")
	for _, name := range tab.FunctionNames() {
		e := tab.Functions[name]
		fmt.Fprintf(&b, "  %s() = 0x%08X (%d instructions)\n", name, e.StartAddress, e.Length)
	}

	fmt.Fprintf(&b, "[yellow]Memory blocks:[white]\n")
	for _, name := range tab.MemoryNames() {
		e := tab.Memories[name]
		fmt.Fprintf(&b, "  %s = 0x%08X (%d rows)\n", name, e.StartAddress, e.Length)
	}

	return render(b.String(), color)
}

// WordSummary renders a single line counting the encoded code and data
// words, for the terminal "assembled N words" report (not the readable-report file
// format, which main writes directly from pipeline.Result).
func WordSummary(result *pipeline.Result, color bool) string {
	var b strings.Builder
	var code, data int
	for _, w := range result.Words {
		if w.Section == pipeline.SectionCode {
			code++
		} else {
			data++
		}
	}
	fmt.Fprintf(&b, "[green]assembled %d code word(s), %d data word(s)[white]\n", code, data)
	return render(b.String(), color)
}

// render draws text (tview color markup included) into an offscreen
// tcell simulation screen and flattens the result back to a string: with
// color enabled, ANSI SGR escapes per run of matching style; with color
// disabled, the tags are simply never interpreted as color, so the
// plain text (no ANSI) is produced by skipping the screen round-trip
// and stripping tags instead.
func render(text string, color bool) string {
	if !color {
		return stripTags(text)
	}

	width := 0
	for _, line := range strings.Split(text, "\n") {
		if len(line) > width {
			width = len(line)
		}
	}
	if width == 0 {
		width = 1
	}
	height := strings.Count(text, "\n") + 1

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		return stripTags(text)
	}
	defer screen.Fini()
	screen.SetSize(width, height)

	view := tview.NewTextView().SetDynamicColors(true)
	view.SetText(text)
	view.SetRect(0, 0, width, height)
	view.Draw(screen)

	return flatten(screen, width, height)
}

// flatten reads back the simulated screen's cell contents and styles,
// emitting one ANSI-colorized line per screen row.
func flatten(screen tcell.SimulationScreen, width, height int) string {
	var b strings.Builder
	var lastFg, lastBg tcell.Color
	haveStyle := false

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			mainc, _, style, _ := screen.GetContent(x, y)
			fg, bg, _ := style.Decompose()
			if !haveStyle || fg != lastFg || bg != lastBg {
				b.WriteString(sgr(fg, bg))
				lastFg, lastBg = fg, bg
				haveStyle = true
			}
			if mainc == 0 {
				mainc = ' '
			}
			b.WriteRune(mainc)
		}
		b.WriteString("\x1b[0m\n")
		haveStyle = false
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// sgr renders an ANSI SGR reset followed by 24-bit truecolor selections
// for whichever of fg/bg is not the default color; when both are the
// default it is a plain reset.
func sgr(fg, bg tcell.Color) string {
	if fg == tcell.ColorDefault && bg == tcell.ColorDefault {
		return "\x1b[0m"
	}
	r, g, bl := fg.RGB()
	var out strings.Builder
	out.WriteString("\x1b[0m")
	if fg != tcell.ColorDefault {
		fmt.Fprintf(&out, "\x1b[38;2;%d;%d;%dm", r, g, bl)
	}
	if bg != tcell.ColorDefault {
		r, g, bl := bg.RGB()
		fmt.Fprintf(&out, "\x1b[48;2;%d;%d;%dm", r, g, bl)
	}
	return out.String()
}

// stripTags removes tview "[color]" markup for plain-text output.
func stripTags(text string) string {
	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '[':
			inTag = true
		case r == ']' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
