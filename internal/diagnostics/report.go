package diagnostics

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Reporter renders diagnostics with a caret underlining the offending
// source slice, colorized when writing to a terminal.
type Reporter struct {
	w       io.Writer
	source  map[string][]string // path -> lines, lazily loaded by caller
	useColo bool
}

// NewReporter builds a Reporter. If w is an *os.File and refers to a
// terminal, ANSI coloring is enabled; otherwise (redirected to a file or
// pipe) output stays plain so logs aren't polluted with escape codes.
func NewReporter(w io.Writer) *Reporter {
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = term.IsTerminal(int(f.Fd()))
	}
	return &Reporter{w: w, source: map[string][]string{}, useColo: useColor}
}

// LoadSource registers the text of a source file so spans can be rendered
// with the offending line and a caret underneath it.
func (r *Reporter) LoadSource(path, text string) {
	r.source[path] = strings.Split(text, "\n")
}

// ForceColor overrides the terminal-detected default, for callers honoring
// an explicit --color=always/never flag rather than auto-detection.
func (r *Reporter) ForceColor(on bool) {
	r.useColo = on
}

func (r *Reporter) colorize(s string, c *color.Color) string {
	if !r.useColo {
		return s
	}
	c.EnableColor() // the Reporter's choice wins over color.NoColor's stdout check
	return c.Sprint(s)
}

// Report writes one diagnostic: its header line, the offending source
// line (if known), and a caret underline spanning Start..End on that line.
func (r *Reporter) Report(d *Diagnostic) {
	headerColor := color.New(color.FgRed, color.Bold)
	header := fmt.Sprintf("error[%s]: %s", d.Kind, d.Message)
	fmt.Fprintln(r.w, r.colorize(header, headerColor))
	if !d.Loc.IsSynthetic() {
		fmt.Fprintf(r.w, "  --> %s\n", d.Loc)
		r.renderCaret(d.Loc)
	}
	if d.OtherLoc != nil && !d.OtherLoc.IsSynthetic() {
		fmt.Fprintf(r.w, "  note: other declaration at %s\n", *d.OtherLoc)
		r.renderCaret(*d.OtherLoc)
	}
	if len(d.Expected) > 0 {
		fmt.Fprintf(r.w, "  expected one of: %s\n", strings.Join(d.Expected, ", "))
	}
}

func (r *Reporter) renderCaret(loc Location) {
	lines, ok := r.source[loc.Path]
	if !ok || loc.Start.Line < 1 || loc.Start.Line > len(lines) {
		return
	}
	line := lines[loc.Start.Line-1]
	fmt.Fprintf(r.w, "   %s\n", line)

	width := loc.End.Col - loc.Start.Col
	if loc.End.Line != loc.Start.Line || width < 1 {
		width = 1
	}
	pad := strings.Repeat(" ", max(0, loc.Start.Col-1))
	caret := strings.Repeat("^", width)
	caretColor := color.New(color.FgYellow, color.Bold)
	fmt.Fprintf(r.w, "   %s%s\n", pad, r.colorize(caret, caretColor))
}

// ReportAll renders every diagnostic in the collector, in order.
func (r *Reporter) ReportAll(c *Collector) {
	for _, d := range c.Diagnostics {
		r.Report(d)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
