// Package output renders command results as styled text, markdown or JSON.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Mode selects how results are rendered.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

var titler = cases.Title(language.English)

// Renderer writes command output.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	isTTY  bool
	styles *Styles
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		isTTY:  isTTY,
		styles: NewStyles(out, isTTY),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// EffectiveMode resolves auto to text on a terminal and markdown otherwise.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Styles returns the text-mode styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// Writer returns the output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// Println writes a line.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Header writes a level 1 or 2 heading.
func (r *Renderer) Header(level int, text string) {
	text = Title(text)
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, text))
		r.Println("")
		return
	}
	style := r.styles.Header2
	if level <= 1 {
		style = r.styles.Header1
	}
	r.Println(style.Render(text))
}

// KeyValue writes one labelled value.
func (r *Renderer) KeyValue(key string, value any) {
	v := fmt.Sprint(value)
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatKeyValue(key, v))
		return
	}
	r.Printf("  %s %s\n", r.styles.Key.Render(key+":"), v)
}

// Table writes rows under headers: a light box table in text mode, a
// markdown table otherwise.
func (r *Renderer) Table(headers []string, rows [][]any) {
	t := table.NewWriter()
	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}

	if r.EffectiveMode() == ModeMarkdown {
		r.Println(t.RenderMarkdown())
		r.Println("")
		return
	}
	t.SetStyle(table.StyleLight)
	r.Println(t.Render())
}

// Success writes a success message.
func (r *Renderer) Success(msg string) {
	r.status("✓", msg, r.styles.Success.Render)
}

// Warning writes a warning message.
func (r *Renderer) Warning(msg string) {
	r.status("!", msg, r.styles.Warning.Render)
}

// Error writes an error message to the error writer.
func (r *Renderer) Error(msg string) {
	if r.EffectiveMode() == ModeMarkdown {
		_, _ = fmt.Fprintf(r.errOut, "**Error:** %s\n", msg)
		return
	}
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render("✗ "+msg))
}

// Muted writes de-emphasized text.
func (r *Renderer) Muted(msg string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println("_" + msg + "_")
		return
	}
	r.Println(r.styles.Muted.Render(msg))
}

func (r *Renderer) status(mark, msg string, render func(...string) string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(mark + " " + msg)
		return
	}
	r.Println(render(mark + " " + msg))
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	r.Println(string(data))
	return nil
}

// Title title-cases text, treating underscores as spaces.
func Title(text string) string {
	return titler.String(strings.ReplaceAll(text, "_", " "))
}

// FormatHeader returns a markdown heading.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown list item with a bold key.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s:** %s", key, value)
}
