// Package output formats ixchel's CLI output: icon-prefixed status lines,
// success/warning/error variants, and a text progress bar, all written
// through one io.Writer so commands stay testable against a buffer.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Writer emits formatted lines to an underlying io.Writer (stdout in
// production, a bytes.Buffer in tests).
type Writer struct {
	out      io.Writer
	useColor bool
}

// New wraps out in a Writer. Color is off by default; ixchel's output
// is plain text.
func New(out io.Writer) *Writer {
	return &Writer{out: out, useColor: false}
}

// Status writes one icon-prefixed line, or an indented plain line when
// icon is empty. Write errors are swallowed: a broken stdout pipe isn't
// worth failing the command over.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf is Status with Sprintf-style formatting.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success writes a checkmark-prefixed line.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf is Success with Sprintf-style formatting.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning writes a warning-prefixed line.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", msg)
}

// Warningf is Warning with Sprintf-style formatting.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error writes an X-prefixed line.
func (w *Writer) Error(msg string) {
	w.Status("❌", msg)
}

// Errorf is Error with Sprintf-style formatting.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Code writes content as an indented block, blank-line padded on both sides.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline writes a single blank line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Progress redraws a single in-place progress line via carriage return,
// emitting a trailing newline once current reaches total.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		return
	}

	pct := float64(current) / float64(total) * 100
	bar := renderProgressBar(current, total, 30)
	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", bar, pct, msg)

	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

// ProgressDone terminates an in-place Progress line with a newline.
func (w *Writer) ProgressDone() {
	_, _ = fmt.Fprintln(w.out)
}

// renderProgressBar renders a filled/empty block bar width characters wide.
func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}

	pct := float64(current) / float64(total)
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
