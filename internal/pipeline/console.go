package pipeline

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Console prints the user-facing build progress lines. Colors are enabled
// only when the writer is a terminal.
type Console struct {
	w     io.Writer
	color bool
}

// NewConsole returns a Console writing to w. A nil w discards output.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = io.Discard
	}
	c := &Console{w: w}
	if f, ok := w.(*os.File); ok {
		c.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return c
}

func (c *Console) paint(code, text string) string {
	if !c.color {
		return text
	}
	return "\033[" + code + "m" + text + "\033[0m"
}

// Step announces a phase.
func (c *Console) Step(format string, args ...any) {
	_, _ = fmt.Fprintf(c.w, format+"\n", args...)
}

func (c *Console) Success(format string, args ...any) {
	_, _ = fmt.Fprintf(c.w, "  %s%s\n", c.paint("32", "✓ "), fmt.Sprintf(format, args...))
}

func (c *Console) Warning(format string, args ...any) {
	_, _ = fmt.Fprintf(c.w, "  %s%s\n", c.paint("33", "⚠ "), fmt.Sprintf(format, args...))
}

func (c *Console) Failure(format string, args ...any) {
	_, _ = fmt.Fprintf(c.w, "%s%s\n", c.paint("31", "✗ "), fmt.Sprintf(format, args...))
}
