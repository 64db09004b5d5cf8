// Package ui prints styled progress lines for the command-line tools.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	titleStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// Printer writes status lines to Out. Quiet suppresses everything except
// failures and warnings marked as forced.
type Printer struct {
	Out   io.Writer
	Quiet bool
}

// New returns a Printer writing to out.
func New(out io.Writer) *Printer {
	return &Printer{Out: out}
}

func (p *Printer) line(force bool, marker lipgloss.Style, glyph, format string, args ...any) {
	if p.Quiet && !force {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if glyph == "" {
		fmt.Fprintln(p.Out, msg)
		return
	}
	fmt.Fprintf(p.Out, "%s %s\n", marker.Render(glyph), msg)
}

func (p *Printer) Success(format string, args ...any) {
	p.line(false, successStyle, "✓", format, args...)
}

func (p *Printer) Warn(format string, args ...any) {
	p.line(true, warnStyle, "!", format, args...)
}

func (p *Printer) Fail(format string, args ...any) {
	p.line(true, failStyle, "✗", format, args...)
}

func (p *Printer) Info(format string, args ...any) {
	p.line(false, infoStyle, "•", format, args...)
}

// Plain prints an unmarked line, indented by the caller as needed.
func (p *Printer) Plain(format string, args ...any) {
	p.line(false, lipgloss.Style{}, "", format, args...)
}

// Hint prints an unmarked line even in quiet mode. Used for install and
// login instructions that accompany a failure.
func (p *Printer) Hint(format string, args ...any) {
	p.line(true, lipgloss.Style{}, "", "  %s", dimStyle.Render(fmt.Sprintf(format, args...)))
}

// Section prints a bold title underlined with dashes.
func (p *Printer) Section(title string) {
	if p.Quiet {
		return
	}
	fmt.Fprintln(p.Out, titleStyle.Render(title))
	fmt.Fprintln(p.Out, strings.Repeat("-", lipgloss.Width(title)))
}

// Blank prints an empty line.
func (p *Printer) Blank() {
	if p.Quiet {
		return
	}
	fmt.Fprintln(p.Out)
}
