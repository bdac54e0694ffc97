// Package output prints user-facing status messages for flowcrafter.
//
// [Printer] styles messages with lipgloss. Styling adapts to the writer: when
// it is not a terminal, messages are printed as plain text, which keeps test
// output stable. Composed documents are written verbatim via
// [Printer.Document].
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes styled messages to a writer.
type Printer struct {
	out io.Writer

	success  lipgloss.Style
	failure  lipgloss.Style
	muted    lipgloss.Style
	emphasis lipgloss.Style
}

// NewPrinter returns a [Printer] writing to stdout.
func NewPrinter() *Printer {
	return NewPrinterWithWriter(os.Stdout)
}

// NewPrinterWithWriter returns a [Printer] writing to w.
func NewPrinterWithWriter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		out:      w,
		success:  r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		failure:  r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		muted:    r.NewStyle().Foreground(lipgloss.Color("8")),
		emphasis: r.NewStyle().Bold(true),
	}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Success prints a success message.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintf(p.out, "%s %s\n", p.success.Render("✓"), fmt.Sprintf(format, args...))
}

// Error prints err as a failure.
func (p *Printer) Error(err error) {
	fmt.Fprintf(p.out, "%s %s\n", p.failure.Render("✗ Error:"), err.Error())
}

// Info prints a neutral message.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.out, "%s\n", p.muted.Render(fmt.Sprintf(format, args...)))
}

// Progress prints "[index/total] name", with index counting from 1.
func (p *Printer) Progress(index, total int, name string) {
	fmt.Fprintf(p.out, "%s %s\n", p.muted.Render(fmt.Sprintf("[%d/%d]", index, total)), p.emphasis.Render(name))
}

// Document writes text verbatim.
func (p *Printer) Document(text string) {
	io.WriteString(p.out, text)
}
