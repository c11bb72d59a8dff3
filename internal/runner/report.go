package runner

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// report collects everything one file prints so it can be flushed as a unit.
type report struct {
	out bytes.Buffer
	err bytes.Buffer
}

func (r *report) printf(format string, args ...any) {
	fmt.Fprintf(&r.out, format, args...)
}

func (r *report) errorf(format string, args ...any) {
	fmt.Fprintf(&r.err, format, args...)
}

// printer serialises reports onto the run's output streams.
type printer struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
	muted  lipgloss.Style
}

func newPrinter(stdout, stderr io.Writer) *printer {
	r := lipgloss.NewRenderer(stdout)
	return &printer{
		stdout: stdout,
		stderr: stderr,
		muted:  r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// grey renders s in the muted style when stdout is a terminal.
func (p *printer) grey(s string) string {
	return p.muted.Render(s)
}

func (p *printer) flush(r *report) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r.out.Len() > 0 {
		_, _ = p.stdout.Write(r.out.Bytes())
	}
	if r.err.Len() > 0 {
		_, _ = p.stderr.Write(r.err.Bytes())
	}
}

// errorln writes a single diagnostic line outside any file's report.
func (p *printer) errorln(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.stderr, s)
}
