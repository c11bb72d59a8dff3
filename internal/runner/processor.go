package runner

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/philjestin/philfmt/internal/engine"
)

// processor handles one file at a time. It never returns per-file failures;
// those are reported and folded into state. The only error it returns is a
// validation error, which ends the run.
type processor struct {
	adapter adapter
	eng     engine.Engine
	opts    Options
	fmtOpts engine.Options
	state   *ExitState
	printer *printer
	now     func() time.Time
	// onWrite is called with every file the processor rewrites.
	onWrite func(path, content string)
}

// processFile formats path according to the run options.
func (p *processor) processFile(ctx context.Context, path string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Skipped, err
	}
	rep := &report{}
	defer p.printer.flush(rep)

	log.Debug("processing %s", path)
	raw, err := os.ReadFile(path)
	if err != nil {
		return ReadError, p.fail(rep, path, &IOError{Op: "read", Path: path, Err: err})
	}
	input := string(raw)
	opts := p.fmtOpts.WithFilepath(path)

	if p.opts.ListDifferent {
		ok, err := p.check(ctx, input, opts)
		if err != nil {
			return FormatError, p.fail(rep, path, err)
		}
		if !ok {
			if !p.opts.Write {
				rep.printf("%s\n", path)
			}
			p.state.Escalate(Different)
		}
	}

	start := p.now()
	res, err := p.format(ctx, input, opts)
	if err != nil {
		return FormatError, p.fail(rep, path, err)
	}
	output := res.Formatted

	switch {
	case p.opts.Write:
		elapsed := p.now().Sub(start).Milliseconds()
		if output == input {
			// Leave mtimes alone so downstream caches stay valid.
			if !p.opts.ListDifferent {
				rep.printf("%s\n", p.printer.grey(formatElapsed(path, elapsed)))
			}
			return Unchanged, nil
		}
		if p.opts.ListDifferent {
			rep.printf("%s\n", path)
		} else {
			rep.printf("%s\n", formatElapsed(path, elapsed))
		}
		if err := writeFile(path, output); err != nil {
			return WriteError, p.fail(rep, path, &IOError{Op: "write", Path: path, Err: err})
		}
		if p.onWrite != nil {
			p.onWrite(path, output)
		}
		return Written, nil
	case p.opts.DebugCheck:
		if output == "" {
			p.state.Escalate(Failed)
			return FormatError, nil
		}
		rep.printf("%s\n", output)
		return Checked, nil
	case p.opts.ListDifferent:
		if output != input {
			return Reported, nil
		}
		return Unchanged, nil
	default:
		p.emit(rep, res)
		return Emitted, nil
	}
}

// processStdin formats input read from stdin and emits the result.
func (p *processor) processStdin(ctx context.Context, input string) (Outcome, error) {
	rep := &report{}
	defer p.printer.flush(rep)

	res, err := p.format(ctx, input, p.fmtOpts)
	if err != nil {
		return FormatError, p.fail(rep, "stdin", err)
	}
	if p.opts.DebugCheck {
		rep.printf("%s\n", res.Formatted)
		return Checked, nil
	}
	p.emit(rep, res)
	return Emitted, nil
}

func (p *processor) emit(rep *report, res engine.Result) {
	rep.printf("%s", res.Formatted)
	if p.fmtOpts.CursorOffset >= 0 {
		rep.errorf("%d\n", res.CursorOffset)
	}
}

// fail reports err against label. It returns err only when it must end the run.
func (p *processor) fail(rep *report, label string, err error) error {
	rep.errorf("%s\n", Describe(label, err))
	if Classify(err) == KindValidation {
		return err
	}
	p.state.Escalate(Failed)
	return nil
}

func (p *processor) format(ctx context.Context, text string, opts engine.Options) (res engine.Result, err error) {
	defer recoverUnexpected(&err)
	return p.adapter.format(ctx, text, opts)
}

func (p *processor) check(ctx context.Context, text string, opts engine.Options) (ok bool, err error) {
	defer recoverUnexpected(&err)
	return p.eng.Check(ctx, text, opts)
}

func recoverUnexpected(err *error) {
	if r := recover(); r != nil {
		*err = &UnexpectedError{Value: r, Stack: debug.Stack()}
	}
}

func formatElapsed(path string, ms int64) string {
	return fmt.Sprintf("%s %dms", path, ms)
}

// writeFile overwrites path, keeping its permission bits.
func writeFile(path, content string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, []byte(content), mode)
}
