// Package runner drives a formatting engine over files: it expands patterns,
// decides per file whether to write, report or print, classifies failures
// and accumulates the process exit status.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	logging "gopkg.in/op/go-logging.v1"

	"github.com/philjestin/philfmt/internal/engine"
	"github.com/philjestin/philfmt/internal/expand"
)

var log = logging.MustGetLogger("runner")

// Options control a run. They do not change once the run starts.
type Options struct {
	Patterns          []string
	Write             bool
	ListDifferent     bool
	IgnoreNodeModules bool
	Stdin             bool
	StdinFilepath     string
	DebugCheck        bool
	DebugPrintDoc     bool
	// Jobs is the number of files formatted concurrently; values below 1 mean 1.
	Jobs int
}

// ConflictError reports two flags that cannot be combined.
type ConflictError struct {
	A, B string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("Cannot use --%s and --%s together.", e.A, e.B)
}

// Validate rejects mutually exclusive modes.
func (o Options) Validate() error {
	switch {
	case o.Write && o.DebugCheck:
		return &ConflictError{"write", "debug-check"}
	case o.Write && o.DebugPrintDoc:
		return &ConflictError{"write", "debug-print-doc"}
	case o.DebugCheck && o.DebugPrintDoc:
		return &ConflictError{"debug-check", "debug-print-doc"}
	}
	return nil
}

// Mode returns the adapter mode these options select.
func (o Options) Mode() Mode {
	switch {
	case o.DebugCheck:
		return ModeDebugCheck
	case o.DebugPrintDoc:
		return ModeDebugPrintDoc
	default:
		return ModePlain
	}
}

// Runner executes one run. Create it with New.
type Runner struct {
	eng     engine.Engine
	opts    Options
	fmtOpts engine.Options
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	now     func() time.Time
	state   ExitState

	// watchReady is called once the watcher observes every base directory.
	watchReady func()
}

// Option configures a Runner.
type Option func(*Runner)

// WithStdin sets the stream read in stdin mode.
func WithStdin(r io.Reader) Option {
	return func(rn *Runner) { rn.stdin = r }
}

// WithStdout sets where formatted output and file lines go.
func WithStdout(w io.Writer) Option {
	return func(rn *Runner) { rn.stdout = w }
}

// WithStderr sets where diagnostics go.
func WithStderr(w io.Writer) Option {
	return func(rn *Runner) { rn.stderr = w }
}

// WithClock replaces time.Now for elapsed-time reporting.
func WithClock(now func() time.Time) Option {
	return func(rn *Runner) { rn.now = now }
}

// New returns a Runner for eng. fmtOpts are passed to the engine with the
// file path filled in per file.
func New(eng engine.Engine, opts Options, fmtOpts engine.Options, options ...Option) *Runner {
	r := &Runner{
		eng:     eng,
		opts:    opts,
		fmtOpts: fmtOpts,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		now:     time.Now,
	}
	for _, o := range options {
		o(r)
	}
	if r.opts.Jobs < 1 {
		r.opts.Jobs = 1
	}
	if r.opts.Stdin && r.opts.StdinFilepath != "" {
		r.fmtOpts.Filepath = r.opts.StdinFilepath
	}
	return r
}

func (r *Runner) processor(state *ExitState, p *printer) *processor {
	return &processor{
		adapter: adapter{eng: r.eng, mode: r.opts.Mode()},
		eng:     r.eng,
		opts:    r.opts,
		fmtOpts: r.fmtOpts,
		state:   state,
		printer: p,
		now:     r.now,
	}
}

// Run processes stdin or every file matched by the patterns and returns the
// process exit code.
func (r *Runner) Run(ctx context.Context) int {
	if err := r.opts.Validate(); err != nil {
		fmt.Fprintln(r.stderr, err)
		return ExitFatal
	}
	pr := newPrinter(r.stdout, r.stderr)
	p := r.processor(&r.state, pr)

	if r.opts.Stdin {
		return r.runStdin(ctx, p)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	err := expand.Expand(ctx, r.opts.Patterns, expand.Options{IgnoreNodeModules: r.opts.IgnoreNodeModules},
		func(m expand.Match) error {
			if m.Err != nil {
				pr.errorln(m.Err.Error())
				r.state.Escalate(Failed)
				return nil
			}
			return r.processAll(ctx, p, m.Paths)
		})
	return r.exitCode(err)
}

func (r *Runner) exitCode(err error) int {
	if err == nil {
		return int(r.state.Status())
	}
	if Classify(err) == KindValidation {
		return ExitFatal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Notice("run interrupted: %v", err)
		r.state.Escalate(Failed)
		return int(r.state.Status())
	}
	fmt.Fprintln(r.stderr, err)
	r.state.Escalate(Failed)
	return int(r.state.Status())
}

// processAll formats paths, sequentially or with up to Jobs workers.
// A validation error stops files that have not started yet.
func (r *Runner) processAll(ctx context.Context, p *processor, paths []string) error {
	if r.opts.Jobs == 1 || len(paths) == 1 {
		for _, path := range paths {
			if _, err := p.processFile(ctx, path); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Jobs)
	for _, path := range paths {
		path := path
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			_, err := p.processFile(gctx, path)
			return err
		})
	}
	return g.Wait()
}

func (r *Runner) runStdin(ctx context.Context, p *processor) int {
	type readResult struct {
		data []byte
		err  error
	}
	ch := make(chan readResult, 1)
	go func() {
		data, err := io.ReadAll(r.stdin)
		ch <- readResult{data, err}
	}()

	var input string
	select {
	case <-ctx.Done():
		return r.exitCode(ctx.Err())
	case res := <-ch:
		if res.err != nil {
			fmt.Fprintln(r.stderr, Describe("stdin", &IOError{Op: "read", Path: "stdin", Err: res.err}))
			r.state.Escalate(Failed)
			return int(r.state.Status())
		}
		input = string(res.data)
	}
	_, err := p.processStdin(ctx, input)
	return r.exitCode(err)
}
