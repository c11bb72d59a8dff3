package runner

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"

	"github.com/philjestin/philfmt/internal/engine"
)

// Mode selects how the adapter drives the engine.
type Mode int

const (
	ModePlain Mode = iota
	ModeDebugPrintDoc
	ModeDebugCheck
)

// maxDiffInput bounds the size of texts rendered as a diff.
const maxDiffInput = 2 << 20

const (
	msgUnstable  = "philfmt(input) !== philfmt(philfmt(input))"
	msgASTChange = "ast(input) !== ast(philfmt(input))"
)

type adapter struct {
	eng  engine.Engine
	mode Mode
}

func (a adapter) format(ctx context.Context, text string, opts engine.Options) (engine.Result, error) {
	switch a.mode {
	case ModeDebugPrintDoc:
		tree, err := a.eng.ParseDebugTree(ctx, text, opts)
		if err != nil {
			return engine.Result{}, err
		}
		doc, err := a.eng.PrintDoc(ctx, tree, opts)
		if err != nil {
			return engine.Result{}, err
		}
		return engine.Result{Formatted: a.eng.RenderDoc(doc), CursorOffset: -1}, nil
	case ModeDebugCheck:
		return a.check(ctx, text, opts)
	default:
		return a.eng.FormatWithCursor(ctx, text, opts)
	}
}

func (a adapter) check(ctx context.Context, text string, opts engine.Options) (engine.Result, error) {
	pp, err := a.eng.Format(ctx, text, opts)
	if err != nil {
		return engine.Result{}, err
	}
	pppp, err := a.eng.Format(ctx, pp, opts)
	if err != nil {
		return engine.Result{}, err
	}
	if pp != pppp {
		return engine.Result{}, &DebugCheckError{Message: msgUnstable, Diff: textDiff("once", "twice", pp, pppp)}
	}

	ast, err := a.eng.NormalizedAST(ctx, text, opts)
	if err != nil {
		return engine.Result{}, err
	}
	past, err := a.eng.NormalizedAST(ctx, pp, opts)
	if err != nil {
		return engine.Result{}, err
	}
	if ast != past {
		return engine.Result{}, &DebugCheckError{
			Message: msgASTChange,
			Diff:    textDiff("ast(input)", "ast(output)", ast, past) + "\n" + textDiff("input", "output", text, pp),
		}
	}

	label := opts.Filepath
	if label == "" {
		label = "(stdin)"
	}
	return engine.Result{Formatted: label, CursorOffset: -1}, nil
}

// textDiff renders a unified diff of a and b followed by a change summary.
func textDiff(from, to, a, b string) string {
	if size := max(len(a), len(b)); size > maxDiffInput {
		return fmt.Sprintf("diff too large (%s)", humanize.IBytes(uint64(size)))
	}
	ud, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: from,
		ToFile:   to,
		Context:  3,
	})
	if err != nil {
		return err.Error()
	}
	if ud == "" {
		return ""
	}
	fd, err := diff.ParseFileDiff([]byte(ud))
	if err != nil {
		log.Debug("unable to summarise diff: %v", err)
		return ud
	}
	st := fd.Stat()
	return fmt.Sprintf("%s%d added, %d changed, %d deleted", ud, st.Added, st.Changed, st.Deleted)
}
