package runner

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/philjestin/philfmt/internal/engine"
)

// fakeEngine lowercases its input. Markers in the text script failures:
// SYNTAX gives a parse error, INVALID a validation error, PANIC a panic,
// UNSTABLE output that changes on every pass, and SEMANTIC an AST that the
// formatted text does not share.
type fakeEngine struct {
	mu    sync.Mutex
	paths []string
	// onFormat runs before every Format call.
	onFormat func(opts engine.Options)
}

func (f *fakeEngine) formatted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func (f *fakeEngine) Format(_ context.Context, text string, opts engine.Options) (string, error) {
	f.mu.Lock()
	f.paths = append(f.paths, opts.Filepath)
	hook := f.onFormat
	f.mu.Unlock()
	if hook != nil {
		hook(opts)
	}
	switch {
	case strings.Contains(text, "SYNTAX"):
		return "", &engine.ParseError{Message: "Unexpected token", Line: 1, Column: 3}
	case strings.Contains(text, "INVALID"):
		return "", &engine.ValidationError{Err: errors.New("bad option")}
	case strings.Contains(text, "PANIC"):
		panic("boom")
	case strings.Contains(strings.ToLower(text), "unstable"):
		return strings.ToLower(text) + "!", nil
	}
	return strings.ToLower(text), nil
}

func (f *fakeEngine) FormatWithCursor(ctx context.Context, text string, opts engine.Options) (engine.Result, error) {
	out, err := f.Format(ctx, text, opts)
	if err != nil {
		return engine.Result{CursorOffset: -1}, err
	}
	return engine.Result{Formatted: out, CursorOffset: opts.CursorOffset}, nil
}

func (f *fakeEngine) Check(ctx context.Context, text string, opts engine.Options) (bool, error) {
	out, err := f.Format(ctx, text, opts)
	if err != nil {
		return false, err
	}
	return out == text, nil
}

func (f *fakeEngine) ParseDebugTree(ctx context.Context, text string, opts engine.Options) (*engine.Tree, error) {
	return engine.NewBuiltin().ParseDebugTree(ctx, text, opts)
}

func (f *fakeEngine) PrintDoc(ctx context.Context, tree *engine.Tree, opts engine.Options) (*engine.Doc, error) {
	return engine.NewBuiltin().PrintDoc(ctx, tree, opts)
}

func (f *fakeEngine) RenderDoc(doc *engine.Doc) string {
	return engine.RenderDoc(doc)
}

func (f *fakeEngine) NormalizedAST(_ context.Context, text string, _ engine.Options) (string, error) {
	if strings.Contains(text, "SEMANTIC") {
		return text, nil
	}
	return strings.ToLower(text), nil
}
