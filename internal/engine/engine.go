// Package engine defines the contract between the CLI driver and a formatting
// engine, along with two implementations: a tree-sitter based layout engine
// for JavaScript/TypeScript and an adapter around an external formatter command.
package engine

import (
	"context"
	"errors"

	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("engine")

// ErrUnsupported is returned by engines for entry points they cannot serve.
var ErrUnsupported = errors.New("operation not supported by this engine")

// Result is what a single formatting call produces.
type Result struct {
	Formatted string
	// CursorOffset is the cursor position mapped into Formatted, or -1 when
	// no cursor was requested.
	CursorOffset int
}

// Engine is the formatter the driver orchestrates. Implementations must be
// safe for concurrent use.
type Engine interface {
	// Format returns text in canonical style.
	Format(ctx context.Context, text string, opts Options) (string, error)
	// FormatWithCursor is Format plus translation of opts.CursorOffset.
	FormatWithCursor(ctx context.Context, text string, opts Options) (Result, error)
	// Check reports whether text is already formatted.
	Check(ctx context.Context, text string, opts Options) (bool, error)
	// ParseDebugTree parses text without formatting it.
	ParseDebugTree(ctx context.Context, text string, opts Options) (*Tree, error)
	// PrintDoc turns a parsed tree into the intermediate layout document.
	PrintDoc(ctx context.Context, tree *Tree, opts Options) (*Doc, error)
	// RenderDoc renders a document in builder syntax.
	RenderDoc(doc *Doc) string
	// NormalizedAST renders the syntax tree of text with every purely
	// presentational detail removed, one node per line.
	NormalizedAST(ctx context.Context, text string, opts Options) (string, error)
}
