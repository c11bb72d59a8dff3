package engine

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Tree is a parsed source file.
type Tree struct {
	Language Language
	Source   []byte
	tree     *sitter.Tree
	root     *sitter.Node
}

// String returns the tree as an S-expression.
func (t *Tree) String() string {
	if t == nil || t.root == nil {
		return ""
	}
	return t.root.String()
}

// Builtin is the tree-sitter backed layout engine. It is stateless; a fresh
// parser is created per call since tree-sitter parsers are not goroutine safe.
type Builtin struct{}

// NewBuiltin returns the built-in engine.
func NewBuiltin() *Builtin {
	return &Builtin{}
}

func (b *Builtin) parse(ctx context.Context, src []byte, opts Options) (*Tree, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	lang := opts.Language()
	parser := sitter.NewParser()
	parser.SetLanguage(lang.grammar())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", lang, err)
	}
	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(root, src)
	}
	log.Debug("parsed %d bytes as %s", len(src), lang)
	return &Tree{Language: lang, Source: src, tree: tree, root: root}, nil
}

// Format implements Engine.
func (b *Builtin) Format(ctx context.Context, text string, opts Options) (string, error) {
	res, err := b.FormatWithCursor(ctx, text, opts)
	return res.Formatted, err
}

// FormatWithCursor implements Engine.
func (b *Builtin) FormatWithCursor(ctx context.Context, text string, opts Options) (Result, error) {
	src := []byte(text)
	t, err := b.parse(ctx, src, opts)
	if err != nil {
		return Result{CursorOffset: -1}, err
	}
	out, cursor := newLayout(src, t.root, opts).run(opts.CursorOffset)
	return Result{Formatted: out, CursorOffset: cursor}, nil
}

// Check implements Engine.
func (b *Builtin) Check(ctx context.Context, text string, opts Options) (bool, error) {
	out, err := b.Format(ctx, text, opts)
	if err != nil {
		return false, err
	}
	return out == text, nil
}

// ParseDebugTree implements Engine.
func (b *Builtin) ParseDebugTree(ctx context.Context, text string, opts Options) (*Tree, error) {
	return b.parse(ctx, []byte(text), opts)
}

// PrintDoc implements Engine.
func (b *Builtin) PrintDoc(ctx context.Context, tree *Tree, opts Options) (*Doc, error) {
	if tree == nil || tree.root == nil {
		return nil, fmt.Errorf("print doc: no tree")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	out, _ := newLayout(tree.Source, tree.root, opts).run(-1)
	return docFromText(out, opts.TabWidth), nil
}

// RenderDoc implements Engine.
func (b *Builtin) RenderDoc(doc *Doc) string {
	return RenderDoc(doc)
}

// NormalizedAST implements Engine.
func (b *Builtin) NormalizedAST(ctx context.Context, text string, opts Options) (string, error) {
	src := []byte(text)
	t, err := b.parse(ctx, src, opts)
	if err != nil {
		return "", err
	}
	return normalizeAST(t.root, src), nil
}

// syntaxError locates the first ERROR or MISSING node under root.
func syntaxError(root *sitter.Node, src []byte) *ParseError {
	n := firstError(root)
	if n == nil {
		n = root
	}
	msg := "Unexpected token"
	if n.IsMissing() {
		msg = fmt.Sprintf("Missing %q", n.Type())
	} else if tok := leadingToken(src, n); tok != "" {
		msg = fmt.Sprintf("Unexpected token %q", tok)
	}
	p := n.StartPoint()
	return &ParseError{
		Message: msg,
		Line:    int(p.Row) + 1,
		Column:  int(p.Column) + 1,
		Offset:  int(n.StartByte()),
	}
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.HasError() || c.IsMissing() {
			if e := firstError(c); e != nil {
				return e
			}
		}
	}
	return nil
}

func leadingToken(src []byte, n *sitter.Node) string {
	s := strings.TrimSpace(n.Content(src))
	if i := strings.IndexAny(s, " \t\r\n"); i >= 0 {
		s = s[:i]
	}
	if len(s) > 20 {
		s = s[:20]
	}
	return s
}
