package engine

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"
)

// filepathPlaceholder in a command is replaced by the file being formatted.
const filepathPlaceholder = "{filepath}"

// reSyntaxError matches the location suffix most JS formatters print for
// syntax errors, e.g. "[error] stdin: SyntaxError: Unexpected token (1:5)".
var reSyntaxError = regexp.MustCompile(`(?m)SyntaxError: (.*?) \((\d+):(\d+)\)`)

// Exec formats by piping text through an external command. Parsing for the
// debug entry points is delegated to the built-in engine.
type Exec struct {
	argv   []string
	parser *Builtin
}

// NewExec splits command into arguments; "{filepath}" in any argument is
// substituted per call.
func NewExec(command string) (*Exec, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid engine command %q", command)
	}
	if len(argv) == 0 {
		return nil, errors.New("empty engine command")
	}
	return &Exec{argv: argv, parser: NewBuiltin()}, nil
}

// Format implements Engine.
func (e *Exec) Format(ctx context.Context, text string, opts Options) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	args := make([]string, len(e.argv))
	for i, a := range e.argv {
		args[i] = strings.ReplaceAll(a, filepathPlaceholder, opts.Filepath)
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	log.Debug("running %s", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if pe := parseErrorFrom(stderr.String()); pe != nil {
			return "", pe
		}
		return "", errors.Wrapf(err, "%s: %s", args[0], strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// FormatWithCursor implements Engine. An external command cannot report
// where the cursor went, so it is kept in place, clamped to the output.
func (e *Exec) FormatWithCursor(ctx context.Context, text string, opts Options) (Result, error) {
	out, err := e.Format(ctx, text, opts)
	if err != nil {
		return Result{CursorOffset: -1}, err
	}
	return Result{Formatted: out, CursorOffset: min(opts.CursorOffset, len(out))}, nil
}

// Check implements Engine.
func (e *Exec) Check(ctx context.Context, text string, opts Options) (bool, error) {
	out, err := e.Format(ctx, text, opts)
	if err != nil {
		return false, err
	}
	return out == text, nil
}

// ParseDebugTree implements Engine.
func (e *Exec) ParseDebugTree(ctx context.Context, text string, opts Options) (*Tree, error) {
	return e.parser.ParseDebugTree(ctx, text, opts)
}

// PrintDoc implements Engine using the command's output as the layout.
func (e *Exec) PrintDoc(ctx context.Context, tree *Tree, opts Options) (*Doc, error) {
	if tree == nil {
		return nil, errors.New("print doc: no tree")
	}
	out, err := e.Format(ctx, string(tree.Source), opts)
	if err != nil {
		return nil, err
	}
	return docFromText(out, opts.TabWidth), nil
}

// RenderDoc implements Engine.
func (e *Exec) RenderDoc(doc *Doc) string {
	return RenderDoc(doc)
}

// NormalizedAST implements Engine.
func (e *Exec) NormalizedAST(ctx context.Context, text string, opts Options) (string, error) {
	return e.parser.NormalizedAST(ctx, text, opts)
}

func parseErrorFrom(stderr string) *ParseError {
	m := reSyntaxError.FindStringSubmatch(stderr)
	if m == nil {
		return nil
	}
	line, _ := strconv.Atoi(m[2])
	col, _ := strconv.Atoi(m[3])
	return &ParseError{Message: m[1], Line: line, Column: col}
}
