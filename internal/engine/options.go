package engine

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	tsx "github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Options configure a single formatting call. They are passed through the
// driver untouched apart from Filepath, which is overridden per file.
type Options struct {
	PrintWidth   int    `mapstructure:"printWidth" json:"printWidth" yaml:"printWidth"`
	TabWidth     int    `mapstructure:"tabWidth" json:"tabWidth" yaml:"tabWidth"`
	UseTabs      bool   `mapstructure:"useTabs" json:"useTabs" yaml:"useTabs"`
	SingleQuote  bool   `mapstructure:"singleQuote" json:"singleQuote" yaml:"singleQuote"`
	Parser       string `mapstructure:"parser" json:"parser" yaml:"parser"`
	Filepath     string `mapstructure:"filepath" json:"filepath" yaml:"filepath"`
	CursorOffset int    `mapstructure:"cursorOffset" json:"cursorOffset" yaml:"cursorOffset"`
	RangeStart   int    `mapstructure:"rangeStart" json:"rangeStart" yaml:"rangeStart"`
	// RangeEnd is exclusive; -1 means end of input.
	RangeEnd int `mapstructure:"rangeEnd" json:"rangeEnd" yaml:"rangeEnd"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		PrintWidth:   80,
		TabWidth:     2,
		CursorOffset: -1,
		RangeEnd:     -1,
	}
}

// WithFilepath returns a copy of o for the given file.
func (o Options) WithFilepath(path string) Options {
	o.Filepath = path
	return o
}

// Language is a grammar the built-in engine can parse.
type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
)

// parsers maps every accepted --parser value to its grammar.
var parsers = map[string]Language{
	"babel":      JavaScript,
	"babylon":    JavaScript,
	"flow":       JavaScript,
	"javascript": JavaScript,
	"typescript": TypeScript,
	"tsx":        TSX,
}

func (l Language) grammar() *sitter.Language {
	switch l {
	case TypeScript:
		return ts.GetLanguage()
	case TSX:
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// Language picks the grammar for these options: an explicit parser wins,
// otherwise the file extension decides, otherwise JavaScript.
func (o Options) Language() Language {
	if l, ok := parsers[o.Parser]; ok {
		return l
	}
	switch strings.ToLower(filepath.Ext(o.Filepath)) {
	case ".ts", ".mts", ".cts":
		return TypeScript
	case ".tsx":
		return TSX
	default:
		return JavaScript
	}
}

// Validate checks every option and reports all problems at once.
func (o Options) Validate() error {
	var merr *multierror.Error
	if o.PrintWidth <= 0 {
		merr = multierror.Append(merr, fmt.Errorf("printWidth must be a positive integer, but received %d", o.PrintWidth))
	}
	if o.TabWidth <= 0 {
		merr = multierror.Append(merr, fmt.Errorf("tabWidth must be a positive integer, but received %d", o.TabWidth))
	}
	if o.Parser != "" {
		if _, ok := parsers[o.Parser]; !ok {
			merr = multierror.Append(merr, fmt.Errorf("Invalid parser value. Expected one of %s, but received %q", parserNames(), o.Parser))
		}
	}
	if o.CursorOffset < -1 {
		merr = multierror.Append(merr, fmt.Errorf("cursorOffset must be -1 or a non-negative integer, but received %d", o.CursorOffset))
	}
	if o.RangeStart < 0 {
		merr = multierror.Append(merr, fmt.Errorf("rangeStart must be non-negative, but received %d", o.RangeStart))
	}
	if o.RangeEnd >= 0 && o.RangeEnd < o.RangeStart {
		merr = multierror.Append(merr, fmt.Errorf("rangeEnd (%d) must not be before rangeStart (%d)", o.RangeEnd, o.RangeStart))
	}
	if err := merr.ErrorOrNil(); err != nil {
		merr.ErrorFormat = joinErrors
		return &ValidationError{Err: merr}
	}
	return nil
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func parserNames() string {
	names := make([]string, 0, len(parsers))
	for name := range parsers {
		names = append(names, fmt.Sprintf("%q", name))
	}
	sort.Strings(names)
	return "[" + strings.Join(names, ", ") + "]"
}
