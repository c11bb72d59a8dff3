package runner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	pkgerrors "github.com/pkg/errors"

	"github.com/philjestin/philfmt/internal/engine"
)

// Kind is the class of a per-file failure.
type Kind int

const (
	KindUnexpected Kind = iota
	KindParse
	KindValidation
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	case KindIO:
		return "io"
	default:
		return "unexpected"
	}
}

// Classify decides which kind of failure err is.
func Classify(err error) Kind {
	var (
		ve *engine.ValidationError
		pe *engine.ParseError
		ie *IOError
	)
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &pe):
		return KindParse
	case errors.As(err, &ie):
		return KindIO
	default:
		return KindUnexpected
	}
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Describe renders err as the diagnostic printed for label. Validation errors
// are not tied to a file and carry no label.
func Describe(label string, err error) string {
	switch Classify(err) {
	case KindValidation:
		return err.Error()
	case KindParse:
		return fmt.Sprintf("%s: %v", label, err)
	case KindIO:
		var ie *IOError
		errors.As(err, &ie)
		return ie.Error()
	default:
		return fmt.Sprintf("%s: %s", label, detail(err))
	}
}

func detail(err error) string {
	var ue *UnexpectedError
	if errors.As(err, &ue) {
		var b strings.Builder
		if v, ok := ue.Value.(error); ok {
			b.WriteString(v.Error())
			b.WriteString("\n")
		} else if s, ok := ue.Value.(string); ok {
			b.WriteString(s)
			b.WriteString("\n")
		} else {
			// Some engines panic with arbitrary values.
			b.WriteString(dumper.Sdump(ue.Value))
		}
		b.Write(ue.Stack)
		return strings.TrimRight(b.String(), "\n")
	}
	var st stackTracer
	if errors.As(err, &st) {
		return fmt.Sprintf("%+v", err)
	}
	return err.Error()
}
