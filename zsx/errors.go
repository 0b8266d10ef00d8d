package zsx

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies engine failures.
type ErrorKind int

const (
	// ConfigurationError reports a malformed directive on the page.
	ConfigurationError ErrorKind = iota + 1
	// ResolutionError reports a selector that cannot be paired with the live tree.
	ResolutionError
	// ResponseError reports a server response the engine cannot swap.
	ResponseError
	// ElementTypeError reports an element that cannot act as a trigger.
	ElementTypeError
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigurationError:
		return "configuration error"
	case ResolutionError:
		return "resolution error"
	case ResponseError:
		return "response error"
	case ElementTypeError:
		return "element type error"
	default:
		return "error"
	}
}

var (
	ErrEmptySelector       = errors.New("selector is empty")
	ErrCompoundSelector    = errors.New("selector contains a comma")
	ErrMissingSwapSelector = errors.New("no zx-swap selector")
	ErrNoMatchingElement   = errors.New("no matching element")
	ErrAmbiguousSelector   = errors.New("ambiguous selector")
	ErrFinalElementMissing = errors.New("swapped element not found")
	ErrBadStatus           = errors.New("unexpected response status")
	ErrNotTrigger          = errors.New("element is not a link or form")
	ErrSuperseded          = errors.New("navigation superseded")
)

// Error is the error type returned by engine operations.
type Error struct {
	Kind     ErrorKind
	Op       string
	Selector string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("zsx: ")
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.Status)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ze *Error
	return errors.As(err, &ze) && ze.Kind == kind
}

func configError(op, selector string, err error) error {
	return &Error{Kind: ConfigurationError, Op: op, Selector: selector, Err: err}
}

func ambiguousError(selector string) error {
	return &Error{
		Kind:     ResolutionError,
		Op:       "resolve",
		Selector: selector,
		Err: fmt.Errorf("%w: Multiple elements found with selector %q but no id found to disambiguate them.",
			ErrAmbiguousSelector, selector),
	}
}
