package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRead    Phase = "read"    // PE and metadata table parsing
	PhaseResolve Phase = "resolve" // reference assembly lookup
	PhaseLoad    Phase = "load"    // load-only universe construction
	PhaseWalk    Phase = "walk"    // member enumeration and attribute matching
	PhaseRender  Phase = "render"  // output rendering
	PhaseConfig  Phase = "config"  // environment configuration
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound              Kind = "not_found"
	KindMalformedBinary       Kind = "malformed_binary"
	KindResolutionDegraded    Kind = "resolution_degraded"
	KindLoadFailed            Kind = "load_failed"
	KindAttributeUnmatched    Kind = "attribute_unmatched"
	KindDescriptionUnresolved Kind = "description_unresolved"
	KindInvalidInput          Kind = "invalid_input"
	KindUnsupported           Kind = "unsupported"
)

// Sentinels for errors.Is matching by kind regardless of phase.
var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrMalformedBinary = &Error{Kind: KindMalformedBinary}
	ErrLoadFailed      = &Error{Kind: KindLoadFailed}
)

// Error is the structured error type used throughout the module
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Path   string
	Table  string
	Detail string
	Offset int64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}

	if e.Table != "" {
		b.WriteString(" in ")
		b.WriteString(e.Table)
		if e.Offset > 0 {
			fmt.Fprintf(&b, " at 0x%x", e.Offset)
		}
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a phase matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the file path
func (b *Builder) Path(path string) *Builder {
	b.err.Path = path
	return b
}

// Table sets the metadata table, heap or blob being decoded
func (b *Builder) Table(name string) *Builder {
	b.err.Table = name
	return b
}

// Offset sets the byte offset of the failure
func (b *Builder) Offset(off int64) *Builder {
	b.err.Offset = off
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotFound creates a not-found error for a missing file
func NotFound(phase Phase, path string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Path:   path,
		Detail: "file does not exist",
	}
}

// Malformed creates a malformed binary error
func Malformed(table string, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseRead,
		Kind:   KindMalformedBinary,
		Table:  table,
		Detail: detail,
		Cause:  cause,
	}
}

// LoadFailed wraps a failure while constructing or walking the universe
func LoadFailed(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLoadFailed,
		Path:   path,
		Detail: "cannot analyze module",
		Cause:  cause,
	}
}

// Degraded creates a non-fatal resolution warning
func Degraded(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindResolutionDegraded,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// WithPath returns a copy of err carrying path when err is an *Error without one.
func WithPath(err error, path string) error {
	e, ok := err.(*Error)
	if !ok || e.Path != "" {
		return err
	}
	cp := *e
	cp.Path = path
	return &cp
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
