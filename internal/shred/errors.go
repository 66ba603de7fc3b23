package shred

import (
	"errors"
	"io/fs"
	"strings"

	"shred-sage/internal/fsops"
)

// Sentinel errors. ErrInvalidArgument and ErrNotFound are returned bare (or
// wrapped with %w) for precondition failures detected before any mutation.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrClosed          = errors.New("engine is closed")
)

// Kind classifies a failure that happened after validation.
type Kind uint8

const (
	KindErasure Kind = iota
	KindNotFound
	KindAccessDenied
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	default:
		return "erasure"
	}
}

// Error carries the path and operation of a failed shred step.
type Error struct {
	Kind Kind
	Op   string // rotate, erase, enumerate, remove
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) and errors.Is(err, ErrAccessDenied)
// match on Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrAccessDenied:
		return e.Kind == KindAccessDenied
	}
	return false
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// OpOf reports the operation of the first *Error in err's chain, or "".
func OpOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Op
	}
	return ""
}

// wrap envelopes err with op and path. Existing *Error values pass through.
func wrap(op, path, msg string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: classify(err), Op: op, Path: path, Msg: msg, Err: err}
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission), errors.Is(err, fsops.ErrLocked):
		return KindAccessDenied
	default:
		return KindErasure
	}
}
