package docstore

import (
	"errors"
	"fmt"
)

// Kind classifies the error taxonomy from the store's failure semantics:
// validation errors are never retried without changing inputs, not-found is
// swallowed by [Store.Get]/[Store.Remove], read/write/list surface as-is,
// and so on.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindRead
	KindWrite
	KindRemove
	KindDirectory
	KindList
	KindFormat
	KindParse
	KindCanonicalization
	KindPathEscape
	KindSymlink
	KindIntegrity
	KindIndexCorrupt
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not-found"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindRemove:
		return "remove"
	case KindDirectory:
		return "directory"
	case KindList:
		return "list"
	case KindFormat:
		return "format"
	case KindParse:
		return "parse"
	case KindCanonicalization:
		return "canonicalization"
	case KindPathEscape:
		return "path-escape"
	case KindSymlink:
		return "symlink"
	case KindIntegrity:
		return "integrity"
	case KindIndexCorrupt:
		return "index-corrupt"
	default:
		return "unknown"
	}
}

// Sentinel errors. Use [errors.Is] to test for these; use [errors.As] with a
// *[Error] to recover the [Kind] and the (type, id) the failure occurred on.
var (
	ErrValidation        = errors.New("validation")
	ErrNotFound          = errors.New("not found")
	ErrPathEscape        = errors.New("path escapes store root")
	ErrSymlink           = errors.New("path traverses a symlink")
	ErrCycle             = errors.New("cyclic value")
	ErrIntegrity         = errors.New("content digest mismatch")
	ErrIndexCorrupt      = errors.New("index file is corrupt")
	ErrClosed            = errors.New("store is closed")
	ErrBadOption         = errors.New("invalid option")
	ErrLimitNotPositive  = errors.New("limit must be > 0")
	ErrSkipNegative      = errors.New("skip must be >= 0")
	ErrUnknownOperator   = errors.New("unknown filter operator")
	ErrFilterRequired    = errors.New("filter is required")
	ErrSlugClaimConflict = errors.New("slug already claimed")
)

// Error is the uniform error type returned by docstore's public API.
//
// It carries the failure [Kind] plus, where known, the (type, id) the
// operation concerned. The message format is "<cause> (type=T id=I)".
//
// Use [errors.As] to recover structured fields:
//
//	var dsErr *docstore.Error
//	if errors.As(err, &dsErr) {
//	    fmt.Println(dsErr.Kind, dsErr.Key)
//	}
type Error struct {
	Kind Kind
	Key  Key
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	cause := ""
	if e.Err != nil {
		cause = e.Err.Error()
	}

	suffix := e.suffix()
	if suffix == "" {
		return cause
	}

	if cause == "" {
		return suffix
	}

	return cause + " " + suffix
}

func (e *Error) suffix() string {
	if e.Key.Type == "" && e.Key.ID == "" {
		return ""
	}

	return fmt.Sprintf("(type=%s id=%s)", e.Key.Type, e.Key.ID)
}

// Unwrap allows [errors.Is] to see through to the sentinel cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

type errOpt func(*Error)

func withKey(k Key) errOpt {
	return func(e *Error) { e.Key = k }
}

func withKind(kind Kind) errOpt {
	return func(e *Error) { e.Kind = kind }
}

// withReason augments a sentinel error with a specific message, e.g.
// wrap(ErrValidation, withReason("id is empty")).
func withReason(reason string) errOpt {
	return func(e *Error) {
		e.Err = fmt.Errorf("%w: %s", e.Err, reason)
	}
}

// kindForSentinel infers the Kind from a well-known sentinel so call sites
// don't have to repeat withKind for the common case.
func kindForSentinel(err error) Kind {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrLimitNotPositive),
		errors.Is(err, ErrSkipNegative), errors.Is(err, ErrUnknownOperator),
		errors.Is(err, ErrFilterRequired), errors.Is(err, ErrBadOption):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrPathEscape):
		return KindPathEscape
	case errors.Is(err, ErrSymlink):
		return KindSymlink
	case errors.Is(err, ErrCycle):
		return KindCanonicalization
	case errors.Is(err, ErrIntegrity):
		return KindIntegrity
	case errors.Is(err, ErrIndexCorrupt):
		return KindIndexCorrupt
	default:
		return KindUnknown
	}
}

// wrap builds an [*Error] around err, inferring Kind from well-known
// sentinels unless an explicit [withKind] option overrides it.
func wrap(err error, opts ...errOpt) error {
	if err == nil {
		return nil
	}

	e := &Error{Err: err, Kind: kindForSentinel(err)}

	for _, opt := range opts {
		opt(e)
	}

	return e
}
