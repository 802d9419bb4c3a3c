package apiclient

import (
	"errors"
	"fmt"
)

// Kind is the classification assigned to a failed call.
type Kind string

// The closed failure taxonomy. Every failed call carries exactly one.
const (
	KindTimeout            Kind = "timeout"
	KindNetworkUnreachable Kind = "network_unreachable"
	KindCrossOriginBlocked Kind = "cross_origin_blocked"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindServerFault        Kind = "server_fault"
	KindBadRequest         Kind = "bad_request"
	KindUnknown            Kind = "unknown"
)

// Kinds lists every Kind in declaration order.
var Kinds = []Kind{
	KindTimeout,
	KindNetworkUnreachable,
	KindCrossOriginBlocked,
	KindUnauthorized,
	KindForbidden,
	KindNotFound,
	KindServerFault,
	KindBadRequest,
	KindUnknown,
}

// Sentinels matched by (*Error).Is. Use errors.Is(err, ErrTimeout) etc.
var (
	ErrTimeout            = errors.New("apiclient: request timed out")
	ErrNetworkUnreachable = errors.New("apiclient: backend unreachable")
	ErrCrossOriginBlocked = errors.New("apiclient: blocked by cross-origin policy")
	ErrUnauthorized       = errors.New("apiclient: unauthorized")
	ErrForbidden          = errors.New("apiclient: forbidden")
	ErrNotFound           = errors.New("apiclient: not found")
	ErrServerFault        = errors.New("apiclient: server fault")
	ErrBadRequest         = errors.New("apiclient: bad request")
	ErrUnknown            = errors.New("apiclient: request failed")
)

// ErrInvalidBaseURL is returned by New when the backend URL cannot be used.
var ErrInvalidBaseURL = errors.New("apiclient: invalid base URL")

var kindSentinels = map[Kind]error{
	KindTimeout:            ErrTimeout,
	KindNetworkUnreachable: ErrNetworkUnreachable,
	KindCrossOriginBlocked: ErrCrossOriginBlocked,
	KindUnauthorized:       ErrUnauthorized,
	KindForbidden:          ErrForbidden,
	KindNotFound:           ErrNotFound,
	KindServerFault:        ErrServerFault,
	KindBadRequest:         ErrBadRequest,
	KindUnknown:            ErrUnknown,
}

// Sentinel returns the package sentinel for k.
func (k Kind) Sentinel() error {
	if err, ok := kindSentinels[k]; ok {
		return err
	}
	return ErrUnknown
}

// Transport reports whether k describes a failure to reach the backend at
// all, as opposed to a response the backend produced.
func (k Kind) Transport() bool {
	return k == KindTimeout || k == KindNetworkUnreachable || k == KindCrossOriginBlocked
}

// Error is a classified gateway failure.
type Error struct {
	Kind    Kind
	Message string // caller-facing text
	Status  int    // HTTP status, 0 when no response was received
	Method  string
	Path    string
	Err     error // underlying transport error, if any
}

func (e *Error) Error() string {
	if e.Method == "" && e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
}

// Unwrap returns the underlying transport error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.Sentinel()
}

// KindOf returns the Kind carried anywhere in err's chain. It returns ""
// for a nil error and KindUnknown for an unclassified one.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns the caller-facing message of a classified error, or
// err.Error() for anything else.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// NewBadRequest builds a locally raised BadRequest error. It is used for
// input rejected before any network call is made.
func NewBadRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}
