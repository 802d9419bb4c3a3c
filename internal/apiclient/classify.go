package apiclient

import (
	"net/http"
	"strings"
)

// RawFailure is the narrow description of a failed call that Classify
// works on. It is built at the HTTP boundary.
type RawFailure struct {
	// Status is the HTTP status code, 0 when no response arrived.
	Status int
	// Message is the transport or response error text.
	Message string
	// Code is an OS-level connection error code such as "ECONNREFUSED".
	Code string
	// Name is the named kind of the error, e.g. "TimeoutError".
	Name string
	// BackendMessage is the message extracted from the backend error body.
	BackendMessage string
}

// Caller-facing message templates.
const (
	msgTimeout            = "request timed out; check that the backend is running and reachable, then try again"
	msgNetworkUnreachable = "cannot connect to the backend; check the API address and the network path"
	msgCrossOrigin        = "request blocked by cross-origin policy; add this console's origin to the backend CORS allow list"
	msgUnauthorized       = "session expired; please log in again"
	msgForbidden          = "permission denied"
	msgNotFound           = "requested resource not found"
	msgServerFault        = "backend server error, try again later"
	msgBadRequest         = "invalid request"
	msgUnknown            = "request failed"
)

var timeoutNames = []string{"timeouterror", "aborterror", "deadlineexceeded", "etimedout"}

var timeoutMarkers = []string{"timeout", "timed out", "deadline exceeded"}

var crossOriginMarkers = []string{"cors", "cross-origin", "access-control"}

var networkCodes = []string{"ECONNREFUSED", "ENOTFOUND", "EHOSTUNREACH", "ENETUNREACH", "ECONNRESET", "EAI_AGAIN"}

var networkMarkers = []string{
	"connection refused",
	"econnrefused",
	"enotfound",
	"no such host",
	"network is unreachable",
	"host is unreachable",
	"no route to host",
	"connection reset",
	"failed to fetch",
	"networkerror",
}

// Classify maps a raw failure to exactly one Kind and a caller-facing
// message. It is pure and total.
//
// Precedence:
//  1. A mapped HTTP status (400, 401, 403, 404, 5xx) decides the kind.
//  2. Timeout markers in the message, or a timeout name or code.
//  3. Cross-origin markers, only when no HTTP status is present.
//  4. Connection-refused, unreachable or DNS markers, or a known OS code.
//  5. Unknown.
func Classify(f RawFailure) (Kind, string) {
	if kind, ok := statusKind(f.Status); ok {
		return kind, messageFor(kind, f)
	}

	msg := strings.ToLower(f.Message)
	name := strings.ToLower(f.Name)
	code := strings.ToLower(f.Code)

	switch {
	case containsAny(msg, timeoutMarkers) || oneOf(name, timeoutNames) || oneOf(code, timeoutNames):
		return KindTimeout, msgTimeout
	case f.Status == 0 && containsAny(msg, crossOriginMarkers):
		return KindCrossOriginBlocked, msgCrossOrigin
	case containsAny(msg, networkMarkers) || knownNetworkCode(f.Code):
		return KindNetworkUnreachable, msgNetworkUnreachable
	}

	return KindUnknown, messageFor(KindUnknown, f)
}

// statusKind maps an HTTP status to its Kind.
func statusKind(status int) (Kind, bool) {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized, true
	case status == http.StatusForbidden:
		return KindForbidden, true
	case status == http.StatusNotFound:
		return KindNotFound, true
	case status == http.StatusBadRequest:
		return KindBadRequest, true
	case status >= http.StatusInternalServerError && status <= 599:
		return KindServerFault, true
	}
	return "", false
}

func messageFor(kind Kind, f RawFailure) string {
	switch kind {
	case KindUnauthorized:
		return msgUnauthorized
	case KindForbidden:
		return firstNonEmpty(f.BackendMessage, msgForbidden)
	case KindNotFound:
		return firstNonEmpty(f.BackendMessage, msgNotFound)
	case KindBadRequest:
		return firstNonEmpty(f.BackendMessage, msgBadRequest)
	case KindServerFault:
		return firstNonEmpty(f.BackendMessage, msgServerFault)
	case KindTimeout:
		return msgTimeout
	case KindNetworkUnreachable:
		return msgNetworkUnreachable
	case KindCrossOriginBlocked:
		return msgCrossOrigin
	default:
		return firstNonEmpty(f.BackendMessage, f.Message, msgUnknown)
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func oneOf(s string, set []string) bool {
	if s == "" {
		return false
	}
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func knownNetworkCode(code string) bool {
	for _, c := range networkCodes {
		if strings.EqualFold(code, c) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
