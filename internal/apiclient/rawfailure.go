package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"syscall"
)

// FailureFromError builds a RawFailure from a transport error returned by
// http.Client.Do or while reading a response body.
func FailureFromError(err error) RawFailure {
	f := RawFailure{Message: err.Error()}

	var dnsErr *net.DNSError
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		f.Name = "DeadlineExceeded"
	case errors.As(err, &dnsErr):
		switch {
		case dnsErr.IsTimeout:
			f.Name = "TimeoutError"
		case dnsErr.IsTemporary:
			f.Code = "EAI_AGAIN"
		default:
			f.Code = "ENOTFOUND"
		}
	case errors.Is(err, syscall.ECONNREFUSED):
		f.Code = "ECONNREFUSED"
	case errors.Is(err, syscall.EHOSTUNREACH):
		f.Code = "EHOSTUNREACH"
	case errors.Is(err, syscall.ENETUNREACH):
		f.Code = "ENETUNREACH"
	case errors.Is(err, syscall.ECONNRESET):
		f.Code = "ECONNRESET"
	case errors.As(err, &netErr) && netErr.Timeout():
		f.Name = "TimeoutError"
	}

	return f
}

// FailureFromResponse builds a RawFailure from a non-2xx response.
func FailureFromResponse(status int, body []byte) RawFailure {
	msg := BackendMessage(body)
	return RawFailure{
		Status:         status,
		Message:        msg,
		BackendMessage: msg,
	}
}

// BackendMessage extracts the display message from a backend error body.
// Preference: message, details, error.message, error (as a string).
func BackendMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var payload struct {
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if strings.TrimSpace(payload.Message) != "" {
		return payload.Message
	}
	if s := rawString(payload.Details); s != "" {
		return s
	}
	if len(payload.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		if s := rawString(payload.Error); s != "" {
			return s
		}
	}
	return ""
}

// rawString returns raw as a string when it holds a non-empty JSON string.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
