package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yenshow/ba-frontend/internal/apiclient"
)

// Error represents a structured error response.
type Error struct {
	Status   int    `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Kind     string `json:"kind,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// Common error codes.
const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeNotFound           = "not_found"
	ErrCodeUnauthorized       = "unauthorised"
	ErrCodeForbidden          = "forbidden"
	ErrCodeInternal           = "internal_error"
	ErrCodeTimeout            = "gateway_timeout"
	ErrCodeBadGateway         = "bad_gateway"
	ErrCodeServiceUnavailable = "service_unavailable"
)

// kindStatus maps each classified failure onto the status the console
// answers with. ServerFault is refined in statusForError.
var kindStatus = map[apiclient.Kind]int{
	apiclient.KindTimeout:            http.StatusGatewayTimeout,
	apiclient.KindNetworkUnreachable: http.StatusBadGateway,
	apiclient.KindCrossOriginBlocked: http.StatusBadGateway,
	apiclient.KindUnauthorized:       http.StatusUnauthorized,
	apiclient.KindForbidden:          http.StatusForbidden,
	apiclient.KindNotFound:           http.StatusNotFound,
	apiclient.KindBadRequest:         http.StatusBadRequest,
	apiclient.KindServerFault:        http.StatusInternalServerError,
	apiclient.KindUnknown:            http.StatusInternalServerError,
}

// statusCodes names each status for the "code" field.
var statusCodes = map[int]string{
	http.StatusBadRequest:          ErrCodeBadRequest,
	http.StatusUnauthorized:        ErrCodeUnauthorized,
	http.StatusForbidden:           ErrCodeForbidden,
	http.StatusNotFound:            ErrCodeNotFound,
	http.StatusInternalServerError: ErrCodeInternal,
	http.StatusBadGateway:          ErrCodeBadGateway,
	http.StatusServiceUnavailable:  ErrCodeServiceUnavailable,
	http.StatusGatewayTimeout:      ErrCodeTimeout,
}

// statusForError returns the HTTP status for a gateway failure. A server
// fault the backend actually answered with is the backend's problem, not
// ours, so it becomes 502.
func statusForError(err error) int {
	kind := apiclient.KindOf(err)
	var e *apiclient.Error
	if kind == apiclient.KindServerFault && errors.As(err, &e) && e.Status != 0 {
		return http.StatusBadGateway
	}
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeGatewayError writes a classified gateway failure.
func writeGatewayError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	writeJSON(w, status, Error{
		Status:  status,
		Code:    statusCodes[status],
		Message: apiclient.MessageOf(err),
		Kind:    string(apiclient.KindOf(err)),
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeUnauthorized writes a 401 carrying the login URL that returns to
// path afterwards.
func writeUnauthorized(w http.ResponseWriter, message, path string) {
	writeJSON(w, http.StatusUnauthorized, Error{
		Status:   http.StatusUnauthorized,
		Code:     ErrCodeUnauthorized,
		Message:  message,
		Kind:     string(apiclient.KindUnauthorized),
		Redirect: apiclient.LoginRedirect(path),
	})
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusForbidden, Error{
		Status:  http.StatusForbidden,
		Code:    ErrCodeForbidden,
		Message: message,
		Kind:    string(apiclient.KindForbidden),
	})
}

// writeUnavailable writes a 503 for a route whose gateway is not configured.
func writeUnavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}
