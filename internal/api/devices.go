package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yenshow/ba-frontend/internal/apiclient"
	"github.com/yenshow/ba-frontend/internal/auth"
	"github.com/yenshow/ba-frontend/internal/device"
	"github.com/yenshow/ba-frontend/internal/session"
)

// handleListDevices proxies GET /devices.
//
// Query: type_id, type_code, status, limit, offset, orderBy, order.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if s.devices == nil {
		writeUnavailable(w, "device gateway not configured")
		return
	}

	q := r.URL.Query()
	f := device.Filter{
		TypeCode: device.TypeCode(q.Get("type_code")),
		Status:   device.Status(q.Get("status")),
		OrderBy:  q.Get("orderBy"),
		Order:    q.Get("order"),
	}
	var err error
	if f.TypeID, err = optionalInt64(q, "type_id"); err != nil {
		writeGatewayError(w, err)
		return
	}
	if f.Limit, f.Offset, err = pageParams(q); err != nil {
		writeGatewayError(w, err)
		return
	}

	page, err := s.devices.List(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleGetDevice proxies GET /devices/:id.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	if s.devices == nil {
		writeUnavailable(w, "device gateway not configured")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "invalid device id")
		return
	}

	d, err := s.devices.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleListUsers proxies GET /users. Admin only.
//
// Query: role, status, limit, offset, orderBy, order.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if s.users == nil {
		writeUnavailable(w, "user gateway not configured")
		return
	}

	q := r.URL.Query()
	f := auth.UserFilter{
		Role:    session.Role(q.Get("role")),
		Status:  session.Status(q.Get("status")),
		OrderBy: q.Get("orderBy"),
		Order:   q.Get("order"),
	}
	var err error
	if f.Limit, f.Offset, err = pageParams(q); err != nil {
		writeGatewayError(w, err)
		return
	}

	page, err := s.users.List(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// pageParams reads optional limit and offset.
func pageParams(q url.Values) (limit, offset *int, err error) {
	for _, p := range []struct {
		name string
		dst  **int
	}{{"limit", &limit}, {"offset", &offset}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			return nil, nil, apiclient.NewBadRequest("%s must be a non-negative integer", p.name)
		}
		*p.dst = apiclient.Ptr(n)
	}
	return limit, offset, nil
}

// optionalInt64 reads a positive id, returning 0 when absent.
func optionalInt64(q url.Values, name string) (int64, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, apiclient.NewBadRequest("%s must be a positive integer", name)
	}
	return n, nil
}
