package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/yenshow/ba-frontend/internal/auth"
	"github.com/yenshow/ba-frontend/internal/session"
)

// sessionResponse is the read-only projection of the session the UI
// consumes. The token itself is never exposed.
type sessionResponse struct {
	IsAuthenticated bool              `json:"isAuthenticated"`
	IsAdmin         bool              `json:"isAdmin"`
	IsOperator      bool              `json:"isOperator"`
	IsViewer        bool              `json:"isViewer"`
	User            *session.User     `json:"user"`
	Permissions     []auth.Permission `json:"permissions"`
	Token           *tokenView        `json:"token,omitempty"`
}

// tokenView is what the unverified claims say about token age.
type tokenView struct {
	IssuedAt  *time.Time `json:"issuedAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	ExpiresIn int64      `json:"expiresInSeconds"`
	Expired   bool       `json:"expired"`
}

// buildSessionResponse derives every flag from one snapshot so they agree
// with each other.
func (s *Server) buildSessionResponse() sessionResponse {
	sess := s.store.Get()
	resp := sessionResponse{
		IsAuthenticated: sess.IsAuthenticated(),
		Permissions:     []auth.Permission{},
	}
	if !resp.IsAuthenticated {
		return resp
	}

	role := sess.User.Role
	resp.User = sess.User
	resp.IsAdmin = role == session.RoleAdmin
	resp.IsOperator = role.Satisfies(session.RoleOperator)
	resp.IsViewer = role.Satisfies(session.RoleViewer)
	resp.Permissions = auth.PermissionsFor(role)

	if info, err := auth.InspectToken(sess.Token); err == nil {
		now := s.now()
		tv := &tokenView{
			ExpiresIn: int64(info.ExpiresIn(now) / time.Second),
			Expired:   info.Expired(now),
		}
		if !info.IssuedAt.IsZero() {
			tv.IssuedAt = &info.IssuedAt
		}
		if !info.ExpiresAt.IsZero() {
			tv.ExpiresAt = &info.ExpiresAt
		}
		resp.Token = tv
	}
	return resp
}

// handleSession returns the capability flags the route guard and the UI
// consume.
func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.buildSessionResponse())
}

// handleLogin exchanges credentials for a session held by the console.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if _, err := s.auth.Login(r.Context(), creds); err != nil {
		switch {
		case errors.Is(err, auth.ErrSuperseded):
			writeError(w, http.StatusConflict, "conflict", "session changed during login")
		case errors.Is(err, auth.ErrIncompleteLogin):
			writeError(w, http.StatusBadGateway, ErrCodeBadGateway, "backend returned an incomplete login")
		default:
			writeGatewayError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, s.buildSessionResponse())
}

// handleLogout clears the session. It succeeds when already anonymous.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.auth.Logout()
	w.WriteHeader(http.StatusNoContent)
}

// handleMe refreshes the current user from the backend. A failure clears
// the session, so the UI gets a login redirect on 401.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.FetchCurrentUser(r.Context())
	if err != nil {
		if errors.Is(err, auth.ErrSuperseded) {
			writeError(w, http.StatusConflict, "conflict", "session changed during refresh")
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// fail writes a gateway failure. Unauthorized answers carry a login
// redirect back to the page the call was made from.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if statusForError(err) == http.StatusUnauthorized {
		writeUnauthorized(w, "session expired, please log in again", originPath(r))
		return
	}
	writeGatewayError(w, err)
}
