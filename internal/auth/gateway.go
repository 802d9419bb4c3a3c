package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/yenshow/ba-frontend/internal/apiclient"
	"github.com/yenshow/ba-frontend/internal/infrastructure/logging"
	"github.com/yenshow/ba-frontend/internal/session"
)

// Backend paths.
const (
	pathLogin    = "/users/login"
	pathMe       = "/users/me"
	pathRegister = "/users/register"
)

// Gateway runs login, logout, current-user refresh and bootstrap.
//
// Thread Safety:
//   - Safe for concurrent use; all state lives in the session.Store.
type Gateway struct {
	client *apiclient.Client
	store  *session.Store
	logger *logging.Logger
}

// NewGateway creates a Gateway. client should be built with store as its
// SessionSource so Unauthorized responses clear the same session.
func NewGateway(client *apiclient.Client, store *session.Store, logger *logging.Logger) *Gateway {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Gateway{
		client: client,
		store:  store,
		logger: logger.With("component", "auth"),
	}
}

// Store returns the session store the gateway mutates.
func (g *Gateway) Store() *session.Store {
	return g.store
}

// Login exchanges credentials for a session.
//
// The call is sent without an Authorization header. On any failure the
// session is cleared before the error is returned, so a failed login never
// leaves a partial session behind. A success is only stored if nothing
// else touched the session while the call was in flight.
//
// Returns:
//   - session.Session: the stored session
//   - error: a classified *apiclient.Error, ErrIncompleteLogin, or
//     ErrSuperseded if a logout raced the call
func (g *Gateway) Login(ctx context.Context, creds Credentials) (session.Session, error) {
	if err := apiclient.Validate(creds); err != nil {
		g.Logout()
		return session.Session{}, err
	}

	epoch := g.store.Epoch()

	var resp LoginResponse
	err := g.client.Call(ctx, apiclient.Request{
		Method:          http.MethodPost,
		Path:            pathLogin,
		Body:            creds,
		Unauthenticated: true,
	}, &resp)
	if err != nil {
		g.Logout()
		g.logger.Info("login failed", "username", creds.Username, "kind", apiclient.KindOf(err))
		return session.Session{}, err
	}

	if resp.Token == "" || (resp.User.ID == 0 && resp.User.Username == "") {
		g.Logout()
		return session.Session{}, ErrIncompleteLogin
	}

	user := resp.User
	sess := session.Session{Token: resp.Token, User: &user}
	if err := g.store.SetIfEpoch(sess, epoch); err != nil {
		if errors.Is(err, session.ErrStaleEpoch) {
			g.logger.Info("login response discarded, session changed meanwhile", "username", creds.Username)
			return session.Session{}, ErrSuperseded
		}
		return session.Session{}, fmt.Errorf("storing session: %w", err)
	}

	g.logger.Info("logged in",
		"username", user.Username,
		"role", user.Role,
		"token", logging.RedactToken(resp.Token),
	)
	return g.store.Get(), nil
}

// Logout clears the session unconditionally. Calling it when already
// anonymous is harmless.
func (g *Gateway) Logout() {
	g.store.Clear()
}

func (g *Gateway) logoutIfEpoch(epoch uint64) {
	g.store.ClearIfEpoch(epoch)
}

// FetchCurrentUser refreshes the user half of the session from
// GET /users/me.
//
// An unreadable "me" means the session is not usable: on any failure the
// session the call was made with is cleared and the error re-raised. A
// newer session established meanwhile is left alone.
func (g *Gateway) FetchCurrentUser(ctx context.Context) (*session.User, error) {
	token, epoch := g.store.Token()
	if token == "" {
		return nil, &apiclient.Error{
			Kind:    apiclient.KindUnauthorized,
			Message: "not logged in",
			Method:  http.MethodGet,
			Path:    pathMe,
		}
	}

	var raw json.RawMessage
	if err := g.client.Get(ctx, pathMe, apiclient.Values{}, &raw); err != nil {
		g.logoutIfEpoch(epoch)
		return nil, err
	}

	user, err := decodeUserResult(raw, http.MethodGet, pathMe)
	if err != nil {
		g.logoutIfEpoch(epoch)
		return nil, err
	}

	if err := g.store.UpdateUserIfEpoch(*user, epoch); err != nil {
		return nil, ErrSuperseded
	}
	return user, nil
}

// Bootstrap restores the persisted session at startup. It makes no
// network call; the first authenticated request validates the token.
func (g *Gateway) Bootstrap(ctx context.Context) session.Session {
	sess := g.store.Restore(ctx)
	if sess.IsAuthenticated() {
		g.logger.Info("session restored", "username", sess.User.Username, "role", sess.User.Role)
	}
	return sess
}

// Register creates a user account. It does not log the new user in.
func (g *Gateway) Register(ctx context.Context, req RegisterRequest) (*session.User, error) {
	if err := apiclient.Validate(req); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := g.client.Post(ctx, pathRegister, req, &raw); err != nil {
		return nil, err
	}
	return decodeUserResult(raw, http.MethodPost, pathRegister)
}

// Can reports whether the current user holds perm.
func (g *Gateway) Can(perm Permission) bool {
	sess := g.store.Get()
	return sess.IsAuthenticated() && HasPermission(sess.User.Role, perm)
}

// decodeUserResult decodes a user body, classifying garbage as Unknown.
func decodeUserResult(raw json.RawMessage, method, path string) (*session.User, error) {
	u, err := decodeUser(raw)
	if err != nil {
		return nil, &apiclient.Error{
			Kind:    apiclient.KindUnknown,
			Message: "invalid response body",
			Method:  method,
			Path:    path,
			Err:     err,
		}
	}
	return u, nil
}
