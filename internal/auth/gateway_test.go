package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yenshow/ba-frontend/internal/apiclient"
	"github.com/yenshow/ba-frontend/internal/session"
)

type fixture struct {
	gw            *Gateway
	store         *session.Store
	client        *apiclient.Client
	hits          atomic.Int32
	mu            sync.Mutex
	invalidations []apiclient.Invalidation
}

func newFixture(t *testing.T, r chi.Router) *fixture {
	t.Helper()
	f := &fixture{store: session.NewStore(session.Options{})}

	counted := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		f.hits.Add(1)
		r.ServeHTTP(w, req)
	})
	srv := httptest.NewServer(counted)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(apiclient.Options{
		BaseURL: srv.URL + "/api",
		Timeout: 2 * time.Second,
		Session: f.store,
		OnUnauthorized: func(inv apiclient.Invalidation) {
			f.mu.Lock()
			f.invalidations = append(f.invalidations, inv)
			f.mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("apiclient.New() error = %v", err)
	}
	f.client = client
	f.gw = NewGateway(client, f.store, nil)
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // test server
}

func loginOK(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "ok",
		"token":   "tok-abc",
		"user":    map[string]any{"id": 1, "username": "alice", "email": "a@example.com", "role": "operator", "status": "active"},
	})
}

// =============================================================================
// Login / Logout
// =============================================================================

func TestLoginSuccess(t *testing.T) {
	r := chi.NewRouter()
	var gotAuth string
	var gotBody Credentials
	r.Post("/api/users/login", func(w http.ResponseWriter, req *http.Request) {
		gotAuth = req.Header.Get("Authorization")
		json.NewDecoder(req.Body).Decode(&gotBody) //nolint:errcheck // test server
		loginOK(w, req)
	})
	f := newFixture(t, r)

	sess, err := f.gw.Login(context.Background(), Credentials{Username: "alice", Password: "pw"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if sess.Token != "tok-abc" || sess.User.Username != "alice" {
		t.Errorf("session = %+v", sess)
	}
	if !f.store.IsOperator() || f.store.IsAdmin() {
		t.Error("role helpers disagree with operator login")
	}
	if gotAuth != "" {
		t.Errorf("login sent Authorization %q", gotAuth)
	}
	if gotBody.Username != "alice" || gotBody.Password != "pw" {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestLoginFailureLeavesNoSession(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind apiclient.Kind
		wantErr  error
	}{
		{
			name: "bad credentials",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "wrong password"})
			},
			wantKind: apiclient.KindUnauthorized,
		},
		{
			name: "server fault",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "db down"})
			},
			wantKind: apiclient.KindServerFault,
		},
		{
			name: "token without user",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"token": "t"})
			},
			wantErr: ErrIncompleteLogin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Post("/api/users/login", tt.handler)
			f := newFixture(t, r)

			// A prior session must not survive a failed login either.
			_ = f.store.Set(session.Session{Token: "old", User: &session.User{ID: 9, Username: "old", Role: session.RoleAdmin}})

			_, err := f.gw.Login(context.Background(), Credentials{Username: "alice", Password: "pw"})
			if err == nil {
				t.Fatal("Login() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantKind != "" && apiclient.KindOf(err) != tt.wantKind {
				t.Errorf("kind = %s, want %s", apiclient.KindOf(err), tt.wantKind)
			}
			if f.store.IsAuthenticated() {
				t.Error("failed login left an authenticated session")
			}
		})
	}
}

func TestLoginValidation(t *testing.T) {
	f := newFixture(t, chi.NewRouter())

	_, err := f.gw.Login(context.Background(), Credentials{Username: "alice"})
	if apiclient.KindOf(err) != apiclient.KindBadRequest {
		t.Fatalf("kind = %s, want bad_request", apiclient.KindOf(err))
	}
	if f.hits.Load() != 0 {
		t.Errorf("invalid credentials reached the backend")
	}
}

func TestLoginLogoutRoundTrip(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/users/login", loginOK)
	f := newFixture(t, r)

	before := f.store.Get()
	if _, err := f.gw.Login(context.Background(), Credentials{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	f.gw.Logout()
	f.gw.Logout()

	after := f.store.Get()
	if !before.IsZero() || !after.IsZero() {
		t.Errorf("before=%+v after=%+v, want both empty", before, after)
	}
}

func TestLoginSupersededByLogout(t *testing.T) {
	release := make(chan struct{})
	arrived := make(chan struct{})
	r := chi.NewRouter()
	r.Post("/api/users/login", func(w http.ResponseWriter, req *http.Request) {
		close(arrived)
		<-release
		loginOK(w, req)
	})
	f := newFixture(t, r)

	errc := make(chan error, 1)
	go func() {
		_, err := f.gw.Login(context.Background(), Credentials{Username: "alice", Password: "pw"})
		errc <- err
	}()

	<-arrived
	f.gw.Logout()
	close(release)

	if err := <-errc; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("Login() error = %v, want ErrSuperseded", err)
	}
	if f.store.IsAuthenticated() {
		t.Error("late login response resurrected the session")
	}
}

// =============================================================================
// FetchCurrentUser
// =============================================================================

func loggedIn(t *testing.T, f *fixture) uint64 {
	t.Helper()
	err := f.store.Set(session.Session{
		Token: "tok",
		User:  &session.User{ID: 1, Username: "alice", Role: session.RoleViewer},
	})
	if err != nil {
		t.Fatal(err)
	}
	return f.store.Epoch()
}

func TestFetchCurrentUserUpdatesUser(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/users/me", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer tok" {
			writeJSON(w, http.StatusUnauthorized, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user": map[string]any{"id": 1, "username": "alice", "role": "admin", "status": "active"},
		})
	})
	f := newFixture(t, r)
	loggedIn(t, f)

	u, err := f.gw.FetchCurrentUser(context.Background())
	if err != nil {
		t.Fatalf("FetchCurrentUser() error = %v", err)
	}
	if u.Role != session.RoleAdmin || !f.store.IsAdmin() {
		t.Errorf("user = %+v, store admin = %v", u, f.store.IsAdmin())
	}
	if tok, _ := f.store.Token(); tok != "tok" {
		t.Errorf("token changed to %q", tok)
	}
}

func TestFetchCurrentUserFailureLogsOut(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     any
		wantKind apiclient.Kind
	}{
		{"unauthorized", http.StatusUnauthorized, map[string]string{"message": "expired"}, apiclient.KindUnauthorized},
		{"server fault", http.StatusInternalServerError, nil, apiclient.KindServerFault},
		{"garbage user", http.StatusOK, map[string]any{"hello": "world"}, apiclient.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/api/users/me", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			f := newFixture(t, r)
			loggedIn(t, f)

			_, err := f.gw.FetchCurrentUser(context.Background())
			if apiclient.KindOf(err) != tt.wantKind {
				t.Fatalf("kind = %s, want %s (err %v)", apiclient.KindOf(err), tt.wantKind, err)
			}
			if tok, _ := f.store.Token(); tok != "" {
				t.Errorf("token = %q after failed me, want empty", tok)
			}
		})
	}
}

func TestFetchCurrentUserUnauthorizedSignalsReturnPath(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/users/me", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, nil)
	})
	f := newFixture(t, r)
	loggedIn(t, f)

	ctx := apiclient.WithOrigin(context.Background(), "/devices/7")
	if _, err := f.gw.FetchCurrentUser(ctx); err == nil {
		t.Fatal("FetchCurrentUser() error = nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.invalidations) != 1 {
		t.Fatalf("invalidations = %d, want 1", len(f.invalidations))
	}
	if got := f.invalidations[0].ReturnPath; got != "/devices/7" {
		t.Errorf("ReturnPath = %q, want /devices/7", got)
	}
}

func TestFetchCurrentUserNotLoggedIn(t *testing.T) {
	f := newFixture(t, chi.NewRouter())

	_, err := f.gw.FetchCurrentUser(context.Background())
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		t.Fatalf("error = %v, want Unauthorized", err)
	}
	if f.hits.Load() != 0 {
		t.Error("anonymous me reached the backend")
	}
}

func TestFetchCurrentUserStaleResponse(t *testing.T) {
	release := make(chan struct{})
	arrived := make(chan struct{})
	r := chi.NewRouter()
	r.Get("/api/users/me", func(w http.ResponseWriter, _ *http.Request) {
		close(arrived)
		<-release
		writeJSON(w, http.StatusUnauthorized, nil)
	})
	f := newFixture(t, r)
	loggedIn(t, f)

	errc := make(chan error, 1)
	go func() {
		_, err := f.gw.FetchCurrentUser(context.Background())
		errc <- err
	}()

	<-arrived
	newer := session.Session{Token: "newer", User: &session.User{ID: 2, Username: "bob", Role: session.RoleAdmin}}
	if err := f.store.Set(newer); err != nil {
		t.Fatal(err)
	}
	close(release)
	<-errc

	if tok, _ := f.store.Token(); tok != "newer" {
		t.Errorf("token = %q, stale 401 cleared a newer session", tok)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.invalidations) != 0 {
		t.Errorf("stale 401 emitted %d redirect signals", len(f.invalidations))
	}
}

// =============================================================================
// Bootstrap / Register
// =============================================================================

func TestBootstrapMakesNoNetworkCall(t *testing.T) {
	f := newFixture(t, chi.NewRouter())

	p := session.NewMemoryPersister()
	_ = p.Save(context.Background(), session.Slot{
		Token:     "persisted",
		User:      session.User{ID: 3, Username: "carol", Role: session.RoleOperator},
		ExpiresAt: time.Now().Add(time.Hour),
	})
	f.store = session.NewStore(session.Options{Persister: p})
	f.gw = NewGateway(f.client, f.store, nil)

	sess := f.gw.Bootstrap(context.Background())
	if !sess.IsAuthenticated() || !f.store.IsOperator() {
		t.Errorf("Bootstrap() = %+v", sess)
	}
	if f.hits.Load() != 0 {
		t.Error("Bootstrap() hit the backend")
	}
}

func TestRegister(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/users/register", func(w http.ResponseWriter, req *http.Request) {
		var body RegisterRequest
		json.NewDecoder(req.Body).Decode(&body) //nolint:errcheck // test server
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "created",
			"user":    map[string]any{"id": 10, "username": body.Username, "email": body.Email, "role": "viewer"},
		})
	})
	f := newFixture(t, r)

	u, err := f.gw.Register(context.Background(), RegisterRequest{Username: "dave", Email: "d@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.ID != 10 || u.Username != "dave" {
		t.Errorf("user = %+v", u)
	}
	if f.store.IsAuthenticated() {
		t.Error("Register() logged the user in")
	}

	_, err = f.gw.Register(context.Background(), RegisterRequest{Username: "x", Email: "nope", Password: "1"})
	if apiclient.KindOf(err) != apiclient.KindBadRequest {
		t.Errorf("invalid register kind = %s", apiclient.KindOf(err))
	}
}

func TestGatewayCan(t *testing.T) {
	f := newFixture(t, chi.NewRouter())
	if f.gw.Can(PermModbusRead) {
		t.Error("anonymous can read modbus")
	}
	loggedIn(t, f)
	if !f.gw.Can(PermModbusRead) || f.gw.Can(PermModbusWrite) {
		t.Error("viewer permissions wrong")
	}
}
