package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// fakeSession is a minimal SessionSource with an epoch counter.
type fakeSession struct {
	mu      sync.Mutex
	token   string
	epoch   uint64
	cleared int
}

func (f *fakeSession) Token() (string, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.epoch
}

func (f *fakeSession) Invalidate(epoch uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if epoch != f.epoch || f.token == "" {
		return false
	}
	f.token = ""
	f.epoch++
	f.cleared++
	return true
}

func (f *fakeSession) replace(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	f.epoch++
}

type recordingObserver struct {
	mu    sync.Mutex
	kinds []Kind
}

func (o *recordingObserver) ObserveCall(_, _ string, kind Kind, _ time.Duration) {
	o.mu.Lock()
	o.kinds = append(o.kinds, kind)
	o.mu.Unlock()
}

func newTestClient(t *testing.T, handler http.Handler, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts.BaseURL = srv.URL + "/api"
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

// =============================================================================
// Construction
// =============================================================================

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "/api", "ftp://x", "http://"} {
		if _, err := New(Options{BaseURL: base}); !errors.Is(err, ErrInvalidBaseURL) {
			t.Errorf("New(%q) error = %v, want ErrInvalidBaseURL", base, err)
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Options{BaseURL: "http://localhost:4000/api/"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", c.Timeout(), DefaultTimeout)
	}
	if c.BaseURL() != "http://localhost:4000/api" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
	if got := c.WithTimeout(5 * time.Second).Timeout(); got != 5*time.Second {
		t.Errorf("WithTimeout().Timeout() = %v", got)
	}
}

// =============================================================================
// Headers and decoding
// =============================================================================

func TestCall_AttachesBearerWhenTokenPresent(t *testing.T) {
	var gotAuth, gotReqID, gotPath string
	r := chi.NewRouter()
	r.Get("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		gotPath = r.URL.RequestURI()
		w.Write([]byte(`{"user":{"id":1}}`)) //nolint:errcheck
	})

	sess := &fakeSession{token: "tok-123", epoch: 1}
	c := newTestClient(t, r, Options{Session: sess})

	var out struct {
		User struct {
			ID int `json:"id"`
		} `json:"user"`
	}
	if err := c.Get(context.Background(), "/users/me", Values{}, &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReqID == "" {
		t.Error("X-Request-ID not set")
	}
	if gotPath != "/api/users/me" {
		t.Errorf("path = %q", gotPath)
	}
	if out.User.ID != 1 {
		t.Errorf("decoded id = %d", out.User.ID)
	}
}

func TestCall_OmitsBearerWhenAnonymousOrUnauthenticated(t *testing.T) {
	var auths []string
	var mu sync.Mutex
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auths = append(auths, r.Header.Get("Authorization"))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	empty := newTestClient(t, h, Options{Session: &fakeSession{}})
	if err := empty.Get(context.Background(), "/x", Values{}, nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	authed := newTestClient(t, h, Options{Session: &fakeSession{token: "t", epoch: 1}})
	req := Request{Method: http.MethodPost, Path: "/users/login", Body: map[string]string{"username": "a"}, Unauthenticated: true}
	if err := authed.Call(context.Background(), req, nil); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if err := authed.Anonymous().Get(context.Background(), "/x", Values{}, nil); err != nil {
		t.Fatalf("Anonymous().Get() error = %v", err)
	}

	for i, a := range auths {
		if a != "" {
			t.Errorf("call %d sent Authorization %q", i, a)
		}
	}
}

func TestCall_SendsJSONBodyAndQuery(t *testing.T) {
	var gotBody map[string]any
	var gotQuery, gotCT, gotMethod string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		gotCT = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)      //nolint:errcheck
		w.Write([]byte(`{"success":true}`)) //nolint:errcheck
	})
	c := newTestClient(t, h, Options{})

	var q Values
	q.Set("host", "10.0.0.2").Set("port", 502)
	req := Request{Method: http.MethodPut, Path: "modbus/coils", Query: q, Body: map[string]any{"address": 5, "value": true}}
	var out struct {
		Success bool `json:"success"`
	}
	if err := c.Call(context.Background(), req, &out); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if gotMethod != http.MethodPut || gotQuery != "host=10.0.0.2&port=502" || gotCT != "application/json" {
		t.Errorf("method=%q query=%q content-type=%q", gotMethod, gotQuery, gotCT)
	}
	if gotBody["address"] != float64(5) || gotBody["value"] != true {
		t.Errorf("body = %v", gotBody)
	}
	if !out.Success {
		t.Error("success not decoded")
	}
}

func TestCall_InvalidJSONIsUnknown(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>ok</html>`)) //nolint:errcheck
	})
	c := newTestClient(t, h, Options{})

	var out map[string]any
	err := c.Get(context.Background(), "/x", Values{}, &out)
	if KindOf(err) != KindUnknown {
		t.Fatalf("KindOf = %q, want unknown (err=%v)", KindOf(err), err)
	}
}

func TestCall_EmptyBodyIsZeroValue(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	c := newTestClient(t, h, Options{})

	var out struct{ A int }
	if err := c.Get(context.Background(), "/x", Values{}, &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
}

// =============================================================================
// Failure classification at the boundary
// =============================================================================

func TestCall_StatusErrors(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		want    Kind
		wantMsg string
	}{
		{400, `{"message":"length must be >= 1"}`, KindBadRequest, "length must be >= 1"},
		{403, `{"details":"admins only"}`, KindForbidden, "admins only"},
		{404, `{"error":{"message":"no such device"}}`, KindNotFound, "no such device"},
		{500, ``, KindServerFault, msgServerFault},
		{502, `{"message":"modbus gateway down"}`, KindServerFault, "modbus gateway down"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body)) //nolint:errcheck
			})
			sess := &fakeSession{token: "t", epoch: 1}
			c := newTestClient(t, h, Options{Session: sess})

			err := c.Get(context.Background(), "/devices", Values{}, nil)
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("error %v is not *Error", err)
			}
			if e.Kind != tt.want || e.Message != tt.wantMsg || e.Status != tt.status {
				t.Errorf("got kind=%q msg=%q status=%d", e.Kind, e.Message, e.Status)
			}
			if sess.cleared != 0 {
				t.Error("non-401 failure mutated the session")
			}
		})
	}
}

func TestCall_ConnectionRefusedIsNetworkUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	sess := &fakeSession{token: "t", epoch: 1}
	c, err := New(Options{BaseURL: "http://" + addr + "/api", Session: sess})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = c.Get(context.Background(), "/devices", Values{}, nil)
	if !errors.Is(err, ErrNetworkUnreachable) {
		t.Fatalf("err = %v, want NetworkUnreachable", err)
	}
	if tok, _ := sess.Token(); tok != "t" {
		t.Error("session changed on network failure")
	}
}

func TestCall_TimeoutIsClassified(t *testing.T) {
	release := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	c := newTestClient(t, h, Options{Timeout: 50 * time.Millisecond})
	defer close(release)

	start := time.Now()
	err := c.Get(context.Background(), "/slow", Values{}, nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want Timeout", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout not enforced per call")
	}
}

func TestCall_PerRequestTimeoutOverride(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, h, Options{Timeout: 20 * time.Millisecond})

	err := c.Call(context.Background(), Request{Path: "/x", Timeout: 2 * time.Second}, nil)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
}

// =============================================================================
// Unauthorized handling
// =============================================================================

func TestCall_UnauthorizedClearsSessionAndSignals(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	var got []Invalidation
	sess := &fakeSession{token: "t", epoch: 4}
	c := newTestClient(t, h, Options{
		Session:        sess,
		OnUnauthorized: func(inv Invalidation) { got = append(got, inv) },
	})

	ctx := WithOrigin(context.Background(), "/devices/7?tab=modbus")
	err := c.Get(ctx, "/users/me", Values{}, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want Unauthorized", err)
	}
	if tok, _ := sess.Token(); tok != "" {
		t.Error("token not cleared")
	}
	if len(got) != 1 {
		t.Fatalf("signals = %d, want 1", len(got))
	}
	if got[0].ReturnPath != "/devices/7?tab=modbus" || got[0].Epoch != 4 || got[0].Path != "/users/me" {
		t.Errorf("invalidation = %+v", got[0])
	}
}

func TestCall_UnauthorizedWithoutTokenDoesNotSignal(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"wrong password"}`)) //nolint:errcheck
	})
	signals := 0
	c := newTestClient(t, h, Options{
		Session:        &fakeSession{},
		OnUnauthorized: func(Invalidation) { signals++ },
	})

	err := c.Call(context.Background(), Request{Method: http.MethodPost, Path: "/users/login", Unauthenticated: true}, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if signals != 0 {
		t.Errorf("signals = %d, want 0", signals)
	}
}

func TestCall_StaleUnauthorizedDoesNotClearNewSession(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusUnauthorized)
	})

	signals := 0
	sess := &fakeSession{token: "old", epoch: 1}
	c := newTestClient(t, h, Options{
		Session:        sess,
		OnUnauthorized: func(Invalidation) { signals++ },
	})

	errCh := make(chan error, 1)
	go func() { errCh <- c.Get(context.Background(), "/devices", Values{}, nil) }()

	<-started
	sess.replace("new") // logout + login happened while the call was in flight
	close(release)

	if err := <-errCh; !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if tok, _ := sess.Token(); tok != "new" {
		t.Errorf("token = %q, stale 401 cleared the new session", tok)
	}
	if signals != 0 {
		t.Errorf("signals = %d, want 0", signals)
	}
}

// =============================================================================
// Observer
// =============================================================================

func TestCall_ObserverSeesEveryCall(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	obs := &recordingObserver{}
	c := newTestClient(t, h, Options{Observer: obs})

	c.Get(context.Background(), "/ok", Values{}, nil)      //nolint:errcheck
	c.Get(context.Background(), "/missing", Values{}, nil) //nolint:errcheck

	if len(obs.kinds) != 2 || obs.kinds[0] != "" || obs.kinds[1] != KindNotFound {
		t.Errorf("observed = %v", obs.kinds)
	}
}

func TestCall_CookiesKeptWhenCredentialsIncluded(t *testing.T) {
	var second string
	calls := 0
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc", Path: "/"})
		} else if c, err := r.Cookie("sid"); err == nil {
			second = c.Value
		}
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, h, Options{IncludeCredentials: true})

	c.Get(context.Background(), "/a", Values{}, nil) //nolint:errcheck
	c.Get(context.Background(), "/b", Values{}, nil) //nolint:errcheck

	if second != "abc" {
		t.Errorf("cookie on second call = %q, want abc", second)
	}
}
