package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/yenshow/ba-frontend/internal/apiclient"
	"github.com/yenshow/ba-frontend/internal/session"
)

func TestUserClientList(t *testing.T) {
	var gotQuery string
	r := chi.NewRouter()
	r.Get("/api/users", func(w http.ResponseWriter, req *http.Request) {
		gotQuery = req.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{
			"users":  []map[string]any{{"id": 1, "username": "alice", "role": "admin"}},
			"total":  1,
			"limit":  20,
			"offset": 0,
		})
	})
	f := newFixture(t, r)
	uc := NewUserClient(f.client)

	page, err := uc.List(context.Background(), UserFilter{
		Role:   session.RoleAdmin,
		Limit:  apiclient.Ptr(20),
		Offset: apiclient.Ptr(0),
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if gotQuery != "role=admin&limit=20&offset=0" {
		t.Errorf("query = %q", gotQuery)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].Username != "alice" {
		t.Errorf("page = %+v", page)
	}
}

func TestUserClientItemOperations(t *testing.T) {
	var deleted string
	r := chi.NewRouter()
	r.Get("/api/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "id") == "404" {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "用戶不存在"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"id": 5, "username": "eve"}})
	})
	r.Put("/api/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		json.NewDecoder(req.Body).Decode(&body) //nolint:errcheck // test server
		if _, ok := body["password"]; ok {
			t.Error("nil password field was sent")
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": 5, "username": "eve", "role": body["role"]})
	})
	r.Delete("/api/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		deleted = chi.URLParam(req, "id")
		w.WriteHeader(http.StatusNoContent)
	})
	f := newFixture(t, r)
	uc := NewUserClient(f.client)
	ctx := context.Background()

	u, err := uc.Get(ctx, 5)
	if err != nil || u.Username != "eve" {
		t.Fatalf("Get() = %+v, %v", u, err)
	}

	_, err = uc.Get(ctx, 404)
	if apiclient.KindOf(err) != apiclient.KindNotFound || apiclient.MessageOf(err) != "用戶不存在" {
		t.Errorf("Get(404) = %v (%s)", err, apiclient.KindOf(err))
	}

	role := session.RoleOperator
	u, err = uc.Update(ctx, 5, UpdateUserRequest{Role: &role})
	if err != nil || u.Role != session.RoleOperator {
		t.Fatalf("Update() = %+v, %v", u, err)
	}

	if err := uc.Delete(ctx, 5); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted != "5" {
		t.Errorf("deleted id = %q", deleted)
	}
}
