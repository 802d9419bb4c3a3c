package device

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/yenshow/ba-frontend/internal/apiclient"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // test server
}

func newTestClient(t *testing.T, r chi.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	gw, err := apiclient.New(apiclient.Options{BaseURL: srv.URL + "/api"})
	if err != nil {
		t.Fatal(err)
	}
	return NewClient(gw)
}

// ==================== Devices ====================

func TestListDevices(t *testing.T) {
	var query string
	r := chi.NewRouter()
	r.Get("/api/devices", func(w http.ResponseWriter, req *http.Request) {
		query = req.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{
			"devices": []map[string]any{
				{"id": 1, "name": "PLC", "type_id": 2, "status": "active", "type_code": "controller",
					"config": map[string]any{"host": "10.0.0.5", "port": "502", "unitID": 1}},
				{"id": 2, "name": "Cam", "type_id": 1, "status": "active", "type_code": "camera",
					"config": map[string]any{"ip": "10.0.0.20"}},
			},
			"total": 2, "limit": 20, "offset": 0,
		})
	})
	c := newTestClient(t, r)

	page, err := c.List(context.Background(), Filter{TypeCode: TypeController, Limit: apiclient.Ptr(20), Offset: apiclient.Ptr(0)})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if query != "type_code=controller&limit=20&offset=0" {
		t.Errorf("query = %q", query)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if got := page.Items[0].Config; got != (ControllerConfig{Host: "10.0.0.5", Port: 502, UnitID: 1}) {
		t.Errorf("controller config = %#v", got)
	}
	if got := page.Items[1].Config; got != (CameraConfig{IPAddress: "10.0.0.20"}) {
		t.Errorf("camera config = %#v", got)
	}
}

func TestCreateDevice(t *testing.T) {
	var body map[string]any
	r := chi.NewRouter()
	r.Post("/api/devices", func(w http.ResponseWriter, req *http.Request) {
		json.NewDecoder(req.Body).Decode(&body) //nolint:errcheck // test server
		body["id"] = 11
		body["type_code"] = "controller"
		writeJSON(w, http.StatusCreated, map[string]any{"message": "created", "device": body})
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	d, err := c.Create(ctx, Input{
		Name:   "PLC-2",
		TypeID: 2,
		Status: StatusActive,
		Config: ControllerConfig{Host: "10.0.0.6", Port: 502, UnitID: 0},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	cfg, _ := body["config"].(map[string]any)
	if cfg["type"] != "controller" || cfg["unitId"] != float64(0) || cfg["host"] != "10.0.0.6" {
		t.Errorf("sent config = %v", cfg)
	}
	if d.ID != 11 || d.Config == nil {
		t.Errorf("device = %+v", d)
	}
}

func TestCreateDeviceRejectsLocally(t *testing.T) {
	calls := 0
	r := chi.NewRouter()
	r.Post("/api/devices", func(w http.ResponseWriter, _ *http.Request) {
		calls++
		writeJSON(w, http.StatusCreated, map[string]any{})
	})
	c := newTestClient(t, r)

	tests := []struct {
		name string
		in   Input
	}{
		{"no name", Input{TypeID: 1, Config: ControllerConfig{Host: "h", Port: 1}}},
		{"no type", Input{Name: "x", Config: ControllerConfig{Host: "h", Port: 1}}},
		{"no config", Input{Name: "x", TypeID: 1}},
		{"bad config", Input{Name: "x", TypeID: 1, Config: ControllerConfig{Host: "h"}}},
		{"bad status", Input{Name: "x", TypeID: 1, Status: "broken", Config: ControllerConfig{Host: "h", Port: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Create(context.Background(), tt.in)
			if apiclient.KindOf(err) != apiclient.KindBadRequest {
				t.Fatalf("kind = %q, want bad_request (err %v)", apiclient.KindOf(err), err)
			}
		})
	}
	if calls != 0 {
		t.Errorf("backend called %d times", calls)
	}
}

func TestGetDeviceNotFound(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/devices/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "device not found"})
	})
	c := newTestClient(t, r)

	_, err := c.Get(context.Background(), 99)
	if apiclient.KindOf(err) != apiclient.KindNotFound {
		t.Fatalf("kind = %q", apiclient.KindOf(err))
	}
	if apiclient.MessageOf(err) != "device not found" {
		t.Errorf("message = %q", apiclient.MessageOf(err))
	}
}

// ==================== Types and models ====================

func TestTypesAndModels(t *testing.T) {
	var modelQuery string
	r := chi.NewRouter()
	r.Get("/api/devices/types", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"device_types": []map[string]any{
			{"id": 1, "name": "Camera", "code": "camera"},
			{"id": 2, "name": "Controller", "code": "controller"},
		}})
	})
	r.Get("/api/devices/types/code/{code}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"device_type": map[string]any{"id": 2, "name": "Controller", "code": chi.URLParam(req, "code")}})
	})
	r.Get("/api/devices/models", func(w http.ResponseWriter, req *http.Request) {
		modelQuery = req.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{"device_models": []map[string]any{{"id": 5, "name": "ADAM", "type_id": 2}}})
	})
	r.Delete("/api/devices/models/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	types, err := c.ListTypes(ctx)
	if err != nil || len(types) != 2 {
		t.Fatalf("ListTypes() = %+v, %v", types, err)
	}
	typ, err := c.GetTypeByCode(ctx, TypeController)
	if err != nil || typ.Code != TypeController {
		t.Fatalf("GetTypeByCode() = %+v, %v", typ, err)
	}
	if _, err := c.GetTypeByCode(ctx, "fridge"); apiclient.KindOf(err) != apiclient.KindBadRequest {
		t.Errorf("GetTypeByCode(unknown) kind = %q", apiclient.KindOf(err))
	}

	models, err := c.ListModels(ctx, ModelFilter{TypeID: 2})
	if err != nil || len(models) != 1 {
		t.Fatalf("ListModels() = %+v, %v", models, err)
	}
	if modelQuery != "type_id=2" {
		t.Errorf("model query = %q", modelQuery)
	}
	if err := c.DeleteModel(ctx, 5); err != nil {
		t.Errorf("DeleteModel() error = %v", err)
	}
	if _, err := c.CreateModel(ctx, ModelInput{TypeID: 2}); apiclient.KindOf(err) != apiclient.KindBadRequest {
		t.Errorf("CreateModel(no name) kind = %q", apiclient.KindOf(err))
	}
}

func TestTypeAndModelItems(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/devices/types/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"device_type": map[string]any{"id": 1, "name": "Camera", "code": "camera"}})
	})
	r.Get("/api/devices/models/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"device_model": map[string]any{"id": 5, "name": "ADAM", "type_id": 2}})
	})
	r.Put("/api/devices/models/{id}", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		json.NewDecoder(req.Body).Decode(&body) //nolint:errcheck // test server
		writeJSON(w, http.StatusOK, map[string]any{"device_model": map[string]any{"id": 5, "name": body["name"], "type_id": 2}})
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	typ, err := c.GetType(ctx, 1)
	if err != nil || typ.Code != TypeCamera {
		t.Fatalf("GetType() = %+v, %v", typ, err)
	}
	m, err := c.GetModel(ctx, 5)
	if err != nil || m.Name != "ADAM" {
		t.Fatalf("GetModel() = %+v, %v", m, err)
	}
	m, err = c.UpdateModel(ctx, 5, ModelInput{Name: "ADAM-2"})
	if err != nil || m.Name != "ADAM-2" {
		t.Fatalf("UpdateModel() = %+v, %v", m, err)
	}
	if _, err := c.UpdateModel(ctx, 5, ModelInput{Name: strings.Repeat("x", 200)}); apiclient.KindOf(err) != apiclient.KindBadRequest {
		t.Errorf("UpdateModel(long name) kind = %q", apiclient.KindOf(err))
	}
}
