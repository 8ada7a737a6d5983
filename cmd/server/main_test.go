package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codebuddy-labs/codebuddy/internal/platform/config"
)

func testApp(t *testing.T) (*app, *http.ServeMux) {
	t.Helper()
	cfg := &config.Config{
		Server:   config.ServerConfig{Port: 8080, Host: "127.0.0.1"},
		Terminal: config.TerminalConfig{ID: "term-test"},
		Admin:    config.AdminConfig{Password: "Skidmin2025"},
		AI:       config.AIConfig{Model: "gemini-2.5-flash"},
		Log:      config.LogConfig{Level: "error", Format: "json"},
	}
	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(a.Close)
	return a, newMux(a)
}

func do(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return out
}

func TestHealthEndpoints(t *testing.T) {
	_, mux := testApp(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := do(t, mux, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestStatus_FreshTerminal(t *testing.T) {
	_, mux := testApp(t)

	rec := do(t, mux, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode(t, rec)
	if body["activated"] != false {
		t.Error("activated = true on a fresh terminal")
	}
	if body["state"] != "admin-authenticating" {
		t.Errorf("state = %v, want admin-authenticating", body["state"])
	}
}

func TestGrades(t *testing.T) {
	_, mux := testApp(t)

	rec := do(t, mux, http.MethodGet, "/api/grades", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode(t, rec)
	grades, ok := body["grades"].([]any)
	if !ok || len(grades) != 3 {
		t.Fatalf("grades = %v, want 3 entries", body["grades"])
	}
	first := grades[0].(map[string]any)
	if first["grade"] != "JUNIOR" || first["title"] != "The Thinker's Path" {
		t.Errorf("grades[0] = %v", first)
	}
}

func TestActivationFlow(t *testing.T) {
	a, mux := testApp(t)

	// Wrong admin password.
	rec := do(t, mux, http.MethodPost, "/api/admin/login", `{"password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong-password status = %d, want 401", rec.Code)
	}

	// Correct admin password moves the gate to configuration.
	rec = do(t, mux, http.MethodPost, "/api/admin/login", `{"password":"Skidmin2025"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login status = %d, body = %s", rec.Code, rec.Body)
	}

	// Activation with a missing field is rejected.
	rec = do(t, mux, http.MethodPost, "/api/admin/activate",
		`{"terminal_name":"Room 12","terminal_password":"","api_key":"k"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("partial activation status = %d, want 400", rec.Code)
	}

	// Full activation succeeds.
	rec = do(t, mux, http.MethodPost, "/api/admin/activate",
		`{"terminal_name":"Room 12","terminal_password":"pw123","api_key":"test-key"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("activation status = %d, body = %s", rec.Code, rec.Body)
	}
	if !a.gate.IsActivated() {
		t.Fatal("gate not activated after /api/admin/activate")
	}

	rec = do(t, mux, http.MethodGet, "/api/status", "")
	body := decode(t, rec)
	if body["terminal_name"] != "Room 12" {
		t.Errorf("terminal_name = %v, want Room 12", body["terminal_name"])
	}

	// Logout then teacher login with the terminal password.
	rec = do(t, mux, http.MethodPost, "/api/logout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	rec = do(t, mux, http.MethodPost, "/api/teacher/login", `{"password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong teacher password status = %d, want 401", rec.Code)
	}
	rec = do(t, mux, http.MethodPost, "/api/teacher/login", `{"password":"pw123"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("teacher login status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestReport_RequiresAdmin(t *testing.T) {
	_, mux := testApp(t)

	rec := do(t, mux, http.MethodGet, "/api/admin/report", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("report status = %d, want 403 without an admin session", rec.Code)
	}

	rec = do(t, mux, http.MethodGet, "/api/admin/keystatus", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("keystatus status = %d, want 403 without an admin session", rec.Code)
	}
}

func TestReport_StreamsWorkbook(t *testing.T) {
	_, mux := testApp(t)

	do(t, mux, http.MethodPost, "/api/admin/login", `{"password":"Skidmin2025"}`)
	do(t, mux, http.MethodPost, "/api/admin/activate",
		`{"terminal_name":"Room 12","terminal_password":"pw123","api_key":"test-key"}`)

	rec := do(t, mux, http.MethodGet, "/api/admin/report", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d, body = %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type = %q, want an xlsx type", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("report body is empty")
	}
}
