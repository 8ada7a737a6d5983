package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codebuddy-labs/codebuddy/internal/auth"
	"github.com/codebuddy-labs/codebuddy/internal/curriculum"
	"github.com/codebuddy-labs/codebuddy/internal/report"
)

// newMux creates the HTTP router: health checks, the websocket endpoint and
// the terminal auth/admin API.
func newMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", a.handleReadyz)
	mux.Handle("GET /ws", a.channel)

	mux.HandleFunc("GET /api/status", a.handleStatus)
	mux.HandleFunc("GET /api/grades", a.handleGrades)
	mux.HandleFunc("POST /api/admin/login", a.handleAdminLogin)
	mux.HandleFunc("POST /api/admin/activate", a.handleActivate)
	mux.HandleFunc("GET /api/admin/keystatus", a.handleKeyStatus)
	mux.HandleFunc("GET /api/admin/report", a.handleReport)
	mux.HandleFunc("POST /api/teacher/login", a.handleTeacherLogin)
	mux.HandleFunc("POST /api/logout", a.handleLogout)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *app) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		if err := a.db.HealthCheck(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if a.cache != nil {
		if err := a.cache.HealthCheck(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *app) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"state":     a.gate.State().String(),
		"activated": a.gate.IsActivated(),
		"is_admin":  a.gate.IsAdmin(),
	}
	if a.gate.IsActivated() {
		resp["terminal_name"] = a.gate.TerminalName()
	}
	calls, tokens := a.usage.Totals()
	resp["usage"] = map[string]int64{"calls": calls, "tokens": tokens}
	writeJSON(w, http.StatusOK, resp)
}

func (a *app) handleGrades(w http.ResponseWriter, _ *http.Request) {
	titles := a.catalog.Titles()
	grades := make([]map[string]string, 0, len(titles))
	for _, g := range curriculum.Grades() {
		grades = append(grades, map[string]string{
			"grade": string(g),
			"band":  g.Band(),
			"title": titles[g],
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"grades": grades})
}

func (a *app) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := a.gate.AdminLogin(r.Context(), req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidAdminPassword):
		writeError(w, http.StatusUnauthorized, "invalid admin password")
	case err != nil:
		slog.Error("admin login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"state": a.gate.State().String()})
	}
}

func (a *app) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TerminalName     string `json:"terminal_name"`
		TerminalPassword string `json:"terminal_password"`
		APIKey           string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := a.gate.Configure(r.Context(), req.TerminalName, req.TerminalPassword, req.APIKey)
	switch {
	case errors.Is(err, auth.ErrFieldsRequired):
		writeError(w, http.StatusBadRequest, "all fields are required")
	case err != nil:
		slog.Error("activation failed", "error", err)
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Info("terminal activated", "terminal", req.TerminalName)
		writeJSON(w, http.StatusOK, map[string]string{"state": a.gate.State().String()})
	}
}

func (a *app) handleTeacherLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := a.gate.TeacherLogin(r.Context(), req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidPassword):
		writeError(w, http.StatusUnauthorized, "invalid terminal password")
	case err != nil:
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"state": a.gate.State().String()})
	}
}

func (a *app) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.gate.Logout(r.Context()); err != nil {
		slog.Error("logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": a.gate.State().String()})
}

func (a *app) handleKeyStatus(w http.ResponseWriter, r *http.Request) {
	if !a.gate.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin session required")
		return
	}
	gw, err := a.tutorGateway()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	status := gw.CheckHealth(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": status.String()})
}

func (a *app) handleReport(w http.ResponseWriter, r *http.Request) {
	if !a.gate.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin session required")
		return
	}

	students, err := a.progress.All(r.Context(), a.cfg.Terminal.ID)
	if err != nil {
		slog.Error("collecting progress failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not collect progress")
		return
	}
	f, err := report.BuildWorkbook(a.gate.TerminalName(), students)
	if err != nil {
		slog.Error("building report failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not build report")
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("codebuddy-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := f.Write(w); err != nil {
		slog.Warn("streaming report failed", "error", err)
	}
}
