package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/JailtonJunior94/lexlog/pkg/events"
	"github.com/JailtonJunior94/lexlog/pkg/httplog"
	"github.com/JailtonJunior94/lexlog/pkg/perf"
)

const slowLogin = 250 * time.Millisecond

type pinger interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	emitter *events.Emitter
	db      pinger
	metricz http.Handler
}

type handlerParams struct {
	fx.In

	Emitter  *events.Emitter
	Gatherer prometheus.Gatherer
	Pool     *pgxpool.Pool `optional:"true"`
}

func newHandlers(p handlerParams) *handlers {
	h := &handlers{
		emitter: p.Emitter,
		metricz: promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}),
	}
	if p.Pool != nil {
		h.db = p.Pool
	}
	return h
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) ready(w http.ResponseWriter, r *http.Request) error {
	if h.db == nil {
		return writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "disabled"})
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		return writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": err.Error()})
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
}

func (h *handlers) metrics(w http.ResponseWriter, r *http.Request) error {
	h.metricz.ServeHTTP(w, r)
	return nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login accepts any non-empty password. It exists to exercise the auth
// events end to end.
func (h *handlers) login(w http.ResponseWriter, r *http.Request) error {
	defer perf.Track(r.Context(), h.emitter, "auth.login", slowLogin)()

	var body credentials
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		httplog.WriteProblem(w, r, http.StatusBadRequest, "email and password are required")
		return nil
	}

	ip := httplog.ClientIP(r)
	if body.Password == "" {
		h.emitter.AuthFailed(r.Context(), body.Email, ip, "empty password")
		httplog.WriteProblem(w, r, http.StatusUnauthorized, "invalid credentials")
		return nil
	}

	h.emitter.AuthLogin(r.Context(), body.Email, ip, r.UserAgent())
	return writeJSON(w, http.StatusOK, map[string]string{"userId": body.Email})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) error {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		httplog.WriteProblem(w, r, http.StatusBadRequest, "X-User-ID header is required")
		return nil
	}

	h.emitter.AuthLogout(r.Context(), userID, httplog.ClientIP(r))
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}
