package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/servebeer/pinning/internal/logger"
	"github.com/servebeer/pinning/internal/model"
	"github.com/servebeer/pinning/internal/service"
)

// Ops serves the operational surface: health probe, public status
// rollup, activity feed, account provisioning and Prometheus metrics.
type Ops struct {
	status  *service.Status
	account *service.Account
	logger  *logger.Logger
}

func NewOps(status *service.Status, account *service.Account, logger *logger.Logger) *Ops {
	return &Ops{
		status:  status,
		account: account,
		logger:  logger,
	}
}

// Router builds the chi router for the ops endpoints.
func (o *Ops) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/health", o.handleHealth)
	r.Get("/status", o.handleStatus)
	r.Get("/status/activity", o.handleActivity)
	r.Post("/admin/users", o.handleRegister)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (o *Ops) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := o.status.SystemStatus(r.Context())

	code := http.StatusOK
	if status.Overall == service.StateDown {
		code = http.StatusServiceUnavailable
	}

	o.writeJSON(w, code, map[string]any{
		"status":         status.Overall,
		"ipfs":           status.Backend.State,
		"database":       status.Database.State,
		"admission_mode": status.AdmissionMode,
		"timestamp":      status.Timestamp,
	})
}

func (o *Ops) handleStatus(w http.ResponseWriter, r *http.Request) {
	o.writeJSON(w, http.StatusOK, o.status.SystemStatus(r.Context()))
}

func (o *Ops) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := o.status.RecentActivity(r.Context(), limit)
	if err != nil {
		o.logger.Error("failed to build activity feed", "error", err)
		o.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load activity",
		})
		return
	}

	o.writeJSON(w, http.StatusOK, map[string]any{
		"activity": entries,
	})
}

func (o *Ops) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Tier  string `json:"tier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		o.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
		return
	}

	user, err := o.account.Register(r.Context(), req.Email, model.Tier(req.Tier))
	if err != nil {
		switch {
		case model.AdmissionKind(err) == model.KindInvalidInput:
			o.writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		case errors.Is(err, model.ErrConflict):
			o.writeJSON(w, http.StatusConflict, map[string]string{
				"error": "email already registered",
			})
		default:
			o.logger.Error("failed to register user", "error", err)
			o.writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to register user",
			})
		}
		return
	}

	o.writeJSON(w, http.StatusCreated, map[string]any{
		"id":            user.ID,
		"email":         user.Email,
		"tier":          user.Tier,
		"storage_limit": user.StorageLimit,
	})
}

func (o *Ops) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		o.logger.Error("failed to encode response", "error", err)
	}
}
