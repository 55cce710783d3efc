// Package server exposes the session manager over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/tbxark/healthagent/dialogue"
	"github.com/tbxark/healthagent/engine"
	"github.com/tbxark/healthagent/store"
	"github.com/tbxark/healthagent/types"
)

const maxBodyBytes = 64 << 10

// Handler serves the session and record endpoints.
type Handler struct {
	manager *engine.Manager
	repo    store.Repository
}

func NewHandler(manager *engine.Manager, repo store.Repository) *Handler {
	return &Handler{manager: manager, repo: repo}
}

// Router builds the chi router with the standard middleware stack.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", h.HandleHealth)
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.HandleStart)
		r.Post("/restore", h.HandleRestore)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Delete("/", h.HandleDelete)
			r.Put("/kind", h.HandleSwitchKind)
			r.Post("/turns", h.HandleTurn)
			r.Get("/checkpoint", h.HandleCheckpoint)
		})
	})
	r.Get("/api/records", h.HandleListRecords)
}

type startRequest struct {
	ID   string           `json:"id,omitempty"`
	Kind types.RecordKind `json:"kind"`
}

type kindRequest struct {
	Kind types.RecordKind `json:"kind"`
}

type turnRequest struct {
	Text string `json:"text"`
}

type sessionResponse struct {
	Session engine.Session `json:"session"`
}

type recordsResponse struct {
	Records []types.Record `json:"records"`
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.manager.Start(req.ID, req.Kind)
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusCreated, sessionResponse{Session: s})
}

func (h *Handler) HandleSwitchKind(w http.ResponseWriter, r *http.Request) {
	var req kindRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.manager.SwitchKind(chi.URLParam(r, "id"), req.Kind)
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, sessionResponse{Session: s})
}

func (h *Handler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decodeBody(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := h.manager.Turn(r.Context(), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, sessionResponse{Session: s})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleCheckpoint(w http.ResponseWriter, r *http.Request) {
	data, err := h.manager.Checkpoint(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read body")
		return
	}
	s, err := h.manager.Restore(data)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	JSON(w, http.StatusCreated, sessionResponse{Session: s})
}

func (h *Handler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	kind := types.RecordKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		Error(w, http.StatusBadRequest, "unknown kind")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	records, err := h.repo.ListRecords(r.Context(), kind, limit)
	if err != nil {
		slog.Error("List records failed", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	if records == nil {
		records = []types.Record{}
	}
	JSON(w, http.StatusOK, recordsResponse{Records: records})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.repo.Ping(ctx); err != nil {
		slog.Warn("Health check failed", "error", err)
		JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	JSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": h.manager.Len()})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrBusy), errors.Is(err, types.ErrSessionReset):
		status = http.StatusConflict
	case errors.Is(err, types.ErrInvariantViolation), errors.Is(err, types.ErrInputParse):
		status = http.StatusBadRequest
	}
	body := map[string]string{"error": err.Error(), "error_kind": string(types.KindOf(err))}
	if status == http.StatusConflict {
		body["message"] = dialogue.MsgBusy
	}
	JSON(w, status, body)
}

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.New("failed to read body")
	}
	if len(data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chiMiddleware.GetReqID(r.Context()),
		)
	})
}
