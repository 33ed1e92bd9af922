package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mwrenn/research-pipeline/internal/domain"
	"github.com/mwrenn/research-pipeline/internal/storage"
)

// Runner executes one pipeline run per request.
type Runner interface {
	Run(ctx context.Context, req domain.ResearchRequest) (*domain.Run, error)
}

// API exposes the research pipeline over HTTP.
type API struct {
	runner Runner
	store  storage.RunStore
	logger *slog.Logger
}

// NewAPI creates the API handler set.
func NewAPI(runner Runner, store storage.RunStore, logger *slog.Logger) *API {
	return &API{runner: runner, store: store, logger: logger}
}

// RegisterRoutes mounts the API onto the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Post("/v1/research", a.handleSubmit)
	r.Get("/v1/runs", a.handleListRuns)
	r.Get("/v1/runs/{id}", a.handleGetRun)
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type runResponse struct {
	ID         string         `json:"id"`
	Topic      string         `json:"topic"`
	Query      string         `json:"query"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	Steps      []stepResponse `json:"steps"`
	CreatedAt  time.Time      `json:"created_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

type stepResponse struct {
	Stage      string    `json:"stage"`
	Capability string    `json:"capability"`
	Status     string    `json:"status"`
	Failure    string    `json:"failure,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req domain.ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body: "+err.Error())
		return
	}

	run, err := a.runner.Run(r.Context(), req)
	if err != nil {
		if domain.IsValidation(err) {
			writeError(w, http.StatusBadRequest, "validation", err.Error())
			return
		}
		a.logger.Error("run failed to start", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "server", "failed to execute research run")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(run))
}

func (a *API) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := a.store.GetRun(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "run "+id+" not found")
		return
	}
	if err != nil {
		a.logger.Error("failed to load run", slog.String("run_id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "server", "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(run))
}

func (a *API) handleListRuns(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListOptions{Limit: 50}
	if status := r.URL.Query().Get("status"); status != "" {
		opts.Status = domain.RunStatus(status)
	}

	runs, err := a.store.ListRuns(r.Context(), opts)
	if err != nil {
		a.logger.Error("failed to list runs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "server", "failed to list runs")
		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

func toRunResponse(run *domain.Run) runResponse {
	resp := runResponse{
		ID:         run.ID,
		Topic:      run.Topic,
		Query:      run.Query,
		Status:     string(run.Status()),
		Error:      run.Error,
		Steps:      make([]stepResponse, 0, len(run.Steps)),
		CreatedAt:  run.CreatedAt,
		FinishedAt: run.FinishedAt,
	}
	for _, step := range run.Steps {
		resp.Steps = append(resp.Steps, stepResponse{
			Stage:      step.Stage,
			Capability: step.Capability,
			Status:     string(step.Status),
			Failure:    string(step.Failure),
			Error:      step.Error,
			DurationMS: step.Duration.Milliseconds(),
			StartedAt:  step.StartedAt,
			EndedAt:    step.EndedAt,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, msg string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Type: errType, Message: msg}})
}
