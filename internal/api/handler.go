package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/asrtune/asrtune/internal/optimizer"
	"github.com/asrtune/asrtune/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// JobStore is the slice of the storage layer the front door needs.
type JobStore interface {
	SeedJob(userID, projectID, runID string) error
	GetLatestJob(userID string) (storage.Job, error)
}

// PipelineRunner executes one optimization job to its terminal state.
type PipelineRunner interface {
	Run(ctx context.Context, params optimizer.Params)
}

// Deps holds the front door's collaborators.
type Deps struct {
	Store    JobStore
	Pipeline PipelineRunner
	// OpenAIKeySet gates submissions: without a server-held LLM credential
	// the pipeline cannot finish, so submission is refused up front.
	OpenAIKeySet bool
}

// OptimizeRequest is the body of POST /optimize.
type OptimizeRequest struct {
	ProjectID     string `json:"projectID"`
	UserID        string `json:"userID"`
	VFApiKey      string `json:"vfApiKey"`
	SplitByLaunch *bool  `json:"splitByLaunch"`
}

// JobResponse is the body of a successful GET /results.
type JobResponse struct {
	UserID    string          `json:"userID"`
	ProjectID string          `json:"projectID"`
	RunID     string          `json:"runID"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result"`
	CreatedAt string          `json:"createdAt"`
}

// NewHandler returns the HTTP front door.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	notFound := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Not Found"))
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/health", handleHealth)
	r.Post("/optimize", handleOptimize(deps))
	r.Get("/results", handleResults(deps))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleOptimize(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req OptimizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}

		if req.ProjectID == "" {
			httpError(w, http.StatusBadRequest, "projectID is required")
			return
		}
		if req.UserID == "" {
			httpError(w, http.StatusBadRequest, "userID is required")
			return
		}
		if req.VFApiKey == "" {
			httpError(w, http.StatusBadRequest, "vfApiKey is required")
			return
		}
		if !deps.OpenAIKeySet {
			httpError(w, http.StatusInternalServerError, "server is not configured with an OpenAI API key")
			return
		}

		splitByLaunch := true
		if req.SplitByLaunch != nil {
			splitByLaunch = *req.SplitByLaunch
		}

		userID := NormalizeUserID(req.UserID)
		runID := uuid.New().String()

		if err := deps.Store.SeedJob(userID, req.ProjectID, runID); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to record job: %v", err)
			return
		}

		// Detached: the response does not wait for the pipeline, callers poll
		// /results. The request context would die with this handler, so the
		// pipeline gets a fresh one.
		go deps.Pipeline.Run(context.Background(), optimizer.Params{
			ProjectID:     req.ProjectID,
			UserID:        userID,
			APIKey:        req.VFApiKey,
			RunID:         runID,
			SplitByLaunch: splitByLaunch,
		})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"message": "optimization started",
			"userID":  userID,
		})
	}
}

func handleResults(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawID := r.URL.Query().Get("userID")
		if rawID == "" {
			httpError(w, http.StatusBadRequest, "userID query parameter is required")
			return
		}

		job, err := deps.Store.GetLatestJob(NormalizeUserID(rawID))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "No results found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load results: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(JobResponse{
			UserID:    job.UserID,
			ProjectID: job.ProjectID,
			RunID:     job.RunID,
			Status:    job.Status,
			Result:    resultJSON(job.Result),
			CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
}

// resultJSON deserializes the stored result column back into its structured
// shape. Anything unparseable is surfaced as a plain string.
func resultJSON(stored string) json.RawMessage {
	if json.Valid([]byte(stored)) {
		return json.RawMessage(stored)
	}
	quoted, _ := json.Marshal(stored)
	return quoted
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": fmt.Sprintf(format, args...),
	})
}
