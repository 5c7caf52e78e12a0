package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/asrtune/asrtune/internal/recommend"
	"github.com/asrtune/asrtune/internal/transcript"
)

// JobStore records terminal pipeline outcomes.
type JobStore interface {
	CompleteJob(userID, projectID, runID, recommendationJSON string) error
	FailJob(userID, projectID, runID, errMsg string) error
}

// LogFetcher retrieves the raw transcript event log for a user.
type LogFetcher interface {
	FetchLogs(ctx context.Context, projectID, userID, apiKey string) ([]transcript.LogEntry, error)
}

// Recommender scores processed conversations into a timing recommendation.
type Recommender interface {
	Recommend(ctx context.Context, data transcript.ProcessedData) (*recommend.Recommendation, error)
}

// ErrNoConversations is recorded when the transcript yields nothing analyzable.
var ErrNoConversations = errors.New("no analyzable conversations found")

// Params describes one optimization run.
type Params struct {
	ProjectID     string
	UserID        string // normalized
	APIKey        string // caller-supplied transcript provider credential
	RunID         string
	SplitByLaunch bool
}

// Pipeline runs the fetch → segment → recommend sequence and writes the
// terminal job state.
type Pipeline struct {
	store       JobStore
	fetcher     LogFetcher
	recommender Recommender
	logger      *slog.Logger
}

// New creates a Pipeline with the given dependencies.
func New(store JobStore, fetcher LogFetcher, recommender Recommender) *Pipeline {
	return &Pipeline{
		store:       store,
		fetcher:     fetcher,
		recommender: recommender,
		logger:      slog.Default(),
	}
}

// Run executes one optimization job to its terminal state. It is launched as
// a detached goroutine per submission and must never escape an error or
// panic: every failure ends as an error write on the job record.
func (p *Pipeline) Run(ctx context.Context, params Params) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("optimization pipeline panicked",
				"user_id", params.UserID, "project_id", params.ProjectID, "panic", r)
			p.writeFailure(params, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := p.run(ctx, params); err != nil {
		p.logger.Warn("optimization job failed",
			"user_id", params.UserID, "project_id", params.ProjectID, "run_id", params.RunID, "error", err)
		p.writeFailure(params, err.Error())
		return
	}

	p.logger.Info("optimization job completed",
		"user_id", params.UserID, "project_id", params.ProjectID, "run_id", params.RunID)
}

func (p *Pipeline) run(ctx context.Context, params Params) error {
	entries, err := p.fetcher.FetchLogs(ctx, params.ProjectID, params.UserID, params.APIKey)
	if err != nil {
		return fmt.Errorf("fetching transcript: %w", err)
	}

	conversations := transcript.Segment(entries, params.SplitByLaunch)
	if len(conversations) == 0 {
		return ErrNoConversations
	}

	rec, err := p.recommender.Recommend(ctx, transcript.ProcessedData(conversations))
	if err != nil {
		return fmt.Errorf("scoring conversations: %w", err)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("serializing recommendation: %w", err)
	}

	if err := p.store.CompleteJob(params.UserID, params.ProjectID, params.RunID, string(payload)); err != nil {
		return fmt.Errorf("recording completion: %w", err)
	}
	return nil
}

func (p *Pipeline) writeFailure(params Params, msg string) {
	if err := p.store.FailJob(params.UserID, params.ProjectID, params.RunID, msg); err != nil {
		p.logger.Error("failed to record job failure",
			"user_id", params.UserID, "project_id", params.ProjectID, "error", err)
	}
}
