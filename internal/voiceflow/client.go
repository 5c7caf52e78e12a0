package voiceflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/asrtune/asrtune/internal/transcript"
)

const (
	defaultBaseURL = "https://api.voiceflow.com"
	lookbackWindow = 7 * 24 * time.Hour
	defaultTimeout = 30 * time.Second
)

// ErrNoTranscript is returned when no transcript in the lookback window
// matches the requested session.
var ErrNoTranscript = errors.New("no transcript found for user")

// UpstreamError reports a non-success response from the transcript provider.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("voiceflow: unexpected status %d: %s", e.Status, e.Body)
}

// Client fetches transcripts from the Voiceflow API. The API key is supplied
// per call; the service forwards caller credentials verbatim and holds none
// of its own.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client targeting the production Voiceflow API.
func NewClient() *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// transcriptRef is one row of the list-transcripts response.
type transcriptRef struct {
	ID        string `json:"_id"`
	SessionID string `json:"sessionID"`
}

// FetchLogs returns the raw event log of the user's most recent transcript
// within the trailing 7-day window. It resolves the caller's session ID to a
// provider transcript ID via the list endpoint, then downloads the dialog.
func (c *Client) FetchLogs(ctx context.Context, projectID, userID, apiKey string) ([]transcript.LogEntry, error) {
	refs, err := c.listTranscripts(ctx, projectID, apiKey)
	if err != nil {
		return nil, err
	}

	var transcriptID string
	for _, ref := range refs {
		if ref.SessionID == userID {
			transcriptID = ref.ID
			break
		}
	}
	if transcriptID == "" {
		return nil, fmt.Errorf("%w %s", ErrNoTranscript, userID)
	}

	return c.getTranscript(ctx, projectID, transcriptID, apiKey)
}

func (c *Client) listTranscripts(ctx context.Context, projectID, apiKey string) ([]transcriptRef, error) {
	now := time.Now().UTC()
	q := url.Values{}
	q.Set("startDate", now.Add(-lookbackWindow).Format("2006-01-02"))
	q.Set("endDate", now.Format("2006-01-02"))

	endpoint := fmt.Sprintf("%s/v2/transcripts/%s?%s", c.baseURL, url.PathEscape(projectID), q.Encode())

	var refs []transcriptRef
	if err := c.getJSON(ctx, endpoint, apiKey, &refs); err != nil {
		return nil, fmt.Errorf("listing transcripts: %w", err)
	}
	return refs, nil
}

func (c *Client) getTranscript(ctx context.Context, projectID, transcriptID, apiKey string) ([]transcript.LogEntry, error) {
	endpoint := fmt.Sprintf("%s/v2/transcripts/%s/%s",
		c.baseURL, url.PathEscape(projectID), url.PathEscape(transcriptID))

	var entries []transcript.LogEntry
	if err := c.getJSON(ctx, endpoint, apiKey, &entries); err != nil {
		return nil, fmt.Errorf("fetching transcript %s: %w", transcriptID, err)
	}
	return entries, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, apiKey string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
