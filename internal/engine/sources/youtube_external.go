package sources

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

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/cenkalti/backoff/v5"
)

// ExternalConfig configures the optional third-party caption service.
type ExternalConfig struct {
	BaseURL      string
	APIKey       string // empty = strategy disabled
	PollInterval time.Duration
	PollAttempts int
	PollTimeout  time.Duration // bound on the whole polling phase; 0 = attempts*interval + 30s
	HTTPClient   *http.Client
	Logger       engine.Logger
}

// ExternalStrategy asks a third-party caption API for the transcript. The API
// either answers immediately (200) or hands out a job (202) that is polled at a
// fixed interval for a bounded number of attempts.
type ExternalStrategy struct {
	baseURL  string
	apiKey   string
	interval time.Duration
	attempts int
	timeout  time.Duration
	client   *http.Client
	log      engine.Logger
}

// NewExternalStrategy returns nil when no API key is configured.
func NewExternalStrategy(c ExternalConfig) *ExternalStrategy {
	if c.APIKey == "" || c.BaseURL == "" {
		return nil
	}
	s := &ExternalStrategy{
		baseURL:  strings.TrimRight(c.BaseURL, "/"),
		apiKey:   c.APIKey,
		interval: c.PollInterval,
		attempts: c.PollAttempts,
		timeout:  c.PollTimeout,
		client:   c.HTTPClient,
		log:      engine.OrDefault(c.Logger),
	}
	if s.interval <= 0 {
		s.interval = time.Second
	}
	if s.attempts <= 0 {
		s.attempts = 30
	}
	if s.timeout <= 0 {
		s.timeout = s.interval*time.Duration(s.attempts) + 30*time.Second
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 15 * time.Second}
	}
	return s
}

func (*ExternalStrategy) Name() string { return "external_api" }

// externalTranscript is both the immediate and the job-status payload.
type externalTranscript struct {
	Lang    string `json:"lang"`
	JobID   string `json:"jobId"`
	Status  string `json:"status"` // queued, active, completed, failed
	Error   string `json:"error"`
	Content []struct {
		Text     string  `json:"text"`
		Offset   float64 `json:"offset"`   // ms
		Duration float64 `json:"duration"` // ms
	} `json:"content"`
}

func (t *externalTranscript) entries() []CaptionEntry {
	entries := make([]CaptionEntry, 0, len(t.Content))
	for _, c := range t.Content {
		text := strings.TrimSpace(engine.DecodeEntities(c.Text))
		if text == "" {
			continue
		}
		entries = append(entries, CaptionEntry{
			Text:     text,
			Start:    max(c.Offset, 0) / 1000,
			Duration: max(c.Duration, 0) / 1000,
		})
	}
	return entries
}

var errJobPending = errors.New("job pending")

func (s *ExternalStrategy) Acquire(ctx context.Context, req *Request) (*Acquisition, error) {
	q := url.Values{}
	q.Set("videoId", req.VideoID)
	q.Set("lang", req.Lang)

	status, t, err := s.get(ctx, s.baseURL+"/youtube/transcript?"+q.Encode())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, missf("external api: %v", err)
	}

	switch status {
	case http.StatusOK:
	case http.StatusAccepted:
		if t.JobID == "" {
			return nil, missf("external api: 202 without job id")
		}
		s.log.Debug("youtube: external job queued", "id", req.VideoID, "job", t.JobID)
		t, err = s.poll(ctx, t.JobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, missf("external job %s: %v", t.JobID, err)
		}
	default:
		return nil, missf("external api: HTTP %d %s", status, t.Error)
	}

	entries := t.entries()
	if len(entries) == 0 {
		return nil, missf("external api: empty transcript")
	}
	lang := t.Lang
	if lang == "" {
		lang = req.Lang
	}
	return &Acquisition{Entries: entries, Language: lang}, nil
}

// poll checks the job at a fixed interval until it completes, fails, or the
// attempt cap or the polling timeout is hit. The timeout never exceeds half of
// the caller's remaining budget, so the later strategies still get to run.
func (s *ExternalStrategy) poll(ctx context.Context, jobID string) (*externalTranscript, error) {
	ctx, cancel := context.WithTimeout(ctx, pollBudget(ctx, s.timeout))
	defer cancel()

	jobURL := s.baseURL + "/youtube/transcript/" + url.PathEscape(jobID)

	op := func() (*externalTranscript, error) {
		status, t, err := s.get(ctx, jobURL)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK && status != http.StatusAccepted {
			return nil, backoff.Permanent(fmt.Errorf("job status HTTP %d", status))
		}
		switch t.Status {
		case "failed":
			return nil, backoff.Permanent(fmt.Errorf("job failed: %s", t.Error))
		case "completed":
			return t, nil
		case "":
			if len(t.Content) > 0 {
				return t, nil
			}
		}
		return nil, errJobPending
	}

	t, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.interval)),
		backoff.WithMaxTries(uint(s.attempts)),
	)
	if err != nil {
		return &externalTranscript{JobID: jobID}, err
	}
	return t, nil
}

func pollBudget(ctx context.Context, timeout time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return min(timeout, time.Until(deadline)/2)
	}
	return timeout
}

func (s *ExternalStrategy) get(ctx context.Context, target string) (int, *externalTranscript, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", engine.UserAgentBot)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCaptionBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	t := &externalTranscript{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, t); err != nil && resp.StatusCode < 300 {
			return resp.StatusCode, nil, fmt.Errorf("decode: %w", err)
		}
	}
	return resp.StatusCode, t, nil
}
