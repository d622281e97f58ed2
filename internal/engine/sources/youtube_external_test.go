package sources

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExternal(t *testing.T, h http.HandlerFunc) *ExternalStrategy {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	s := NewExternalStrategy(ExternalConfig{
		BaseURL:      srv.URL + "/",
		APIKey:       "secret",
		PollInterval: time.Millisecond,
		PollAttempts: 5,
		HTTPClient:   srv.Client(),
		Logger:       engine.NopLogger{},
	})
	require.NotNil(t, s)
	return s
}

const externalContent = `{"lang":"en","content":[` +
	`{"text":"Hello &amp; welcome.","offset":1500,"duration":2000},` +
	`{"text":"  ","offset":3500,"duration":10},` +
	`{"text":"Second.","offset":4000,"duration":1000}]}`

func TestNewExternalStrategyDisabled(t *testing.T) {
	assert.Nil(t, NewExternalStrategy(ExternalConfig{BaseURL: "http://x.test"}))
	assert.Nil(t, NewExternalStrategy(ExternalConfig{APIKey: "k"}))
}

func TestExternalImmediate(t *testing.T) {
	s := newExternal(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/transcript", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, testVideoID, r.URL.Query().Get("videoId"))
		assert.Equal(t, "en", r.URL.Query().Get("lang"))
		_, _ = io.WriteString(w, externalContent)
	})

	acq, err := s.Acquire(context.Background(), NewRequest(testVideoID, "en", nil))
	require.NoError(t, err)
	assert.Equal(t, "en", acq.Language)
	require.Len(t, acq.Entries, 2)
	assert.Equal(t, CaptionEntry{Text: "Hello & welcome.", Start: 1.5, Duration: 2}, acq.Entries[0])
	assert.Equal(t, "Second.", acq.Entries[1].Text)
}

func TestExternalJobPolling(t *testing.T) {
	var polls atomic.Int32
	s := newExternal(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/youtube/transcript":
			w.WriteHeader(http.StatusAccepted)
			_, _ = io.WriteString(w, `{"jobId":"job-1"}`)
		case "/youtube/transcript/job-1":
			assert.Equal(t, "secret", r.Header.Get("x-api-key"))
			switch polls.Add(1) {
			case 1:
				_, _ = io.WriteString(w, `{"status":"queued"}`)
			case 2:
				_, _ = io.WriteString(w, `{"status":"active"}`)
			default:
				_, _ = io.WriteString(w, `{"status":"completed","lang":"en","content":[{"text":"Done.","offset":0,"duration":500}]}`)
			}
		default:
			http.NotFound(w, r)
		}
	})

	acq, err := s.Acquire(context.Background(), NewRequest(testVideoID, "en", nil))
	require.NoError(t, err)
	require.Len(t, acq.Entries, 1)
	assert.Equal(t, "Done.", acq.Entries[0].Text)
	assert.Equal(t, int32(3), polls.Load())
}

func TestExternalJobFailed(t *testing.T) {
	var polls atomic.Int32
	s := newExternal(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/youtube/transcript" {
			w.WriteHeader(http.StatusAccepted)
			_, _ = io.WriteString(w, `{"jobId":"job-2"}`)
			return
		}
		polls.Add(1)
		_, _ = io.WriteString(w, `{"status":"failed","error":"video unavailable"}`)
	})

	_, err := s.Acquire(context.Background(), NewRequest(testVideoID, "en", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStrategyMiss)
	assert.Contains(t, err.Error(), "video unavailable")
	assert.Equal(t, int32(1), polls.Load())
}

func TestExternalJobNeverCompletes(t *testing.T) {
	var polls atomic.Int32
	s := newExternal(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/youtube/transcript" {
			w.WriteHeader(http.StatusAccepted)
			_, _ = io.WriteString(w, `{"jobId":"job-3"}`)
			return
		}
		polls.Add(1)
		_, _ = io.WriteString(w, `{"status":"active"}`)
	})

	_, err := s.Acquire(context.Background(), NewRequest(testVideoID, "en", nil))
	assert.ErrorIs(t, err, ErrStrategyMiss)
	assert.Equal(t, int32(5), polls.Load())
}

func TestExternalErrorsAreMisses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"empty transcript", http.StatusOK, `{"lang":"en","content":[]}`},
		{"accepted without job", http.StatusAccepted, `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newExternal(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := s.Acquire(context.Background(), NewRequest(testVideoID, "en", nil))
			assert.ErrorIs(t, err, ErrStrategyMiss)
		})
	}
}

func TestExternalRunsBeforeSession(t *testing.T) {
	s := newExternal(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, externalContent)
	})
	var sessions atomic.Int32
	req := NewRequest(testVideoID, "en", func(context.Context, string) (*Session, error) {
		sessions.Add(1)
		return nil, ErrUpstreamUnavailable
	})

	res, err := NewChain(nil, engine.NopLogger{}, s, &EmbeddedStrategy{}).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "external_api", res.Strategy)
	assert.Zero(t, sessions.Load())
	assert.Nil(t, req.Acquired())
}

func TestExternalPollTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/youtube/transcript" {
			w.WriteHeader(http.StatusAccepted)
			_, _ = io.WriteString(w, `{"jobId":"slow"}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"queued"}`)
	}))
	t.Cleanup(srv.Close)

	s := NewExternalStrategy(ExternalConfig{
		BaseURL:      srv.URL,
		APIKey:       "secret",
		PollInterval: 5 * time.Millisecond,
		PollAttempts: 100000,
		PollTimeout:  50 * time.Millisecond,
		HTTPClient:   srv.Client(),
		Logger:       engine.NopLogger{},
	})

	ctx := context.Background()
	start := time.Now()
	_, err := s.Acquire(ctx, NewRequest(testVideoID, "en", nil))
	assert.ErrorIs(t, err, ErrStrategyMiss)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.NoError(t, ctx.Err())
}

func TestPollBudget(t *testing.T) {
	assert.Equal(t, time.Minute, pollBudget(context.Background(), time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	got := pollBudget(ctx, time.Minute)
	assert.LessOrEqual(t, got, 5*time.Second)
	assert.Greater(t, got, 4*time.Second)

	assert.Equal(t, time.Second, pollBudget(ctx, time.Second))
}
