package transcript

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const videoID = "dQw4w9WgXcQ"

// upstream fakes the watch page, one caption track and oEmbed.
func upstream(t *testing.T, watch http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var watchHits atomic.Int32
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		watchHits.Add(1)
		if watch != nil {
			watch(w, r)
			return
		}
		_, _ = io.WriteString(w, `<html><script>var ytInitialPlayerResponse = {"playabilityStatus":{"status":"OK"},`+
			`"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[`+
			`{"baseUrl":"`+srv.URL+`/caption","languageCode":"en-GB"}]}}};</script></html>`)
	})
	mux.HandleFunc("/caption", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<transcript>`+
			`<text start="0" dur="1">First sentence.</text>`+
			`<text start="1" dur="1">Second sentence.</text>`+
			`<text start="2" dur="1">Third sentence.</text>`+
			`<text start="75.25" dur="1">Fourth &amp; last</text>`+
			`</transcript>`)
	})
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"title":"Never Gonna Give You Up"}`)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &watchHits
}

func youtubeFor(srv *httptest.Server) *sources.YouTube {
	return sources.NewYouTube(sources.YouTubeConfig{
		HTTPClient: srv.Client(),
		Endpoints: sources.Endpoints{
			Watch:     srv.URL + "/watch",
			Player:    srv.URL + "/player",
			TimedText: srv.URL + "/timedtext",
			OEmbed:    srv.URL + "/oembed",
		},
		Retry:  &engine.RetryConfig{},
		Logger: engine.NopLogger{},
	})
}

func TestTranscriptEndToEnd(t *testing.T) {
	srv, _ := upstream(t, nil)
	yt := youtubeFor(srv)
	svc := NewService(Config{YouTube: yt, Logger: engine.NopLogger{}, Timeout: 5 * time.Second})

	res, err := svc.Transcript(context.Background(), "  "+videoID+"\n", Options{})
	require.NoError(t, err)

	assert.Equal(t, videoID, res.VideoID)
	assert.Equal(t, "Never Gonna Give You Up", res.Title)
	assert.Equal(t, "en-GB", res.Language)
	assert.Equal(t, 4, res.TotalSegments)
	require.Len(t, res.Paragraphs, 2)
	assert.Equal(t, Paragraph{Timestamp: "0:00", OffsetMs: 0, Text: "First sentence. Second sentence. Third sentence."}, res.Paragraphs[0])
	assert.Equal(t, Paragraph{Timestamp: "1:15", OffsetMs: 75250, Text: "Fourth & last"}, res.Paragraphs[1])
}

func TestTranscriptInvalidInput(t *testing.T) {
	srv, hits := upstream(t, nil)
	svc := NewService(Config{YouTube: youtubeFor(srv), Logger: engine.NopLogger{}})

	for _, in := range []string{"", "not a url", "https://vimeo.com/12345"} {
		_, err := svc.Transcript(context.Background(), in, Options{})
		assert.ErrorIs(t, err, ErrInvalidInput, in)
	}
	assert.Zero(t, hits.Load())
}

func TestTranscriptUpstreamUnavailable(t *testing.T) {
	srv, _ := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	svc := NewService(Config{YouTube: youtubeFor(srv), Logger: engine.NopLogger{}})

	_, err := svc.Transcript(context.Background(), videoID, Options{})
	assert.ErrorIs(t, err, sources.ErrUpstreamUnavailable)
}

func TestTranscriptNoCaptions(t *testing.T) {
	srv, _ := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>ytInitialPlayerResponse = {"playabilityStatus":{"status":"ERROR","reason":"Video unavailable"}};</html>`)
	})
	yt := youtubeFor(srv)
	svc := NewService(Config{
		YouTube: yt,
		Chain:   sources.NewChain(yt, engine.NopLogger{}, &sources.EmbeddedStrategy{}),
		Logger:  engine.NopLogger{},
	})

	_, err := svc.Transcript(context.Background(), videoID, Options{})
	assert.ErrorIs(t, err, sources.ErrNoCaptions)
	assert.Contains(t, err.Error(), "Video unavailable")
}

func TestTranscriptTimeout(t *testing.T) {
	srv, _ := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	svc := NewService(Config{YouTube: youtubeFor(srv), Logger: engine.NopLogger{}, Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := svc.Transcript(context.Background(), videoID, Options{})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 3*time.Second)
}

// langRecorder records the requested language and returns fixed entries.
type langRecorder struct{ lang string }

func (*langRecorder) Name() string { return "recorder" }

func (r *langRecorder) Acquire(_ context.Context, req *sources.Request) (*sources.Acquisition, error) {
	r.lang = req.Lang
	return &sources.Acquisition{Entries: []sources.CaptionEntry{
		{Text: "um so hello.", Start: 0, Duration: 1},
		{Text: "uh welcome.", Start: 1, Duration: 1},
		{Text: "bye.", Start: 2, Duration: 1},
		{Text: "really bye", Start: 3, Duration: 1},
	}}, nil
}

func TestTranscriptLanguageAndCleanup(t *testing.T) {
	srv, hits := upstream(t, nil)
	yt := youtubeFor(srv)
	rec := &langRecorder{}
	var cleanups atomic.Int32
	llm := engine.CompleterFunc(func(_ context.Context, prompt string) (string, error) {
		cleanups.Add(1)
		return strings.Join([]string{"[P0] So, hello. Welcome. Bye.", "[P1] Really, bye."}, "\n"), nil
	})
	svc := NewService(Config{
		YouTube:     yt,
		Chain:       sources.NewChain(yt, engine.NopLogger{}, rec),
		Cleaner:     NewCleaner(llm, time.Second, engine.NopLogger{}),
		Logger:      engine.NopLogger{},
		DefaultLang: "de",
	})

	res, err := svc.Transcript(context.Background(), videoID, Options{})
	require.NoError(t, err)
	assert.Equal(t, "de", rec.lang)
	assert.Equal(t, "de", res.Language)
	assert.Equal(t, "um so hello. uh welcome. bye.", res.Paragraphs[0].Text)
	assert.Zero(t, cleanups.Load())
	assert.Zero(t, hits.Load(), "session is only fetched when a strategy needs it")

	res, err = svc.Transcript(context.Background(), videoID, Options{Lang: "fr", Clean: true})
	require.NoError(t, err)
	assert.Equal(t, "fr", rec.lang)
	require.Len(t, res.Paragraphs, 2)
	assert.Equal(t, "So, hello. Welcome. Bye.", res.Paragraphs[0].Text)
	assert.Equal(t, "Really, bye.", res.Paragraphs[1].Text)
	assert.Equal(t, int32(1), cleanups.Load())
}

func TestTranscriptCleanWithoutCleaner(t *testing.T) {
	srv, _ := upstream(t, nil)
	yt := youtubeFor(srv)
	svc := NewService(Config{
		YouTube:     yt,
		Chain:       sources.NewChain(yt, engine.NopLogger{}, &langRecorder{}),
		Logger:      engine.NopLogger{},
		AlwaysClean: true,
	})

	res, err := svc.Transcript(context.Background(), videoID, Options{Clean: true})
	require.NoError(t, err)
	assert.Equal(t, "um so hello. uh welcome. bye.", res.Paragraphs[0].Text)
	assert.Equal(t, []string{"recorder"}, svc.Strategies())
}

func TestTranscriptExternalJobStallFallsThrough(t *testing.T) {
	srv, _ := upstream(t, nil)
	yt := youtubeFor(srv)

	var polls atomic.Int32
	ext := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/youtube/transcript" {
			w.WriteHeader(http.StatusAccepted)
			_, _ = io.WriteString(w, `{"jobId":"job-1","status":"queued"}`)
			return
		}
		polls.Add(1)
		time.Sleep(17 * time.Millisecond)
		_, _ = io.WriteString(w, `{"jobId":"job-1","status":"active"}`)
	}))
	t.Cleanup(ext.Close)

	external := sources.NewExternalStrategy(sources.ExternalConfig{
		BaseURL:      ext.URL,
		APIKey:       "key",
		PollInterval: 33 * time.Millisecond,
		PollAttempts: 30,
		HTTPClient:   ext.Client(),
		Logger:       engine.NopLogger{},
	})
	svc := NewService(Config{
		YouTube: yt,
		Chain:   sources.NewChain(yt, engine.NopLogger{}, external, &sources.EmbeddedStrategy{}),
		Logger:  engine.NopLogger{},
		Timeout: 1500 * time.Millisecond,
	})

	res, err := svc.Transcript(context.Background(), videoID, Options{})
	require.NoError(t, err)
	assert.Equal(t, "en-GB", res.Language)
	assert.Positive(t, polls.Load())
	assert.Less(t, polls.Load(), int32(30), "polling stops on its share of the request budget")
}
