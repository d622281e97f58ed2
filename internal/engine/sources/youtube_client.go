package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// Endpoints are the upstream URLs. Tests point them at httptest servers.
type Endpoints struct {
	Watch     string // public watch page, ?v=<id>
	Player    string // innertube /player
	TimedText string // public captions endpoint
	OEmbed    string // oEmbed metadata
}

// DefaultEndpoints targets www.youtube.com.
var DefaultEndpoints = Endpoints{
	Watch:     "https://www.youtube.com/watch",
	Player:    "https://www.youtube.com/youtubei/v1/player",
	TimedText: "https://www.youtube.com/api/timedtext",
	OEmbed:    "https://www.youtube.com/oembed",
}

const (
	maxPageBytes    = 6 * 1024 * 1024
	maxPlayerBytes  = 3 * 1024 * 1024
	maxCaptionBytes = 4 * 1024 * 1024
)

// YouTubeConfig configures a YouTube client. Zero fields take defaults.
type YouTubeConfig struct {
	HTTPClient     *http.Client
	Endpoints      Endpoints
	Retry          *engine.RetryConfig // nil = engine.DefaultRetryConfig
	UserAgent      string              // empty = engine.UserAgentChrome
	FallbackAPIKey string              // used when the watch page exposes no innertube key
	Logger         engine.Logger
}

// YouTube talks to the video platform: watch page, innertube player, caption URLs, oEmbed.
// It holds no per-request state and is safe for concurrent use.
type YouTube struct {
	client      *http.Client
	ep          Endpoints
	retry       engine.RetryConfig
	ua          string
	fallbackKey string
	log         engine.Logger
}

// NewYouTube builds a client from c.
func NewYouTube(c YouTubeConfig) *YouTube {
	yt := &YouTube{
		client:      c.HTTPClient,
		ep:          c.Endpoints,
		retry:       engine.DefaultRetryConfig,
		ua:          c.UserAgent,
		fallbackKey: c.FallbackAPIKey,
		log:         engine.OrDefault(c.Logger),
	}
	if yt.client == nil {
		yt.client = &http.Client{Timeout: 15 * time.Second}
	}
	if yt.ep == (Endpoints{}) {
		yt.ep = DefaultEndpoints
	}
	if c.Retry != nil {
		yt.retry = *c.Retry
	}
	if yt.ua == "" {
		yt.ua = engine.UserAgentChrome
	}
	if yt.fallbackKey == "" {
		yt.fallbackKey = DefaultInnertubeKey
	}
	return yt
}

// do sends one request through the retry wrapper and reads at most limit bytes of body.
func (yt *YouTube) do(ctx context.Context, method, target string, header http.Header, body []byte, limit int64) ([]byte, int, error) {
	resp, err := engine.RetryHTTP(ctx, yt.retry, func() (*http.Response, error) {
		var r io.Reader
		if body != nil {
			r = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, r)
		if err != nil {
			return nil, err
		}
		req.Header = header.Clone()
		return yt.client.Do(req)
	})
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// sessionHeader carries the session cookies and the browser user agent.
func (yt *YouTube) sessionHeader(sess *Session) http.Header {
	h := http.Header{}
	h.Set("User-Agent", yt.ua)
	h.Set("Accept-Language", "en-US,en;q=0.9")
	if sess != nil && sess.Cookie != "" {
		h.Set("Cookie", sess.Cookie)
	}
	return h
}

// captionURLs lists the payload URLs tried for a track: json3 first, then the URL as issued.
func captionURLs(baseURL string) []string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return []string{baseURL}
	}
	q := u.Query()
	q.Set("fmt", "json3")
	u.RawQuery = q.Encode()
	if json3 := u.String(); json3 != baseURL {
		return []string{json3, baseURL}
	}
	return []string{baseURL}
}

// FetchCaptions downloads and parses the payload of one track, forwarding the
// session cookies. A payload that parses to nothing is a strategy miss.
func (yt *YouTube) FetchCaptions(ctx context.Context, track CaptionTrack, sess *Session) ([]CaptionEntry, error) {
	if track.BaseURL == "" {
		return nil, fmt.Errorf("%w: track %q has no url", ErrStrategyMiss, track.LanguageCode)
	}
	for _, u := range captionURLs(track.BaseURL) {
		engine.IncrCaptionFetches()
		body, status, err := yt.do(ctx, http.MethodGet, u, yt.sessionHeader(sess), nil, maxCaptionBytes)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			yt.log.Debug("youtube: caption fetch failed", "lang", track.LanguageCode, "err", err)
			continue
		}
		if status != http.StatusOK || len(bytes.TrimSpace(body)) == 0 {
			yt.log.Debug("youtube: caption payload unusable",
				"lang", track.LanguageCode, "status", status, "bytes", len(body))
			continue
		}
		if entries := ParseCaptions(string(body)); len(entries) > 0 {
			return entries, nil
		}
		yt.log.Debug("youtube: caption payload parsed to nothing",
			"lang", track.LanguageCode, "preview", engine.TruncateRunes(string(body), 120, "..."))
	}
	engine.IncrCaptionEmpty()
	return nil, fmt.Errorf("%w: caption payload empty for %q", ErrStrategyMiss, track.LanguageCode)
}

func watchURL(base, videoID string) string {
	return base + "?v=" + url.QueryEscape(videoID)
}

func canonicalWatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func bodySnippet(b []byte) string {
	return strings.TrimSpace(engine.TruncateRunes(string(b), 200, "..."))
}

func readLimited(resp *http.Response, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}
