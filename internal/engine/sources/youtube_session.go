package sources

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// consentCookie seeds every session so the watch page skips the consent interstitial.
const consentCookie = "CONSENT=YES+1"

var (
	apiKeyRe      = regexp.MustCompile(`"INNERTUBE_API_KEY":\s*"([^"]+)"`)
	visitorDataRe = regexp.MustCompile(`"(?:visitorData|VISITOR_DATA)":\s*"([^"]+)"`)
)

// Session is the request-scoped context harvested from the watch page.
// It lives for one transcript acquisition and is never shared or reused.
type Session struct {
	Cookie      string // "name=value; name=value", seeded with the consent cookie
	APIKey      string // innertube key from the page, or the fallback
	VisitorData string // may be empty
	HTML        string // raw watch page, used for embedded extraction and title fallback
}

// AcquireSession fetches the watch page and harvests cookies, the innertube key
// and the visitor token. Any failure to load the page is ErrUpstreamUnavailable.
func (yt *YouTube) AcquireSession(ctx context.Context, videoID string) (*Session, error) {
	h := http.Header{}
	h.Set("User-Agent", yt.ua)
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Cookie", consentCookie)

	resp, err := engine.RetryHTTP(ctx, yt.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL(yt.ep.Watch, videoID), nil)
		if err != nil {
			return nil, err
		}
		req.Header = h.Clone()
		return yt.client.Do(req)
	})
	if err != nil {
		engine.IncrSessionFailures()
		return nil, fmt.Errorf("%w: watch page: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		engine.IncrSessionFailures()
		return nil, fmt.Errorf("%w: watch page status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := readLimited(resp, maxPageBytes)
	if err != nil {
		engine.IncrSessionFailures()
		return nil, fmt.Errorf("%w: read watch page: %w", ErrUpstreamUnavailable, err)
	}

	sess := &Session{
		Cookie: joinCookies(resp.Header.Values("Set-Cookie")),
		APIKey: yt.fallbackKey,
		HTML:   string(body),
	}
	if m := apiKeyRe.FindStringSubmatch(sess.HTML); m != nil {
		sess.APIKey = m[1]
	} else {
		yt.log.Debug("youtube: innertube key not found, using fallback", "id", videoID)
	}
	if m := visitorDataRe.FindStringSubmatch(sess.HTML); m != nil {
		sess.VisitorData = m[1]
	}

	yt.log.Debug("youtube: session acquired",
		"id", videoID,
		"html_bytes", len(sess.HTML),
		"cookies", strings.Count(sess.Cookie, ";")+1,
		"visitor", sess.VisitorData != "",
	)
	return sess, nil
}

// joinCookies reduces each Set-Cookie value to its name=value pair and joins
// them after the consent cookie.
func joinCookies(setCookies []string) string {
	parts := []string{consentCookie}
	for _, sc := range setCookies {
		pair := strings.TrimSpace(strings.SplitN(sc, ";", 2)[0])
		if pair != "" {
			parts = append(parts, pair)
		}
	}
	return strings.Join(parts, "; ")
}
