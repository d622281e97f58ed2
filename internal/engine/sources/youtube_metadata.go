package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// DefaultTitle is used when no title can be found.
const DefaultTitle = "Untitled Video"

type oembedResp struct {
	Title string `json:"title"`
}

// Title resolves the video title: cache, then oEmbed, then the og:title of the
// watch page in sess (may be nil). Never fails; DefaultTitle is the last resort.
func (yt *YouTube) Title(ctx context.Context, videoID string, sess *Session) string {
	key := engine.CacheKey("title", videoID)
	if t, ok := engine.CacheGet(ctx, key); ok {
		return t
	}

	title, err := yt.oembedTitle(ctx, videoID)
	if err != nil {
		yt.log.Debug("youtube: oembed failed", "id", videoID, "err", err)
	}
	if title == "" && sess != nil {
		title = pageTitle(sess.HTML)
	}
	if title == "" {
		engine.IncrTitleFallbacks()
		return DefaultTitle
	}
	engine.CacheSet(ctx, key, title)
	return title
}

func (yt *YouTube) oembedTitle(ctx context.Context, videoID string) (string, error) {
	q := url.Values{}
	q.Set("url", canonicalWatchURL(videoID))
	q.Set("format", "json")

	h := http.Header{}
	h.Set("User-Agent", yt.ua)
	h.Set("Accept", "application/json")

	data, status, err := yt.do(ctx, http.MethodGet, yt.ep.OEmbed+"?"+q.Encode(), h, nil, 64*1024)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("oembed HTTP %d", status)
	}
	var o oembedResp
	if err := json.Unmarshal(data, &o); err != nil {
		return "", fmt.Errorf("decode oembed: %w", err)
	}
	return strings.TrimSpace(o.Title), nil
}

// pageTitle reads the title from watch page markup: og:title, name=title, then <title>.
func pageTitle(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	for _, sel := range []string{`meta[property="og:title"]`, `meta[name="title"]`} {
		if v := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", "")); v != "" {
			return v
		}
	}
	t := strings.TrimSpace(doc.Find("title").First().Text())
	t = strings.TrimSpace(strings.TrimSuffix(t, "- YouTube"))
	if t == "YouTube" {
		return ""
	}
	return t
}
