package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"regexp"
)

// Strategy is one self-contained way of obtaining captions. It returns either
// caption tracks (the chain picks one and fetches it) or entries it already
// fetched. Any error wrapping ErrStrategyMiss sends the chain to the next strategy.
type Strategy interface {
	Name() string
	Acquire(ctx context.Context, req *Request) (*Acquisition, error)
}

// Acquisition is what a strategy found.
type Acquisition struct {
	Tracks   []CaptionTrack
	Entries  []CaptionEntry
	Language string // set together with Entries
}

// Request is the per-call input shared by strategies. The session is fetched
// lazily, once, by the first strategy that needs it.
type Request struct {
	VideoID string
	Lang    string

	acquire    func(ctx context.Context, videoID string) (*Session, error)
	session    *Session
	sessionErr error
}

// NewRequest creates a request whose session comes from acquire.
func NewRequest(videoID, lang string, acquire func(ctx context.Context, videoID string) (*Session, error)) *Request {
	return &Request{VideoID: videoID, Lang: lang, acquire: acquire}
}

// Session returns the request's session, acquiring it on first use.
func (r *Request) Session(ctx context.Context) (*Session, error) {
	if r.session == nil && r.sessionErr == nil {
		if r.acquire == nil {
			r.sessionErr = ErrUpstreamUnavailable
		} else {
			r.session, r.sessionErr = r.acquire(ctx, r.VideoID)
		}
	}
	return r.session, r.sessionErr
}

// Acquired returns the session if one was already acquired, else nil.
func (r *Request) Acquired() *Session { return r.session }

// DefaultStrategies returns the built-in strategies in priority order.
func DefaultStrategies(yt *YouTube) []Strategy {
	return []Strategy{
		&EmbeddedStrategy{},
		&TimedTextStrategy{yt: yt},
		NewInnertubeStrategy(yt, AndroidProfile),
		NewInnertubeStrategy(yt, WebEmbeddedProfile),
	}
}

// --- 1. embedded player response in the watch page ---

var playerResponseRe = regexp.MustCompile(`ytInitialPlayerResponse\s*=\s*`)

// EmbeddedStrategy reads ytInitialPlayerResponse from the already-fetched
// watch page. No network call.
type EmbeddedStrategy struct{}

func (*EmbeddedStrategy) Name() string { return "embedded_page" }

func (*EmbeddedStrategy) Acquire(ctx context.Context, req *Request) (*Acquisition, error) {
	sess, err := req.Session(ctx)
	if err != nil {
		return nil, err
	}
	pr, err := embeddedPlayerResponse(sess.HTML)
	if err != nil {
		return nil, err
	}
	tracks := pr.tracks()
	if len(tracks) == 0 {
		if status, reason := pr.playability(); status != "" && status != "OK" {
			return nil, &PlayabilityError{Status: status, Reason: reason}
		}
		return nil, missf("no caption tracks in page")
	}
	return &Acquisition{Tracks: tracks}, nil
}

func embeddedPlayerResponse(html string) (*playerResponse, error) {
	loc := playerResponseRe.FindStringIndex(html)
	if loc == nil {
		return nil, missf("ytInitialPlayerResponse not found")
	}
	raw, ok := ScanJSONObject(html, loc[1])
	if !ok {
		return nil, missf("ytInitialPlayerResponse not a complete object")
	}
	var pr playerResponse
	if err := json.Unmarshal([]byte(raw), &pr); err != nil {
		return nil, missf("decode ytInitialPlayerResponse: %v", err)
	}
	return &pr, nil
}

// --- 2. public captions endpoint ---

// minTimedTextBytes: bodies shorter than this are "no captions", not a payload.
const minTimedTextBytes = 100

// TimedTextStrategy queries the public captions endpoint directly: auto-generated
// variant, manual variant, then srv3.
type TimedTextStrategy struct {
	yt *YouTube
}

func (*TimedTextStrategy) Name() string { return "public_timedtext" }

func (s *TimedTextStrategy) Acquire(ctx context.Context, req *Request) (*Acquisition, error) {
	sess, err := req.Session(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range timedTextURLs(s.yt.ep.TimedText, req.VideoID, req.Lang) {
		body, status, err := s.yt.do(ctx, http.MethodGet, u, s.yt.sessionHeader(sess), nil, maxCaptionBytes)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.yt.log.Debug("youtube: timedtext fetch failed", "id", req.VideoID, "err", err)
			continue
		}
		if status != http.StatusOK || len(body) < minTimedTextBytes {
			continue
		}
		if entries := ParseCaptions(string(body)); len(entries) > 0 {
			return &Acquisition{Entries: entries, Language: req.Lang}, nil
		}
	}
	return nil, missf("public captions endpoint returned nothing")
}

func timedTextURLs(base, videoID, lang string) []string {
	variants := []map[string]string{
		{"kind": "asr"},
		{},
		{"fmt": "srv3"},
	}
	urls := make([]string, 0, len(variants))
	for _, extra := range variants {
		q := url.Values{}
		q.Set("v", videoID)
		q.Set("lang", lang)
		for k, v := range extra {
			q.Set(k, v)
		}
		urls = append(urls, base+"?"+q.Encode())
	}
	return urls
}

// --- 3/4. innertube /player with a declared client profile ---

// InnertubeStrategy asks /player for caption tracks while declaring Profile.
type InnertubeStrategy struct {
	yt      *YouTube
	Profile ClientProfile
}

// NewInnertubeStrategy builds a /player strategy for an arbitrary profile.
func NewInnertubeStrategy(yt *YouTube, profile ClientProfile) *InnertubeStrategy {
	return &InnertubeStrategy{yt: yt, Profile: profile}
}

func (s *InnertubeStrategy) Name() string { return s.Profile.Name }

func (s *InnertubeStrategy) Acquire(ctx context.Context, req *Request) (*Acquisition, error) {
	sess, err := req.Session(ctx)
	if err != nil {
		return nil, err
	}
	pr, err := s.yt.player(ctx, req.VideoID, s.Profile, sess)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, missf("%v", err)
	}
	if status, reason := pr.playability(); status != "" && status != "OK" {
		return nil, &PlayabilityError{Status: status, Reason: reason}
	}
	tracks := pr.tracks()
	if len(tracks) == 0 {
		return nil, missf("%s: no caption tracks", s.Profile.ClientName)
	}
	return &Acquisition{Tracks: tracks}, nil
}

// isAbort reports whether err must stop the chain instead of advancing it.
func isAbort(ctx context.Context, err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || ctx.Err() != nil
}
