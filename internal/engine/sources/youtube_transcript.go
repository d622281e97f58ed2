package sources

import (
	"context"
	"errors"

	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// Result is the outcome of a successful chain run.
type Result struct {
	Entries  []CaptionEntry
	Language string // language actually delivered
	Strategy string // name of the strategy that produced it
}

// Chain runs strategies strictly in order until one yields a non-empty,
// parseable transcript. Only one track is tried per strategy: a track that
// parses to nothing moves the chain to the next strategy.
type Chain struct {
	yt         *YouTube
	strategies []Strategy
	log        engine.Logger
}

// NewChain builds a chain. With no strategies, DefaultStrategies(yt) is used.
func NewChain(yt *YouTube, log engine.Logger, strategies ...Strategy) *Chain {
	if len(strategies) == 0 {
		strategies = DefaultStrategies(yt)
	}
	return &Chain{yt: yt, strategies: strategies, log: engine.OrDefault(log)}
}

// Register appends a strategy at the lowest priority.
func (c *Chain) Register(s Strategy) { c.strategies = append(c.strategies, s) }

// Names lists strategy names in priority order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Run executes the chain. It fails with ErrUpstreamUnavailable when the session
// cannot be acquired, with ErrNoCaptions when every strategy misses, and with
// the context error when ctx ends first.
func (c *Chain) Run(ctx context.Context, req *Request) (*Result, error) {
	var reason string

	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, lang, err := c.attempt(ctx, s, req)
		if err != nil {
			if isAbort(ctx, err) {
				return nil, err
			}
			var pe *PlayabilityError
			if errors.As(err, &pe) && pe.Reason != "" {
				reason = pe.Reason
			}
			engine.IncrStrategy(s.Name(), false)
			c.log.Info("youtube: strategy miss",
				"strategy", s.Name(), "id", req.VideoID, "err", err)
			continue
		}

		engine.IncrStrategy(s.Name(), true)
		c.log.Info("youtube: strategy hit",
			"strategy", s.Name(), "id", req.VideoID, "lang", lang, "entries", len(entries))
		return &Result{Entries: entries, Language: lang, Strategy: s.Name()}, nil
	}

	if reason != "" {
		return nil, &NoCaptionsError{Reason: reason}
	}
	return nil, ErrNoCaptions
}

func (c *Chain) attempt(ctx context.Context, s Strategy, req *Request) ([]CaptionEntry, string, error) {
	acq, err := s.Acquire(ctx, req)
	if err != nil {
		return nil, "", err
	}
	if acq == nil {
		return nil, "", missf("nothing acquired")
	}
	if len(acq.Entries) > 0 {
		lang := acq.Language
		if lang == "" {
			lang = req.Lang
		}
		return acq.Entries, lang, nil
	}
	if len(acq.Tracks) == 0 {
		return nil, "", missf("no caption tracks")
	}

	track := PickTrack(acq.Tracks, req.Lang)
	c.log.Debug("youtube: track selected",
		"strategy", s.Name(), "lang", track.LanguageCode, "name", track.DisplayName(),
		"kind", kindLabel(track), "of", len(acq.Tracks))

	sess, err := req.Session(ctx)
	if err != nil {
		return nil, "", err
	}
	entries, err := c.yt.FetchCaptions(ctx, track, sess)
	if err != nil {
		return nil, "", err
	}
	return entries, track.LanguageCode, nil
}

func kindLabel(t CaptionTrack) string {
	if t.IsAuto() {
		return "asr"
	}
	return "manual"
}
