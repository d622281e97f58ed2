package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/sources"
)

var (
	// ErrInvalidInput means the input did not resolve to a video id.
	ErrInvalidInput = errors.New("invalid YouTube URL")

	// ErrTimeout means the overall request deadline expired.
	ErrTimeout = errors.New("transcript request timed out")
)

// Result is the assembled transcript.
type Result struct {
	VideoID       string      `json:"videoId"`
	Title         string      `json:"title"`
	Paragraphs    []Paragraph `json:"paragraphs"`
	TotalSegments int         `json:"totalSegments"`
	Language      string      `json:"language"`
}

// Options tune a single request.
type Options struct {
	Lang  string // requested caption language; empty = service default
	Clean bool   // run the cleanup pass (needs a configured cleaner)
}

// Config wires a Service.
type Config struct {
	YouTube     *sources.YouTube
	Chain       *sources.Chain // nil = default strategies over YouTube
	Cleaner     *Cleaner       // nil = cleanup disabled
	Logger      engine.Logger
	DefaultLang string
	Timeout     time.Duration // overall deadline; 0 = none
	AlwaysClean bool
}

// Service turns a user-supplied URL into a readable transcript.
type Service struct {
	yt          *sources.YouTube
	chain       *sources.Chain
	cleaner     *Cleaner
	log         engine.Logger
	lang        string
	timeout     time.Duration
	alwaysClean bool
}

// NewService builds a Service from c.
func NewService(c Config) *Service {
	s := &Service{
		yt:          c.YouTube,
		chain:       c.Chain,
		cleaner:     c.Cleaner,
		log:         engine.OrDefault(c.Logger),
		lang:        c.DefaultLang,
		timeout:     c.Timeout,
		alwaysClean: c.AlwaysClean,
	}
	if s.yt == nil {
		s.yt = sources.NewYouTube(sources.YouTubeConfig{Logger: s.log})
	}
	if s.chain == nil {
		s.chain = sources.NewChain(s.yt, s.log)
	}
	if s.lang == "" {
		s.lang = "en"
	}
	return s
}

// Transcript resolves input to a video id, acquires captions through the
// strategy chain, groups them into paragraphs, optionally cleans them, and
// attaches the title. Only ErrInvalidInput, sources.ErrUpstreamUnavailable,
// sources.ErrNoCaptions and ErrTimeout are returned.
func (s *Service) Transcript(ctx context.Context, input string, opts Options) (*Result, error) {
	engine.IncrTranscriptRequests()

	videoID, ok := sources.ExtractVideoID(strings.TrimSpace(input))
	if !ok {
		return nil, ErrInvalidInput
	}
	lang := opts.Lang
	if lang == "" {
		lang = s.lang
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.log.Info("transcript: request", "id", videoID, "lang", lang)
	req := sources.NewRequest(videoID, lang, s.yt.AcquireSession)

	var res *sources.Result
	err := engine.TrackOperation(ctx, "transcript_chain", func(ctx context.Context) error {
		var err error
		res, err = s.chain.Run(ctx, req)
		return err
	})
	if err != nil {
		engine.IncrTranscriptErrors()
		err = s.classify(ctx, err)
		s.log.Warn("transcript: failed", "id", videoID, "err", err)
		return nil, err
	}

	paragraphs := GroupParagraphs(res.Entries)
	if opts.Clean || s.alwaysClean {
		paragraphs = s.cleaner.Clean(ctx, paragraphs)
	}

	out := &Result{
		VideoID:       videoID,
		Title:         s.yt.Title(ctx, videoID, req.Acquired()),
		Paragraphs:    paragraphs,
		TotalSegments: len(res.Entries),
		Language:      res.Language,
	}
	s.log.Info("transcript: done",
		"id", videoID,
		"strategy", res.Strategy,
		"segments", out.TotalSegments,
		"paragraphs", len(out.Paragraphs),
	)
	return out, nil
}

// classify maps chain failures onto the caller-visible taxonomy.
func (s *Service) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
	case errors.Is(err, sources.ErrNoCaptions), errors.Is(err, sources.ErrUpstreamUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %w", sources.ErrUpstreamUnavailable, err)
	}
}

// Strategies lists the chain's strategy names in priority order.
func (s *Service) Strategies() []string { return s.chain.Names() }
