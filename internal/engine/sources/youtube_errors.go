package sources

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable means the watch page could not be loaded, so no
	// session exists and no strategy can run.
	ErrUpstreamUnavailable = errors.New("youtube unavailable")

	// ErrNoCaptions means every strategy was exhausted.
	ErrNoCaptions = errors.New("No captions available for this video")

	// ErrStrategyMiss is the soft failure of a single strategy. The chain logs
	// it and moves on; it never reaches the caller.
	ErrStrategyMiss = errors.New("strategy miss")
)

// PlayabilityError is a non-OK playabilityStatus. It is a strategy miss whose
// reason is reported upward if every strategy fails.
type PlayabilityError struct {
	Status string
	Reason string
}

func (e *PlayabilityError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("playability %s", e.Status)
	}
	return fmt.Sprintf("playability %s: %s", e.Status, e.Reason)
}

func (e *PlayabilityError) Unwrap() error { return ErrStrategyMiss }

// NoCaptionsError is ErrNoCaptions carrying the last playability reason
// reported by a strategy.
type NoCaptionsError struct {
	Reason string
}

func (e *NoCaptionsError) Error() string {
	if e.Reason == "" {
		return ErrNoCaptions.Error()
	}
	return fmt.Sprintf("%s (%s)", ErrNoCaptions, e.Reason)
}

func (e *NoCaptionsError) Unwrap() error { return ErrNoCaptions }

func missf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrStrategyMiss}, args...)...)
}
