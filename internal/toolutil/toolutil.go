// Package toolutil provides helpers shared by the HTTP and MCP surfaces.
package toolutil

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/engine/sources"
	"github.com/anatolykoptev/go_transcript/internal/transcript"
)

// NoCaptionsMessage is shown when every acquisition strategy came up empty.
const NoCaptionsMessage = "This video does not have captions/subtitles available."

// ErrorStatus maps a transcript error to an HTTP status and a user-facing message.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, transcript.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid YouTube URL"
	case errors.Is(err, sources.ErrNoCaptions):
		var nce *sources.NoCaptionsError
		if errors.As(err, &nce) && nce.Reason != "" {
			return http.StatusNotFound, NoCaptionsMessage + " (" + nce.Reason + ")"
		}
		return http.StatusNotFound, NoCaptionsMessage
	case errors.Is(err, transcript.ErrTimeout):
		return http.StatusGatewayTimeout, "Could not fetch transcript in time. Please try again."
	default:
		return http.StatusInternalServerError, "Could not fetch transcript. " + err.Error()
	}
}

// PlainText renders a transcript as "[timestamp] text" lines under the title.
func PlainText(r *transcript.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\nhttps://www.youtube.com/watch?v=%s\n\n", r.Title, r.VideoID)
	for _, p := range r.Paragraphs {
		fmt.Fprintf(&sb, "[%s] %s\n\n", p.Timestamp, p.Text)
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}
