package transcript

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go_transcript/internal/engine/sources"
)

const (
	maxParagraphSentences = 3
	maxParagraphChars     = 400
)

// Paragraph is a run of caption entries rendered as readable text.
type Paragraph struct {
	Timestamp string `json:"timestamp"` // H:MM:SS, or M:SS under an hour
	OffsetMs  int64  `json:"offsetMs"`
	Text      string `json:"text"`
}

var sentenceEndRe = regexp.MustCompile(`[.!?]+`)

// FormatTimestamp renders seconds as H:MM:SS, omitting hours when zero.
func FormatTimestamp(seconds float64) string {
	total := int64(math.Floor(max(seconds, 0)))
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// GroupParagraphs merges entries greedily, in order, flushing once three
// sentence terminators have been seen or the text exceeds 400 characters.
// Runs of terminators ("?!", "...") count once. Entries are never split.
func GroupParagraphs(entries []sources.CaptionEntry) []Paragraph {
	var (
		paragraphs []Paragraph
		buf        strings.Builder
		pending    bool
		current    Paragraph
		sentences  int
	)
	flush := func() {
		if text := strings.TrimSpace(buf.String()); text != "" {
			current.Text = text
			paragraphs = append(paragraphs, current)
		}
		buf.Reset()
		pending = false
		sentences = 0
	}

	for _, e := range entries {
		if !pending {
			current = Paragraph{
				Timestamp: FormatTimestamp(e.Start),
				OffsetMs:  int64(math.Floor(max(e.Start, 0) * 1000)),
			}
			pending = true
		}
		if text := strings.TrimSpace(e.Text); text != "" {
			if buf.Len() > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(text)
		}
		sentences += len(sentenceEndRe.FindAllStringIndex(e.Text, -1))

		if sentences >= maxParagraphSentences || utf8.RuneCountInString(buf.String()) > maxParagraphChars {
			flush()
		}
	}
	flush()
	return paragraphs
}
