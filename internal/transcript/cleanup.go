package transcript

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// Cleaner rewrites paragraph text through an external text-generation
// collaborator. It is best-effort: any failure returns the input unchanged.
type Cleaner struct {
	llm     engine.Completer
	timeout time.Duration
	log     engine.Logger
}

// NewCleaner returns nil when llm is nil; a nil *Cleaner passes paragraphs through.
func NewCleaner(llm engine.Completer, timeout time.Duration, log engine.Logger) *Cleaner {
	if llm == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Cleaner{llm: llm, timeout: timeout, log: engine.OrDefault(log)}
}

var paragraphTagRe = regexp.MustCompile(`\[P(\d+)\]`)

// Clean sends every paragraph tagged with its index in one bounded request and
// rebuilds the list from the echoed tags. Order and count never change. If
// fewer than half the indices come back, the whole response is discarded.
func (c *Cleaner) Clean(ctx context.Context, paragraphs []Paragraph) []Paragraph {
	if c == nil || len(paragraphs) == 0 {
		return paragraphs
	}

	var sb strings.Builder
	for i, p := range paragraphs {
		fmt.Fprintf(&sb, "[P%d] %s\n", i, p.Text)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.llm.Complete(ctx, engine.CleanupPrompt(strings.TrimSpace(sb.String())))
	if err != nil {
		c.log.Warn("cleanup: llm call failed, keeping original", "err", err)
		engine.IncrCleanupFallbacks()
		return paragraphs
	}

	cleaned := parseTagged(raw, len(paragraphs))
	if len(cleaned)*2 < len(paragraphs) {
		c.log.Warn("cleanup: too few paragraphs recovered, keeping original",
			"recovered", len(cleaned), "total", len(paragraphs))
		engine.IncrCleanupFallbacks()
		return paragraphs
	}

	out := make([]Paragraph, len(paragraphs))
	for i, p := range paragraphs {
		out[i] = p
		if text, ok := cleaned[i]; ok {
			out[i].Text = text
		}
	}
	c.log.Debug("cleanup: applied", "recovered", len(cleaned), "total", len(paragraphs))
	return out
}

// parseTagged maps each in-range index tag to the non-empty text that follows
// it, up to the next tag. The first occurrence of an index wins.
func parseTagged(raw string, n int) map[int]string {
	out := make(map[int]string)
	locs := paragraphTagRe.FindAllStringSubmatchIndex(raw, -1)
	for i, loc := range locs {
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		idx, err := strconv.Atoi(raw[loc[2]:loc[3]])
		if err != nil || idx < 0 || idx >= n {
			continue
		}
		if _, seen := out[idx]; seen {
			continue
		}
		text := strings.Join(strings.Fields(raw[loc[1]:end]), " ")
		if text != "" {
			out[idx] = text
		}
	}
	return out
}
