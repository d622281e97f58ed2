package sources

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// CaptionEntry is one timed unit of caption text. Start and Duration are seconds.
type CaptionEntry struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

var (
	timedTextRe = regexp.MustCompile(`(?s)<text\b([^>]*)>(.*?)</text>`)
	srv3ParaRe  = regexp.MustCompile(`(?s)<p\b([^>]*)>(.*?)</p>`)
	xmlAttrRe   = regexp.MustCompile(`([a-zA-Z_:][-a-zA-Z0-9_:.]*)="([^"]*)"`)
)

// srv3Marker identifies srv3 payloads (<p t="..." ...>).
const srv3Marker = "<p t="

func xmlAttrs(raw string) map[string]string {
	attrs := make(map[string]string, 4)
	for _, m := range xmlAttrRe.FindAllStringSubmatch(raw, -1) {
		attrs[m[1]] = m[2]
	}
	return attrs
}

// captionText strips nested tags, decodes entities and trims.
func captionText(inner string) string {
	return strings.TrimSpace(engine.DecodeEntities(engine.StripTags(inner)))
}

// ParseTimedText parses standard timedtext XML: <text start="s" dur="s">...</text>.
// A missing dur is read as 0; elements without a parseable start are skipped.
func ParseTimedText(raw string) []CaptionEntry {
	var entries []CaptionEntry
	for _, m := range timedTextRe.FindAllStringSubmatch(raw, -1) {
		attrs := xmlAttrs(m[1])
		start, err := strconv.ParseFloat(attrs["start"], 64)
		if err != nil || start < 0 {
			continue
		}
		dur, err := strconv.ParseFloat(attrs["dur"], 64)
		if err != nil || dur < 0 {
			dur = 0
		}
		text := captionText(m[2])
		if text == "" {
			continue
		}
		entries = append(entries, CaptionEntry{Text: text, Start: start, Duration: dur})
	}
	return entries
}

// ParseSrv3 parses srv3 XML: <p t="ms" d="ms"> with optional word-level <s> children.
func ParseSrv3(raw string) []CaptionEntry {
	var entries []CaptionEntry
	for _, m := range srv3ParaRe.FindAllStringSubmatch(raw, -1) {
		attrs := xmlAttrs(m[1])
		tMs, err := strconv.ParseInt(attrs["t"], 10, 64)
		if err != nil || tMs < 0 {
			continue
		}
		dMs, err := strconv.ParseInt(attrs["d"], 10, 64)
		if err != nil || dMs < 0 {
			dMs = 0
		}
		text := captionText(m[2])
		if text == "" {
			continue
		}
		entries = append(entries, CaptionEntry{
			Text:     text,
			Start:    float64(tMs) / 1000,
			Duration: float64(dMs) / 1000,
		})
	}
	return entries
}

type json3Payload struct {
	Events []struct {
		TStartMs    float64 `json:"tStartMs"`
		DDurationMs float64 `json:"dDurationMs"`
		Segs        []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// ParseJSON3 parses the json3 format: {"events":[{"tStartMs":..,"dDurationMs":..,"segs":[{"utf8":".."}]}]}.
// Events without segs, and events whose text is empty or a lone newline, are dropped.
// Malformed JSON yields no entries.
func ParseJSON3(raw string) []CaptionEntry {
	var p json3Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil
	}
	var entries []CaptionEntry
	for _, ev := range p.Events {
		if ev.Segs == nil {
			continue
		}
		var sb strings.Builder
		for _, s := range ev.Segs {
			sb.WriteString(s.UTF8)
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		entries = append(entries, CaptionEntry{
			Text:     strings.ReplaceAll(text, "\n", " "),
			Start:    max(ev.TStartMs, 0) / 1000,
			Duration: max(ev.DDurationMs, 0) / 1000,
		})
	}
	return entries
}

// ParseCaptions auto-detects the payload format. json3 is tried when the payload
// starts with '{', srv3 when it carries <p t= paragraphs; standard timedtext XML is
// the fallback whenever a preferred parser yields nothing.
func ParseCaptions(raw string) []CaptionEntry {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		if entries := ParseJSON3(trimmed); len(entries) > 0 {
			return entries
		}
	}
	if strings.Contains(raw, srv3Marker) {
		if entries := ParseSrv3(raw); len(entries) > 0 {
			return entries
		}
	}
	return ParseTimedText(raw)
}
