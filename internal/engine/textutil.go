package engine

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
)

// User-Agent strings used across HTTP clients.
const (
	UserAgentBot    = "GoTranscript/1.0"
	UserAgentChrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// StripTags removes every markup tag from s without touching whitespace.
func StripTags(s string) string {
	return htmlTagRe.ReplaceAllString(s, "")
}

var entityRe = regexp.MustCompile(`&(amp|lt|gt|quot|apos|#39|#[0-9]+);`)

var namedEntities = map[string]string{
	"amp":  "&",
	"lt":   "<",
	"gt":   ">",
	"quot": `"`,
	"apos": "'",
	"#39":  "'",
}

// DecodeEntities decodes the entities caption payloads use (&amp; &lt; &gt;
// &quot; &#39; &apos; and decimal &#NNN;) in a single pass, then turns
// newlines into spaces. Text without entities comes back unchanged.
func DecodeEntities(s string) string {
	if strings.IndexByte(s, '&') >= 0 {
		s = entityRe.ReplaceAllStringFunc(s, func(m string) string {
			name := m[1 : len(m)-1]
			if v, ok := namedEntities[name]; ok {
				return v
			}
			n, err := strconv.Atoi(name[1:])
			if err != nil || n <= 0 || n > 0x10FFFF {
				return m
			}
			return string(rune(n))
		})
	}
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Pass suffix="" for no suffix. Safe for UTF-8 (Cyrillic, CJK, emoji).
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}
