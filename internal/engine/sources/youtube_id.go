package sources

import "regexp"

// videoIDPatterns are tried in order; each captures exactly 11 id characters.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`[?&]v=([a-zA-Z0-9_-]{11})`),
}

var bareVideoIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ExtractVideoID resolves a watch, short-link, embed or shorts URL (or a bare id)
// to its 11-character video id.
func ExtractVideoID(input string) (string, bool) {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(input); m != nil {
			return m[1], true
		}
	}
	if bareVideoIDRe.MatchString(input) {
		return input, true
	}
	return "", false
}
