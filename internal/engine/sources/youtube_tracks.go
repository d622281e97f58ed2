package sources

import "strings"

// CaptionTrack describes one caption stream offered by the player.
// BaseURL is signed and short-lived; tracks are never cached.
type CaptionTrack struct {
	BaseURL      string      `json:"baseUrl"`
	LanguageCode string      `json:"languageCode"`
	Kind         string      `json:"kind,omitempty"` // "asr" = auto-generated, empty = manual
	Name         *trackLabel `json:"name,omitempty"`
}

type trackLabel struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

// IsAuto reports whether the track is automatically generated.
func (t CaptionTrack) IsAuto() bool { return t.Kind == "asr" }

// DisplayName returns the human-readable track label, if the player sent one.
func (t CaptionTrack) DisplayName() string {
	if t.Name == nil {
		return ""
	}
	if t.Name.SimpleText != "" {
		return t.Name.SimpleText
	}
	var sb strings.Builder
	for _, r := range t.Name.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// PickTrack selects the best track for lang. First match wins:
//  1. exact language, manual
//  2. exact language, any kind
//  3. language prefix, manual
//  4. language prefix, any kind
//  5. any manual track
//  6. the first track
//
// tracks must be non-empty.
func PickTrack(tracks []CaptionTrack, lang string) CaptionTrack {
	preferences := []func(CaptionTrack) bool{
		func(t CaptionTrack) bool { return t.LanguageCode == lang && !t.IsAuto() },
		func(t CaptionTrack) bool { return t.LanguageCode == lang },
		func(t CaptionTrack) bool { return strings.HasPrefix(t.LanguageCode, lang) && !t.IsAuto() },
		func(t CaptionTrack) bool { return strings.HasPrefix(t.LanguageCode, lang) },
		func(t CaptionTrack) bool { return !t.IsAuto() },
	}
	for _, match := range preferences {
		for _, t := range tracks {
			if match(t) {
				return t
			}
		}
	}
	return tracks[0]
}
