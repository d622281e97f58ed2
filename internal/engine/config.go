package engine

import (
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	HTTPPort             string
	MCPPort              string
	DefaultLang          string
	TranscriptTimeout    time.Duration // overall deadline for one transcript request
	FetchTimeout         time.Duration // per upstream call
	YouTubeAPIKey        string        // innertube key used when the watch page does not expose one
	ExtraProfiles        []string      // innertube profiles appended after the defaults, e.g. "ios"
	CaptionAPIURL        string        // optional third-party caption service
	CaptionAPIKey        string        // empty = external strategy disabled
	CaptionPollInterval  time.Duration
	CaptionPollAttempts  int
	CaptionPollTimeout   time.Duration
	CleanupEnabled       bool
	CleanupTimeout       time.Duration
	LLMAPIKey            string
	LLMAPIKeyFallbacks   []string
	LLMAPIBase           string
	LLMModel             string
	LLMTemperature       float64
	LLMMaxTokens         int
	RedisURL             string
	CacheTTL             time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	HTTPClient           *http.Client
	LLMClient            *llm.Client // nil = cleanup pass disabled
}

var cfg Config

// Init initializes the engine with the given configuration.
func Init(c Config) {
	cfg = c
}
