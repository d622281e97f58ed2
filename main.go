// go_transcript: YouTube transcript service.
//
// Serves GET /transcript over HTTP and the youtube_transcript MCP tool.
// Captions are acquired through an ordered chain of strategies (embedded page
// data, public captions endpoint, innertube client profiles, optional external
// API) and regrouped into readable paragraphs.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/sources"
	"github.com/anatolykoptev/go_transcript/internal/transcript"
	"github.com/anatolykoptev/go_transcript/internal/transcriptserver"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	initLogger(env.Str("LOG_LEVEL", "info"))

	c := loadConfig()
	engine.Init(c)
	engine.InitCache(c.RedisURL, c.CacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)

	svc := newService(c)
	slog.Info("starting go_transcript",
		slog.String("http_port", c.HTTPPort),
		slog.String("mcp_port", c.MCPPort),
		slog.Any("strategies", svc.Strategies()),
	)

	gin.SetMode(gin.ReleaseMode)
	httpSrv := &http.Server{
		Addr:              ":" + c.HTTPPort,
		Handler:           transcriptserver.NewRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      c.TranscriptTimeout + 30*time.Second,
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_transcript",
		Version: version,
	}, nil)
	transcriptserver.RegisterTools(server, svc)

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_transcript",
		Version:      version,
		Port:         c.MCPPort,
		WriteTimeout: c.TranscriptTimeout + 30*time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
}

func loadConfig() engine.Config {
	c := engine.Config{
		HTTPPort:             env.Str("HTTP_PORT", "8080"),
		MCPPort:              env.Str("MCP_PORT", "8891"),
		DefaultLang:          env.Str("TRANSCRIPT_LANG", "en"),
		TranscriptTimeout:    env.Duration("TRANSCRIPT_TIMEOUT", 45*time.Second),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 15*time.Second),
		YouTubeAPIKey:        env.Str("YOUTUBE_API_KEY_FALLBACK", sources.DefaultInnertubeKey),
		ExtraProfiles:        env.List("YOUTUBE_EXTRA_PROFILES", ""),
		CaptionAPIURL:        env.Str("CAPTION_API_URL", ""),
		CaptionAPIKey:        env.Str("CAPTION_API_KEY", ""),
		CaptionPollInterval:  env.Duration("CAPTION_POLL_INTERVAL", time.Second),
		CaptionPollAttempts:  env.Int("CAPTION_POLL_ATTEMPTS", 30),
		CaptionPollTimeout:   env.Duration("CAPTION_POLL_TIMEOUT", 0),
		CleanupEnabled:       env.Str("CLEANUP_ENABLED", "false") == "true",
		CleanupTimeout:       env.Duration("CLEANUP_TIMEOUT", 30*time.Second),
		LLMAPIKey:            env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks:   env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:           env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:             env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:       env.Float("LLM_TEMPERATURE", 0.1),
		LLMMaxTokens:         env.Int("LLM_MAX_TOKENS", 16384),
		RedisURL:             env.Str("REDIS_URL", ""),
		CacheTTL:             env.Duration("CACHE_TTL", 24*time.Hour),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
	}
	c.HTTPClient = &http.Client{
		Timeout: c.FetchTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     60 * time.Second,
		},
	}

	if c.LLMAPIKey != "" {
		c.LLMClient = llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
			llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
			llm.WithMaxTokens(c.LLMMaxTokens),
			llm.WithTemperature(c.LLMTemperature),
			llm.WithHTTPClient(&http.Client{Timeout: c.CleanupTimeout}),
		)
		slog.Info("llm client initialized", slog.String("model", c.LLMModel))
	}
	return c
}

func newService(c engine.Config) *transcript.Service {
	logger := slog.Default()

	yt := sources.NewYouTube(sources.YouTubeConfig{
		HTTPClient:     c.HTTPClient,
		FallbackAPIKey: c.YouTubeAPIKey,
		Logger:         logger,
	})

	var strategies []sources.Strategy
	if ext := sources.NewExternalStrategy(sources.ExternalConfig{
		BaseURL:      c.CaptionAPIURL,
		APIKey:       c.CaptionAPIKey,
		PollInterval: c.CaptionPollInterval,
		PollAttempts: c.CaptionPollAttempts,
		PollTimeout:  c.CaptionPollTimeout,
		HTTPClient:   c.HTTPClient,
		Logger:       logger,
	}); ext != nil {
		strategies = append(strategies, ext)
		slog.Info("external caption api enabled", slog.String("url", c.CaptionAPIURL))
	}
	strategies = append(strategies, sources.DefaultStrategies(yt)...)
	for _, name := range c.ExtraProfiles {
		if strings.TrimSpace(name) == "" {
			continue
		}
		profile, ok := sources.ProfileByName(name)
		if !ok {
			slog.Warn("unknown innertube profile, skipped", slog.String("profile", name))
			continue
		}
		strategies = append(strategies, sources.NewInnertubeStrategy(yt, profile))
	}

	return transcript.NewService(transcript.Config{
		YouTube:     yt,
		Chain:       sources.NewChain(yt, logger, strategies...),
		Cleaner:     transcript.NewCleaner(engine.ConfiguredLLM(), c.CleanupTimeout, logger),
		Logger:      logger,
		DefaultLang: c.DefaultLang,
		Timeout:     c.TranscriptTimeout,
		AlwaysClean: c.CleanupEnabled,
	})
}

func initLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
