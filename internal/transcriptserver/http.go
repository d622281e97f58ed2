package transcriptserver

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/toolutil"
	"github.com/anatolykoptev/go_transcript/internal/transcript"
	"github.com/gin-gonic/gin"
)

// Transcriber is the transcript pipeline as seen by the surfaces.
type Transcriber interface {
	Transcript(ctx context.Context, input string, opts transcript.Options) (*transcript.Result, error)
}

// NewRouter constructs a Gin engine with the transcript, health and metrics routes.
func NewRouter(svc Transcriber) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, engine.FormatMetrics())
	})
	r.GET("/transcript", handleTranscript(svc))
	return r
}

// handleTranscript serves GET /transcript?url=<url>[&lang=xx][&clean=1][&format=text].
func handleTranscript(svc Transcriber) gin.HandlerFunc {
	return func(c *gin.Context) {
		input := strings.TrimSpace(c.Query("url"))
		if input == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide a YouTube URL"})
			return
		}

		res, err := svc.Transcript(c.Request.Context(), input, transcript.Options{
			Lang:  strings.TrimSpace(c.Query("lang")),
			Clean: queryBool(c.Query("clean")),
		})
		if err != nil {
			status, msg := toolutil.ErrorStatus(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}

		if c.Query("format") == "text" {
			c.String(http.StatusOK, toolutil.PlainText(res))
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func queryBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
