package transcriptserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/toolutil"
	"github.com/anatolykoptev/go_transcript/internal/transcript"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TranscriptInput is the youtube_transcript tool input.
type TranscriptInput struct {
	URL   string `json:"url" jsonschema:"YouTube URL (watch, youtu.be, embed, shorts) or bare 11-character video id"`
	Lang  string `json:"lang,omitempty" jsonschema:"Preferred caption language code (default: en)"`
	Clean bool   `json:"clean,omitempty" jsonschema:"Run the LLM cleanup pass over paragraphs (default: false)"`
}

// RegisterTools registers the transcript tools on the given MCP server.
func RegisterTools(server *mcp.Server, svc Transcriber) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Fetch the transcript of a YouTube video and return it as timestamped paragraphs. Works with auto-generated and manual captions; falls back across several retrieval strategies. Returns videoId, title, paragraphs (timestamp, offsetMs, text), totalSegments and the delivered language.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input TranscriptInput) (*mcp.CallToolResult, *transcript.Result, error) {
		if strings.TrimSpace(input.URL) == "" {
			return nil, nil, fmt.Errorf("url is required")
		}
		res, err := svc.Transcript(ctx, input.URL, transcript.Options{Lang: input.Lang, Clean: input.Clean})
		if err != nil {
			_, msg := toolutil.ErrorStatus(err)
			return nil, nil, errors.New(msg)
		}
		return nil, res, nil
	})
}
