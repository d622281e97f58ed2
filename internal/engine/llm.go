package engine

import (
	"context"
	"fmt"
	"strings"
)

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// CallLLM sends a prompt with the temperature and max_tokens the client was built with.
func CallLLM(ctx context.Context, prompt string) (string, error) {
	if cfg.LLMClient == nil {
		return "", fmt.Errorf("llm client not configured")
	}
	metrics.LLMCalls.Add(1)
	resp, err := cfg.LLMClient.Complete(ctx, "", prompt)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return stripFences(resp), nil
}

// CleanupPrompt fills the cleanup template with already-tagged paragraph lines.
func CleanupPrompt(tagged string) string {
	return fmt.Sprintf(cleanupPrompt, tagged)
}

// Completer is the text-generation collaborator used by the cleanup pass.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ConfiguredLLM returns a Completer backed by CallLLM, or nil when no LLM client is configured.
func ConfiguredLLM() Completer {
	if cfg.LLMClient == nil {
		return nil
	}
	return CompleterFunc(CallLLM)
}
