// Package generator turns a rendered prompt into persona-voiced text.
package generator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/chris/whiskers/internal/llm"
	"github.com/chris/whiskers/internal/persona"
)

const (
	maxTokens   = 1000
	temperature = 0.7
	timeout     = 30 * time.Second
)

var errEmptyOutput = errors.New("model returned no text")

type Generator struct {
	client llm.Client
	logger *slog.Logger
}

func New(client llm.Client, logger *slog.Logger) *Generator {
	return &Generator{client: client, logger: logger.With("component", "generator")}
}

// Generate asks the model to answer prompt in p's voice. It returns false on
// any failure; the cause is logged and the caller skips the announcement.
func (g *Generator) Generate(ctx context.Context, prompt string, p persona.Persona) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	system := persona.SystemPrompt(p)
	messages := []llm.Message{{Role: "user", Content: prompt}}
	g.logger.Debug("generating message", "persona", p.ID, "prompt_tokens", llm.EstimateRequestTokens(system, messages))

	resp, err := g.client.Chat(ctx, system, messages, llm.Options{MaxTokens: maxTokens, Temperature: temperature})
	if err == nil && (resp == nil || strings.TrimSpace(resp.Content) == "") {
		err = errEmptyOutput
	}
	if err != nil {
		g.logger.Error("message generation failed", "persona", p.ID, "err", err)
		return "", false
	}
	return strings.TrimSpace(resp.Content), true
}
