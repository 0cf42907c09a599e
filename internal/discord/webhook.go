// Package discord delivers finished messages to per-persona Discord webhooks.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/chris/whiskers/internal/persona"
)

const (
	deliveryTimeout = 10 * time.Second

	// MaxMessageLen is Discord's per-message content limit.
	MaxMessageLen = 2000
)

// Result is the outcome of one delivery. Status is the last HTTP status seen,
// zero when no request was made. On failure Unsent holds the content from the
// first chunk that did not go through.
type Result struct {
	OK     bool
	Status int
	Err    error
	Unsent string
}

// FailureSink stores messages that could not be delivered so they can be retried later.
type FailureSink interface {
	RecordFailure(ctx context.Context, personaID, webhookURL, kind, content, errMsg string) (string, error)
}

type Notifier struct {
	webhooks   map[persona.ID]string
	dryRun     bool
	httpClient *http.Client
	sink       FailureSink
	logger     *slog.Logger
}

func NewNotifier(webhooks map[persona.ID]string, dryRun bool, logger *slog.Logger) *Notifier {
	return &Notifier{
		webhooks:   webhooks,
		dryRun:     dryRun,
		httpClient: &http.Client{Timeout: deliveryTimeout},
		logger:     logger.With("component", "notifier"),
	}
}

// WithFailureSink records undelivered messages in sink. Delivery results are
// unaffected by whether recording succeeds.
func (n *Notifier) WithFailureSink(sink FailureSink) *Notifier {
	n.sink = sink
	return n
}

// Deliver posts text to p's webhook. kind labels the message in logs and the
// failure sink. In dry-run mode nothing is sent and the result is always OK.
func (n *Notifier) Deliver(ctx context.Context, p persona.Persona, kind, text string) Result {
	if n.dryRun {
		n.logger.Info("dry run, would send", "persona", p.ID, "kind", kind, "content", text)
		return Result{OK: true}
	}

	url := n.webhooks[p.ID]
	if url == "" {
		res := Result{Err: fmt.Errorf("no webhook configured for %s", p.ID)}
		n.logger.Error("delivery failed", "persona", p.ID, "kind", kind, "err", res.Err)
		return res
	}

	chunks := splitMessage(text, MaxMessageLen)
	for i, chunk := range chunks {
		res := n.Post(ctx, url, chunk)
		if res.OK {
			continue
		}
		n.logger.Error("delivery failed", "persona", p.ID, "kind", kind, "status", res.Status, "chunk", i+1, "chunks", len(chunks), "err", res.Err)
		res.Unsent = strings.Join(chunks[i:], "")
		n.recordFailure(ctx, p, url, kind, res.Unsent, res.Err)
		return res
	}

	n.logger.Info("message delivered", "persona", p.ID, "kind", kind, "chunks", len(chunks))
	return Result{OK: true, Status: http.StatusNoContent}
}

func (n *Notifier) recordFailure(ctx context.Context, p persona.Persona, url, kind, content string, cause error) {
	if n.sink == nil {
		return
	}
	id, err := n.sink.RecordFailure(ctx, string(p.ID), url, kind, content, cause.Error())
	if err != nil {
		n.logger.Error("recording failed delivery", "persona", p.ID, "kind", kind, "err", err)
		return
	}
	n.logger.Info("failed delivery queued for retry", "persona", p.ID, "kind", kind, "id", id)
}

// Redeliver posts previously failed content straight to url, splitting it like
// Deliver does. Failures are not recorded again; the caller owns the retry state
// and should keep only res.Unsent so delivered chunks are not repeated.
func (n *Notifier) Redeliver(ctx context.Context, url, content string) Result {
	chunks := splitMessage(content, MaxMessageLen)
	for i, chunk := range chunks {
		if res := n.Post(ctx, url, chunk); !res.OK {
			res.Unsent = strings.Join(chunks[i:], "")
			return res
		}
	}
	return Result{OK: true, Status: http.StatusNoContent}
}

// Post sends a single message. Only 204 No Content counts as success.
func (n *Notifier) Post(ctx context.Context, url, content string) Result {
	params := discordgo.WebhookParams{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}
	body, err := json.Marshal(params)
	if err != nil {
		return Result{Err: fmt.Errorf("marshaling webhook payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{Err: fmt.Errorf("creating webhook request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return Result{Err: fmt.Errorf("posting webhook: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return Result{Status: resp.StatusCode, Err: fmt.Errorf("webhook returned status %d", resp.StatusCode)}
	}
	return Result{OK: true, Status: resp.StatusCode}
}
