// Package invoke is the boundary every trigger goes through: Lambda, the HTTP
// endpoint, the CLI and the cron scheduler all hand it a raw event.
package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chris/whiskers/config"
	"github.com/chris/whiskers/internal/birthday"
	"github.com/chris/whiskers/internal/workflow"
)

const SuccessMessage = "Felix & Pearl Bot execution completed"

// Event is the invocation input. Unknown fields are ignored.
type Event struct {
	TestMode *bool  `json:"test_mode,omitempty"`
	TestDate string `json:"test_date,omitempty"`
}

type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// ParseEvent accepts an empty body, a bare Event, or an API Gateway style
// envelope whose "body" field holds the Event as a JSON string.
func ParseEvent(raw []byte) (Event, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Event{}, nil
	}

	var probe struct {
		Event
		Body *string `json:"body"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Event{}, fmt.Errorf("invalid JSON in request body: %w", err)
	}
	if probe.Body != nil {
		return ParseEvent([]byte(*probe.Body))
	}
	return probe.Event, nil
}

// Runner is what a loaded configuration produces: one runnable workflow plus
// whatever must be released afterwards.
type Runner interface {
	Run(ctx context.Context, opts workflow.Options) (workflow.Report, error)
}

type (
	LoadFunc  func() (*config.Config, error)
	BuildFunc func(ctx context.Context, cfg *config.Config, testMode bool) (Runner, func(), error)
)

type Handler struct {
	load   LoadFunc
	build  BuildFunc
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(load LoadFunc, build BuildFunc, logger *slog.Logger) *Handler {
	return &Handler{
		load:   load,
		build:  build,
		logger: logger.With("component", "invoke"),
		now:    time.Now,
	}
}

// Handle parses raw and runs one invocation.
func (h *Handler) Handle(ctx context.Context, raw []byte) Response {
	ev, err := ParseEvent(raw)
	if err != nil {
		h.logger.Warn("rejecting invocation", "err", err)
		return errorResponse(http.StatusBadRequest, err)
	}
	return h.HandleEvent(ctx, ev)
}

// HandleEvent runs one invocation. Configuration is loaded fresh every time.
func (h *Handler) HandleEvent(ctx context.Context, ev Event) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("invocation panicked", "panic", r)
			resp = errorResponse(http.StatusInternalServerError, fmt.Errorf("%v", r))
		}
	}()

	if strings.TrimSpace(ev.TestDate) != "" {
		if _, err := birthday.NormalizeKey(ev.TestDate); err != nil {
			h.logger.Warn("rejecting invocation", "err", err)
			return errorResponse(http.StatusBadRequest, fmt.Errorf("test_date: %w", err))
		}
	}

	cfg, err := h.load()
	if err != nil {
		h.logger.Error("loading configuration", "err", err)
		return errorResponse(http.StatusInternalServerError, err)
	}

	testMode := cfg.TestMode
	if ev.TestMode != nil {
		testMode = *ev.TestMode
	}

	runner, cleanup, err := h.build(ctx, cfg, testMode)
	if err != nil {
		h.logger.Error("building workflow", "err", err)
		return errorResponse(http.StatusInternalServerError, err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	rep, err := runner.Run(ctx, workflow.Options{
		TestMode: testMode,
		TestDate: ev.TestDate,
		Now:      h.now(),
	})
	if err != nil {
		return errorResponse(http.StatusInternalServerError, err)
	}
	h.logger.Info("invocation complete", "run_id", rep.RunID, "delivered", rep.Delivered(), "failed", rep.Failed())
	return jsonResponse(http.StatusOK, SuccessMessage)
}

func errorResponse(status int, err error) Response {
	if status == http.StatusBadRequest {
		body, _ := json.Marshal(map[string]string{"error": err.Error()})
		return Response{StatusCode: status, Body: string(body)}
	}
	msg := err.Error()
	if errors.Is(err, config.ErrInvalid) {
		msg = "configuration error: " + msg
	}
	return jsonResponse(status, "Error: "+msg)
}

func jsonResponse(status int, msg string) Response {
	body, _ := json.Marshal(msg)
	return Response{StatusCode: status, Body: string(body)}
}
