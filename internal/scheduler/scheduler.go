// Package scheduler runs the daily announcement on a cron schedule and, when a
// dead-letter store is configured, periodically redelivers failed messages.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"

	"github.com/chris/whiskers/internal/db"
	"github.com/chris/whiskers/internal/discord"
)

// RetryStore is the part of the dead-letter store the retry loop needs.
type RetryStore interface {
	ListPending(ctx context.Context) ([]db.FailedMessage, error)
	MarkDelivered(ctx context.Context, id string) error
	MarkRetryFailed(ctx context.Context, id, unsent, errMsg string, maxRetries int) (bool, error)
}

type Poster interface {
	Redeliver(ctx context.Context, url, content string) discord.Result
}

type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	store      RetryStore
	poster     Poster
	maxRetries int
	pollEvery  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex // one retry pass at a time
}

// New evaluates every schedule in tz, so a 7 a.m. job stays at 7 a.m. local
// time across daylight saving changes.
func New(tz *time.Location, logger *slog.Logger) *Scheduler {
	if tz == nil {
		tz = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(tz)),
		logger: logger.With("component", "scheduler"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Schedule registers job under a standard five-field cron spec. A job still
// running when its next tick arrives is skipped for that tick.
func (s *Scheduler) Schedule(name, spec string, job func(ctx context.Context)) error {
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		start := time.Now()
		s.logger.Info("job started", "job", name)
		job(s.ctx)
		s.logger.Info("job finished", "job", name, "elapsed", time.Since(start).Round(time.Millisecond))
	}))
	if _, err := s.cron.AddJob(spec, wrapped); err != nil {
		return fmt.Errorf("scheduling %s with %q: %w", name, spec, err)
	}
	s.logger.Info("job scheduled", "job", name, "cron", spec)
	return nil
}

// WithRetries enables the redelivery poll. It must be called before Start.
func (s *Scheduler) WithRetries(store RetryStore, poster Poster, maxRetries int, every time.Duration) *Scheduler {
	s.store = store
	s.poster = poster
	s.maxRetries = maxRetries
	s.pollEvery = every
	return s
}

func (s *Scheduler) Start() {
	s.cron.Start()

	if s.store != nil && s.pollEvery > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			t := time.NewTicker(s.pollEvery)
			defer t.Stop()
			for {
				select {
				case <-s.ctx.Done():
					return
				case <-t.C:
					if _, err := s.RetryFailed(s.ctx); err != nil {
						s.logger.Error("retrying failed messages", "err", err)
					}
				}
			}
		}()
	}

	s.logger.Info("scheduler started")
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

type RetrySummary struct {
	Delivered int
	Failed    int
	Dead      int
}

// RetryFailed makes one redelivery attempt for every pending message.
func (s *Scheduler) RetryFailed(ctx context.Context) (RetrySummary, error) {
	var sum RetrySummary
	if s.store == nil || s.poster == nil {
		return sum, errors.New("retries are not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return sum, err
	}
	if len(pending) == 0 {
		return sum, nil
	}

	for _, m := range pending {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		logger := s.logger.With("id", m.ID, "persona", m.Persona, "kind", m.Kind)

		res := s.poster.Redeliver(ctx, m.WebhookURL, m.Content)
		if res.OK {
			if err := s.store.MarkDelivered(ctx, m.ID); err != nil {
				logger.Error("marking message delivered", "err", err)
				continue
			}
			sum.Delivered++
			logger.Info("failed message redelivered", "queued", humanize.Time(m.CreatedAt), "attempts", m.RetryCount+1)
			continue
		}

		errMsg := "redelivery failed"
		if res.Err != nil {
			errMsg = res.Err.Error()
		}
		unsent := m.Content
		if res.Unsent != "" {
			unsent = res.Unsent
		}
		dead, err := s.store.MarkRetryFailed(ctx, m.ID, unsent, errMsg, s.maxRetries)
		if err != nil {
			logger.Error("recording failed retry", "err", err)
			continue
		}
		if dead {
			sum.Dead++
			logger.Warn("giving up on message", "queued", humanize.Time(m.CreatedAt), "status", res.Status, "err", errMsg)
			continue
		}
		sum.Failed++
		logger.Warn("redelivery failed, will retry", "status", res.Status, "err", errMsg)
	}

	s.logger.Info("retry pass complete", "pending", len(pending), "delivered", sum.Delivered, "failed", sum.Failed, "dead", sum.Dead)
	return sum, nil
}
