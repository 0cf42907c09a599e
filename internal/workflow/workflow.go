// Package workflow runs one invocation of the bot: birthdays, then national
// days, then weather. Each stage is isolated so a failed fetch, generation or
// delivery only costs that announcement.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/chris/whiskers/internal/birthday"
	"github.com/chris/whiskers/internal/discord"
	"github.com/chris/whiskers/internal/nationaldays"
	"github.com/chris/whiskers/internal/persona"
	"github.com/chris/whiskers/internal/prompt"
	"github.com/chris/whiskers/internal/weather"
)

type Generator interface {
	Generate(ctx context.Context, prompt string, p persona.Persona) (string, bool)
}

type Notifier interface {
	Deliver(ctx context.Context, p persona.Persona, kind, text string) discord.Result
}

type NationalDaysSource interface {
	Fetch(ctx context.Context, day time.Time) ([]nationaldays.NationalDay, error)
}

type WeatherSource interface {
	Fetch(ctx context.Context, loc weather.Location) (*weather.Snapshot, bool)
}

type Deps struct {
	Generator    Generator
	Notifier     Notifier
	NationalDays NationalDaysSource
	Weather      WeatherSource
	Birthdays    birthday.Table
	Location     weather.Location
	Timezone     *time.Location
	Logger       *slog.Logger
}

type Workflow struct {
	gen       Generator
	notifier  Notifier
	days      NationalDaysSource
	weather   WeatherSource
	birthdays birthday.Table
	location  weather.Location
	tz        *time.Location
	logger    *slog.Logger
}

func New(d Deps) *Workflow {
	tz := d.Timezone
	if tz == nil {
		tz = time.UTC
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		gen:       d.Generator,
		notifier:  d.Notifier,
		days:      d.NationalDays,
		weather:   d.Weather,
		birthdays: d.Birthdays,
		location:  d.Location,
		tz:        tz,
		logger:    logger.With("component", "workflow"),
	}
}

type Options struct {
	TestMode bool
	TestDate string    // MM-DD; overrides today for birthday lookup only
	Now      time.Time // zero means time.Now()
}

// Run executes the three stages in order. The error is non-nil only when
// something escaped stage isolation: a missing collaborator, a bad test date,
// a prompt defect or a panic. Stage failures are reported in Report.
func (w *Workflow) Run(ctx context.Context, opts Options) (Report, error) {
	rep := Report{RunID: uuid.NewString()}
	logger := w.logger.With("run_id", rep.RunID)

	if err := w.validate(); err != nil {
		return rep, err
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	logger.Info("run started", "test_mode", opts.TestMode, "test_date", opts.TestDate, "today", now.In(w.tz).Format("2006-01-02"))

	stages := []struct {
		report *StageReport
		run    func(context.Context, *slog.Logger, *StageReport) error
	}{
		{&rep.Birthdays, func(ctx context.Context, l *slog.Logger, s *StageReport) error {
			return w.birthdayStage(ctx, l, s, now, opts.TestDate)
		}},
		{&rep.NationalDays, func(ctx context.Context, l *slog.Logger, s *StageReport) error {
			return w.nationalDaysStage(ctx, l, s, now)
		}},
		{&rep.Weather, w.weatherStage},
	}
	rep.Birthdays.Stage = StageBirthdays
	rep.NationalDays.Stage = StageNationalDays
	rep.Weather.Stage = StageWeather

	for _, st := range stages {
		if err := runStage(ctx, logger.With("stage", st.report.Stage), st.report, st.run); err != nil {
			st.report.Outcome = OutcomeFailed
			logger.Error("run aborted", "stage", st.report.Stage, "err", err)
			return rep, err
		}
	}

	logger.Info("run complete", "delivered", rep.Delivered(), "failed", rep.Failed())
	return rep, nil
}

func (w *Workflow) validate() error {
	var missing []error
	if w.gen == nil {
		missing = append(missing, errors.New("workflow: no generator"))
	}
	if w.notifier == nil {
		missing = append(missing, errors.New("workflow: no notifier"))
	}
	if w.days == nil {
		missing = append(missing, errors.New("workflow: no national days source"))
	}
	if w.weather == nil {
		missing = append(missing, errors.New("workflow: no weather source"))
	}
	return errors.Join(missing...)
}

// runStage turns a panic inside a stage into an error so the run stops
// cleanly instead of crashing the process.
func runStage(ctx context.Context, logger *slog.Logger, s *StageReport,
	fn func(context.Context, *slog.Logger, *StageReport) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("stage panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%s stage panicked: %v", s.Stage, r)
		}
	}()
	if err := fn(ctx, logger, s); err != nil {
		return err
	}
	s.settle()
	return nil
}

func (w *Workflow) birthdayStage(ctx context.Context, logger *slog.Logger, s *StageReport, now time.Time, testDate string) error {
	key, err := birthday.TodayKey(now, w.tz, testDate)
	if err != nil {
		return fmt.Errorf("resolving today's date: %w", err)
	}
	entry, ok := birthday.Resolve(key, w.birthdays)
	if !ok {
		logger.Info("no birthday today", "date", key)
		return nil
	}
	logger.Info("birthday found", "date", key, "name", entry.Name)

	for _, p := range persona.All() {
		kind := prompt.BirthdayKind(entry, p)
		if err := w.announce(ctx, logger, s, p, kind, prompt.Vars{"name": entry.Name}); err != nil {
			return err
		}
	}

	if persona.IsPersonaName(entry.Name) {
		for _, p := range persona.All() {
			if err := w.announce(ctx, logger, s, p, prompt.ThankYou, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Workflow) nationalDaysStage(ctx context.Context, logger *slog.Logger, s *StageReport, now time.Time) error {
	today := now.In(w.tz)
	days, err := w.days.Fetch(ctx, today)
	if err != nil {
		var fe *nationaldays.FetchError
		if errors.As(err, &fe) {
			logger.Error("national days unavailable", "url", fe.URL, "status", fe.Status, "fetch_stage", fe.Stage, "err", err)
		} else {
			logger.Error("national days unavailable", "err", err)
		}
		s.Err = err.Error()
		return nil
	}
	if len(days) == 0 {
		logger.Error("national days unavailable", "err", "source returned no days")
		s.Err = "no national days found"
		return nil
	}
	logger.Info("national days fetched", "count", len(days))

	return w.announce(ctx, logger, s, persona.Felix(), prompt.NationalDays, prompt.NationalDaysVars(days, today))
}

func (w *Workflow) weatherStage(ctx context.Context, logger *slog.Logger, s *StageReport) error {
	snap, ok := w.weather.Fetch(ctx, w.location)
	if !ok {
		logger.Info("no weather data, skipping announcement")
		return nil
	}
	if snap.Location == "" {
		snap.Location = w.location.Name
	}
	return w.announce(ctx, logger, s, persona.Pearl(), prompt.Weather, prompt.WeatherVars(snap))
}

// announce renders, generates and delivers one message. Only a render error
// is returned; generation and delivery failures are counted and logged.
func (w *Workflow) announce(ctx context.Context, logger *slog.Logger, s *StageReport, p persona.Persona, kind prompt.Kind, vars prompt.Vars) error {
	rendered, err := prompt.Render(kind, p, vars)
	if err != nil {
		return err
	}
	s.Attempted++

	text, ok := w.gen.Generate(ctx, rendered, p)
	if !ok {
		s.Failed++
		logger.Warn("skipping announcement, no message generated", "persona", p.ID, "kind", kind)
		return nil
	}

	res := w.notifier.Deliver(ctx, p, string(kind), text)
	if !res.OK {
		s.Failed++
		logger.Warn("announcement not delivered", "persona", p.ID, "kind", kind, "status", res.Status, "err", res.Err)
		return nil
	}
	s.Delivered++
	return nil
}
