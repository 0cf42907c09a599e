// Package bootstrap builds the production components from a loaded Config.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chris/whiskers/config"
	"github.com/chris/whiskers/internal/db"
	"github.com/chris/whiskers/internal/discord"
	"github.com/chris/whiskers/internal/generator"
	"github.com/chris/whiskers/internal/invoke"
	"github.com/chris/whiskers/internal/llm"
	"github.com/chris/whiskers/internal/nationaldays"
	"github.com/chris/whiskers/internal/weather"
	"github.com/chris/whiskers/internal/workflow"
)

// Components is everything one invocation needs. Store is nil unless a
// dead-letter database is configured.
type Components struct {
	Workflow *workflow.Workflow
	Notifier *discord.Notifier
	Store    *db.DB
}

// Build wires real clients for cfg. testMode turns delivery into a dry run
// and leaves the dead-letter store closed. The returned func releases
// everything Build opened.
func Build(ctx context.Context, cfg *config.Config, testMode bool, logger *slog.Logger) (*Components, func(), error) {
	client, err := llm.NewClient(ctx, llm.ProviderConfig{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.APIKey(),
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating LLM client: %w", err)
	}

	notifier := discord.NewNotifier(cfg.Webhooks(), testMode, logger)

	var store *db.DB
	if cfg.DeadLetterDB != "" && !testMode {
		store, err = db.Open(cfg.DeadLetterDB)
		if err != nil {
			llm.Close(client)
			return nil, nil, fmt.Errorf("opening dead-letter store: %w", err)
		}
		notifier.WithFailureSink(store)
	}

	wf := workflow.New(workflow.Deps{
		Generator:    generator.New(client, logger),
		Notifier:     notifier,
		NationalDays: nationaldays.NewFetcher(cfg.NationalDaysBaseURL, logger),
		Weather:      weather.NewClient(cfg.WeatherBaseURL, cfg.WeatherAPIKey, cfg.Timezone, logger),
		Birthdays:    cfg.Birthdays,
		Location:     Location(cfg),
		Timezone:     cfg.Timezone,
		Logger:       logger,
	})

	cleanup := func() {
		if err := llm.Close(client); err != nil {
			logger.Warn("closing LLM client", "err", err)
		}
		if store != nil {
			if err := store.Close(); err != nil {
				logger.Warn("closing dead-letter store", "err", err)
			}
		}
	}
	return &Components{Workflow: wf, Notifier: notifier, Store: store}, cleanup, nil
}

// Builder adapts Build to the invoke handler.
func Builder(logger *slog.Logger) invoke.BuildFunc {
	return func(ctx context.Context, cfg *config.Config, testMode bool) (invoke.Runner, func(), error) {
		c, cleanup, err := Build(ctx, cfg, testMode, logger)
		if err != nil {
			return nil, nil, err
		}
		return c.Workflow, cleanup, nil
	}
}

// NewHandler is the handler every entry point shares.
func NewHandler(logger *slog.Logger) *invoke.Handler {
	return invoke.NewHandler(config.Load, Builder(logger), logger)
}

func Location(cfg *config.Config) weather.Location {
	name := cfg.WeatherLocation
	if name == "" && cfg.HasCoords {
		name = fmt.Sprintf("%.4f, %.4f", cfg.WeatherLat, cfg.WeatherLon)
	}
	return weather.Location{
		Name:      name,
		Lat:       cfg.WeatherLat,
		Lon:       cfg.WeatherLon,
		HasCoords: cfg.HasCoords,
	}
}
