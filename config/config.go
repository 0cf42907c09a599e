package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/chris/whiskers/internal/birthday"
	"github.com/chris/whiskers/internal/persona"
)

type Config struct {
	LLMProvider   string // anthropic, openai, ollama, gemini
	AnthropicKey  string
	OpenAIKey     string
	GeminiKey     string
	LLMModel      string
	OllamaBaseURL string

	FelixWebhook string
	PearlWebhook string

	WeatherAPIKey   string
	WeatherLocation string
	WeatherLat      float64
	WeatherLon      float64
	HasCoords       bool
	WeatherBaseURL  string

	NationalDaysBaseURL string

	Birthdays birthday.Table // persona birthdays already seeded

	TestMode             bool
	Timezone             *time.Location
	ScheduleCron         string
	HTTPAddr             string
	DeadLetterDB         string
	DeadLetterMaxRetries int
}

// Lookup returns the raw value for key and whether it was set.
type Lookup func(key string) (string, bool)

// Load reads .env (and .env.test first when TEST_MODE=true), then layers the
// secrets file over the process environment.
func Load() (*Config, error) {
	if mode, _ := strconv.ParseBool(os.Getenv("TEST_MODE")); mode {
		_ = godotenv.Load(".env.test")
	}
	_ = godotenv.Load() // ignore error if no .env

	secrets, err := loadSecretsFile(secretsPath())
	if err != nil {
		return nil, &Error{Key: "WHISKERS_SECRETS_FILE", Msg: "cannot read secrets file", Err: err}
	}
	return Parse(layered(secrets, os.LookupEnv))
}

// Parse builds a Config from lookup, reporting every bad key at once.
func Parse(lookup Lookup) (*Config, error) {
	p := parser{lookup: lookup}

	cfg := &Config{
		LLMProvider:          strings.ToLower(p.str("LLM_PROVIDER", "anthropic")),
		AnthropicKey:         p.str("ANTHROPIC_API_KEY", ""),
		OpenAIKey:            p.str("OPENAI_API_KEY", ""),
		GeminiKey:            p.str("GEMINI_API_KEY", ""),
		LLMModel:             p.str("LLM_MODEL", ""),
		OllamaBaseURL:        p.str("OLLAMA_BASE_URL", "http://localhost:11434/v1/"),
		FelixWebhook:         p.required("FELIX_DISCORD_WEBHOOK_URL"),
		PearlWebhook:         p.required("PEARL_DISCORD_WEBHOOK_URL"),
		WeatherAPIKey:        p.required("WEATHER_API_KEY"),
		WeatherLocation:      p.str("WEATHER_LOCATION", ""),
		WeatherBaseURL:       p.str("WEATHER_BASE_URL", ""),
		NationalDaysBaseURL:  p.str("NATIONAL_DAYS_BASE_URL", ""),
		TestMode:             p.boolean("TEST_MODE"),
		ScheduleCron:         p.str("SCHEDULE_CRON", "0 7 * * *"),
		HTTPAddr:             p.str("HTTP_ADDR", ":8080"),
		DeadLetterDB:         p.str("DEAD_LETTER_DB", ""),
		DeadLetterMaxRetries: p.integer("DEAD_LETTER_MAX_RETRIES", 3),
	}

	switch cfg.LLMProvider {
	case "anthropic":
		cfg.AnthropicKey = p.required("ANTHROPIC_API_KEY")
	case "openai":
		cfg.OpenAIKey = p.required("OPENAI_API_KEY")
	case "gemini":
		cfg.GeminiKey = p.required("GEMINI_API_KEY")
	case "ollama":
	default:
		p.fail("LLM_PROVIDER", fmt.Sprintf("unknown provider %q", cfg.LLMProvider), nil)
	}

	cfg.WeatherLat, cfg.WeatherLon, cfg.HasCoords = p.coords()
	if !cfg.HasCoords && cfg.WeatherLocation == "" {
		p.fail("WEATHER_LOCATION", "set a place name or WEATHER_LAT and WEATHER_LON", nil)
	}

	tzName := p.str("TIMEZONE", "America/New_York")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		p.fail("TIMEZONE", fmt.Sprintf("unknown timezone %q", tzName), err)
		tz = time.UTC
	}
	cfg.Timezone = tz

	if _, err := cron.ParseStandard(cfg.ScheduleCron); err != nil {
		p.fail("SCHEDULE_CRON", fmt.Sprintf("invalid cron expression %q", cfg.ScheduleCron), err)
	}
	if cfg.DeadLetterMaxRetries < 1 {
		p.fail("DEAD_LETTER_MAX_RETRIES", "must be at least 1", nil)
	}

	table, err := birthday.ParseTable(p.str("BIRTHDAYS_CONFIG", ""))
	if err != nil {
		p.fail("BIRTHDAYS_CONFIG", "malformed birthdays table", err)
	}
	cfg.Birthdays = table.WithPersonas(persona.Felix(), persona.Pearl())

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	return cfg, nil
}

// APIKey returns the key for the selected provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIKey
	case "gemini":
		return c.GeminiKey
	case "ollama":
		return ""
	default:
		return c.AnthropicKey
	}
}

// LLMBaseURL is only meaningful for ollama; hosted providers use their defaults.
func (c *Config) LLMBaseURL() string {
	if c.LLMProvider == "ollama" {
		return c.OllamaBaseURL
	}
	return ""
}

func (c *Config) WebhookFor(id persona.ID) string {
	switch id {
	case persona.FelixID:
		return c.FelixWebhook
	case persona.PearlID:
		return c.PearlWebhook
	default:
		return ""
	}
}

func (c *Config) Webhooks() map[persona.ID]string {
	return map[persona.ID]string{
		persona.FelixID: c.FelixWebhook,
		persona.PearlID: c.PearlWebhook,
	}
}

type parser struct {
	lookup Lookup
	errs   []error
}

func (p *parser) get(key string) string {
	v, ok := p.lookup(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func (p *parser) str(key, fallback string) string {
	if v := p.get(key); v != "" {
		return v
	}
	return fallback
}

func (p *parser) required(key string) string {
	v := p.get(key)
	if v == "" {
		p.fail(key, "is required", nil)
	}
	return v
}

func (p *parser) boolean(key string) bool {
	v := p.get(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, fmt.Sprintf("expected true or false, got %q", v), err)
	}
	return b
}

func (p *parser) integer(key string, fallback int) int {
	v := p.get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, fmt.Sprintf("expected an integer, got %q", v), err)
		return fallback
	}
	return n
}

func (p *parser) coords() (float64, float64, bool) {
	latRaw, lonRaw := p.get("WEATHER_LAT"), p.get("WEATHER_LON")
	if latRaw == "" && lonRaw == "" {
		return 0, 0, false
	}
	if latRaw == "" || lonRaw == "" {
		p.fail("WEATHER_LAT", "WEATHER_LAT and WEATHER_LON must be set together", nil)
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil || lat < -90 || lat > 90 {
		p.fail("WEATHER_LAT", fmt.Sprintf("expected a latitude between -90 and 90, got %q", latRaw), err)
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil || lon < -180 || lon > 180 {
		p.fail("WEATHER_LON", fmt.Sprintf("expected a longitude between -180 and 180, got %q", lonRaw), err)
		return 0, 0, false
	}
	return lat, lon, true
}

func (p *parser) fail(key, msg string, err error) {
	p.errs = append(p.errs, &Error{Key: key, Msg: msg, Err: err})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
