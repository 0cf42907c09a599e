// Package weather fetches current conditions and the daily forecast from the
// OpenWeather one-call API and normalizes them into a Snapshot.
package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org"

	fetchTimeout  = 10 * time.Second
	upcomingDays  = 5
	maxBodyBytes  = 1 << 20
	oneCallPath   = "/data/3.0/onecall"
	geocodingPath = "/geo/1.0/direct"
)

// Location is either a coordinate pair or a named place to geocode.
type Location struct {
	Name      string
	Lat, Lon  float64
	HasCoords bool
}

type Snapshot struct {
	Location    string
	Temperature int
	FeelsLike   int
	Humidity    int
	WindSpeed   int
	WindGust    int // 0 when not reported
	Description string
	Clouds      int
	Pressure    int
	Visibility  int
	Sunrise     time.Time
	Sunset      time.Time
	Today       *DayOutlook // nil when the forecast has no usable first day
	Upcoming    []DailyForecast
}

type DayOutlook struct {
	High, Low    int
	Morning      int
	Day          int
	Evening      int
	Night        int
	Description  string
	PrecipChance int // percent
	RainMM       int
	SnowMM       int
}

type DailyForecast struct {
	Date         time.Time
	High, Low    int
	Description  string
	PrecipChance int // percent
	RainMM       int
	SnowMM       int
}

var errMissingField = errors.New("missing or malformed field")

type Client struct {
	baseURL    string
	apiKey     string
	tz         *time.Location
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL, apiKey string, tz *time.Location, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if tz == nil {
		tz = time.UTC
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		tz:         tz,
		httpClient: &http.Client{Timeout: fetchTimeout},
		logger:     logger.With("component", "weather"),
	}
}

// Fetch returns a snapshot for loc, or false when anything goes wrong. The
// cause is logged here; callers only need to skip the announcement.
func (c *Client) Fetch(ctx context.Context, loc Location) (*Snapshot, bool) {
	snap, err := c.fetch(ctx, loc)
	if err != nil {
		c.logger.Error("no weather data available", "location", loc.Name, "err", err)
		return nil, false
	}
	return snap, true
}

func (c *Client) fetch(ctx context.Context, loc Location) (*Snapshot, error) {
	if !loc.HasCoords {
		if loc.Name == "" {
			return nil, errors.New("location has neither coordinates nor a name")
		}
		lat, lon, err := c.geocode(ctx, loc.Name)
		if err != nil {
			return nil, fmt.Errorf("geocoding %q: %w", loc.Name, err)
		}
		loc.Lat, loc.Lon, loc.HasCoords = lat, lon, true
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(loc.Lon, 'f', -1, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "imperial")
	q.Set("exclude", "minutely,hourly,alerts")

	body, err := c.get(ctx, oneCallPath, q)
	if err != nil {
		return nil, fmt.Errorf("fetching weather: %w", err)
	}

	snap, err := normalize(body, c.tz)
	if err != nil {
		return nil, fmt.Errorf("processing weather data: %w", err)
	}
	snap.Location = loc.Name
	return snap, nil
}

func (c *Client) geocode(ctx context.Context, name string) (float64, float64, error) {
	q := url.Values{}
	q.Set("q", name)
	q.Set("limit", "1")
	q.Set("appid", c.apiKey)

	body, err := c.get(ctx, geocodingPath, q)
	if err != nil {
		return 0, 0, err
	}
	first := gjson.GetBytes(body, "0")
	lat, lon := first.Get("lat"), first.Get("lon")
	if lat.Type != gjson.Number || lon.Type != gjson.Number {
		return 0, 0, fmt.Errorf("no match: %w", errMissingField)
	}
	return lat.Float(), lon.Float(), nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", path, resp.Status)
	}
	return body, nil
}

// normalize validates every required field up front so a malformed payload
// never produces a partial snapshot.
func normalize(body []byte, tz *time.Location) (*Snapshot, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("response is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	cur := root.Get("current")

	temp, err := requireNumber(cur, "temp")
	if err != nil {
		return nil, err
	}
	feels, err := requireNumber(cur, "feels_like")
	if err != nil {
		return nil, err
	}
	humidity, err := requireNumber(cur, "humidity")
	if err != nil {
		return nil, err
	}
	wind, err := requireNumber(cur, "wind_speed")
	if err != nil {
		return nil, err
	}
	sunrise, err := requireNumber(cur, "sunrise")
	if err != nil {
		return nil, err
	}
	sunset, err := requireNumber(cur, "sunset")
	if err != nil {
		return nil, err
	}
	desc := cur.Get("weather.0.description")
	if desc.Type != gjson.String || desc.String() == "" {
		return nil, fmt.Errorf("current.weather.0.description: %w", errMissingField)
	}

	snap := &Snapshot{
		Temperature: round(temp),
		FeelsLike:   round(feels),
		Humidity:    round(humidity),
		WindSpeed:   round(wind),
		WindGust:    optional(cur, "wind_gust"),
		Description: desc.String(),
		Clouds:      optional(cur, "clouds"),
		Pressure:    optional(cur, "pressure"),
		Visibility:  optional(cur, "visibility"),
		Sunrise:     time.Unix(int64(sunrise), 0).In(tz),
		Sunset:      time.Unix(int64(sunset), 0).In(tz),
	}

	daily := root.Get("daily").Array()
	if len(daily) > 0 {
		snap.Today = outlook(daily[0])
	}
	for i := 1; i < len(daily) && len(snap.Upcoming) < upcomingDays; i++ {
		if f, ok := forecast(daily[i], tz); ok {
			snap.Upcoming = append(snap.Upcoming, f)
		}
	}
	return snap, nil
}

func outlook(d gjson.Result) *DayOutlook {
	high, low := d.Get("temp.max"), d.Get("temp.min")
	if high.Type != gjson.Number || low.Type != gjson.Number {
		return nil
	}
	return &DayOutlook{
		High:         round(high.Float()),
		Low:          round(low.Float()),
		Morning:      optional(d, "feels_like.morn"),
		Day:          optional(d, "feels_like.day"),
		Evening:      optional(d, "feels_like.eve"),
		Night:        optional(d, "feels_like.night"),
		Description:  d.Get("weather.0.description").String(),
		PrecipChance: round(d.Get("pop").Float() * 100),
		RainMM:       optional(d, "rain"),
		SnowMM:       optional(d, "snow"),
	}
}

func forecast(d gjson.Result, tz *time.Location) (DailyForecast, bool) {
	dt, high, low := d.Get("dt"), d.Get("temp.max"), d.Get("temp.min")
	if dt.Type != gjson.Number || high.Type != gjson.Number || low.Type != gjson.Number {
		return DailyForecast{}, false
	}
	return DailyForecast{
		Date:         time.Unix(dt.Int(), 0).In(tz),
		High:         round(high.Float()),
		Low:          round(low.Float()),
		Description:  d.Get("weather.0.description").String(),
		PrecipChance: round(d.Get("pop").Float() * 100),
		RainMM:       optional(d, "rain"),
		SnowMM:       optional(d, "snow"),
	}, true
}

func requireNumber(obj gjson.Result, path string) (float64, error) {
	v := obj.Get(path)
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("current.%s: %w", path, errMissingField)
	}
	return v.Float(), nil
}

// optional reads a number that upstream omits when it has nothing to report.
func optional(obj gjson.Result, path string) int {
	v := obj.Get(path)
	if v.Type != gjson.Number {
		return 0
	}
	return round(v.Float())
}

func round(f float64) int {
	return int(math.Round(f))
}
