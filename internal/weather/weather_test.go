package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/chris/whiskers/pkg/logger"
)

const samplePayload = `{
  "timezone": "America/New_York",
  "current": {
    "temp": 71.6, "feels_like": 72.4, "humidity": 64, "wind_speed": 8.5,
    "clouds": 40, "pressure": 1015, "visibility": 10000,
    "sunrise": 1752658800, "sunset": 1752711600,
    "weather": [{"description": "scattered clouds"}]
  },
  "daily": [
    {"dt": 1752681600, "temp": {"max": 84.4, "min": 66.5}, "feels_like": {"morn": 68, "day": 86.2, "eve": 80, "night": 70},
     "weather": [{"description": "light rain"}], "pop": 0.46, "rain": 2.6},
    {"dt": 1752768000, "temp": {"max": 85, "min": 67}, "weather": [{"description": "clear sky"}], "pop": 0},
    {"dt": 1752854400, "weather": [{"description": "broken"}]},
    {"dt": 1752940800, "temp": {"max": 80, "min": 65}, "weather": [{"description": "rain"}], "pop": 0.8, "rain": 5.2},
    {"dt": 1753027200, "temp": {"max": 79, "min": 64}, "weather": [{"description": "snow"}], "pop": 0.3, "snow": 1},
    {"dt": 1753113600, "temp": {"max": 78, "min": 63}, "weather": [{"description": "fog"}], "pop": 0.1},
    {"dt": 1753200000, "temp": {"max": 77, "min": 62}, "weather": [{"description": "haze"}], "pop": 0.1},
    {"dt": 1753286400, "temp": {"max": 76, "min": 61}, "weather": [{"description": "mist"}], "pop": 0.1}
  ]
}`

func eastern(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	return loc
}

func TestNormalize(t *testing.T) {
	tz := eastern(t)
	snap, err := normalize([]byte(samplePayload), tz)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	ints := []struct {
		field     string
		got, want int
	}{
		{"temperature", snap.Temperature, 72},
		{"feels like", snap.FeelsLike, 72},
		{"humidity", snap.Humidity, 64},
		{"wind speed", snap.WindSpeed, 9},
		{"wind gust", snap.WindGust, 0},
		{"clouds", snap.Clouds, 40},
		{"pressure", snap.Pressure, 1015},
	}
	for _, c := range ints {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.field, c.got, c.want)
		}
	}
	if snap.Description != "scattered clouds" {
		t.Errorf("description = %q", snap.Description)
	}
	if snap.Sunrise.Location() != tz || snap.Sunrise.Unix() != 1752658800 {
		t.Errorf("sunrise = %v", snap.Sunrise)
	}

	if snap.Today == nil {
		t.Fatal("expected today's outlook")
	}
	want := DayOutlook{High: 84, Low: 67, Morning: 68, Day: 86, Evening: 80, Night: 70, Description: "light rain", PrecipChance: 46, RainMM: 3}
	if *snap.Today != want {
		t.Errorf("today = %+v, want %+v", *snap.Today, want)
	}

	// The entry with no temps is skipped; the list is capped at five.
	if len(snap.Upcoming) != 5 {
		t.Fatalf("got %d upcoming days, want 5", len(snap.Upcoming))
	}
	if snap.Upcoming[0].Description != "clear sky" || snap.Upcoming[4].Description != "haze" {
		t.Errorf("unexpected upcoming order: %+v", snap.Upcoming)
	}
	if u := snap.Upcoming[1]; u.Description != "rain" || u.PrecipChance != 80 || u.RainMM != 5 {
		t.Errorf("unexpected rainy day: %+v", u)
	}
}

func TestNormalize_MissingRequiredFields(t *testing.T) {
	tests := map[string]string{
		"missing temp":        `{"current": {"feels_like": 1, "humidity": 1, "wind_speed": 1, "sunrise": 1, "sunset": 2, "weather": [{"description": "x"}]}}`,
		"temp is a string":    `{"current": {"temp": "hot", "feels_like": 1, "humidity": 1, "wind_speed": 1, "sunrise": 1, "sunset": 2, "weather": [{"description": "x"}]}}`,
		"missing description": `{"current": {"temp": 1, "feels_like": 1, "humidity": 1, "wind_speed": 1, "sunrise": 1, "sunset": 2, "weather": []}}`,
		"missing sunset":      `{"current": {"temp": 1, "feels_like": 1, "humidity": 1, "wind_speed": 1, "sunrise": 1, "weather": [{"description": "x"}]}}`,
		"no current block":    `{"daily": []}`,
		"not json":            `<html>bad gateway</html>`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			snap, err := normalize([]byte(body), time.UTC)
			if err == nil || snap != nil {
				t.Errorf("expected an error and no snapshot, got %+v, %v", snap, err)
			}
		})
	}
}

func TestNormalize_NoDaily(t *testing.T) {
	body := `{"current": {"temp": 50, "feels_like": 48, "humidity": 80, "wind_speed": 3, "wind_gust": 12.6, "sunrise": 1, "sunset": 2, "weather": [{"description": "mist"}]}}`
	snap, err := normalize([]byte(body), time.UTC)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if snap.Today != nil || len(snap.Upcoming) != 0 {
		t.Errorf("expected no forecast, got %+v / %+v", snap.Today, snap.Upcoming)
	}
	if snap.WindGust != 13 {
		t.Errorf("wind gust = %d, want 13", snap.WindGust)
	}
}

func TestFetch_Coordinates(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", eastern(t), logger.Discard())
	snap, ok := c.Fetch(context.Background(), Location{Name: "Home", Lat: 40.7, Lon: -74, HasCoords: true})
	if !ok {
		t.Fatal("expected a snapshot")
	}
	if snap.Location != "Home" {
		t.Errorf("location = %q", snap.Location)
	}
	if gotPath != oneCallPath {
		t.Errorf("path = %q, want %q", gotPath, oneCallPath)
	}
	for k, want := range map[string]string{"lat": "40.7", "lon": "-74", "units": "imperial", "appid": "key"} {
		if gotQuery[k] != want {
			t.Errorf("%s = %q, want %q", k, gotQuery[k], want)
		}
	}
	if !strings.Contains(gotQuery["exclude"], "minutely") {
		t.Errorf("exclude = %q", gotQuery["exclude"])
	}
}

func TestFetch_NamedPlaceGeocodesFirst(t *testing.T) {
	var paths, queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case geocodingPath:
			queries = append(queries, r.URL.Query().Get("q"))
			w.Write([]byte(`[{"name": "Asheville", "lat": 35.59, "lon": -82.55}]`))
		case oneCallPath:
			queries = append(queries, r.URL.Query().Get("lat"))
			w.Write([]byte(samplePayload))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", time.UTC, logger.Discard())
	if _, ok := c.Fetch(context.Background(), Location{Name: "Asheville, NC"}); !ok {
		t.Fatal("expected a snapshot")
	}
	if strings.Join(paths, " ") != geocodingPath+" "+oneCallPath {
		t.Errorf("unexpected request order %v", paths)
	}
	if strings.Join(queries, "|") != "Asheville, NC|35.59" {
		t.Errorf("unexpected queries %v", queries)
	}
}

func TestFetch_FailuresReturnNoSnapshot(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
		"missing temp": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(strings.Replace(samplePayload, `"temp": 71.6, `, "", 1)))
		},
		"unknown place": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		},
	}
	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			loc := Location{Lat: 1, Lon: 2, HasCoords: true}
			if name == "unknown place" {
				loc = Location{Name: "Nowhere"}
			}
			snap, ok := NewClient(srv.URL, "key", time.UTC, logger.Discard()).Fetch(context.Background(), loc)
			if ok || snap != nil {
				t.Errorf("expected no snapshot, got %+v", snap)
			}
		})
	}
}
