package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/chris/whiskers/internal/nationaldays"
	"github.com/chris/whiskers/internal/weather"
)

// Forecast days at or below this chance of precipitation don't mention it.
const precipThreshold = 20

const clockFormat = "3:04 PM"

// NationalDaysVars lists each observance on its own line, with its
// occurrence in parentheses when the listing gave one.
func NationalDaysVars(days []nationaldays.NationalDay, date time.Time) Vars {
	lines := make([]string, 0, len(days))
	for _, d := range days {
		line := "- " + d.Name
		if d.Occurrence != "" {
			line += " (" + d.Occurrence + ")"
		}
		lines = append(lines, line)
	}
	return Vars{
		"days_text": strings.Join(lines, "\n"),
		"date":      longDate(date),
	}
}

// WeatherVars flattens a snapshot into template values. Optional segments
// are left zero so the template drops them.
func WeatherVars(s *weather.Snapshot) Vars {
	location := s.Location
	if location == "" {
		location = "home"
	}
	v := Vars{
		"location":            location,
		"temperature":         s.Temperature,
		"feels_like":          s.FeelsLike,
		"weather_description": s.Description,
		"humidity":            s.Humidity,
		"wind_speed":          s.WindSpeed,
		"wind_gust":           s.WindGust,
		"pressure":            s.Pressure,
		"clouds":              s.Clouds,
		"visibility":          s.Visibility,
		"sunrise":             s.Sunrise.Format(clockFormat),
		"sunset":              s.Sunset.Format(clockFormat),
		"upcoming":            formatUpcoming(s.Upcoming),
	}
	if s.Today != nil {
		v["outlook"] = s.Today
	}
	return v
}

func formatUpcoming(days []weather.DailyForecast) string {
	lines := make([]string, 0, len(days))
	for _, d := range days {
		line := fmt.Sprintf("- %s: High %d°F, Low %d°F", d.Date.Format("Monday"), d.High, d.Low)
		if d.Description != "" {
			line += " - " + strings.ToUpper(d.Description)
		}
		var precip []string
		if d.PrecipChance > precipThreshold {
			if d.RainMM > 0 {
				precip = append(precip, fmt.Sprintf("%d%% chance of rain", d.PrecipChance))
			}
			if d.SnowMM > 0 {
				precip = append(precip, fmt.Sprintf("%d%% chance of snow", d.PrecipChance))
			}
		}
		if len(precip) > 0 {
			line += " (" + strings.Join(precip, ", ") + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// longDate renders "Wednesday, July 16th".
func longDate(t time.Time) string {
	return fmt.Sprintf("%s, %s %s", t.Weekday(), t.Month(), humanize.Ordinal(t.Day()))
}
