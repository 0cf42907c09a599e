package prompt

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chris/whiskers/internal/birthday"
	"github.com/chris/whiskers/internal/nationaldays"
	"github.com/chris/whiskers/internal/persona"
	"github.com/chris/whiskers/internal/weather"
)

func TestRender_OtherBirthdayContainsName(t *testing.T) {
	for _, name := range []string{"Ada", "Grace Hopper", "José", "O'Brien", "{{.full_name}}"} {
		for _, p := range persona.All() {
			out, err := Render(OtherBirthday, p, Vars{"name": "  " + name + " "})
			if err != nil {
				t.Fatalf("render for %q: %v", name, err)
			}
			if !strings.Contains(out, name+"'s birthday") {
				t.Errorf("%s prompt does not name %q:\n%s", p.Name, name, out)
			}
			if !strings.HasPrefix(out, "You are "+p.FullName+", ") {
				t.Errorf("%s prompt has the wrong opening:\n%s", p.Name, out)
			}
		}
	}
}

func TestRender_PersonaFieldsCannotBeOverridden(t *testing.T) {
	felix := persona.Felix()
	out, err := Render(ThankYou, felix, Vars{"full_name": "Lady Pearl Weatherpaws", "description": "an impostor"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, felix.FullName) {
		t.Errorf("missing %q:\n%s", felix.FullName, out)
	}
	for _, leaked := range []string{"Pearl", "impostor"} {
		if strings.Contains(out, leaked) {
			t.Errorf("caller var %q leaked into the prompt:\n%s", leaked, out)
		}
	}
}

func TestRender_MissingRequired(t *testing.T) {
	tests := []struct {
		kind Kind
		vars Vars
	}{
		{OtherBirthday, Vars{}},
		{OtherBirthday, Vars{"name": "   "}},
		{NationalDays, Vars{"days_text": "- NATIONAL X DAY"}},
		{Weather, Vars{"location": "Home"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			_, err := Render(tt.kind, persona.Felix(), tt.vars)
			if !errors.Is(err, ErrMissingVar) {
				t.Errorf("expected ErrMissingVar, got %v", err)
			}
		})
	}
}

func TestRender_UnknownKind(t *testing.T) {
	_, err := Render(Kind("limerick"), persona.Felix(), nil)
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestBirthdayKind(t *testing.T) {
	tests := []struct {
		celebrant string
		p         persona.Persona
		want      Kind
	}{
		{"Pearl", persona.Pearl(), OwnBirthday},
		{"pearl ", persona.Pearl(), OwnBirthday},
		{"Pearl", persona.Felix(), OtherBirthday},
		{"Ada", persona.Felix(), OtherBirthday},
		{"Ada", persona.Pearl(), OtherBirthday},
	}
	for _, tt := range tests {
		if got := BirthdayKind(birthday.Entry{Name: tt.celebrant}, tt.p); got != tt.want {
			t.Errorf("celebrant %q speaking %s: got %s, want %s", tt.celebrant, tt.p.Name, got, tt.want)
		}
	}
}

func TestNationalDaysVars(t *testing.T) {
	days := []nationaldays.NationalDay{
		{Name: "NATIONAL HOT DOG DAY", Occurrence: "Third Wednesday in July"},
		{Name: "NATIONAL CORN FRITTERS DAY"},
	}
	v := NationalDaysVars(days, time.Date(2025, time.July, 16, 0, 0, 0, 0, time.UTC))
	if want := "- NATIONAL HOT DOG DAY (Third Wednesday in July)\n- NATIONAL CORN FRITTERS DAY"; v["days_text"] != want {
		t.Errorf("days_text = %q, want %q", v["days_text"], want)
	}
	if v["date"] != "Wednesday, July 16th" {
		t.Errorf("date = %q", v["date"])
	}

	out, err := Render(NationalDays, persona.Felix(), v)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "NATIONAL CORN FRITTERS DAY") {
		t.Errorf("days missing from prompt:\n%s", out)
	}
}

func sampleSnapshot() *weather.Snapshot {
	return &weather.Snapshot{
		Location:    "Asheville",
		Temperature: 72,
		FeelsLike:   74,
		Humidity:    60,
		WindSpeed:   8,
		Description: "scattered clouds",
		Sunrise:     time.Date(2025, time.July, 16, 6, 25, 0, 0, time.UTC),
		Sunset:      time.Date(2025, time.July, 16, 20, 41, 0, 0, time.UTC),
	}
}

func assertPrompt(t *testing.T, out string, contains, omits []string) {
	t.Helper()
	for _, want := range contains {
		if !strings.Contains(out, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	for _, unwanted := range omits {
		if strings.Contains(out, unwanted) {
			t.Errorf("prompt should not contain %q", unwanted)
		}
	}
	if t.Failed() {
		t.Logf("prompt:\n%s", out)
	}
}

func TestRender_WeatherOmitsZeroSegments(t *testing.T) {
	out, err := Render(Weather, persona.Pearl(), WeatherVars(sampleSnapshot()))
	if err != nil {
		t.Fatal(err)
	}
	assertPrompt(t, out,
		[]string{"Temperature: 72°F (feels like 74°F)", "Wind: 8 mph\n", "Sunrise: 6:25 AM | Sunset: 8:41 PM"},
		[]string{"gusts", "Day overview", "Coming up", "Pressure", "0mm", "<no value>"},
	)
}

func TestRender_WeatherOptionalSegments(t *testing.T) {
	s := sampleSnapshot()
	s.WindGust = 21
	s.Pressure = 1012
	s.Today = &weather.DayOutlook{High: 85, Low: 66, Morning: 68, Day: 84, Evening: 79, Night: 70, PrecipChance: 40, RainMM: 3}
	s.Upcoming = []weather.DailyForecast{
		{Date: time.Date(2025, time.July, 17, 12, 0, 0, 0, time.UTC), High: 85, Low: 67, Description: "rain", PrecipChance: 80, RainMM: 5},
		{Date: time.Date(2025, time.July, 18, 12, 0, 0, 0, time.UTC), High: 84, Low: 66, Description: "light rain", PrecipChance: 20, RainMM: 1},
		{Date: time.Date(2025, time.July, 19, 12, 0, 0, 0, time.UTC), High: 80, Low: 60, Description: "snow", PrecipChance: 30, SnowMM: 2},
	}

	out, err := Render(Weather, persona.Pearl(), WeatherVars(s))
	if err != nil {
		t.Fatal(err)
	}
	assertPrompt(t, out,
		[]string{
			"Wind: 8 mph (gusts up to 21 mph)",
			"Pressure: 1012 hPa",
			"High: 85°F, Low: 66°F",
			"Precipitation: 40%, 3mm rain expected\n",
			"- Thursday: High 85°F, Low 67°F - RAIN (80% chance of rain)",
			"- Friday: High 84°F, Low 66°F - LIGHT RAIN\n",
			"- Saturday: High 80°F, Low 60°F - SNOW (30% chance of snow)",
		},
		[]string{"snow expected"},
	)
}
