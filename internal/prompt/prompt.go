// Package prompt renders the per-persona instructions sent to the language model.
package prompt

import (
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/chris/whiskers/internal/birthday"
	"github.com/chris/whiskers/internal/persona"
)

type Kind string

const (
	OwnBirthday   Kind = "own_birthday"
	OtherBirthday Kind = "other_birthday"
	ThankYou      Kind = "thank_you"
	NationalDays  Kind = "national_days"
	Weather       Kind = "weather"
)

var (
	ErrUnknownKind = errors.New("unknown prompt kind")
	ErrMissingVar  = errors.New("missing prompt variable")
)

// Vars holds runtime values keyed by placeholder name.
type Vars map[string]any

type spec struct {
	tmpl     *template.Template
	required []string
	optional []string
}

var specs = map[Kind]spec{
	OwnBirthday:   {tmpl: parse(OwnBirthday, ownBirthdayText)},
	OtherBirthday: {tmpl: parse(OtherBirthday, otherBirthdayText), required: []string{"name"}},
	ThankYou:      {tmpl: parse(ThankYou, thankYouText)},
	NationalDays:  {tmpl: parse(NationalDays, nationalDaysText), required: []string{"days_text", "date"}},
	Weather: {
		tmpl: parse(Weather, weatherText),
		required: []string{
			"location", "temperature", "feels_like", "weather_description",
			"humidity", "wind_speed", "sunrise", "sunset",
		},
		optional: []string{
			"wind_gust", "pressure", "clouds", "visibility",
			"outlook", "upcoming",
		},
	},
}

func parse(kind Kind, text string) *template.Template {
	return template.Must(template.New(string(kind)).Option("missingkey=error").Parse(text))
}

// Render fills the template for kind. full_name and description always come
// from p. A missing required variable is a caller bug and yields ErrMissingVar.
func Render(kind Kind, p persona.Persona, vars Vars) (string, error) {
	s, ok := specs[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	data := make(map[string]any, len(vars)+len(s.optional)+2)
	for _, key := range s.optional {
		data[key] = nil
	}
	for k, v := range vars {
		if str, isStr := v.(string); isStr {
			v = strings.TrimSpace(str)
		}
		data[k] = v
	}
	for _, key := range s.required {
		v, present := data[key]
		if !present || v == nil || v == "" {
			return "", fmt.Errorf("%w: %s requires %q", ErrMissingVar, kind, key)
		}
	}
	data["full_name"] = p.FullName
	data["description"] = p.Description

	var b strings.Builder
	if err := s.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", kind, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// BirthdayKind picks the own-birthday template only when the celebrant is
// the speaking persona.
func BirthdayKind(e birthday.Entry, p persona.Persona) Kind {
	if p.Is(e.Name) {
		return OwnBirthday
	}
	return OtherBirthday
}
