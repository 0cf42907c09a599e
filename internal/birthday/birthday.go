// Package birthday resolves whether today is a tracked birthday.
package birthday

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chris/whiskers/internal/persona"
)

var ErrInvalidKey = errors.New("invalid birthday date")

// Entry is one tracked birthday. Key is always MM-DD.
type Entry struct {
	Key           string `json:"-"`
	Name          string `json:"name"`
	IsOwnBirthday bool   `json:"is_own_birthday"`
}

// Table maps MM-DD keys to entries.
type Table map[string]Entry

// NormalizeKey accepts MM-DD, M-D or MMDD and returns the zero-padded MM-DD form.
func NormalizeKey(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	var month, day string
	switch {
	case strings.Contains(s, "-"):
		month, day, _ = strings.Cut(s, "-")
	case len(s) == 4:
		month, day = s[:2], s[2:]
	default:
		return "", fmt.Errorf("%w: %q, expected MM-DD", ErrInvalidKey, raw)
	}

	m, okM := parseTwoDigits(month)
	d, okD := parseTwoDigits(day)
	if !okM || !okD {
		return "", fmt.Errorf("%w: %q, expected MM-DD", ErrInvalidKey, raw)
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return "", fmt.Errorf("%w: %q, month 1-12 and day 1-31 expected", ErrInvalidKey, raw)
	}
	return fmt.Sprintf("%02d-%02d", m, d), nil
}

func parseTwoDigits(s string) (int, bool) {
	if len(s) < 1 || len(s) > 2 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// ParseTable reads a birthdays table from either JSON
// ({"MM-DD": {"name": ..., "is_own_birthday": ...}} or {"MM-DD": "Name"})
// or the delimited form "MM-DD:Name,MMDD:Name". An empty string is an empty table.
func ParseTable(raw string) (Table, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Table{}, nil
	}
	if strings.HasPrefix(raw, "{") {
		return parseJSON(raw)
	}
	return parseDelimited(raw)
}

func parseJSON(raw string) (Table, error) {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("parsing birthdays JSON: %w", err)
	}

	t := make(Table, len(entries))
	for key, value := range entries {
		var e struct {
			Name          string `json:"name"`
			IsOwnBirthday *bool  `json:"is_own_birthday"`
		}
		var name string
		if err := json.Unmarshal(value, &name); err == nil {
			e.Name = name
		} else if err := json.Unmarshal(value, &e); err != nil {
			return nil, fmt.Errorf("birthday %q: expected a name or an object with a name", key)
		}
		if err := t.add(key, e.Name, e.IsOwnBirthday); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func parseDelimited(raw string) (Table, error) {
	t := Table{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		date, name, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("invalid birthday entry %q, expected MM-DD:Name", item)
		}
		if err := t.add(date, name, nil); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t Table) add(rawKey, name string, ownFlag *bool) error {
	key, err := NormalizeKey(rawKey)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("birthday %s: name is required", key)
	}
	if _, dup := t[key]; dup {
		return fmt.Errorf("birthday %s: listed more than once", key)
	}

	isPersona := persona.IsPersonaName(name)
	if ownFlag != nil && *ownFlag && !isPersona {
		return fmt.Errorf("birthday %s: %q is marked is_own_birthday but is not Felix or Pearl", key, name)
	}
	t[key] = Entry{Key: key, Name: name, IsOwnBirthday: isPersona}
	return nil
}

// WithPersonas returns a copy of t that also holds each persona's own birthday,
// unless the table already names that day.
func (t Table) WithPersonas(personas ...persona.Persona) Table {
	out := make(Table, len(t)+len(personas))
	for k, v := range t {
		out[k] = v
	}
	for _, p := range personas {
		if _, taken := out[p.Birthday]; taken {
			continue
		}
		out[p.Birthday] = Entry{Key: p.Birthday, Name: p.Name, IsOwnBirthday: true}
	}
	return out
}

// TodayKey returns the override when given, otherwise today's MM-DD in loc.
func TodayKey(now time.Time, loc *time.Location, override string) (string, error) {
	if strings.TrimSpace(override) != "" {
		return NormalizeKey(override)
	}
	return now.In(loc).Format("01-02"), nil
}

// Resolve looks up key exactly. A miss is not an error.
func Resolve(key string, t Table) (Entry, bool) {
	e, ok := t[key]
	return e, ok
}
