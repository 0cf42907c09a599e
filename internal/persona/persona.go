// Package persona defines the two fixed speakers behind every outbound message.
package persona

import "strings"

type ID string

const (
	FelixID ID = "felix"
	PearlID ID = "pearl"
)

// Persona is immutable; values are handed out by Felix and Pearl.
type Persona struct {
	ID          ID
	Name        string // short identity, matched against birthday celebrants
	FullName    string
	Description string
	Birthday    string // MM-DD
}

// Felix speaks about facts and national days.
func Felix() Persona {
	return Persona{
		ID:       FelixID,
		Name:     "Felix",
		FullName: "Sir Felix Whiskersworth",
		Description: "a distinguished black-and-white feline who loves to share interesting facts " +
			"about national days and celebrations, with an elegant but mischievous wit",
		Birthday: "07-16",
	}
}

// Pearl speaks about the weather.
func Pearl() Persona {
	return Persona{
		ID:       PearlID,
		Name:     "Pearl",
		FullName: "Lady Pearl Weatherpaws",
		Description: "a sophisticated cat who loves weather and is witty and playful, " +
			"and who enjoys helping everyone prepare for their day",
		Birthday: "04-23",
	}
}

// All returns both personas in delivery order.
func All() [2]Persona {
	return [2]Persona{Felix(), Pearl()}
}

// ByName finds the persona whose Name matches, ignoring case and surrounding space.
func ByName(name string) (Persona, bool) {
	name = strings.TrimSpace(name)
	for _, p := range All() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Persona{}, false
}

// IsPersonaName reports whether name belongs to Felix or Pearl.
func IsPersonaName(name string) bool {
	_, ok := ByName(name)
	return ok
}

// Is reports whether name identifies p.
func (p Persona) Is(name string) bool {
	return strings.EqualFold(p.Name, strings.TrimSpace(name))
}

// SystemPrompt is the fixed system instruction sent with every generation for p.
func SystemPrompt(p Persona) string {
	return "You are " + p.FullName + ", " + p.Description + "."
}
