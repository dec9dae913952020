package client

import "slices"

// Persona is a tutor voice the backend can answer in.
type Persona struct {
	Key  string
	Name string
}

const (
	PersonaDefault = "default"
	PersonaGeneral = "general"
)

var personas = []Persona{
	{Key: PersonaDefault, Name: "Standard Tutor"},
	{Key: PersonaGeneral, Name: "General Assistant"},
	{Key: "eli5", Name: "Explain Like I'm 5"},
	{Key: "star_wars", Name: "Yoda / Star Wars"},
	{Key: "professor", Name: "Strict Professor"},
	{Key: "socratic", Name: "Socratic Tutor"},
}

// Personas returns the supported personas in display order.
func Personas() []Persona {
	return slices.Clone(personas)
}

// LookupPersona returns the persona for key.
func LookupPersona(key string) (Persona, bool) {
	i := slices.IndexFunc(personas, func(p Persona) bool { return p.Key == key })
	if i < 0 {
		return Persona{}, false
	}
	return personas[i], true
}

// PersonaName returns the display name for key, or key itself when unknown.
func PersonaName(key string) string {
	if p, ok := LookupPersona(key); ok {
		return p.Name
	}
	return key
}

// EffectivePersona returns the persona the backend will use. A chat without
// a document always runs as the general assistant.
func EffectivePersona(documentID, persona string) string {
	if documentID == "" {
		return PersonaGeneral
	}
	if persona == "" {
		return PersonaDefault
	}
	return persona
}
