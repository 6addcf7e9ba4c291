// Package roles maps learner names to the job titles the prompts mention.
package roles

import "strings"

const (
	headOfLearning     = "Head of Learning and Engagement"
	learningSpecialist = "Learning and Engagement Specialist"
)

// titles is keyed by normalized name and never mutated.
var titles = map[string]string{
	"jillian":       headOfLearning,
	"jillian khan":  headOfLearning,
	"kirsty":        learningSpecialist,
	"kirsty beavis": learningSpecialist,
	"tomi":          learningSpecialist,
	"tomi pilvinen": learningSpecialist,
}

// Normalize trims, lower-cases and collapses whitespace runs to a single space.
func Normalize(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// Lookup returns the job title for a name, if the name is known.
func Lookup(raw string) (string, bool) {
	norm := Normalize(raw)
	if norm == "" {
		return "", false
	}
	title, ok := titles[norm]
	return title, ok
}
