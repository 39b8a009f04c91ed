package session

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

var (
	moods = []string{
		"brisk", "quiet", "lucid", "frugal", "terse",
		"steady", "nimble", "exact", "patient", "tidy",
	}

	// people who shaped text compression and language modelling
	namesakes = []string{
		"shannon", "gage", "sennrich", "zipf", "markov",
		"huffman", "lempel", "ziv", "jelinek", "salton",
	}
)

// GenerateName returns a short label such as "terse-gage" used to tell
// interactive sessions apart in logs and prompts.
func GenerateName() string {
	return fmt.Sprintf("%s-%s", moods[rand.IntN(len(moods))], namesakes[rand.IntN(len(namesakes))])
}

// IsValidName reports whether name looks like a generated or user-supplied
// session label: non-empty, no whitespace, at least one hyphen.
func IsValidName(name string) bool {
	if name == "" || strings.ContainsAny(name, " \t\r\n") {
		return false
	}
	return strings.Contains(name, "-")
}
