package workflow

import (
	"strings"
	"unicode"
)

// slug lowercases name and drops everything but letters and digits:
// "Sir Ember-Ash" becomes "siremberash".
func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
