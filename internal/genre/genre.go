// Package genre classifies story text into a coarse literary genre so the
// assistant can pick a specialized mentor persona.
//
// Detection is keyword and layout based: no scoring, no models, and the same
// input always yields the same label.
package genre

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// Genre is a literary genre label.
type Genre string

const (
	Poetry     Genre = "poetry"
	Essay      Genre = "essay"
	ShortStory Genre = "short-story"
	Narrative  Genre = "narrative"
)

// All lists every label in rule order.
var All = []Genre{Poetry, Essay, ShortStory, Narrative}

// String implements fmt.Stringer.
func (g Genre) String() string { return string(g) }

// Valid reports whether g is one of the known labels.
func (g Genre) Valid() bool {
	for _, k := range All {
		if g == k {
			return true
		}
	}
	return false
}

type rule struct {
	genre    Genre
	keywords []string
	pattern  *regexp.Regexp
}

// stanza matches a line set off by blank lines on both sides.
var stanza = regexp.MustCompile(`\n\n.*\n\n`)

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{genre: Poetry, keywords: []string{"poem", "verse", "stanza", "poema", "verso"}, pattern: stanza},
	{genre: Essay, keywords: []string{"essay", "argument", "thesis", "ensayo", "argumento", "tesis"}},
	{genre: ShortStory, keywords: []string{"tale", "once upon a time", "cuento", "había una vez"}},
}

// Detect returns the genre of text. Empty or whitespace-only input yields
// Narrative.
func Detect(text string) Genre {
	if strings.TrimSpace(text) == "" {
		return Narrative
	}
	folded := cases.Fold().String(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(folded, kw) {
				return r.genre
			}
		}
		// The layout check runs on the raw text; folding never touches newlines.
		if r.pattern != nil && r.pattern.MatchString(text) {
			return r.genre
		}
	}
	return Narrative
}
