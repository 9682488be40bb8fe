// Package prompt builds the instructions sent to the completion provider:
// the system-level mentor persona specialized per genre, the fixed analysis
// templates, and the final user prompt.
//
// Text lives in per-locale catalogues. A process picks one catalogue at
// startup, so identical requests always assemble byte-identical prompts and
// hash to the same cache entry.
package prompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/tbourn/go-story-backend/internal/genre"
)

// Type is the kind of analysis requested.
type Type string

const (
	Grammar   Type = "grammar"
	Structure Type = "structure"
	Custom    Type = "custom"
)

// ParseType validates s as a prompt type.
func ParseType(s string) (Type, bool) {
	switch t := Type(strings.TrimSpace(s)); t {
	case Grammar, Structure, Custom:
		return t, true
	default:
		return "", false
	}
}

// Catalogue holds the localized persona, genre elaborations and templates.
type Catalogue struct {
	Tag          language.Tag
	persona      string
	elaborations map[genre.Genre]string
	templates    map[Type]string
	titleFormat  string
}

var (
	supported = []language.Tag{language.English, language.Spanish}
	matcher   = language.NewMatcher(supported)
	byBase    = map[language.Base]*Catalogue{}
)

func init() {
	for _, c := range []*Catalogue{english, spanish} {
		b, _ := c.Tag.Base()
		byBase[b] = c
	}
}

// ForLocale returns the catalogue best matching a BCP 47 locale such as
// "es-MX". Unknown or malformed locales get English.
func ForLocale(locale string) *Catalogue {
	tag, _, _ := matcher.Match(language.Make(locale))
	b, _ := tag.Base()
	if c, ok := byBase[b]; ok {
		return c
	}
	return english
}

// BuildSystem returns the persona preamble followed by the elaboration for g.
// Unknown labels fall back to the narrative elaboration.
func (c *Catalogue) BuildSystem(g genre.Genre) string {
	elab, ok := c.elaborations[g]
	if !ok {
		elab = c.elaborations[genre.Narrative]
	}
	return c.persona + "\n" + elab
}

// Template returns the fixed instruction for grammar and structure analysis.
// Custom has no template.
func (c *Catalogue) Template(t Type) (string, bool) {
	s, ok := c.templates[t]
	return s, ok
}

// ConversationTitle names a new analysis thread after the story.
func (c *Catalogue) ConversationTitle(storyTitle string) string {
	return fmt.Sprintf(c.titleFormat, storyTitle)
}

// Default is the English catalogue.
func Default() *Catalogue { return english }

// BuildSystem uses the default catalogue.
func BuildSystem(g genre.Genre) string { return english.BuildSystem(g) }

// Template uses the default catalogue.
func Template(t Type) (string, bool) { return english.Template(t) }

// Assemble joins the instruction prefix and the story content.
func Assemble(prefix, content string) string {
	return prefix + "\n\n" + content
}
