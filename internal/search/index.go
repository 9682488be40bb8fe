// Package search provides a small, deterministic, concurrency-safe in-memory
// index over stories. Each story contributes its title and its paragraphs
// (split on blank lines) as separately scored passages; a story ranks by its
// best passage.
//
// Scoring uses Jaccard similarity between the query token set and each
// passage's token set: score = |Q ∩ P| / |Q ∪ P|. Tokens are Unicode
// case-folded, so "ÉTÉ" and "été" match.
//
// The index is immutable after construction and carries no logging; callers
// decide how and what to log.
package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Document is one searchable story.
type Document struct {
	ID    string
	Title string
	Body  string
}

// Hit is a ranked story with its best-matching passage.
type Hit struct {
	ID      string
	Score   float64
	Snippet string
}

// Index ranks documents against a free-text query.
type Index interface {
	TopK(query string, k int) []Hit
}

// Option configures index construction.
type Option func(*config)

type config struct {
	minParagraphRunes int
	stopwords         map[string]struct{}
	maxDocs           int
}

// WithMinParagraphRunes skips body paragraphs shorter than n runes. Titles
// are always indexed.
func WithMinParagraphRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minParagraphRunes = n
		}
	}
}

// WithStopwords drops the given words from both queries and passages.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = fold(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMaxDocs caps the number of indexed stories.
func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

type passage struct {
	text   string
	tokens map[string]struct{}
}

type entry struct {
	id       string
	passages []passage
}

type index struct {
	cfg     config
	entries []entry
}

// NewIndex builds an Index over docs. Order of docs breaks score ties.
func NewIndex(docs []Document, opts ...Option) Index {
	cfg := config{}
	for _, o := range opts {
		o(&cfg)
	}
	entries := make([]entry, 0, len(docs))
	for _, d := range docs {
		e := entry{id: d.ID}
		if t := strings.TrimSpace(normalizeWhitespace(d.Title)); t != "" {
			if toks := tokenize(t, cfg.stopwords); len(toks) > 0 {
				e.passages = append(e.passages, passage{text: t, tokens: toks})
			}
		}
		for _, p := range splitParagraphs(d.Body) {
			if cfg.minParagraphRunes > 0 && utf8.RuneCountInString(p) < cfg.minParagraphRunes {
				continue
			}
			if toks := tokenize(p, cfg.stopwords); len(toks) > 0 {
				e.passages = append(e.passages, passage{text: p, tokens: toks})
			}
		}
		if len(e.passages) == 0 {
			continue
		}
		entries = append(entries, e)
		if cfg.maxDocs > 0 && len(entries) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, entries: entries}
}

// TopK returns up to k best-matching stories. k <= 0 means 10.
func (i *index) TopK(q string, k int) []Hit {
	if len(i.entries) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 10
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	type scored struct {
		hit   Hit
		order int
	}
	buf := make([]scored, 0, len(i.entries))
	for n, e := range i.entries {
		best := Hit{ID: e.id}
		for _, p := range e.passages {
			over := overlap(qTokens, p.tokens)
			if over == 0 {
				continue
			}
			score := float64(over) / float64(qLen+len(p.tokens)-over)
			if score > best.Score {
				best.Score = score
				best.Snippet = p.text
			}
		}
		if best.Score > 0 {
			buf = append(buf, scored{hit: best, order: n})
		}
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].hit.Score != buf[b].hit.Score {
			return buf[a].hit.Score > buf[b].hit.Score
		}
		return buf[a].order < buf[b].order
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Hit, k)
	for n := 0; n < k; n++ {
		out[n] = buf[n].hit
	}
	return out
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

// fold applies full Unicode case folding. cases.Caser is stateful, so each
// call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(fold(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

// normalizeWhitespace collapses every whitespace run to one space.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var paraSplitRE = regexp.MustCompile(`\n\s*\n`)

func splitParagraphs(body string) []string {
	chunks := paraSplitRE.Split(body, -1)
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if t := strings.TrimSpace(normalizeWhitespace(c)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
