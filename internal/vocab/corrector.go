// Package vocab corrects misheard words in raw transcriptions against a
// user-configured vocabulary, using Double Metaphone phonetic encoding
// combined with Jaro-Winkler string similarity.
//
// Speech-to-text engines reliably mangle uncommon proper nouns — product
// names, teammates, internal jargon. The corrector runs over the raw
// transcription before pipeline dispatch: each word whose phonetic code
// overlaps a vocabulary entry and whose Jaro-Winkler similarity clears the
// threshold is replaced by the entry, preserving surrounding punctuation.
//
// The corrector is read-only after construction and safe for concurrent use.
package vocab

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.88
)

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched vocabulary entry to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(c *Corrector) {
		c.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic code overlap exists and the corrector falls back to pure string
// similarity. Default: 0.88.
func WithFuzzyThreshold(threshold float64) Option {
	return func(c *Corrector) {
		c.fuzzyThreshold = threshold
	}
}

// entry is a precomputed vocabulary word with its phonetic codes.
type entry struct {
	word  string
	lower string
	codes map[string]struct{}
}

// Corrector replaces misheard words with vocabulary entries.
type Corrector struct {
	entries           []entry
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a Corrector over the given vocabulary. An empty vocabulary
// yields a corrector whose Correct is the identity function.
func New(vocabulary []string, opts ...Option) *Corrector {
	c := &Corrector{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	for _, w := range vocabulary {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		lower := strings.ToLower(w)
		c.entries = append(c.entries, entry{
			word:  w,
			lower: lower,
			codes: codesFor(lower),
		})
	}
	return c
}

// Enabled reports whether the corrector has any vocabulary to match against.
func (c *Corrector) Enabled() bool {
	return len(c.entries) > 0
}

// Correct rewrites text word by word. Words that already match a vocabulary
// entry case-insensitively are left alone, as is all whitespace and
// punctuation.
func (c *Corrector) Correct(text string) string {
	if len(c.entries) == 0 || text == "" {
		return text
	}

	fields := strings.Fields(text)
	changed := false
	for i, field := range fields {
		core, prefix, suffix := trimPunct(field)
		if core == "" {
			continue
		}
		if replacement, ok := c.match(core); ok {
			fields[i] = prefix + replacement + suffix
			changed = true
		}
	}
	if !changed {
		return text
	}
	return strings.Join(fields, " ")
}

// match finds the best vocabulary entry for word, if any clears a threshold.
func (c *Corrector) match(word string) (string, bool) {
	lower := strings.ToLower(word)
	wordCodes := codesFor(lower)

	var (
		best         string
		bestScore    float64
		bestPhonetic bool
	)

	for _, e := range c.entries {
		if e.lower == lower {
			// Already correct; never rewrite.
			return "", false
		}

		score := matchr.JaroWinkler(lower, e.lower, false)
		phonetic := codesOverlap(wordCodes, e.codes)

		switch {
		case phonetic && score >= c.phoneticThreshold:
			if !bestPhonetic || score > bestScore {
				best, bestScore, bestPhonetic = e.word, score, true
			}
		case !phonetic && !bestPhonetic && score >= c.fuzzyThreshold && score > bestScore:
			best, bestScore = e.word, score
		}
	}

	return best, best != ""
}

// codesFor returns the set of Double Metaphone codes for a lowercase word.
// Empty codes (word too short, no consonants) are excluded.
func codesFor(word string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(word)
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// trimPunct splits a token into leading punctuation, the word core, and
// trailing punctuation.
func trimPunct(token string) (core, prefix, suffix string) {
	runes := []rune(token)
	start, end := 0, len(runes)
	for start < end && !unicode.IsLetter(runes[start]) && !unicode.IsDigit(runes[start]) {
		start++
	}
	for end > start && !unicode.IsLetter(runes[end-1]) && !unicode.IsDigit(runes[end-1]) {
		end--
	}
	return string(runes[start:end]), string(runes[:start]), string(runes[end:])
}
