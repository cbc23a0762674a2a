// Package textfilter cleans LLM narrative before it reaches the
// player: markdown artifacts are stripped, and an optional
// family-friendly mode softens profanity.
package textfilter

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	fenceRe   = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
	headingRe = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	speakerRe = regexp.MustCompile(`(?i)^(narrator|dm|dungeon master):\s*`)
	blanksRe  = regexp.MustCompile(`\n{3,}`)
)

// CleanNarrative strips markdown fences, headings, and a leading
// speaker label from LLM narrative, and collapses runs of blank
// lines. The JSON contract asks for plain prose; models drift.
func CleanNarrative(s string) string {
	s = fenceRe.ReplaceAllString(s, "")
	s = headingRe.ReplaceAllString(s, "")
	s = speakerRe.ReplaceAllString(s, "")
	s = blanksRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// replacements maps profanity to softer alternatives for
// family-friendly mode. Matching is case-insensitive on word
// boundaries.
var replacements = map[string]string{
	"fuck":     "fudge",
	"shit":     "shoot",
	"damn":     "dang",
	"hell":     "heck",
	"ass":      "butt",
	"bitch":    "jerk",
	"bastard":  "scoundrel",
	"crap":     "crud",
	"asshole":  "jerk",
	"bullshit": "baloney",
	"goddamn":  "gosh-dang",
	"prick":    "jerk",
}

// ProfanityFilter softens profanity in narrative text while
// preserving the capitalization of the first letter.
type ProfanityFilter struct {
	regexes map[string]*regexp.Regexp
}

// NewProfanityFilter compiles the word-boundary patterns once.
func NewProfanityFilter() *ProfanityFilter {
	pf := &ProfanityFilter{regexes: make(map[string]*regexp.Regexp, len(replacements))}
	for word := range replacements {
		pf.regexes[word] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	}
	return pf
}

// Filter replaces each profanity with its softer alternative.
func (pf *ProfanityFilter) Filter(text string) string {
	for word, re := range pf.regexes {
		replacement := replacements[word]
		text = re.ReplaceAllStringFunc(text, func(match string) string {
			return matchCase(match, replacement)
		})
	}
	return text
}

// matchCase carries the original match's leading capitalization over
// to the replacement.
func matchCase(original, replacement string) string {
	if original == "" || replacement == "" {
		return replacement
	}
	r := []rune(replacement)
	if unicode.IsUpper([]rune(original)[0]) {
		r[0] = unicode.ToUpper(r[0])
	}
	return string(r)
}
