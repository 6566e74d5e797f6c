// Package content holds the deterministic text transforms of the generation
// pipeline: prompt screening, prompt optimization, and emoji request
// detection. Everything here is pure computation with no I/O.
package content

import (
	"fmt"
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FlaggedTerm is one screened term with the category it belongs to.
type FlaggedTerm struct {
	Term     string `json:"term"`
	Category string `json:"category"`
}

// ScreeningResult reports what Screen found and the substituted text. It is
// recomputed on every call and never cached.
type ScreeningResult struct {
	Clean       bool          `json:"isClean"`
	Flagged     []FlaggedTerm `json:"flaggedTerms,omitempty"`
	CleanedText string        `json:"cleanedText"`
}

type screenRule struct {
	category    string
	term        string
	replacement string
	pattern     *regexp.Regexp
}

type screenGroup struct {
	category string
	terms    [][2]string
}

// Screening categories and their terms, with safe substitutions. The order is
// fixed so overlapping replacements resolve the same way on every call.
var screenRules = buildScreenRules([]screenGroup{
	{"violence", [][2]string{
		{"shooting", "launching"},
		{"attacking", "approaching"},
		{"fighting", "competing"},
		{"killing", "defeating"},
		{"destroying", "transforming"},
	}},
	{"weapons", [][2]string{
		{"gun", "launcher"},
		{"rifle", "tool"},
		{"sword", "blade"},
		{"knife", "cutting tool"},
		{"bomb", "sphere"},
	}},
	{"inappropriate", [][2]string{
		{"nude", "minimalist"},
		{"naked", "simple"},
		{"sexual", "elegant"},
		{"explicit", "detailed"},
	}},
})

func buildScreenRules(groups []screenGroup) []screenRule {
	var rules []screenRule
	for _, g := range groups {
		for _, t := range g.terms {
			rules = append(rules, screenRule{
				category:    g.category,
				term:        t[0],
				replacement: t[1],
				pattern:     regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(t[0]) + `\b`),
			})
		}
	}
	return rules
}

var categoryTitle = cases.Title(language.English)

// String renders the term as it appears in logs and screening reports.
func (f FlaggedTerm) String() string {
	return fmt.Sprintf("%s (%s)", f.Term, categoryTitle.String(f.Category))
}

// Screen checks a description against the fixed term lists and substitutes a
// safe replacement for every whole-word, case-insensitive match. Matches are
// recorded even when no replacement applies. The input is never mutated.
func Screen(text string) ScreeningResult {
	cleaned := text
	var flagged []FlaggedTerm
	for _, rule := range screenRules {
		if !rule.pattern.MatchString(cleaned) {
			continue
		}
		flagged = append(flagged, FlaggedTerm{Term: rule.term, Category: rule.category})
		if rule.replacement != "" {
			cleaned = rule.pattern.ReplaceAllString(cleaned, rule.replacement)
		}
	}
	return ScreeningResult{
		Clean:       len(flagged) == 0,
		Flagged:     flagged,
		CleanedText: cleaned,
	}
}
