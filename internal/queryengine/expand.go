// Package queryengine implements query expansion, reciprocal rank fusion,
// and the composite hybrid search flow.
package queryengine

import (
	"regexp"
	"sort"
	"strings"
)

var wordRe = regexp.MustCompile(`[A-Za-z0-9_]+`)

// synonyms is the small static map from §4.I: domain terms that commonly
// co-occur in schema names and comments.
var synonyms = map[string][]string{
	"payment":      {"charge", "transaction"},
	"refund":       {"chargeback", "reversal"},
	"subscription": {"plan", "membership"},
	"status":       {"state"},
	"order":        {"purchase"},
}

// ExpandQuery lowercases and tokenizes q, and for every token adds its
// singular/plural opposite (simple trailing-s rule, only when the stem is
// longer than 3 characters) plus any static synonym entries. It returns
// exactly two variants: the original query, and a deterministic sorted
// space-joined union of the original tokens plus every addition.
func ExpandQuery(q string) [2]string {
	lower := strings.ToLower(q)
	tokens := wordRe.FindAllString(lower, -1)

	seen := make(map[string]bool, len(tokens)*2)
	var union []string
	add := func(tok string) {
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		union = append(union, tok)
	}

	for _, tok := range tokens {
		add(tok)
		add(pluralOpposite(tok))
		for _, syn := range synonyms[tok] {
			add(syn)
		}
	}

	sort.Strings(union)
	return [2]string{q, strings.Join(union, " ")}
}

// pluralOpposite returns the plural form of a singular stem (or vice versa)
// by a simple trailing-s rule, only applied when the stem's length exceeds
// 3 characters.
func pluralOpposite(tok string) string {
	stem := strings.TrimSuffix(tok, "s")
	if len(stem) <= 3 {
		return ""
	}
	if stem != tok {
		return stem
	}
	return tok + "s"
}
