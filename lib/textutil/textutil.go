package textutil

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// restores Swedish letters that were flattened to ASCII digraphs
var digraphs = strings.NewReplacer(
	"aa", "å", "ae", "ä", "oe", "ö",
	"AA", "Å", "AE", "Ä", "OE", "Ö",
)

var whitespaceRuns = regexp.MustCompile(`\s+`)
var disallowedChars = regexp.MustCompile(`[^0-9A-Za-z_åäöÅÄÖ\s-]`)

var titleCaser = cases.Title(language.Swedish)

var normCache, _ = lru.New[string, string](200)

// NormalizeSwedish canonicalizes a free-text name, city or street token:
// trim, digraph restoration, whitespace collapse, charset filtering and
// title casing. Deterministic, so results are memoized.
func NormalizeSwedish(s string) string {
	if s == "" {
		return ""
	}
	if cached, hit := normCache.Get(s); hit {
		return cached
	}

	out := strings.TrimSpace(s)
	out = digraphs.Replace(out)
	out = whitespaceRuns.ReplaceAllString(out, " ")
	out = disallowedChars.ReplaceAllString(out, "")
	out = titleCaser.String(out)

	normCache.Add(s, out)
	return out
}
