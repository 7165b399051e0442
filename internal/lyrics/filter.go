package lyrics

import (
	"regexp"
	"strings"
)

// Words that never belong in a novelty song regardless of rating.
var bannedWords = []string{"injury", "hurt", "damage", "harm"}

var bannedPatterns = compileWordPatterns(bannedWords)

// pgSofteners swaps mild profanity for radio-safe stand-ins in PG mode.
var pgSofteners = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)damn`), "darn"},
	{regexp.MustCompile(`(?i)hell`), "heck"},
	{regexp.MustCompile(`(?i)crap`), "crud"},
}

// FilterContent redacts banned words and, in PG mode, softens profanity.
// NSFW mode only applies the banned-word pass.
func FilterContent(text, ratingMode string) string {
	for _, p := range bannedPatterns {
		text = p.ReplaceAllString(text, "[FILTERED]")
	}
	if strings.EqualFold(ratingMode, "PG") {
		for _, s := range pgSofteners {
			text = s.pattern.ReplaceAllString(text, s.replacement)
		}
	}
	return text
}

func compileWordPatterns(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		out = append(out, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(w)))
	}
	return out
}
