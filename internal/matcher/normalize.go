package matcher

import (
	"regexp"
	"strings"
)

var (
	leadingNumberPattern = regexp.MustCompile(`^\d+[.:\-\s]+`)
	parentheticalPattern = regexp.MustCompile(`\([^)]*\)`)
	punctuationPattern   = regexp.MustCompile(`[^\w\s]`)
	whitespacePattern    = regexp.MustCompile(`\s+`)

	namePrefixes = []string{"episode ", "ep ", "e ", "part ", "pt "}
	nameSuffixes = []string{" part a", " part b", " part 1", " part 2"}

	seasonEpisodePatterns = []*regexp.Regexp{
		regexp.MustCompile(`[Ss](\d+)[Ee](\d+)`),          // S01E05
		regexp.MustCompile(`(\d+)x(\d+)`),                 // 1x05
		regexp.MustCompile(`[Ss]eason\s*(\d+)\s*[Ee]pisode\s*(\d+)`), // Season 1 Episode 5
		regexp.MustCompile(`[Ss](\d+)\s*[Ee](\d+)`),       // S1 E5
	}
)

// NormalizeName prepares an episode name for comparison: lowercase,
// parenthetical qualifiers like "(episode)" dropped, ordinal and
// "episode"-style prefixes stripped, punctuation removed, whitespace
// collapsed, trailing part markers dropped. Applying it twice gives the same
// result as applying it once, so normalized values can be re-normalized
// safely.
func NormalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return ""
	}

	normalized = parentheticalPattern.ReplaceAllString(normalized, " ")
	normalized = punctuationPattern.ReplaceAllString(normalized, " ")
	normalized = whitespacePattern.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)

	// Prefix and suffix stripping can expose further prefixes and suffixes
	// ("ep 5. Title", "Name Part 1 Part 2"); repeat until stable.
	for {
		previous := normalized

		for _, prefix := range namePrefixes {
			if strings.HasPrefix(normalized, prefix) {
				normalized = strings.TrimSpace(normalized[len(prefix):])
			}
		}

		normalized = strings.TrimSpace(leadingNumberPattern.ReplaceAllString(normalized, ""))

		for _, suffix := range nameSuffixes {
			if strings.HasSuffix(normalized, suffix) {
				normalized = strings.TrimSpace(normalized[:len(normalized)-len(suffix)])
			}
		}

		if normalized == previous {
			return normalized
		}
	}
}

// ExtractSeasonEpisode pulls a (season, episode) pair out of free text,
// trying S01E05, 1x05, "Season 1 Episode 5" and "S1 E5" forms in that order.
func ExtractSeasonEpisode(text string) (season int, episode int, ok bool) {
	for _, pattern := range seasonEpisodePatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		return atoiSafe(match[1]), atoiSafe(match[2]), true
	}
	return 0, 0, false
}

// FuzzyScore rates the similarity of two normalized names in [0, 1]: exact
// equality scores 1.0, otherwise token-set Jaccard similarity with a 0.2
// bonus when one string contains the other.
func FuzzyScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}

	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	intersection := 0
	for token := range tokensA {
		if _, ok := tokensB[token]; ok {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection

	score := float64(intersection) / float64(union)
	if strings.Contains(a, b) || strings.Contains(b, a) {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func tokenSet(value string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(value))
	set := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		set[field] = struct{}{}
	}
	return set
}

func atoiSafe(raw string) int {
	value := 0
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0
		}
		value = value*10 + int(r-'0')
	}
	return value
}
