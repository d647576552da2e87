// Package similarity scores how alike two titles are, for matching a
// local series directory against a remote catalog entry.
package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerCaser = cases.Lower(language.Und)

// JaroWinkler returns the Jaro-Winkler similarity between s1 and s2, in
// the range 0.0 (completely different) to 1.0 (identical). Both inputs
// are normalized first so punctuation, casing and separator choice don't
// affect the score.
func JaroWinkler(s1, s2 string) float64 {
	s1 = normalize(s1)
	s2 = normalize(s2)

	if s1 == s2 {
		return 1.0
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	jaro := jaroDistance(s1, s2)
	if jaro <= 0 {
		return jaro
	}

	prefix := commonPrefixLength(s1, s2, 4)
	const scalingFactor = 0.1
	return jaro + float64(prefix)*scalingFactor*(1.0-jaro)
}

// jaroDistance computes the plain Jaro similarity (without the Winkler
// prefix bonus) between two already-normalized strings.
func jaroDistance(s1, s2 string) float64 {
	r1 := []rune(s1)
	r2 := []rune(s2)
	len1, len2 := len(r1), len(r2)

	if len1 == 0 && len2 == 0 {
		return 1.0
	}
	if len1 == 0 || len2 == 0 {
		return 0.0
	}

	matchDistance := max(len1, len2)/2 - 1
	if matchDistance < 0 {
		matchDistance = 0
	}

	r1Matches := make([]bool, len1)
	r2Matches := make([]bool, len2)

	matches := 0
	for i := 0; i < len1; i++ {
		start := max(0, i-matchDistance)
		end := min(i+matchDistance+1, len2)
		for j := start; j < end; j++ {
			if r2Matches[j] || r1[i] != r2[j] {
				continue
			}
			r1Matches[i] = true
			r2Matches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := 0; i < len1; i++ {
		if !r1Matches[i] {
			continue
		}
		for !r2Matches[k] {
			k++
		}
		if r1[i] != r2[k] {
			transpositions++
		}
		k++
	}
	transpositions /= 2

	m := float64(matches)
	return (m/float64(len1) + m/float64(len2) + (m-float64(transpositions))/m) / 3.0
}

// commonPrefixLength returns the length of the common prefix of s1 and
// s2, capped at maxLen (the Jaro-Winkler standard caps this at 4).
func commonPrefixLength(s1, s2 string, maxLen int) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	n := min(len(r1), len(r2), maxLen)
	i := 0
	for i < n && r1[i] == r2[i] {
		i++
	}
	return i
}

// normalize folds "&" to " and ", lowercases (Unicode-aware), turns
// whitespace and the separators '.', '-', '_' and ':' into single spaces,
// and drops every other character that is not a letter or digit, the same forgiving
// comparison the teacher's title-matching utility applies before scoring.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "&", " and ")
	s = lowerCaser.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '.' || r == '-' || r == '_' || r == ':':
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func min(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func max(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
