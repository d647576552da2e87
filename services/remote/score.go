package remote

import (
	"strconv"

	"anitrack/models"
)

// parseScoreDefault implements the plain 0..=100 round-trip both
// backends use: AniList's own scoring widget defaults to a 0-100 point
// scale, so no further mapping is needed. This mirrors the original
// anup/anime crate's ScoreParser trait default.
func parseScoreDefault(s string) (*int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		// An unparsable score string just means "no score", not an error.
		return nil, nil
	}
	if v < 0 || v > 100 {
		return nil, models.ErrInvalidScore
	}
	return &v, nil
}

// scoreToStrDefault is the inverse of parseScoreDefault.
func scoreToStrDefault(v int) string {
	return strconv.Itoa(v)
}
