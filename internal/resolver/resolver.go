// Package resolver picks the remote catalog entry that best matches a
// local series directory, either by catalog id or by fuzzy title match.
package resolver

import (
	"context"
	"path/filepath"
	"strings"

	"anitrack/internal/similarity"
	"anitrack/models"
)

// MinConfidence is the minimum Jaro-Winkler similarity a search
// candidate must clear to be accepted, per spec §4.4.
const MinConfidence = 0.75

// SeriesLookup is the subset of RemoteService the resolver depends on,
// so it can be tested against a minimal fake without pulling in the full
// sync/remote machinery.
type SeriesLookup interface {
	GetByID(ctx context.Context, id int) (models.SeriesInfo, error)
	SearchByName(ctx context.Context, name string) ([]models.SeriesInfo, error)
}

// ResolveByID fetches SeriesInfo directly by catalog id.
func ResolveByID(ctx context.Context, remote SeriesLookup, id int) (models.SeriesInfo, error) {
	return remote.GetByID(ctx, id)
}

// ResolveByName searches for name and returns the highest-scoring
// candidate whose romaji title clears MinConfidence, preferring the
// earlier search result on a tie. Fails with *models.NoMatchingSeriesError
// when nothing qualifies.
func ResolveByName(ctx context.Context, remote SeriesLookup, name string) (models.SeriesInfo, error) {
	candidates, err := remote.SearchByName(ctx, name)
	if err != nil {
		return models.SeriesInfo{}, err
	}

	best := -1
	bestScore := -1.0
	for i, candidate := range candidates {
		score := similarity.JaroWinkler(strings.ToLower(candidate.Title.Romaji), strings.ToLower(name))
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	if best == -1 || bestScore <= MinConfidence {
		return models.SeriesInfo{}, &models.NoMatchingSeriesError{Name: name}
	}

	return candidates[best], nil
}

// DirectoryFallbackTitle derives the query title to use when a directory
// has no stored nickname/id binding yet: the directory's base name with
// underscores read as spaces, whitespace normalized, and the same trailing
// release tags (1080p, HEVC, x264, ...) stripped that filenameparser
// strips from a captured title.
func DirectoryFallbackTitle(path string) string {
	base := filepath.Base(path)
	base = strings.ReplaceAll(base, "_", " ")
	releaseTags := map[string]bool{"1080p": true, "720p": true, "480p": true, "2160p": true,
		"hevc": true, "x264": true, "x265": true, "h264": true, "h265": true}
	fields := strings.Fields(base)
	for len(fields) > 0 && releaseTags[strings.ToLower(fields[len(fields)-1])] {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}
