// Package remote defines the capability set every anime-tracking backend
// must implement, and provides the two variants the core dispatches
// over: AniListBackend (live) and OfflineBackend (a stub).
package remote

import (
	"context"

	"anitrack/models"
)

// Service is the capability set a RemoteService backend implements, per
// spec §4.3. AniListBackend and OfflineBackend both satisfy it.
type Service interface {
	// SearchByName returns candidate series for free-text name, ordered
	// best-confidence first per the backend's own ranking.
	SearchByName(ctx context.Context, name string) ([]models.SeriesInfo, error)
	// GetByID fetches catalog facts for id, or a *models.NotFoundError.
	GetByID(ctx context.Context, id int) (models.SeriesInfo, error)
	// GetListEntry fetches the authenticated user's entry for id. A nil
	// entry with a nil error means the user hasn't added the series.
	GetListEntry(ctx context.Context, id int) (*models.ListEntry, error)
	// UpdateListEntry pushes entry upstream. Idempotent per (user, id).
	UpdateListEntry(ctx context.Context, entry *models.ListEntry) error
	// IsOffline reports whether this backend is the offline stub, which
	// never makes network calls.
	IsOffline() bool
	// ParseScore maps a backend-specific score string to 0..=100.
	ParseScore(s string) (*int, error)
	// ScoreToStr is the inverse of ParseScore.
	ScoreToStr(v int) string
}
