package remote

import (
	"context"

	"anitrack/models"
)

// OfflineBackend is a stub RemoteService used when the network is
// unavailable or the user explicitly runs with --offline. Searches and
// id/entry lookups always report "not found"; updates are accepted as
// no-ops so SyncEngine can treat every push as succeeding-but-still-dirty.
//
// This mirrors how services/watchlist/service.go keeps UpdateState as a
// documented no-op once its behavior moved elsewhere, rather than
// deleting the method outright.
type OfflineBackend struct{}

// NewOfflineBackend returns a ready-to-use OfflineBackend. It holds no
// state, so a single value can be shared freely.
func NewOfflineBackend() *OfflineBackend { return &OfflineBackend{} }

func (b *OfflineBackend) SearchByName(_ context.Context, _ string) ([]models.SeriesInfo, error) {
	return nil, nil
}

func (b *OfflineBackend) GetByID(_ context.Context, id int) (models.SeriesInfo, error) {
	return models.SeriesInfo{}, &models.NotFoundError{ID: id}
}

func (b *OfflineBackend) GetListEntry(_ context.Context, _ int) (*models.ListEntry, error) {
	return nil, nil
}

func (b *OfflineBackend) UpdateListEntry(_ context.Context, _ *models.ListEntry) error {
	return nil
}

func (b *OfflineBackend) IsOffline() bool { return true }

func (b *OfflineBackend) ParseScore(s string) (*int, error) {
	return parseScoreDefault(s)
}

func (b *OfflineBackend) ScoreToStr(v int) string {
	return scoreToStrDefault(v)
}
