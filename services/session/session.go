// Package session drives the playback state machine: the transitions a
// ListEntry goes through as a user begins, progresses through, and
// finishes an episode or a whole series.
package session

import (
	"context"
	"fmt"
	"time"

	"anitrack/internal/episodemap"
	"anitrack/models"
	"anitrack/services/remote"
	"anitrack/services/sync"
)

// EntryRepository is the slice of persistence Session needs: saving the
// entry it mutates. Kept narrow so tests can supply a fake without
// pulling in the full repository.
type EntryRepository interface {
	SaveEntry(ctx context.Context, entry *models.ListEntry) error
}

// RewatchConfig supplies the policy knobs Session needs from the
// ConfigStore: whether start/end dates reset on a rewatch, and the
// fraction of an episode's runtime (0..1) that counts as "watched".
type RewatchConfig interface {
	RewatchDates() models.RewatchDateConfig
	PercentWatchedToProgress() float64
}

// Session orchestrates one watch session for a single series: the
// sequence begin_watching -> (play externally) -> episode_completed or
// episode_regressed, ending eventually in series_complete.
type Session struct {
	Entry        *models.ListEntry
	Info         models.SeriesInfo
	sessionStart time.Time
	syncer       *sync.Engine
}

// New starts a session for entry/info at start (normally time.Now()).
func New(entry *models.ListEntry, info models.SeriesInfo, start time.Time) *Session {
	return &Session{
		Entry:        entry,
		Info:         info,
		sessionStart: start,
		syncer:       sync.NewEngine(nil),
	}
}

func today() time.Time {
	now := time.Now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// BeginWatching pulls remote state (unless local changes are pending or
// the backend is offline),
// then drives the entry into a watching status appropriate to its
// current one, and finally pushes the result upstream.
func (s *Session) BeginWatching(ctx context.Context, svc remote.Service, cfg RewatchConfig, repo EntryRepository) error {
	if err := s.syncFromRemote(ctx, svc); err != nil {
		return err
	}

	previous := s.Entry.Status
	switch s.Entry.Status {
	case models.StatusWatching, models.StatusRewatching:
		if s.Info.Episodes > 0 && s.Entry.WatchedEps >= s.Info.Episodes {
			s.Entry.SetStatus(models.StatusRewatching, cfg.RewatchDates(), today())
			s.Entry.SetWatchedEps(0)
			if previous == models.StatusRewatching {
				s.Entry.SetTimesRewatched(s.Entry.TimesRewatched + 1)
			}
		}
	case models.StatusCompleted:
		s.Entry.SetStatus(models.StatusRewatching, cfg.RewatchDates(), today())
		s.Entry.SetWatchedEps(0)
	case models.StatusPlanToWatch, models.StatusOnHold:
		s.Entry.SetStatus(models.StatusWatching, cfg.RewatchDates(), today())
	case models.StatusDropped:
		s.Entry.SetStatus(models.StatusWatching, cfg.RewatchDates(), today())
		s.Entry.SetWatchedEps(0)
	}

	return s.syncAndSave(ctx, svc, repo)
}

// syncFromRemote implements spec §4.5 step 1: local changes win, so a
// dirty entry is left untouched, and an offline backend leaves the local
// entry as it is; otherwise the remote's copy replaces it wholesale, or
// the entry resets to fresh defaults if the remote has never seen this
// series.
func (s *Session) syncFromRemote(ctx context.Context, svc remote.Service) error {
	if s.Entry.NeedsSync || svc.IsOffline() {
		return nil
	}

	remoteEntry, err := svc.GetListEntry(ctx, s.Entry.ID)
	if err != nil {
		return fmt.Errorf("sync from remote: %w", err)
	}
	if remoteEntry == nil {
		s.Entry = models.NewListEntry(s.Info.ID)
		return nil
	}
	s.Entry = remoteEntry
	return nil
}

func (s *Session) syncAndSave(ctx context.Context, svc remote.Service, repo EntryRepository) error {
	if err := s.syncer.Push(ctx, s.Entry, svc); err != nil {
		return err
	}
	return repo.SaveEntry(ctx, s.Entry)
}

// EpisodeCompleted advances watched_eps by one, rolling over into
// SeriesComplete when that reaches or exceeds the catalog episode count.
// An ongoing series (info.Episodes == 0) never completes this way.
func (s *Session) EpisodeCompleted(ctx context.Context, svc remote.Service, cfg RewatchConfig, repo EntryRepository) error {
	next := s.Entry.WatchedEps + 1

	switch {
	case s.Info.Episodes == 0 || next < s.Info.Episodes:
		s.Entry.SetWatchedEps(next)
		return s.syncAndSave(ctx, svc, repo)
	case next == s.Info.Episodes:
		s.Entry.SetWatchedEps(next)
		return s.SeriesComplete(ctx, svc, cfg, repo)
	default:
		return s.SeriesComplete(ctx, svc, cfg, repo)
	}
}

// SeriesComplete marks the entry Completed, incrementing the rewatch
// counter first if the series was being rewatched.
func (s *Session) SeriesComplete(ctx context.Context, svc remote.Service, cfg RewatchConfig, repo EntryRepository) error {
	if s.Entry.Status == models.StatusRewatching {
		s.Entry.SetTimesRewatched(s.Entry.TimesRewatched + 1)
	}
	s.Entry.SetStatus(models.StatusCompleted, cfg.RewatchDates(), today())
	return s.syncAndSave(ctx, svc, repo)
}

// EpisodeRegressed steps watched_eps back by one (floored at zero) and
// demotes the status accordingly — used when a driver detects the user
// rewound past an episode boundary.
func (s *Session) EpisodeRegressed(ctx context.Context, svc remote.Service, cfg RewatchConfig, repo EntryRepository) error {
	next := s.Entry.WatchedEps - 1
	if next < 0 {
		next = 0
	}
	s.Entry.SetWatchedEps(next)

	newStatus := models.StatusWatching
	if s.Entry.Status == models.StatusRewatching || (s.Entry.Status == models.StatusCompleted && s.Entry.TimesRewatched > 0) {
		newStatus = models.StatusRewatching
	}
	s.Entry.SetStatus(newStatus, cfg.RewatchDates(), today())
	return s.syncAndSave(ctx, svc, repo)
}

// NextWatchProgressTime returns the wall-clock instant at which the
// current episode has played enough of its runtime to count as watched.
func (s *Session) NextWatchProgressTime(cfg RewatchConfig) time.Time {
	seconds := float64(s.Info.EpisodeLengthMinutes) * 60 * cfg.PercentWatchedToProgress()
	return s.sessionStart.Add(time.Duration(seconds * float64(time.Second)))
}

// NextEpisodePath resolves the next unwatched episode's file path from
// m, or an EpisodeNotFound error if the directory doesn't have it yet.
func (s *Session) NextEpisodePath(m *episodemap.EpisodeMap) (string, error) {
	n := s.Entry.WatchedEps + 1
	path, ok := m.Get(n)
	if !ok {
		return "", fmt.Errorf("%w: episode %d", models.ErrEpisodeNotFound, n)
	}
	return path, nil
}
