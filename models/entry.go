package models

import "time"

// Status is a list entry's watch state.
type Status int

const (
	// StatusPlanToWatch is the default status for a freshly added series.
	StatusPlanToWatch Status = iota + 1
	StatusWatching
	StatusCompleted
	StatusOnHold
	StatusDropped
	StatusRewatching
)

// statusSQLCode maps a Status to its spec §6 SMALLINT coding.
var statusSQLCode = map[Status]int{
	StatusWatching:    1,
	StatusCompleted:   2,
	StatusOnHold:      3,
	StatusDropped:     4,
	StatusPlanToWatch: 5,
	StatusRewatching:  6,
}

var sqlCodeStatus = func() map[int]Status {
	out := make(map[int]Status, len(statusSQLCode))
	for status, code := range statusSQLCode {
		out[code] = status
	}
	return out
}()

// SQLCode returns the persisted SMALLINT coding for this status.
func (s Status) SQLCode() int { return statusSQLCode[s] }

// StatusFromSQLCode reverses SQLCode.
func StatusFromSQLCode(code int) Status { return sqlCodeStatus[code] }

func (s Status) String() string {
	switch s {
	case StatusWatching:
		return "watching"
	case StatusCompleted:
		return "completed"
	case StatusOnHold:
		return "on_hold"
	case StatusDropped:
		return "dropped"
	case StatusPlanToWatch:
		return "plan_to_watch"
	case StatusRewatching:
		return "rewatching"
	default:
		return "unknown"
	}
}

// ListEntry is the mutable tracking record for one series. Every public
// mutator sets NeedsSync; constructing one from a remote response should
// go through NewListEntryFromRemote instead, which leaves it clean.
type ListEntry struct {
	ID             int
	WatchedEps     int
	Score          *int
	Status         Status
	TimesRewatched int
	StartDate      *time.Time
	EndDate        *time.Time
	NeedsSync      bool
}

// NewListEntry returns a fresh entry with defaults, as created when a
// series is added and the remote has no existing entry for it.
func NewListEntry(id int) *ListEntry {
	return &ListEntry{
		ID:     id,
		Status: StatusPlanToWatch,
	}
}

// NewListEntryFromRemote constructs an entry mirroring what the remote
// reported. NeedsSync is left false: the local copy matches upstream.
func NewListEntryFromRemote(id, watchedEps int, score *int, status Status, timesRewatched int, start, end *time.Time) *ListEntry {
	return &ListEntry{
		ID:             id,
		WatchedEps:     watchedEps,
		Score:          score,
		Status:         status,
		TimesRewatched: timesRewatched,
		StartDate:      start,
		EndDate:        end,
		NeedsSync:      false,
	}
}

// SetWatchedEps sets the watched episode count and marks the entry dirty.
// Per spec §3, callers are expected to keep this <= info.Episodes
// whenever info.Episodes > 0; SeriesSession enforces that invariant.
func (e *ListEntry) SetWatchedEps(n int) {
	e.WatchedEps = n
	e.NeedsSync = true
}

// SetScore validates and sets the 0..=100 score, or clears it when given nil.
func (e *ListEntry) SetScore(score *int) error {
	if score != nil && (*score < 0 || *score > 100) {
		return ErrInvalidScore
	}
	e.Score = score
	e.NeedsSync = true
	return nil
}

// SetTimesRewatched sets the rewatch counter and marks the entry dirty.
func (e *ListEntry) SetTimesRewatched(n int) {
	e.TimesRewatched = n
	e.NeedsSync = true
}

// RewatchDateConfig supplies the policy SetStatus needs to decide whether
// to reset start/end dates on a rewatch transition.
type RewatchDateConfig struct {
	ResetDatesOnRewatch bool
}

// SetStatus transitions the entry to next, applying the date side effects
// from spec §4.5, then marks the entry dirty. today should be the local
// calendar date truncated to midnight.
func (e *ListEntry) SetStatus(next Status, cfg RewatchDateConfig, today time.Time) {
	previous := e.Status

	switch next {
	case StatusWatching:
		if e.StartDate == nil {
			e.StartDate = &today
		}
	case StatusRewatching:
		if e.StartDate == nil || (previous == StatusCompleted && cfg.ResetDatesOnRewatch) {
			e.StartDate = &today
		}
	case StatusCompleted:
		if e.EndDate == nil || (previous == StatusRewatching && cfg.ResetDatesOnRewatch) {
			e.EndDate = &today
		}
	case StatusDropped:
		if e.EndDate == nil {
			e.EndDate = &today
		}
	case StatusOnHold, StatusPlanToWatch:
		// no date change
	}

	e.Status = next
	e.NeedsSync = true
}
