// Package sync implements the thin policy layer deciding when a
// ListEntry's local changes need to reach the remote service, and when
// the remote's copy should overwrite the local one.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"anitrack/models"
	"anitrack/services/remote"
)

// EntryStore is the slice of Repository that SyncEngine needs: listing
// every dirty entry and persisting one back after a push.
type EntryStore interface {
	DirtyEntries(ctx context.Context) ([]*models.ListEntry, error)
	SaveEntry(ctx context.Context, entry *models.ListEntry) error
}

// Engine pushes and pulls ListEntry state against a RemoteService,
// mirroring how services/trakt/scrobbler.go wraps a client and a config
// manager rather than caching entry state itself. It does carry one
// piece of state across a run: once the remote rejects a credential,
// spec §7's Auth recovery policy ("force offline mode, log, continue")
// latches the engine offline for the rest of that run, regardless of
// what backend callers keep passing in.
type Engine struct {
	log           *slog.Logger
	forcedOffline bool
}

// NewEngine returns a ready-to-use Engine. log may be nil.
func NewEngine(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log}
}

// Push sends entry upstream, whether or not NeedsSync is set, and clears
// NeedsSync once the remote accepts it. An offline backend is treated as an immediate no-op success, leaving
// NeedsSync set so a later sync_all picks it back up. Once a prior call
// on this Engine has observed an auth rejection, every subsequent Push
// behaves as if svc were offline too.
func (e *Engine) Push(ctx context.Context, entry *models.ListEntry, svc remote.Service) error {
	if e.forcedOffline || svc.IsOffline() {
		return nil
	}

	err := retry.Do(
		func() error { return svc.UpdateListEntry(ctx, entry) },
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, models.ErrNetwork) }),
	)
	if err != nil {
		if errors.Is(err, models.ErrAuth) {
			e.log.Warn("remote rejected credential, forcing offline mode for the rest of this run", "error", err)
			e.forcedOffline = true
		}
		return fmt.Errorf("push entry %d: %w", entry.ID, err)
	}
	entry.NeedsSync = false
	return nil
}

// Pull refreshes entry from the remote, unless local changes are
// pending (local always wins over a stale remote snapshot), the
// backend is offline, or a prior Push has already forced this Engine
// offline for the run.
func (e *Engine) Pull(ctx context.Context, entry *models.ListEntry, svc remote.Service) error {
	if e.forcedOffline || svc.IsOffline() || entry.NeedsSync {
		return nil
	}

	remoteEntry, err := svc.GetListEntry(ctx, entry.ID)
	if err != nil {
		if errors.Is(err, models.ErrAuth) {
			e.log.Warn("remote rejected credential, forcing offline mode for the rest of this run", "error", err)
			e.forcedOffline = true
			return nil
		}
		return fmt.Errorf("pull entry %d: %w", entry.ID, err)
	}
	if remoteEntry == nil {
		return nil
	}

	*entry = *remoteEntry
	return nil
}

// SyncAll pushes every dirty entry in store. A failed push leaves
// NeedsSync set on that entry and is recorded in the returned error
// slice; it does not abort the remaining entries. Once any entry's push
// surfaces an auth rejection, the engine latches offline and every
// remaining entry in this call is skipped as a no-op rather than
// re-attempted against the rejecting backend.
func (e *Engine) SyncAll(ctx context.Context, store EntryStore, svc remote.Service) []error {
	entries, err := store.DirtyEntries(ctx)
	if err != nil {
		return []error{fmt.Errorf("list dirty entries: %w", err)}
	}

	var errs []error
	for _, entry := range entries {
		if err := e.Push(ctx, entry, svc); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := store.SaveEntry(ctx, entry); err != nil {
			errs = append(errs, fmt.Errorf("save entry %d: %w", entry.ID, err))
		}
	}
	return errs
}
