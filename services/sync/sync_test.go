package sync

import (
	"context"
	"errors"
	"testing"

	"anitrack/models"
)

var errSomeTransientFailure = errors.New("some transient failure unrelated to auth")

type fakeRemote struct {
	offline     bool
	updateErr   error
	updateCalls int
	getEntry    *models.ListEntry
	getErr      error
}

func (f *fakeRemote) SearchByName(context.Context, string) ([]models.SeriesInfo, error) { return nil, nil }
func (f *fakeRemote) GetByID(context.Context, int) (models.SeriesInfo, error)            { return models.SeriesInfo{}, nil }

func (f *fakeRemote) GetListEntry(context.Context, int) (*models.ListEntry, error) {
	return f.getEntry, f.getErr
}

func (f *fakeRemote) UpdateListEntry(context.Context, *models.ListEntry) error {
	f.updateCalls++
	return f.updateErr
}

func (f *fakeRemote) IsOffline() bool                 { return f.offline }
func (f *fakeRemote) ParseScore(s string) (*int, error) { return nil, nil }
func (f *fakeRemote) ScoreToStr(v int) string           { return "" }

func TestPushOfflineIsNoop(t *testing.T) {
	engine := NewEngine(nil)
	entry := models.NewListEntry(1)
	entry.NeedsSync = true
	svc := &fakeRemote{offline: true}

	if err := engine.Push(context.Background(), entry, svc); err != nil {
		t.Fatalf("Push returned error: %v", err)
	}
	if !entry.NeedsSync {
		t.Error("NeedsSync should remain true when offline")
	}
	if svc.updateCalls != 0 {
		t.Errorf("expected no UpdateListEntry calls, got %d", svc.updateCalls)
	}
}

func TestPushSuccessClearsNeedsSync(t *testing.T) {
	engine := NewEngine(nil)
	entry := models.NewListEntry(1)
	entry.NeedsSync = true
	svc := &fakeRemote{}

	if err := engine.Push(context.Background(), entry, svc); err != nil {
		t.Fatalf("Push returned error: %v", err)
	}
	if entry.NeedsSync {
		t.Error("NeedsSync should be cleared after a successful push")
	}
	if svc.updateCalls != 1 {
		t.Errorf("expected exactly 1 UpdateListEntry call, got %d", svc.updateCalls)
	}
}

func TestPushNonNetworkFailureDoesNotRetry(t *testing.T) {
	engine := NewEngine(nil)
	entry := models.NewListEntry(1)
	entry.NeedsSync = true
	svc := &fakeRemote{updateErr: models.ErrAuth}

	if err := engine.Push(context.Background(), entry, svc); err == nil {
		t.Fatal("expected error")
	}
	if svc.updateCalls != 1 {
		t.Errorf("expected exactly 1 call for a non-network failure, got %d", svc.updateCalls)
	}
	if !entry.NeedsSync {
		t.Error("NeedsSync should remain true on failure")
	}
}

func TestPushNetworkFailureRetries(t *testing.T) {
	engine := NewEngine(nil)
	entry := models.NewListEntry(1)
	entry.NeedsSync = true
	svc := &fakeRemote{updateErr: models.ErrNetwork}

	if err := engine.Push(context.Background(), entry, svc); err == nil {
		t.Fatal("expected error")
	}
	if svc.updateCalls != 3 {
		t.Errorf("expected 3 attempts on a persistent network failure, got %d", svc.updateCalls)
	}
}

func TestPullSkipsWhenLocalDirty(t *testing.T) {
	engine := NewEngine(nil)
	entry := models.NewListEntry(1)
	entry.NeedsSync = true
	entry.WatchedEps = 5
	svc := &fakeRemote{getEntry: models.NewListEntryFromRemote(1, 1, nil, models.StatusWatching, 0, nil, nil)}

	if err := engine.Pull(context.Background(), entry, svc); err != nil {
		t.Fatalf("Pull returned error: %v", err)
	}
	if entry.WatchedEps != 5 {
		t.Error("local changes should win over a stale remote snapshot")
	}
}

func TestPullReplacesWhenClean(t *testing.T) {
	engine := NewEngine(nil)
	entry := models.NewListEntry(1)
	entry.WatchedEps = 2
	svc := &fakeRemote{getEntry: models.NewListEntryFromRemote(1, 9, nil, models.StatusWatching, 0, nil, nil)}

	if err := engine.Pull(context.Background(), entry, svc); err != nil {
		t.Fatalf("Pull returned error: %v", err)
	}
	if entry.WatchedEps != 9 {
		t.Errorf("got WatchedEps %d, want 9", entry.WatchedEps)
	}
}

type fakeStore struct {
	dirty    []*models.ListEntry
	saveErrs map[int]error
	saved    []int
}

func (s *fakeStore) DirtyEntries(context.Context) ([]*models.ListEntry, error) { return s.dirty, nil }

func (s *fakeStore) SaveEntry(_ context.Context, entry *models.ListEntry) error {
	s.saved = append(s.saved, entry.ID)
	if s.saveErrs != nil {
		return s.saveErrs[entry.ID]
	}
	return nil
}

func TestSyncAllContinuesPastFailures(t *testing.T) {
	engine := NewEngine(nil)
	e1 := models.NewListEntry(1)
	e1.NeedsSync = true
	e2 := models.NewListEntry(2)
	e2.NeedsSync = true
	store := &fakeStore{dirty: []*models.ListEntry{e1, e2}}
	svc := &fakeRemote{updateErr: errSomeTransientFailure}

	errs := engine.SyncAll(context.Background(), store, svc)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	if !e1.NeedsSync || !e2.NeedsSync {
		t.Error("both entries should remain dirty after failed pushes")
	}
	if svc.updateCalls != 2 {
		t.Errorf("expected both entries to still be attempted, got %d calls", svc.updateCalls)
	}
}

// TestSyncAllForcesOfflineAfterAuthRejection covers spec §7's Auth
// recovery policy: once the remote rejects a credential, the engine
// latches offline and skips every remaining entry in the same run
// instead of repeatedly hammering a backend that will never succeed.
func TestSyncAllForcesOfflineAfterAuthRejection(t *testing.T) {
	engine := NewEngine(nil)
	e1 := models.NewListEntry(1)
	e1.NeedsSync = true
	e2 := models.NewListEntry(2)
	e2.NeedsSync = true
	store := &fakeStore{dirty: []*models.ListEntry{e1, e2}}
	svc := &fakeRemote{updateErr: models.ErrAuth}

	errs := engine.SyncAll(context.Background(), store, svc)
	if len(errs) != 1 {
		t.Fatalf("expected exactly 1 error (the auth rejection itself), got %d: %v", len(errs), errs)
	}
	if svc.updateCalls != 1 {
		t.Errorf("expected only the first entry to reach the rejecting backend, got %d calls", svc.updateCalls)
	}
	if !e1.NeedsSync || !e2.NeedsSync {
		t.Error("both entries should remain dirty")
	}
	if !engine.forcedOffline {
		t.Error("engine should have latched offline after the auth rejection")
	}
}

func TestSyncAllClearsDirtyOnSuccess(t *testing.T) {
	engine := NewEngine(nil)
	e1 := models.NewListEntry(1)
	e1.NeedsSync = true
	store := &fakeStore{dirty: []*models.ListEntry{e1}}
	svc := &fakeRemote{}

	errs := engine.SyncAll(context.Background(), store, svc)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if e1.NeedsSync {
		t.Error("entry should no longer be dirty")
	}
	if len(store.saved) != 1 || store.saved[0] != 1 {
		t.Errorf("expected entry 1 to be saved, got %v", store.saved)
	}
}
