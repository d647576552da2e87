package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCreatesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(dir)

	store, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if store.PlayerPath != "mpv" {
		t.Errorf("got player path %q, want default mpv", store.PlayerPath)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.toml")); err != nil {
		t.Fatalf("expected config.toml to be written: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(dir)

	store := Store{
		LibraryRoot:           "/library",
		ResetDatesOnRewatch:   true,
		WatchPercentThreshold: Percentage(0.75),
		SecondsBeforeNext:     10,
		PlayerPath:            "vlc",
		PlayerArgs:            []string{"--fullscreen"},
	}
	if err := mgr.Save(store); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.LibraryRoot != store.LibraryRoot ||
		got.ResetDatesOnRewatch != store.ResetDatesOnRewatch ||
		got.WatchPercentThreshold != store.WatchPercentThreshold ||
		got.SecondsBeforeNext != store.SecondsBeforeNext ||
		got.PlayerPath != store.PlayerPath ||
		len(got.PlayerArgs) != len(store.PlayerArgs) || got.PlayerArgs[0] != store.PlayerArgs[0] {
		t.Errorf("got %+v, want %+v", got, store)
	}
}

func TestPercentageStoredAsPercentOnDisk(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(dir)

	store := Default()
	store.WatchPercentThreshold = Percentage(0.5)
	if err := mgr.Save(store); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("reading config.toml: %v", err)
	}
	if !strings.Contains(string(raw), "percent_watched_to_progress = 50") {
		t.Errorf("expected on-disk percent of 50, got:\n%s", raw)
	}
}

func TestPercentWatchedToProgressReturnsFraction(t *testing.T) {
	store := Store{WatchPercentThreshold: Percentage(0.5)}
	if store.PercentWatchedToProgress() != 0.5 {
		t.Errorf("got %v, want 0.5", store.PercentWatchedToProgress())
	}
}

func TestLastWatchedDefaultsToEmpty(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(dir)

	got, err := mgr.LastWatched()
	if err != nil {
		t.Fatalf("LastWatched returned error: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty for a missing file", got)
	}
}

func TestSetLastWatchedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(dir)

	if err := mgr.SetLastWatched("showx"); err != nil {
		t.Fatalf("SetLastWatched returned error: %v", err)
	}
	got, err := mgr.LastWatched()
	if err != nil {
		t.Fatalf("LastWatched returned error: %v", err)
	}
	if got != "showx" {
		t.Errorf("got %q, want showx", got)
	}
}
