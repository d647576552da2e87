package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"anitrack/models"
)

// Percentage is a fraction in the 0..1 range in memory, but reads and
// writes as a human-friendly 0..100 percent on disk — mirroring the
// original Rust crate's Percentage newtype.
type Percentage float64

// MarshalTOML writes the percentage as a whole percent, e.g. 0.5 -> 50.
func (p Percentage) MarshalTOML() ([]byte, error) {
	return []byte(fmt.Sprintf("%v", float64(p)*100)), nil
}

// UnmarshalTOML reads the already-decoded percent value (go-toml/v2
// hands Unmarshaler the parsed scalar, not raw bytes) and stores it as
// a fraction.
func (p *Percentage) UnmarshalTOML(value any) error {
	var percent float64
	switch v := value.(type) {
	case int64:
		percent = float64(v)
	case float64:
		percent = v
	default:
		return fmt.Errorf("percent_watched_to_progress: unsupported type %T", value)
	}
	*p = Percentage(percent / 100)
	return nil
}

// Fraction returns the 0..1 value SeriesSession expects.
func (p Percentage) Fraction() float64 { return float64(p) }

// Store holds the fields from spec §4.8: library layout, rewatch and
// sync-gating policy, and the external player invocation. It is backed
// by config.toml and a sibling last_watched flat file.
type Store struct {
	LibraryRoot           string     `toml:"library_root"`
	ResetDatesOnRewatch   bool       `toml:"reset_dates_on_rewatch"`
	WatchPercentThreshold Percentage `toml:"percent_watched_to_progress"`
	SecondsBeforeNext     float64    `toml:"seconds_before_next"`
	PlayerPath            string     `toml:"player_path"`
	PlayerArgs            []string   `toml:"player_args"`
}

// Default returns a Store with the defaults a fresh install should ship.
func Default() Store {
	return Store{
		ResetDatesOnRewatch:   false,
		WatchPercentThreshold: Percentage(0.5),
		SecondsBeforeNext:     5,
		PlayerPath:            "mpv",
	}
}

// RewatchDates adapts Store to session.RewatchConfig.
func (s Store) RewatchDates() models.RewatchDateConfig {
	return models.RewatchDateConfig{ResetDatesOnRewatch: s.ResetDatesOnRewatch}
}

// PercentWatchedToProgress returns the configured fraction, satisfying
// session.RewatchConfig.
func (s Store) PercentWatchedToProgress() float64 {
	return s.WatchPercentThreshold.Fraction()
}

// Manager loads and persists a Store to configDir/config.toml, and the
// last-watched nickname to configDir/last_watched, mirroring
// config.Manager's Load/Save/EnsureDir shape but over TOML instead of
// JSON, per spec §6.
type Manager struct {
	configDir string
}

// NewManager returns a Manager rooted at configDir.
func NewManager(configDir string) *Manager {
	return &Manager{configDir: configDir}
}

func (m *Manager) configPath() string       { return filepath.Join(m.configDir, "config.toml") }
func (m *Manager) lastWatchedPath() string { return filepath.Join(m.configDir, "last_watched") }

// EnsureDir creates the config directory if it doesn't exist.
func (m *Manager) EnsureDir() error {
	return os.MkdirAll(m.configDir, 0o755)
}

// Load reads config.toml, or writes and returns the defaults if it
// doesn't exist yet.
func (m *Manager) Load() (Store, error) {
	path := m.configPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		defaults := Default()
		if err := m.Save(defaults); err != nil {
			return Store{}, err
		}
		return defaults, nil
	}
	if err != nil {
		return Store{}, &models.IOError{Path: path, Err: err}
	}

	var store Store
	if err := toml.Unmarshal(data, &store); err != nil {
		return Store{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return store, nil
}

// Save writes store to config.toml atomically (temp file + rename),
// the same pattern watchlist.Service.saveLocked uses for its own state.
func (m *Manager) Save(store Store) error {
	if err := m.EnsureDir(); err != nil {
		return err
	}

	data, err := toml.Marshal(store)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	path := m.configPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &models.IOError{Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &models.IOError{Path: path, Err: err}
	}
	return nil
}

// LastWatched reads the single-line nickname file. An empty or missing
// file means "none".
func (m *Manager) LastWatched() (string, error) {
	data, err := os.ReadFile(m.lastWatchedPath())
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", &models.IOError{Path: m.lastWatchedPath(), Err: err}
	}
	return strings.TrimSpace(string(data)), nil
}

// SetLastWatched overwrites the nickname file with nickname.
func (m *Manager) SetLastWatched(nickname string) error {
	if err := m.EnsureDir(); err != nil {
		return err
	}
	path := m.lastWatchedPath()
	if err := os.WriteFile(path, []byte(nickname+"\n"), 0o644); err != nil {
		return &models.IOError{Path: path, Err: err}
	}
	return nil
}
