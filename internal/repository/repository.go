// Package repository persists the three spec §3 entities (SeriesConfig,
// SeriesInfo, ListEntry) to a sqlite database, one row per table keyed
// by catalog id, with schema managed by goose migrations.
package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"anitrack/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const playerArgsSeparator = ";;"

// Repository is the single writer over the persistent store. Spec §5
// assumes exclusive single-process access; Repository does not itself
// guard against concurrent processes sharing the same file.
type Repository struct {
	db *sql.DB
}

// Open creates (or reuses) the sqlite database at path and brings its
// schema up to date via the embedded goose migrations.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, &models.DatabaseConstraintError{Err: err}
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, &models.DatabaseConstraintError{Err: err}
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return nil, &models.DatabaseConstraintError{Err: err}
	}

	return &Repository{db: db}, nil
}

// Close releases the underlying database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Save atomically inserts or updates all three rows for one series,
// per spec §4.7's single-writer transaction boundary around save(series).
func (r *Repository) Save(ctx context.Context, cfg *models.SeriesConfig, info *models.SeriesInfo, entry *models.ListEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &models.DatabaseConstraintError{Err: err}
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO series_configs (id, nickname, path, episode_matcher, player_args)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			nickname = excluded.nickname,
			path = excluded.path,
			episode_matcher = excluded.episode_matcher,
			player_args = excluded.player_args
	`, cfg.ID, cfg.Nickname, cfg.Path, nullableString(cfg.EpisodeMatcher), joinPlayerArgs(cfg.PlayerArgs))
	if err != nil {
		return &models.DatabaseConstraintError{Err: fmt.Errorf("save series_configs: %w", err)}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO series_info (id, title_preferred, title_romaji, episodes, episode_length_mins)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title_preferred = excluded.title_preferred,
			title_romaji = excluded.title_romaji,
			episodes = excluded.episodes,
			episode_length_mins = excluded.episode_length_mins
	`, info.ID, info.Title.Preferred, info.Title.Romaji, info.Episodes, info.EpisodeLengthMinutes)
	if err != nil {
		return &models.DatabaseConstraintError{Err: fmt.Errorf("save series_info: %w", err)}
	}

	if err := saveEntryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return &models.DatabaseConstraintError{Err: err}
	}
	return nil
}

// SaveEntry persists only the ListEntry row, for SeriesSession and
// SyncEngine, which mutate entries without touching config or catalog
// facts. Satisfies both sync.EntryStore and session.EntryRepository.
func (r *Repository) SaveEntry(ctx context.Context, entry *models.ListEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &models.DatabaseConstraintError{Err: err}
	}
	defer tx.Rollback()

	if err := saveEntryTx(ctx, tx, entry); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &models.DatabaseConstraintError{Err: err}
	}
	return nil
}

func saveEntryTx(ctx context.Context, tx *sql.Tx, entry *models.ListEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO series_entries (id, watched_episodes, score, status, times_rewatched, start_date, end_date, needs_sync)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			watched_episodes = excluded.watched_episodes,
			score = excluded.score,
			status = excluded.status,
			times_rewatched = excluded.times_rewatched,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			needs_sync = excluded.needs_sync
	`, entry.ID, entry.WatchedEps, entry.Score, entry.Status.SQLCode(), entry.TimesRewatched,
		formatDate(entry.StartDate), formatDate(entry.EndDate), entry.NeedsSync)
	if err != nil {
		return &models.DatabaseConstraintError{Err: fmt.Errorf("save series_entries: %w", err)}
	}
	return nil
}

// LoadByNickname fetches the full (config, info, entry) triple for the
// series registered under nickname.
func (r *Repository) LoadByNickname(ctx context.Context, nickname string) (*models.SeriesConfig, *models.SeriesInfo, *models.ListEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.nickname, c.path, c.episode_matcher, c.player_args,
			i.title_preferred, i.title_romaji, i.episodes, i.episode_length_mins,
			e.watched_episodes, e.score, e.status, e.times_rewatched, e.start_date, e.end_date, e.needs_sync
		FROM series_configs c
		JOIN series_info i ON i.id = c.id
		JOIN series_entries e ON e.id = c.id
		WHERE c.nickname = ?
	`, nickname)

	return scanTriple(row)
}

// LoadByID fetches the full (config, info, entry) triple for id.
func (r *Repository) LoadByID(ctx context.Context, id int) (*models.SeriesConfig, *models.SeriesInfo, *models.ListEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.nickname, c.path, c.episode_matcher, c.player_args,
			i.title_preferred, i.title_romaji, i.episodes, i.episode_length_mins,
			e.watched_episodes, e.score, e.status, e.times_rewatched, e.start_date, e.end_date, e.needs_sync
		FROM series_configs c
		JOIN series_info i ON i.id = c.id
		JOIN series_entries e ON e.id = c.id
		WHERE c.id = ?
	`, id)

	return scanTriple(row)
}

func scanTriple(row *sql.Row) (*models.SeriesConfig, *models.SeriesInfo, *models.ListEntry, error) {
	var (
		cfg                models.SeriesConfig
		info               models.SeriesInfo
		entry              models.ListEntry
		episodeMatcher     sql.NullString
		playerArgsJoined   sql.NullString
		score              sql.NullInt64
		statusCode         int
		startDate, endDate sql.NullString
	)

	err := row.Scan(
		&cfg.ID, &cfg.Nickname, &cfg.Path, &episodeMatcher, &playerArgsJoined,
		&info.Title.Preferred, &info.Title.Romaji, &info.Episodes, &info.EpisodeLengthMinutes,
		&entry.WatchedEps, &score, &statusCode, &entry.TimesRewatched, &startDate, &endDate, &entry.NeedsSync,
	)
	if err == sql.ErrNoRows {
		return nil, nil, nil, nil
	}
	if err != nil {
		return nil, nil, nil, &models.DatabaseConstraintError{Err: err}
	}

	cfg.EpisodeMatcher = episodeMatcher.String
	cfg.PlayerArgs = splitPlayerArgs(playerArgsJoined.String)
	info.ID = cfg.ID
	entry.ID = cfg.ID
	entry.Status = models.StatusFromSQLCode(statusCode)
	if score.Valid {
		v := int(score.Int64)
		entry.Score = &v
	}
	if t, ok := parseDate(startDate); ok {
		entry.StartDate = &t
	}
	if t, ok := parseDate(endDate); ok {
		entry.EndDate = &t
	}

	return &cfg, &info, &entry, nil
}

// DirtyEntries returns every ListEntry with needs_sync set, for
// SyncEngine.SyncAll.
func (r *Repository) DirtyEntries(ctx context.Context) ([]*models.ListEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, watched_episodes, score, status, times_rewatched, start_date, end_date, needs_sync
		FROM series_entries WHERE needs_sync = 1
	`)
	if err != nil {
		return nil, &models.DatabaseConstraintError{Err: err}
	}
	defer rows.Close()

	var out []*models.ListEntry
	for rows.Next() {
		var (
			entry              models.ListEntry
			score              sql.NullInt64
			statusCode         int
			startDate, endDate sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.WatchedEps, &score, &statusCode, &entry.TimesRewatched, &startDate, &endDate, &entry.NeedsSync); err != nil {
			return nil, &models.DatabaseConstraintError{Err: err}
		}
		entry.Status = models.StatusFromSQLCode(statusCode)
		if score.Valid {
			v := int(score.Int64)
			entry.Score = &v
		}
		if t, ok := parseDate(startDate); ok {
			entry.StartDate = &t
		}
		if t, ok := parseDate(endDate); ok {
			entry.EndDate = &t
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}

// DeleteSeries removes the series_configs row for id, cascading to its SeriesInfo and
// ListEntry per the ON DELETE CASCADE foreign keys.
func (r *Repository) DeleteSeries(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM series_configs WHERE id = ?`, id)
	if err != nil {
		return &models.DatabaseConstraintError{Err: err}
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func joinPlayerArgs(args []string) any {
	if len(args) == 0 {
		return nil
	}
	return strings.Join(args, playerArgsSeparator)
}

func splitPlayerArgs(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, playerArgsSeparator)
}

const dateLayout = "2006-01-02"

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func parseDate(s sql.NullString) (time.Time, bool) {
	if !s.Valid || s.String == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
