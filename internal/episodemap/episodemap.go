// Package episodemap scans a series directory and assembles a mapping
// from episode number to filename, enforcing the single-title invariant
// from spec §4.2.
package episodemap

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"anitrack/internal/filenameparser"
	"anitrack/models"
)

var lowerCaser = cases.Lower(language.Und)

// EpisodeMap is a mapping episode-number -> filename plus the title
// shared by every member file.
type EpisodeMap struct {
	title    string
	episodes map[int]string
}

// Title returns the title extracted from the directory's member files.
func (m *EpisodeMap) Title() string { return m.title }

// Get returns the filename for episode n, if present.
func (m *EpisodeMap) Get(n int) (string, bool) {
	filename, ok := m.episodes[n]
	return filename, ok
}

// Keys returns the set of episode numbers present, in ascending order.
func (m *EpisodeMap) Keys() []int {
	keys := make([]int, 0, len(m.episodes))
	for k := range m.episodes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Highest returns the largest episode number present, if any.
func (m *EpisodeMap) Highest() (int, bool) {
	keys := m.Keys()
	if len(keys) == 0 {
		return 0, false
	}
	return keys[len(keys)-1], true
}

// Scan enumerates the direct children of dir on fs, parses each with
// parser, and assembles an EpisodeMap. Non-regular files, hidden files,
// and files whose sniffed content type is recognized as something other
// than video are ignored; unrecognized binary content and files that
// cannot be opened or read for sniffing are passed on to the parser. Files
// the parser doesn't recognize are skipped silently. A mismatched title
// across member files fails with *models.MultipleTitlesError; an empty
// result fails with *models.NoEpisodesError.
func Scan(fs afero.Fs, dir string, parser *filenameparser.Parser, log *slog.Logger) (*EpisodeMap, error) {
	if log == nil {
		log = slog.Default()
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, &models.IOError{Path: dir, Err: err}
	}

	result := &EpisodeMap{episodes: make(map[int]string)}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !entry.Mode().IsRegular() {
			continue
		}

		fullPath := filepath.Join(dir, name)
		if !looksLikeVideo(fs, fullPath) {
			continue
		}

		parsed, err := parser.Match(name)
		if err != nil {
			continue
		}

		normalizedTitle := lowerCaser.String(strings.TrimSpace(parsed.Title))
		if result.title == "" {
			result.title = parsed.Title
		} else if lowerCaser.String(strings.TrimSpace(result.title)) != normalizedTitle {
			return nil, &models.MultipleTitlesError{Expected: result.title, Found: parsed.Title}
		}

		if existing, ok := result.episodes[parsed.Episode]; ok && existing != name {
			log.Warn("duplicate episode number in directory, overwriting",
				"directory", dir, "episode", parsed.Episode, "previous", existing, "current", name)
		}
		result.episodes[parsed.Episode] = name
	}

	if len(result.episodes) == 0 {
		return nil, &models.NoEpisodesError{Path: dir}
	}

	return result, nil
}

// looksLikeVideo sniffs the file's content type and reports whether it's
// plausibly a video file, guarding against sidecar files (e.g. .nfo) that
// happen to match the naming convention.
func looksLikeVideo(fs afero.Fs, path string) bool {
	f, err := fs.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		// Fall back to allowing the file through on a read failure; the
		// parser step below will still reject anything that doesn't
		// match the naming convention.
		return true
	}

	for t := mtype; t != nil; t = t.Parent() {
		if strings.HasPrefix(t.String(), "video/") {
			return true
		}
	}
	// application/octet-stream is mimetype's fallback for unrecognized
	// binary content; treat it as plausibly-video rather than reject
	// legitimate episode files mimetype's sniffing tables don't cover.
	return mtype.Is("application/octet-stream")
}
