// Package filenameparser extracts a (title, episode number) pair from a
// single episode filename using a tokenizing regex pipeline, as spec'd
// for the fansub/release naming conventions anime episodes are commonly
// distributed under.
package filenameparser

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"anitrack/models"
)

var lowerCaser = cases.Lower(language.Und)

// defaultPattern implements spec §4.1's five-step algorithm:
//  1. an optional leading bracketed group
//  2. a greedy title capture that ends on a non-digit, so it never takes
//     the leading digits of the episode number
//  3. an optional "-" separator
//  4. a decimal episode number
//  5. a trailing boundary of "(", "[" or "."
var defaultPattern = regexp.MustCompile(`^(?:\[[^\]]*\]\s*)?(?P<title>.*\D)\s*-?\s*(?P<episode>\d+)\s*(?:\(|\[|\.)`)

// trailingTags lists release tags stripped from the end of a captured
// title when they appear as their own trailing token.
var trailingTags = []string{"1080p", "720p", "480p", "2160p", "hevc", "x264", "x265", "h264", "h265"}

// Parsed is the (title, episode number) pair extracted from one filename.
type Parsed struct {
	Title   string
	Episode int
}

// Matcher extracts a Parsed result from a filename, or an error.
type Matcher interface {
	Match(filename string) (Parsed, error)
}

// Parser wraps a compiled regex matcher built either from the default
// fansub convention or from a user-supplied custom pattern.
type Parser struct {
	re *regexp.Regexp
}

// Default returns a Parser using the built-in fansub/release convention.
func Default() *Parser {
	return &Parser{re: defaultPattern}
}

// NewCustom builds a Parser from a user pattern containing the literal
// placeholders "{title}" and "{episode}". Both placeholders are
// required; a pattern missing either is rejected.
func NewCustom(pattern string) (*Parser, error) {
	hasTitle := strings.Contains(pattern, "{title}")
	hasEpisode := strings.Contains(pattern, "{episode}")

	if !hasTitle {
		return nil, &models.MissingMatcherGroupError{Which: "title"}
	}
	if !hasEpisode {
		return nil, &models.MissingMatcherGroupError{Which: "episode"}
	}

	expanded := regexp.QuoteMeta(pattern)
	expanded = strings.ReplaceAll(expanded, regexp.QuoteMeta("{title}"), `(?P<title>.+)`)
	expanded = strings.ReplaceAll(expanded, regexp.QuoteMeta("{episode}"), `(?P<episode>\d+)`)

	re, err := regexp.Compile(expanded)
	if err != nil {
		return nil, err
	}
	return &Parser{re: re}, nil
}

// Match extracts a (title, episode) pair from filename, or a *models.ParseError
// wrapped in the returned error if the pattern doesn't apply or the
// episode capture isn't numeric.
func (p *Parser) Match(filename string) (Parsed, error) {
	normalized := strings.ReplaceAll(filename, "_", " ")

	match := p.re.FindStringSubmatch(normalized)
	if match == nil {
		return Parsed{}, &models.ParseError{Filename: filename, Reason: "no match"}
	}

	titleIdx := p.re.SubexpIndex("title")
	episodeIdx := p.re.SubexpIndex("episode")
	if titleIdx == -1 || episodeIdx == -1 {
		return Parsed{}, &models.ParseError{Filename: filename, Reason: "pattern has no title/episode group"}
	}

	title := cleanTitle(match[titleIdx])
	episodeStr := match[episodeIdx]

	episode, err := strconv.Atoi(episodeStr)
	if err != nil {
		return Parsed{}, &models.ParseError{Filename: filename, Reason: "episode capture is not numeric: " + episodeStr}
	}

	return Parsed{Title: title, Episode: episode}, nil
}

// cleanTitle trims whitespace and strips trailing release tags like
// "1080p" or "HEVC" from the captured title, normalizing whitespace
// afterward.
func cleanTitle(raw string) string {
	title := strings.TrimRight(strings.TrimSpace(raw), ".-")
	title = strings.TrimSpace(title)

	for {
		fields := strings.Fields(title)
		if len(fields) == 0 {
			break
		}
		last := lowerCaser.String(fields[len(fields)-1])
		if !isTrailingTag(last) {
			break
		}
		title = strings.Join(fields[:len(fields)-1], " ")
	}

	return strings.TrimSpace(title)
}

func isTrailingTag(token string) bool {
	for _, tag := range trailingTags {
		if token == tag {
			return true
		}
	}
	return false
}
