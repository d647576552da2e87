package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"anitrack/models"
)

const (
	aniListAPIBaseURL = "https://graphql.anilist.co"
)

// AniListBackend talks to the AniList GraphQL API over HTTPS with
// bearer-token auth. Its shape (a bare *http.Client field, a header
// helper, one request/response struct pair per call, and
// "<thing> failed: %s - %s" error strings) mirrors services/trakt/client.go.
type AniListBackend struct {
	httpClient *http.Client
	token      models.AccessToken
	log        *slog.Logger
	baseURL    string
}

// NewAniListBackend creates a backend authenticated with token.
func NewAniListBackend(token models.AccessToken, log *slog.Logger) *AniListBackend {
	if log == nil {
		log = slog.Default()
	}
	return &AniListBackend{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      token,
		log:        log,
		baseURL:    aniListAPIBaseURL,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

// do executes a single GraphQL request with bounded retry, attaching a
// correlation id to every attempt's log line. Retry only covers
// transport-level failures and 5xx responses; a well-formed GraphQL
// error response is returned immediately since retrying won't change it.
func (b *AniListBackend) do(ctx context.Context, query string, variables map[string]any, out any) error {
	reqID := uuid.NewString()
	logger := b.log.With("request_id", reqID)

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal anilist request: %w", err)
	}

	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL, bytes.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json")
			if !b.token.IsZero() {
				req.Header.Set("Authorization", "Bearer "+string(b.token.Raw()))
			}

			resp, err := b.httpClient.Do(req)
			if err != nil {
				logger.Warn("anilist request failed, retrying", "error", err)
				return fmt.Errorf("%w: %v", models.ErrNetwork, err)
			}
			defer resp.Body.Close()

			respBody, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("read anilist response: %w", err)
			}

			switch {
			case resp.StatusCode == http.StatusUnauthorized:
				return retry.Unrecoverable(models.ErrAuth)
			case resp.StatusCode >= 500:
				logger.Warn("anilist server error, retrying", "status", resp.Status)
				return fmt.Errorf("%w: anilist request failed: %s - %s", models.ErrNetwork, resp.Status, string(respBody))
			case resp.StatusCode >= 400:
				return retry.Unrecoverable(fmt.Errorf("anilist request failed: %s - %s", resp.Status, string(respBody)))
			}

			var parsed graphQLResponse
			if err := json.Unmarshal(respBody, &parsed); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode anilist response: %w", err))
			}
			if len(parsed.Errors) > 0 {
				return retry.Unrecoverable(fmt.Errorf("anilist graphql error: %s", parsed.Errors[0].Message))
			}
			if out != nil {
				if err := json.Unmarshal(parsed.Data, out); err != nil {
					return retry.Unrecoverable(fmt.Errorf("decode anilist data: %w", err))
				}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
	)

	return err
}

type aniListMediaTitle struct {
	Romaji  string `json:"romaji"`
	English string `json:"english"`
}

type aniListMedia struct {
	ID       int               `json:"id"`
	Title    aniListMediaTitle `json:"title"`
	Episodes int               `json:"episodes"`
	Duration int               `json:"duration"`
}

func (m aniListMedia) toSeriesInfo() models.SeriesInfo {
	preferred := m.Title.English
	if preferred == "" {
		preferred = m.Title.Romaji
	}
	return models.SeriesInfo{
		ID: m.ID,
		Title: models.Title{
			Romaji:    m.Title.Romaji,
			Preferred: preferred,
		},
		Episodes:             m.Episodes,
		EpisodeLengthMinutes: m.Duration,
	}
}

const searchQuery = `query ($search: String) {
  Page(page: 1, perPage: 10) {
    media(search: $search, type: ANIME, sort: SEARCH_MATCH) {
      id
      title { romaji english }
      episodes
      duration
    }
  }
}`

func (b *AniListBackend) SearchByName(ctx context.Context, name string) ([]models.SeriesInfo, error) {
	var data struct {
		Page struct {
			Media []aniListMedia `json:"media"`
		} `json:"Page"`
	}

	if err := b.do(ctx, searchQuery, map[string]any{"search": name}, &data); err != nil {
		return nil, err
	}

	out := make([]models.SeriesInfo, 0, len(data.Page.Media))
	for _, m := range data.Page.Media {
		out = append(out, m.toSeriesInfo())
	}
	return out, nil
}

const byIDQuery = `query ($id: Int) {
  Media(id: $id, type: ANIME) {
    id
    title { romaji english }
    episodes
    duration
  }
}`

func (b *AniListBackend) GetByID(ctx context.Context, id int) (models.SeriesInfo, error) {
	var data struct {
		Media *aniListMedia `json:"Media"`
	}

	if err := b.do(ctx, byIDQuery, map[string]any{"id": id}, &data); err != nil {
		return models.SeriesInfo{}, err
	}
	if data.Media == nil {
		return models.SeriesInfo{}, &models.NotFoundError{ID: id}
	}
	return data.Media.toSeriesInfo(), nil
}

type aniListEntry struct {
	Progress    int               `json:"progress"`
	Score       *int              `json:"score"`
	Status      string            `json:"status"`
	RepeatCount int               `json:"repeat"`
	StartedAt   *aniListFuzzyDate `json:"startedAt"`
	CompletedAt *aniListFuzzyDate `json:"completedAt"`
	MediaID     int               `json:"mediaId"`
}

type aniListFuzzyDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (d *aniListFuzzyDate) toTime() *time.Time {
	if d == nil || d.Year == 0 {
		return nil
	}
	t := time.Date(d.Year, time.Month(maxInt(d.Month, 1)), maxInt(d.Day, 1), 0, 0, 0, 0, time.UTC)
	return &t
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

const listEntryQuery = `query ($mediaId: Int) {
  Media(id: $mediaId, type: ANIME) {
    mediaListEntry {
      progress
      score(format: POINT_100)
      status
      repeat
      startedAt { year month day }
      completedAt { year month day }
      mediaId
    }
  }
}`

var aniListStatusToModel = map[string]models.Status{
	"CURRENT":   models.StatusWatching,
	"COMPLETED": models.StatusCompleted,
	"PAUSED":    models.StatusOnHold,
	"DROPPED":   models.StatusDropped,
	"PLANNING":  models.StatusPlanToWatch,
	"REPEATING": models.StatusRewatching,
}

var modelStatusToAniList = func() map[models.Status]string {
	out := make(map[models.Status]string, len(aniListStatusToModel))
	for k, v := range aniListStatusToModel {
		out[v] = k
	}
	return out
}()

func (b *AniListBackend) GetListEntry(ctx context.Context, id int) (*models.ListEntry, error) {
	var data struct {
		Media struct {
			MediaListEntry *aniListEntry `json:"mediaListEntry"`
		} `json:"Media"`
	}

	if err := b.do(ctx, listEntryQuery, map[string]any{"mediaId": id}, &data); err != nil {
		return nil, err
	}

	entry := data.Media.MediaListEntry
	if entry == nil {
		return nil, nil
	}

	status, ok := aniListStatusToModel[entry.Status]
	if !ok {
		status = models.StatusPlanToWatch
	}

	return models.NewListEntryFromRemote(
		id,
		entry.Progress,
		entry.Score,
		status,
		entry.RepeatCount,
		entry.StartedAt.toTime(),
		entry.CompletedAt.toTime(),
	), nil
}

const updateEntryMutation = `mutation ($mediaId: Int, $progress: Int, $score: Int, $status: MediaListStatus, $repeat: Int, $startedAt: FuzzyDateInput, $completedAt: FuzzyDateInput) {
  SaveMediaListEntry(mediaId: $mediaId, progress: $progress, scoreRaw: $score, status: $status, repeat: $repeat, startedAt: $startedAt, completedAt: $completedAt) {
    mediaId
  }
}`

func (b *AniListBackend) UpdateListEntry(ctx context.Context, entry *models.ListEntry) error {
	status, ok := modelStatusToAniList[entry.Status]
	if !ok {
		status = "PLANNING"
	}

	variables := map[string]any{
		"mediaId":  entry.ID,
		"progress": entry.WatchedEps,
		"status":   status,
		"repeat":   entry.TimesRewatched,
	}
	if entry.Score != nil {
		variables["score"] = *entry.Score
	}
	if entry.StartDate != nil {
		variables["startedAt"] = fuzzyDateInput(*entry.StartDate)
	}
	if entry.EndDate != nil {
		variables["completedAt"] = fuzzyDateInput(*entry.EndDate)
	}

	return b.do(ctx, updateEntryMutation, variables, nil)
}

func fuzzyDateInput(t time.Time) map[string]any {
	return map[string]any{"year": t.Year(), "month": int(t.Month()), "day": t.Day()}
}

func (b *AniListBackend) IsOffline() bool { return false }

func (b *AniListBackend) ParseScore(s string) (*int, error) {
	return parseScoreDefault(s)
}

func (b *AniListBackend) ScoreToStr(v int) string {
	return scoreToStrDefault(v)
}
