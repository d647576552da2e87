package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anitrack/models"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) (*AniListBackend, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	backend := NewAniListBackend(models.NewAccessToken([]byte("test-token")), nil)
	backend.baseURL = srv.URL
	return backend, srv.Close
}

func TestSearchByName(t *testing.T) {
	backend, closeFn := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"Page": map[string]any{
					"media": []map[string]any{
						{"id": 1, "title": map[string]any{"romaji": "Konosuba", "english": ""}, "episodes": 10, "duration": 24},
					},
				},
			},
		})
	})
	defer closeFn()

	got, err := backend.SearchByName(context.Background(), "Konosuba")
	if err != nil {
		t.Fatalf("SearchByName returned error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 || got[0].Title.Preferred != "Konosuba" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	backend, closeFn := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"Media": nil},
		})
	})
	defer closeFn()

	_, err := backend.GetByID(context.Background(), 999)
	if err == nil {
		t.Fatal("expected NotFoundError")
	}
	if _, ok := err.(*models.NotFoundError); !ok {
		t.Fatalf("expected *models.NotFoundError, got %T: %v", err, err)
	}
}

func TestGetListEntryNoEntry(t *testing.T) {
	backend, closeFn := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"Media": map[string]any{"mediaListEntry": nil}},
		})
	})
	defer closeFn()

	entry, err := backend.GetListEntry(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetListEntry returned error: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected nil entry, got %+v", entry)
	}
}

func TestGetListEntryMapsStatusAndDates(t *testing.T) {
	backend, closeFn := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"Media": map[string]any{
					"mediaListEntry": map[string]any{
						"progress": 5,
						"score":    85,
						"status":   "CURRENT",
						"repeat":   0,
						"startedAt": map[string]any{"year": 2026, "month": 1, "day": 2},
						"completedAt": nil,
						"mediaId":   1,
					},
				},
			},
		})
	})
	defer closeFn()

	entry, err := backend.GetListEntry(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetListEntry returned error: %v", err)
	}
	if entry == nil {
		t.Fatal("expected non-nil entry")
	}
	if entry.Status != models.StatusWatching {
		t.Errorf("got status %v, want StatusWatching", entry.Status)
	}
	if entry.Score == nil || *entry.Score != 85 {
		t.Errorf("got score %v, want 85", entry.Score)
	}
	if entry.StartDate == nil || !entry.StartDate.Equal(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected start date: %v", entry.StartDate)
	}
	if entry.EndDate != nil {
		t.Errorf("expected nil end date, got %v", entry.EndDate)
	}
}

func TestUpdateListEntrySendsExpectedStatus(t *testing.T) {
	var gotVariables map[string]any
	backend, closeFn := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotVariables = req.Variables
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{}})
	})
	defer closeFn()

	score := 90
	entry := &models.ListEntry{ID: 7, WatchedEps: 3, Score: &score, Status: models.StatusRewatching, TimesRewatched: 1}
	if err := backend.UpdateListEntry(context.Background(), entry); err != nil {
		t.Fatalf("UpdateListEntry returned error: %v", err)
	}

	if gotVariables["status"] != "REPEATING" {
		t.Errorf("got status %v, want REPEATING", gotVariables["status"])
	}
	if gotVariables["mediaId"] != float64(7) {
		t.Errorf("got mediaId %v, want 7", gotVariables["mediaId"])
	}
}

func TestUnauthorizedIsUnrecoverable(t *testing.T) {
	calls := 0
	backend, closeFn := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer closeFn()

	_, err := backend.GetByID(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call (no retry on auth failure), got %d", calls)
	}
}

func TestGraphQLErrorIsUnrecoverable(t *testing.T) {
	calls := 0
	backend, closeFn := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"message": "Invalid ID"}},
		})
	})
	defer closeFn()

	_, err := backend.GetByID(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call (graphql errors don't retry), got %d", calls)
	}
}

func TestIsOfflineAndScoreRoundTrip(t *testing.T) {
	backend := NewAniListBackend(models.AccessToken{}, nil)
	if backend.IsOffline() {
		t.Error("AniListBackend.IsOffline() should be false")
	}
	v, err := backend.ParseScore("75")
	if err != nil || v == nil || *v != 75 {
		t.Fatalf("ParseScore(75) = %v, %v", v, err)
	}
	if backend.ScoreToStr(75) != "75" {
		t.Errorf("ScoreToStr(75) = %q, want \"75\"", backend.ScoreToStr(75))
	}
}
