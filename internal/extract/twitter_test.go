package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTwitterTestServer(t *testing.T, withThread bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing bearer token")
		}

		switch {
		case strings.HasPrefix(r.URL.Path, "/2/tweets/search/recent"):
			if !withThread {
				json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{"id": "101", "text": "First tweet of the thread", "author_id": "u1", "created_at": "2024-01-01T10:00:00Z"},
					{"id": "102", "text": "Second tweet continues", "author_id": "u1", "created_at": "2024-01-01T10:01:00Z"},
					{"id": "999", "text": "Reply from someone else", "author_id": "u2", "created_at": "2024-01-01T10:02:00Z"},
				},
			})

		case strings.HasPrefix(r.URL.Path, "/2/tweets/"):
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"id":              "102",
					"text":            "Second tweet continues",
					"author_id":       "u1",
					"conversation_id": "101",
					"created_at":      "2024-01-01T10:01:00Z",
					"public_metrics":  map[string]int{"like_count": 5},
				},
				"includes": map[string]any{
					"users": []map[string]any{
						{"id": "u1", "name": "Jane Doe", "username": "janedoe", "verified": true},
					},
				},
			})

		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
}

func TestTwitterExtractThread(t *testing.T) {
	srv := newTwitterTestServer(t, true)
	defer srv.Close()

	e := NewTwitterExtractor("test-token", testLimiter())
	e.BaseURL = srv.URL

	record, err := e.Extract(context.Background(), "https://x.com/janedoe/status/102")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Title != "Tweet by Jane Doe (@janedoe)" {
		t.Errorf("unexpected title: %q", record.Title)
	}
	if record.Author == nil || *record.Author != "Jane Doe (@janedoe)" {
		t.Errorf("unexpected author: %v", record.Author)
	}
	if !strings.Contains(record.Content, "First tweet of the thread") {
		t.Errorf("thread tweet missing: %q", record.Content)
	}
	if strings.Contains(record.Content, "Reply from someone else") {
		t.Errorf("other authors' tweets must be filtered out: %q", record.Content)
	}
	if record.PublishDate == nil || *record.PublishDate != "2024-01-01T10:01:00Z" {
		t.Errorf("unexpected publish date: %v", record.PublishDate)
	}
}

func TestTwitterExtractThreadFailureNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/2/tweets/search/recent") {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id": "102", "text": "Main tweet", "author_id": "u1",
				"conversation_id": "101", "created_at": "2024-01-01T10:00:00Z",
			},
			"includes": map[string]any{
				"users": []map[string]any{{"id": "u1", "name": "Jane", "username": "jane"}},
			},
		})
	}))
	defer srv.Close()

	e := NewTwitterExtractor("test-token", testLimiter())
	e.BaseURL = srv.URL

	record, err := e.Extract(context.Background(), "https://x.com/jane/status/102")
	if err != nil {
		t.Fatalf("thread failure should not fail the extraction: %v", err)
	}
	if !strings.Contains(record.Content, "Main tweet") {
		t.Errorf("main tweet missing: %q", record.Content)
	}
}

func TestTwitterExtractNoToken(t *testing.T) {
	e := NewTwitterExtractor("", testLimiter())
	if _, err := e.Extract(context.Background(), "https://x.com/a/status/1"); err == nil {
		t.Fatal("expected error without credentials")
	}
}
