package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Blockchain-Gods/block-nonce-minigame/internal/database"
)

func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         "localhost:1",
		DialTimeout:  10 * time.Millisecond,
		ReadTimeout:  10 * time.Millisecond,
		WriteTimeout: 10 * time.Millisecond,
		MaxRetries:   0,
	})
}

func TestHandleHealth(t *testing.T) {
	// Real SQLite in-memory DB — lightweight, no mocks needed.
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	defer db.Close()

	tests := []struct {
		name       string
		rdb        *redis.Client
		wantStatus int
		wantRedis  string
	}{
		{
			name:       "no redis configured",
			rdb:        nil,
			wantStatus: http.StatusOK,
			wantRedis:  "",
		},
		{
			name:       "redis down",
			rdb:        deadRedis(),
			wantStatus: http.StatusServiceUnavailable,
			wantRedis:  "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handleHealth(slog.Default(), db, tt.rdb)

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()
			h(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]struct{ Status string }
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding: %v", err)
			}
			if got := body["sqlite"].Status; got != "ok" {
				t.Errorf("sqlite = %q, want ok", got)
			}
			got, present := body["redis"]
			if tt.wantRedis == "" {
				if present {
					t.Errorf("redis check present = %+v, want absent", got)
				}
			} else if got.Status != tt.wantRedis {
				t.Errorf("redis = %q, want %q", got.Status, tt.wantRedis)
			}
		})
	}
}
