package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-dedupe-bot/internal/bot"
	"github.com/tbourn/go-dedupe-bot/internal/repo"
	"github.com/tbourn/go-dedupe-bot/internal/services"
	"github.com/tbourn/go-dedupe-bot/internal/telegram"
)

type noopMessenger struct{}

func (noopMessenger) SendText(_ context.Context, chatID int64, _ string) (*telegram.Message, error) {
	return &telegram.Message{MessageID: 1, Chat: telegram.Chat{ID: chatID}}, nil
}

func (noopMessenger) SendVideo(_ context.Context, chatID int64, _, _ string) (*telegram.Message, error) {
	return &telegram.Message{MessageID: 1, Chat: telegram.Chat{ID: chatID}}, nil
}

func (noopMessenger) DeleteMessage(context.Context, int64, int64) error { return nil }

func (noopMessenger) GetChatMember(context.Context, int64, int64) (*telegram.ChatMember, error) {
	return &telegram.ChatMember{Status: "member"}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "webhook.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	m := noopMessenger{}
	d := &bot.Dispatcher{
		DB:         db,
		Messenger:  m,
		Recorder:   &services.RecorderService{DB: db},
		Reports:    &services.ReportService{DB: db, Messenger: m, Limit: 10},
		Cleanup:    &services.CleanupService{DB: db, Messenger: m},
		Stats:      &services.StatsService{DB: db},
		ReportGate: services.NewGate(30 * time.Second),
		DeleteGate: services.NewGate(60 * time.Second),
	}

	r := gin.New()
	r.POST("/webhook", New(d).Webhook)
	return r, db
}

func TestWebhook_AcceptsAndProcessesAsync(t *testing.T) {
	r, db := newTestRouter(t)

	body := `{"update_id":1,"message":{"message_id":10,"chat":{"id":42},"video":{"file_id":"f1","file_unique_id":"u1"}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	// Processing is asynchronous; poll briefly for the row.
	deadline := time.Now().Add(3 * time.Second)
	for {
		n, err := repo.CountOccurrences(context.Background(), db, "u1")
		if err != nil {
			t.Fatalf("CountOccurrences: %v", err)
		}
		if n == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("occurrence not recorded, count %d", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebhook_RejectsMalformedBody(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid update payload") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}
