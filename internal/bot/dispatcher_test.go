package bot

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-dedupe-bot/internal/repo"
	"github.com/tbourn/go-dedupe-bot/internal/services"
	"github.com/tbourn/go-dedupe-bot/internal/telegram"
)

func newBotDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.db")
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
	return db
}

// stubMessenger records outbound calls and answers admin lookups with a
// scripted status.
type stubMessenger struct {
	mu     sync.Mutex
	nextID int64

	Texts   []string
	Deleted []int64

	MemberStatus string
	MemberErr    error
}

func newStubMessenger() *stubMessenger {
	return &stubMessenger{nextID: 999, MemberStatus: "administrator"}
}

func (s *stubMessenger) SendText(_ context.Context, chatID int64, text string) (*telegram.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.Texts = append(s.Texts, text)
	return &telegram.Message{MessageID: s.nextID, Chat: telegram.Chat{ID: chatID}}, nil
}

func (s *stubMessenger) SendVideo(_ context.Context, chatID int64, _, _ string) (*telegram.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return &telegram.Message{MessageID: s.nextID, Chat: telegram.Chat{ID: chatID}}, nil
}

func (s *stubMessenger) DeleteMessage(_ context.Context, _, messageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, messageID)
	return nil
}

func (s *stubMessenger) GetChatMember(_ context.Context, _, _ int64) (*telegram.ChatMember, error) {
	if s.MemberErr != nil {
		return nil, s.MemberErr
	}
	return &telegram.ChatMember{Status: s.MemberStatus}, nil
}

func (s *stubMessenger) lastText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Texts) == 0 {
		return ""
	}
	return s.Texts[len(s.Texts)-1]
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *stubMessenger) {
	t.Helper()
	db := newBotDB(t)
	m := newStubMessenger()
	return &Dispatcher{
		DB:         db,
		Messenger:  m,
		Recorder:   &services.RecorderService{DB: db},
		Reports:    &services.ReportService{DB: db, Messenger: m, Limit: 10},
		Cleanup:    &services.CleanupService{DB: db, Messenger: m},
		Stats:      &services.StatsService{DB: db},
		ReportGate: services.NewGate(30 * time.Second),
		DeleteGate: services.NewGate(60 * time.Second),
	}, m
}

func videoUpdate(updateID, chatID, messageID int64, uniqueID string) telegram.Update {
	return telegram.Update{
		UpdateID: updateID,
		Message: &telegram.Message{
			MessageID: messageID,
			Chat:      telegram.Chat{ID: chatID},
			Video:     &telegram.Video{FileID: "file-" + uniqueID, FileUniqueID: uniqueID},
		},
	}
}

func commandUpdate(updateID, chatID, userID int64, text string) telegram.Update {
	return telegram.Update{
		UpdateID: updateID,
		Message: &telegram.Message{
			MessageID: updateID,
			From:      &telegram.User{ID: userID},
			Chat:      telegram.Chat{ID: chatID},
			Text:      text,
		},
	}
}

func TestDispatch_RecordsVideo(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	d.Dispatch(ctx, videoUpdate(1, 42, 10, "vidA"))
	d.Dispatch(ctx, videoUpdate(2, 42, 20, "vidA"))

	n, err := repo.CountOccurrences(ctx, d.DB, "vidA")
	if err != nil {
		t.Fatalf("CountOccurrences: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 occurrences, got %d", n)
	}
}

func TestDispatch_RedeliveredUpdateSkipped(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	// Same update_id delivered twice but pointing at different messages; only
	// the first delivery is processed.
	d.Dispatch(ctx, videoUpdate(7, 42, 10, "vidA"))
	d.Dispatch(ctx, videoUpdate(7, 42, 20, "vidA"))

	n, err := repo.CountOccurrences(ctx, d.DB, "vidA")
	if err != nil {
		t.Fatalf("CountOccurrences: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 occurrence after redelivery, got %d", n)
	}
}

func TestDispatch_IgnoresPlainText(t *testing.T) {
	d, m := newTestDispatcher(t)
	d.Dispatch(context.Background(), commandUpdate(1, 42, 7, "just chatting"))
	if len(m.Texts) != 0 {
		t.Fatalf("no replies expected: %v", m.Texts)
	}
}

func TestDispatch_ReportCooldown(t *testing.T) {
	d, m := newTestDispatcher(t)
	ctx := context.Background()

	d.Dispatch(ctx, commandUpdate(1, 42, 7, "/report"))
	if m.lastText() != "No repeated videos found yet." {
		t.Fatalf("unexpected first reply: %q", m.lastText())
	}

	d.Dispatch(ctx, commandUpdate(2, 42, 7, "/report"))
	if !strings.HasPrefix(m.lastText(), "⏰ Please wait ") ||
		!strings.HasSuffix(m.lastText(), " seconds before using /report again.") {
		t.Fatalf("expected cooldown reply, got %q", m.lastText())
	}

	// Another chat is not affected by this chat's cooldown.
	d.Dispatch(ctx, commandUpdate(3, 43, 7, "/report"))
	if m.lastText() != "No repeated videos found yet." {
		t.Fatalf("unexpected reply in second chat: %q", m.lastText())
	}
}

func TestDispatch_DeleteDeniedForNonAdmin(t *testing.T) {
	d, m := newTestDispatcher(t)
	m.MemberStatus = "member"

	d.Dispatch(context.Background(), commandUpdate(1, 42, 7, "/delete_duplicates"))
	if m.lastText() != "❌ Only admins can run this command" {
		t.Fatalf("unexpected reply: %q", m.lastText())
	}
}

func TestDispatch_DeleteDeniedWhenLookupFails(t *testing.T) {
	d, m := newTestDispatcher(t)
	m.MemberErr = errors.New("api down")

	d.Dispatch(context.Background(), commandUpdate(1, 42, 7, "/delete_duplicates"))
	if m.lastText() != "❌ Could not verify admin status" {
		t.Fatalf("unexpected reply: %q", m.lastText())
	}
}

func TestDispatch_DeleteDeniedWithoutSender(t *testing.T) {
	d, m := newTestDispatcher(t)

	upd := commandUpdate(1, 42, 7, "/delete_duplicates")
	upd.Message.From = nil
	d.Dispatch(context.Background(), upd)
	if m.lastText() != "❌ Could not verify admin status" {
		t.Fatalf("unexpected reply: %q", m.lastText())
	}
}

func TestDispatch_DeleteEndToEnd(t *testing.T) {
	d, m := newTestDispatcher(t)
	ctx := context.Background()

	d.Dispatch(ctx, videoUpdate(1, 42, 10, "vidA"))
	d.Dispatch(ctx, videoUpdate(2, 42, 20, "vidA"))

	d.Dispatch(ctx, commandUpdate(3, 42, 7, "/delete_duplicates"))
	if m.lastText() != "✅ Deleted 1 messages (0 reports, 1 duplicates)." {
		t.Fatalf("unexpected reply: %q", m.lastText())
	}
	if len(m.Deleted) != 1 || m.Deleted[0] != 20 {
		t.Fatalf("expected message 20 deleted, got %v", m.Deleted)
	}

	n, err := repo.CountOccurrences(ctx, d.DB, "vidA")
	if err != nil {
		t.Fatalf("CountOccurrences: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 remaining occurrence, got %d", n)
	}
}

func TestDispatch_Stats(t *testing.T) {
	d, m := newTestDispatcher(t)
	ctx := context.Background()

	d.Dispatch(ctx, videoUpdate(1, 42, 10, "vidA"))
	d.Dispatch(ctx, videoUpdate(2, 42, 20, "vidA"))
	d.Dispatch(ctx, commandUpdate(3, 42, 7, "/stats"))

	reply := m.lastText()
	if !strings.HasPrefix(reply, "📈 Bot Statistics") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if !strings.Contains(reply, "Videos Processed: 2") ||
		!strings.Contains(reply, "Unique Videos: 1") ||
		!strings.Contains(reply, "Duplicate Sets: 1") {
		t.Fatalf("stats body mismatch: %q", reply)
	}
	if strings.Contains(reply, "First Video: N/A") {
		t.Fatalf("earliest timestamp should be set: %q", reply)
	}
}

func TestDispatch_RecoversFromPanic(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Recorder = nil // dereferenced inside handleVideo

	// Must not panic outward.
	d.Dispatch(context.Background(), videoUpdate(1, 42, 10, "vidA"))
}

func TestCommandName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/report", "report"},
		{"/report@DedupeBot", "report"},
		{"/delete_duplicates now", "delete_duplicates"},
		{"/stats@DedupeBot extra args", "stats"},
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		if got := commandName(c.in); got != c.want {
			t.Errorf("commandName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatStats_NoVideos(t *testing.T) {
	out := formatStats(repo.Stats{})
	if !strings.Contains(out, "First Video: N/A") {
		t.Fatalf("expected N/A earliest: %q", out)
	}
}
