package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-dedupe-bot/internal/repo"
	"github.com/tbourn/go-dedupe-bot/internal/telegram"
)

// test DB helper
func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type sentMessage struct {
	ChatID  int64
	Text    string
	FileID  string
	Caption string
	MsgID   int64
}

type deletedMessage struct {
	ChatID    int64
	MessageID int64
}

// fakeMessenger is a scriptable telegram.Messenger. Message IDs are assigned
// sequentially starting at 1000 so tests can tell bot-sent messages apart
// from seeded occurrence message IDs.
type fakeMessenger struct {
	mu     sync.Mutex
	nextID int64

	Texts   []sentMessage
	Videos  []sentMessage
	Deleted []deletedMessage

	videoCalls    int
	FailVideoCall map[int]bool  // 1-based sendVideo call index → fail
	FailTexts     bool          // fail every SendText
	FailDelete    map[int64]bool // messageID → fail DeleteMessage

	MemberStatus string
	MemberErr    error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextID: 999, MemberStatus: "administrator"}
}

func (f *fakeMessenger) SendText(_ context.Context, chatID int64, text string) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailTexts {
		return nil, errors.New("send text failed")
	}
	f.nextID++
	f.Texts = append(f.Texts, sentMessage{ChatID: chatID, Text: text, MsgID: f.nextID})
	return &telegram.Message{MessageID: f.nextID, Chat: telegram.Chat{ID: chatID}}, nil
}

func (f *fakeMessenger) SendVideo(_ context.Context, chatID int64, fileID, caption string) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videoCalls++
	if f.FailVideoCall[f.videoCalls] {
		return nil, errors.New("send video failed")
	}
	f.nextID++
	f.Videos = append(f.Videos, sentMessage{ChatID: chatID, FileID: fileID, Caption: caption, MsgID: f.nextID})
	return &telegram.Message{MessageID: f.nextID, Chat: telegram.Chat{ID: chatID}}, nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, chatID, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDelete[messageID] {
		return errors.New("delete failed")
	}
	f.Deleted = append(f.Deleted, deletedMessage{ChatID: chatID, MessageID: messageID})
	return nil
}

func (f *fakeMessenger) GetChatMember(_ context.Context, _, _ int64) (*telegram.ChatMember, error) {
	if f.MemberErr != nil {
		return nil, f.MemberErr
	}
	return &telegram.ChatMember{Status: f.MemberStatus}, nil
}

func (f *fakeMessenger) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Texts) == 0 {
		return ""
	}
	return f.Texts[len(f.Texts)-1].Text
}
