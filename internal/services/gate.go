// Package services – command gate
//
// This file implements the per-chat cooldown gate shared by the mutating
// commands (/report and /delete_duplicates) and the admin check used by the
// cleanup workflow. The gate is an injected component with its own lock,
// not package-level state, so lifecycle and test isolation stay explicit.
package services

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/tbourn/go-dedupe-bot/internal/telegram"
)

// Gate enforces a fixed cooldown window per chat for one command family.
// Construct one Gate per family.
//
// The check and the arm happen under a single lock so two near-simultaneous
// invocations for the same chat cannot both pass. Arming is optimistic: it
// happens before the guarded workflow runs, and a workflow that later fails
// does not un-arm the window. This keeps rapid retry storms out.
type Gate struct {
	window time.Duration

	mu   sync.Mutex
	last map[int64]time.Time
}

// NewGate returns a Gate with the given cooldown window.
func NewGate(window time.Duration) *Gate {
	return &Gate{
		window: window,
		last:   make(map[int64]time.Time),
	}
}

// CheckAndArm reports whether chatID may run the guarded command now. When
// the window has not yet elapsed it returns false and the remaining wait in
// whole seconds (rounded up, always >= 1). Otherwise it records now as the
// new last invocation and returns true.
func (g *Gate) CheckAndArm(chatID int64, now time.Time) (bool, int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.last[chatID]; ok {
		if elapsed := now.Sub(last); elapsed < g.window {
			remaining := int64(math.Ceil((g.window - elapsed).Seconds()))
			if remaining < 1 {
				remaining = 1
			}
			return false, remaining
		}
	}
	g.last[chatID] = now
	return true, 0
}

// adminStatuses are the chat member statuses allowed to run cleanup.
var adminStatuses = map[string]struct{}{
	"administrator": {},
	"creator":       {},
}

// EnsureAdmin verifies that userID holds elevated status in chatID. A failed
// lookup is treated as "cannot verify" and denies the action (ErrVerifyAdmin)
// rather than failing open; a successful lookup with a plain member status
// yields ErrNotAdmin.
func EnsureAdmin(ctx context.Context, m telegram.Messenger, chatID, userID int64) error {
	member, err := m.GetChatMember(ctx, chatID, userID)
	if err != nil {
		return ErrVerifyAdmin
	}
	if _, ok := adminStatuses[member.Status]; !ok {
		return ErrNotAdmin
	}
	return nil
}
