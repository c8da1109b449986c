// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// ProcessedUpdate model used to skip re-delivered Telegram updates.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-dedupe-bot/internal/domain"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate indicates that an update ID was already marked processed.
var ErrDuplicate = errors.New("duplicate")

// MarkUpdateProcessed records updateID as handled, valid for ttl. Returns
// ErrDuplicate if the ID was already recorded, which callers treat as
// "skip this update". It also opportunistically reaps expired rows.
func MarkUpdateProcessed(ctx context.Context, db *gorm.DB, updateID int64, ttl time.Duration) error {
	now := time.Now().UTC()

	// Best-effort reap; a failure here must not block update processing.
	db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.ProcessedUpdate{})

	rec := &domain.ProcessedUpdate{
		UpdateID:  updateID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}
