// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ReportArtifact model.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-dedupe-bot/internal/domain"
)

// CreateArtifacts inserts all artifacts of one report run in a single batch.
// A nil or empty slice is a no-op.
func CreateArtifacts(ctx context.Context, db *gorm.DB, artifacts []domain.ReportArtifact) error {
	if len(artifacts) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&artifacts).Error
}

// ListArtifacts returns all recorded report artifacts for a chat in insertion
// order.
func ListArtifacts(ctx context.Context, db *gorm.DB, chatID int64) ([]domain.ReportArtifact, error) {
	var out []domain.ReportArtifact
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// PurgeArtifacts removes every artifact row for a chat, regardless of whether
// the underlying chat messages still exist.
func PurgeArtifacts(ctx context.Context, db *gorm.DB, chatID int64) error {
	return db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Delete(&domain.ReportArtifact{}).Error
}

// CountArtifacts returns the number of recorded artifacts for a chat.
func CountArtifacts(ctx context.Context, db *gorm.DB, chatID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.ReportArtifact{}).
		Where("chat_id = ?", chatID).
		Count(&total).Error
	return total, err
}
