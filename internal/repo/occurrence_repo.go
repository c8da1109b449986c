// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Occurrence
// model: recording postings, deriving duplicate sets, and purging rows whose
// underlying chat messages were deleted.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-dedupe-bot/internal/domain"
)

// DuplicateSet is one group of identical videos, represented by a file_id
// that can be used to re-send the content.
type DuplicateSet struct {
	FileUniqueID string `gorm:"column:file_unique_id"`
	FileID       string `gorm:"column:file_id"`
	Total        int64  `gorm:"column:total"`
}

// OccurrenceRef identifies a single occurrence row by its composite key.
type OccurrenceRef struct {
	FileUniqueID string
	MessageID    int64
}

// RecordOccurrence inserts an occurrence row unless one already exists for
// (fileUniqueID, messageID), then recomputes the total number of rows sharing
// fileUniqueID and rewrites the denormalized count onto every one of them.
// Insert and recount run in a single transaction so the stored counts never
// drift from the true aggregate. Returns the recomputed total.
//
// Re-inserting the same (fileUniqueID, messageID) pair is a no-op apart from
// the recount, which makes the ingestion path safe against Telegram delivery
// retries.
func RecordOccurrence(ctx context.Context, db *gorm.DB, fileUniqueID, fileID string, chatID, messageID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &domain.Occurrence{
			FileUniqueID: fileUniqueID,
			FileID:       fileID,
			FirstSeen:    time.Now().UTC(),
			ChatID:       chatID,
			MessageID:    messageID,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
			return err
		}

		if err := tx.Model(&domain.Occurrence{}).
			Where("file_unique_id = ?", fileUniqueID).
			Count(&total).Error; err != nil {
			return err
		}

		return tx.Model(&domain.Occurrence{}).
			Where("file_unique_id = ?", fileUniqueID).
			Update("count", total).Error
	})
	return total, err
}

// ListDuplicateSets returns one row per file_unique_id that occurs more than
// once, ordered most-duplicated first; ties are broken by file_unique_id so
// the ordering is deterministic. The file_id of the earliest stored posting
// is used as the representative for re-sending.
func ListDuplicateSets(ctx context.Context, db *gorm.DB) ([]DuplicateSet, error) {
	var out []DuplicateSet
	err := db.WithContext(ctx).Raw(`
		SELECT file_unique_id, MIN(message_id) AS first_message_id, file_id, COUNT(*) AS total
		FROM occurrences
		GROUP BY file_unique_id
		HAVING total > 1
		ORDER BY total DESC, file_unique_id ASC
	`).Scan(&out).Error
	return out, err
}

// ListDeletableDuplicates returns every occurrence of every duplicated
// file_unique_id, ordered (file_unique_id ASC, message_id ASC). The first row
// of each group is the kept occurrence; callers that delete must skip it.
// Returning the full groups keeps the skip-first logic explicit and testable
// at the call site rather than buried in SQL.
func ListDeletableDuplicates(ctx context.Context, db *gorm.DB) ([]domain.Occurrence, error) {
	var out []domain.Occurrence
	err := db.WithContext(ctx).
		Where(`file_unique_id IN (
			SELECT file_unique_id FROM occurrences
			GROUP BY file_unique_id
			HAVING COUNT(*) > 1
		)`).
		Order("file_unique_id ASC, message_id ASC").
		Find(&out).Error
	return out, err
}

// DeleteOccurrences removes the given occurrence rows. Rows are deleted
// individually inside one transaction so a partial refs slice (only the
// messages that were actually deleted in Telegram) maps 1:1 onto row removal.
func DeleteOccurrences(ctx context.Context, db *gorm.DB, refs []OccurrenceRef) error {
	if len(refs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range refs {
			if err := tx.
				Where("file_unique_id = ? AND message_id = ?", r.FileUniqueID, r.MessageID).
				Delete(&domain.Occurrence{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CountOccurrences returns the number of stored rows for one file_unique_id.
func CountOccurrences(ctx context.Context, db *gorm.DB, fileUniqueID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Occurrence{}).
		Where("file_unique_id = ?", fileUniqueID).
		Count(&total).Error
	return total, err
}
