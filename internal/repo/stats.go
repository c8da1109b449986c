// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the aggregate query behind /stats.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-dedupe-bot/internal/domain"
)

// Stats holds the aggregate numbers reported by the /stats command.
type Stats struct {
	TotalOccurrences int64
	UniqueVideos     int64
	DuplicateSets    int64
	TotalDuplicates  int64 // sum over duplicate sets of (count - 1)
	ReportArtifacts  int64 // artifacts recorded for the asking chat
	EarliestSeen     *time.Time
}

// CollectStats gathers the bot-wide statistics plus the artifact count scoped
// to chatID. Each sub-query is atomic on its own; no cross-query snapshot is
// taken.
func CollectStats(ctx context.Context, db *gorm.DB, chatID int64) (Stats, error) {
	var s Stats
	h := db.WithContext(ctx)

	if err := h.Model(&domain.Occurrence{}).Count(&s.TotalOccurrences).Error; err != nil {
		return s, err
	}
	if err := h.Raw("SELECT COUNT(DISTINCT file_unique_id) FROM occurrences").Scan(&s.UniqueVideos).Error; err != nil {
		return s, err
	}
	if err := h.Raw(`
		SELECT COUNT(*) FROM (
			SELECT file_unique_id FROM occurrences
			GROUP BY file_unique_id
			HAVING COUNT(*) > 1
		)
	`).Scan(&s.DuplicateSets).Error; err != nil {
		return s, err
	}
	// COALESCE keeps the scan happy when there are no duplicate sets.
	if err := h.Raw(`
		SELECT COALESCE(SUM(n - 1), 0) FROM (
			SELECT COUNT(*) AS n FROM occurrences
			GROUP BY file_unique_id
			HAVING n > 1
		)
	`).Scan(&s.TotalDuplicates).Error; err != nil {
		return s, err
	}

	var err error
	if s.ReportArtifacts, err = CountArtifacts(ctx, db, chatID); err != nil {
		return s, err
	}

	if s.TotalOccurrences > 0 {
		// Avoid MIN() -> TEXT in SQLite; order and take the first row.
		var row struct {
			FirstSeen time.Time
		}
		if err := h.Model(&domain.Occurrence{}).
			Select("first_seen").
			Order("first_seen ASC").
			Limit(1).
			Scan(&row).Error; err != nil {
			return s, err
		}
		s.EarliestSeen = &row.FirstSeen
	}
	return s, nil
}
