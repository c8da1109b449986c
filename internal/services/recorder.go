// Package services – RecorderService
//
// This file implements the ingestion side of the bot: every observed video
// event is registered as an occurrence and the per-file total is recomputed.
// The recorder only touches the store; it never calls the messaging surface.
package services

import (
	"context"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-dedupe-bot/internal/repo"
)

// RecorderService registers observed video postings.
type RecorderService struct {
	DB *gorm.DB
}

// Record stores the occurrence identified by (fileUniqueID, messageID) and
// returns the recomputed number of postings sharing fileUniqueID. Recording
// the same pair twice is idempotent. Storage errors propagate to the caller,
// which logs them and must not let them crash the ingestion path.
func (s *RecorderService) Record(ctx context.Context, fileUniqueID, fileID string, chatID, messageID int64) (int64, error) {
	tr := otel.Tracer("services/RecorderService")
	ctx, span := tr.Start(ctx, "Record",
		trace.WithAttributes(
			attribute.String("file.unique_id", fileUniqueID),
			attribute.Int64("chat.id", chatID),
		),
	)
	defer span.End()

	return repo.RecordOccurrence(ctx, s.DB, fileUniqueID, fileID, chatID, messageID)
}
