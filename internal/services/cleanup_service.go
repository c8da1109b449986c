// Package services – CleanupService
//
// This file implements the cleanup workflow: remove every message recorded as
// a report artifact, then remove all-but-the-first posting of every duplicated
// video. Delete attempts against Telegram are independent per message; the
// store is only purged of occurrences whose message was actually deleted,
// while artifact rows are cleared unconditionally (they are bookkeeping, not
// a source of truth).
package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-dedupe-bot/internal/repo"
	"github.com/tbourn/go-dedupe-bot/internal/telegram"
)

// CleanupSummary is what a cleanup run accomplished.
type CleanupSummary struct {
	ReportsDeleted    int
	DuplicatesDeleted int
}

// CleanupService removes report artifacts and duplicate postings.
// Authorization and cooldown are the caller's preconditions.
type CleanupService struct {
	DB        *gorm.DB
	Messenger telegram.Messenger
}

// Cleanup runs the full cleanup workflow for chatID. Duplicate postings are
// deleted in whatever chat they were recorded in, which can differ from the
// invoking chat since duplicate detection is global across chats.
//
// The kept (first-stored) occurrence of every duplicate set is never targeted.
// The returned error is non-nil only for store failures.
func (s *CleanupService) Cleanup(ctx context.Context, chatID int64) (*CleanupSummary, error) {
	tr := otel.Tracer("services/CleanupService")
	ctx, span := tr.Start(ctx, "Cleanup",
		trace.WithAttributes(attribute.Int64("chat.id", chatID)),
	)
	defer span.End()

	summary := &CleanupSummary{}

	// 1) Delete previously produced report messages.
	artifacts, err := repo.ListArtifacts(ctx, s.DB, chatID)
	if err != nil {
		return nil, err
	}
	for _, a := range artifacts {
		if err := s.Messenger.DeleteMessage(ctx, a.ChatID, a.MessageID); err != nil {
			log.Warn().Err(err).
				Int64("chat_id", a.ChatID).
				Int64("message_id", a.MessageID).
				Str("kind", a.Kind).
				Msg("could not delete report message")
			continue
		}
		summary.ReportsDeleted++
	}

	// Artifact rows go away regardless of individual delete outcomes.
	if err := repo.PurgeArtifacts(ctx, s.DB, chatID); err != nil {
		return nil, err
	}

	// 2) Delete every non-first posting of each duplicated video.
	rows, err := repo.ListDeletableDuplicates(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	deleted := make([]repo.OccurrenceRef, 0, len(rows))
	lastUnique := ""
	for _, occ := range rows {
		// First row per file_unique_id is the kept occurrence; skip it.
		// Rows arrive ordered (file_unique_id ASC, message_id ASC).
		if occ.FileUniqueID != lastUnique {
			lastUnique = occ.FileUniqueID
			continue
		}
		if err := s.Messenger.DeleteMessage(ctx, occ.ChatID, occ.MessageID); err != nil {
			log.Warn().Err(err).
				Int64("chat_id", occ.ChatID).
				Int64("message_id", occ.MessageID).
				Str("file_unique_id", occ.FileUniqueID).
				Msg("could not delete duplicate message")
			continue
		}
		summary.DuplicatesDeleted++
		deleted = append(deleted, repo.OccurrenceRef{
			FileUniqueID: occ.FileUniqueID,
			MessageID:    occ.MessageID,
		})
	}

	// Only rows whose message was actually deleted leave the store; the rest
	// are still live postings from the bot's point of view.
	if err := repo.DeleteOccurrences(ctx, s.DB, deleted); err != nil {
		return nil, err
	}

	log.Info().
		Int64("chat_id", chatID).
		Int("reports_deleted", summary.ReportsDeleted).
		Int("duplicates_deleted", summary.DuplicatesDeleted).
		Msg("cleanup completed")
	return summary, nil
}
