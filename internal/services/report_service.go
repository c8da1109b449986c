// Package services – ReportService
//
// This file implements the duplicate report workflow: it reads the current
// duplicate sets, re-sends a bounded number of representative videos into the
// chat, and records every message it produced as a report artifact so a later
// cleanup can remove them. Send failures are strictly per-item: one video
// failing never aborts the rest of the report.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-dedupe-bot/internal/domain"
	"github.com/tbourn/go-dedupe-bot/internal/repo"
	"github.com/tbourn/go-dedupe-bot/internal/telegram"
)

// ReportSummary is what a report run accomplished.
type ReportSummary struct {
	SetsFound  int
	VideosSent int
}

// ReportService generates duplicate reports in a chat.
type ReportService struct {
	DB        *gorm.DB
	Messenger telegram.Messenger

	// Limit caps how many duplicate sets are illustrated per report.
	Limit int
	// SendDelay is the pause between successive video sends, to stay under
	// Telegram's rate limits. It is not applied before the header or after
	// the last item.
	SendDelay time.Duration
}

// Generate runs the report workflow for chatID.
//
// When no duplicates exist it sends a single notice and records nothing.
// Otherwise it sends a header plus up to Limit videos, collecting an artifact
// for every message that reached the chat (including per-item error notices),
// and persists all artifacts in one batch at the end. The returned error is
// non-nil only for store failures; the caller surfaces those as a generic
// failure notice.
func (s *ReportService) Generate(ctx context.Context, chatID int64) (*ReportSummary, error) {
	tr := otel.Tracer("services/ReportService")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(attribute.Int64("chat.id", chatID)),
	)
	defer span.End()

	sets, err := repo.ListDuplicateSets(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	summary := &ReportSummary{SetsFound: len(sets)}
	if len(sets) == 0 {
		if _, err := s.Messenger.SendText(ctx, chatID, "No repeated videos found yet."); err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("could not send empty-report notice")
		}
		return summary, nil
	}

	now := time.Now().UTC()
	artifacts := make([]domain.ReportArtifact, 0, s.Limit+1)

	header := fmt.Sprintf("📊 Duplicate Video Report\nTotal repeated sets: %d", len(sets))
	if msg, err := s.Messenger.SendText(ctx, chatID, header); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("could not send report header")
	} else {
		artifacts = append(artifacts, domain.ReportArtifact{
			ChatID: chatID, MessageID: msg.MessageID, Kind: domain.ArtifactHeader, CreatedAt: now,
		})
	}

	limit := len(sets)
	if s.Limit > 0 && s.Limit < limit {
		limit = s.Limit
	}

	for i, set := range sets[:limit] {
		if i > 0 && s.SendDelay > 0 {
			// Cooperative pause only; a cancelled context just makes the
			// following send fail, which is handled as a per-item skip.
			select {
			case <-ctx.Done():
			case <-time.After(s.SendDelay):
			}
		}

		caption := fmt.Sprintf("%d. Repeated %d times", i+1, set.Total)
		msg, err := s.Messenger.SendVideo(ctx, chatID, set.FileID, caption)
		if err == nil {
			artifacts = append(artifacts, domain.ReportArtifact{
				ChatID: chatID, MessageID: msg.MessageID, Kind: domain.ArtifactVideo, CreatedAt: now,
			})
			summary.VideosSent++
			continue
		}

		log.Warn().Err(err).
			Int64("chat_id", chatID).
			Str("file_unique_id", set.FileUniqueID).
			Int("rank", i+1).
			Msg("could not send report video")

		notice := fmt.Sprintf("⚠️ Could not send video %d (skipped).", i+1)
		errMsg, nerr := s.Messenger.SendText(ctx, chatID, notice)
		if nerr != nil {
			log.Error().Err(nerr).Int64("chat_id", chatID).Msg("could not send error notice")
			continue
		}
		artifacts = append(artifacts, domain.ReportArtifact{
			ChatID: chatID, MessageID: errMsg.MessageID, Kind: domain.ArtifactError, CreatedAt: now,
		})
	}

	if err := repo.CreateArtifacts(ctx, s.DB, artifacts); err != nil {
		return nil, err
	}

	log.Info().
		Int64("chat_id", chatID).
		Int("sets_found", summary.SetsFound).
		Int("videos_sent", summary.VideosSent).
		Msg("report completed")
	return summary, nil
}
