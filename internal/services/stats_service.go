// Package services – StatsService
package services

import (
	"context"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-dedupe-bot/internal/repo"
)

// StatsService exposes the read-only aggregates behind /stats.
type StatsService struct {
	DB *gorm.DB
}

// Collect returns the bot-wide statistics, with the artifact count scoped to
// the asking chat.
func (s *StatsService) Collect(ctx context.Context, chatID int64) (repo.Stats, error) {
	tr := otel.Tracer("services/StatsService")
	ctx, span := tr.Start(ctx, "Collect",
		trace.WithAttributes(attribute.Int64("chat.id", chatID)),
	)
	defer span.End()

	return repo.CollectStats(ctx, s.DB, chatID)
}
