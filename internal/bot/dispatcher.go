// Package bot routes inbound Telegram updates to the application services.
//
// The Dispatcher is the handler boundary required by the failure policy: no
// error escapes Dispatch. Storage errors are logged, per-command failures are
// answered with a generic notice, and panics are recovered, so one bad update
// can never stop the stream behind it. It serves both transports (webhook and
// long polling).
package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-dedupe-bot/internal/repo"
	"github.com/tbourn/go-dedupe-bot/internal/services"
	"github.com/tbourn/go-dedupe-bot/internal/telegram"
)

// Dispatcher wires updates to the recorder, report, cleanup, and stats
// workflows, applying the command gates and the admin check.
type Dispatcher struct {
	DB        *gorm.DB
	Messenger telegram.Messenger

	Recorder *services.RecorderService
	Reports  *services.ReportService
	Cleanup  *services.CleanupService
	Stats    *services.StatsService

	ReportGate *services.Gate
	DeleteGate *services.Gate

	// UpdateTTL bounds how long processed update IDs are remembered for
	// delivery dedup.
	UpdateTTL time.Duration
}

// Dispatch handles one update end to end. It never returns an error and never
// panics outward.
func (d *Dispatcher) Dispatch(ctx context.Context, upd telegram.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Int64("update_id", upd.UpdateID).
				Msg("panic recovered in dispatcher")
		}
	}()

	if err := repo.MarkUpdateProcessed(ctx, d.DB, upd.UpdateID, d.updateTTL()); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			updatesTotal.WithLabelValues("duplicate").Inc()
			log.Debug().Int64("update_id", upd.UpdateID).Msg("skipping re-delivered update")
			return
		}
		// Dedup is best-effort; the recorder is idempotent anyway.
		log.Warn().Err(err).Int64("update_id", upd.UpdateID).Msg("could not mark update processed")
	}

	msg := upd.Message
	if msg == nil {
		updatesTotal.WithLabelValues("ignored").Inc()
		return
	}

	switch {
	case msg.Video != nil:
		updatesTotal.WithLabelValues("handled").Inc()
		d.handleVideo(ctx, msg)
	case strings.HasPrefix(msg.Text, "/"):
		updatesTotal.WithLabelValues("handled").Inc()
		d.handleCommand(ctx, msg)
	default:
		updatesTotal.WithLabelValues("ignored").Inc()
	}
}

func (d *Dispatcher) handleVideo(ctx context.Context, msg *telegram.Message) {
	v := msg.Video
	total, err := d.Recorder.Record(ctx, v.FileUniqueID, v.FileID, msg.Chat.ID, msg.MessageID)
	if err != nil {
		log.Error().Err(err).
			Str("file_unique_id", v.FileUniqueID).
			Int64("chat_id", msg.Chat.ID).
			Msg("error recording video")
		return
	}
	videosRecorded.Inc()
	log.Info().
		Str("file_unique_id", v.FileUniqueID).
		Int64("chat_id", msg.Chat.ID).
		Int64("count", total).
		Msg("processed video")
}

func (d *Dispatcher) handleCommand(ctx context.Context, msg *telegram.Message) {
	switch commandName(msg.Text) {
	case "report":
		d.handleReport(ctx, msg)
	case "delete_duplicates":
		d.handleDelete(ctx, msg)
	case "stats":
		d.handleStats(ctx, msg)
	}
}

func (d *Dispatcher) handleReport(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID
	if allowed, remaining := d.ReportGate.CheckAndArm(chatID, time.Now()); !allowed {
		commandsTotal.WithLabelValues("report", "cooldown").Inc()
		d.reply(ctx, chatID, fmt.Sprintf("⏰ Please wait %d seconds before using /report again.", remaining))
		return
	}

	log.Info().Int64("chat_id", chatID).Msg("report command called")
	if _, err := d.Reports.Generate(ctx, chatID); err != nil {
		commandsTotal.WithLabelValues("report", "error").Inc()
		log.Error().Err(err).Int64("chat_id", chatID).Msg("error in report command")
		d.reply(ctx, chatID, "❌ An error occurred while generating the report.")
		return
	}
	commandsTotal.WithLabelValues("report", "ok").Inc()
}

func (d *Dispatcher) handleDelete(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID
	if allowed, remaining := d.DeleteGate.CheckAndArm(chatID, time.Now()); !allowed {
		commandsTotal.WithLabelValues("delete_duplicates", "cooldown").Inc()
		d.reply(ctx, chatID, fmt.Sprintf("⏰ Please wait %d seconds before using /delete_duplicates again.", remaining))
		return
	}

	if msg.From == nil {
		commandsTotal.WithLabelValues("delete_duplicates", "denied").Inc()
		d.reply(ctx, chatID, "❌ Could not verify admin status")
		return
	}
	if err := services.EnsureAdmin(ctx, d.Messenger, chatID, msg.From.ID); err != nil {
		commandsTotal.WithLabelValues("delete_duplicates", "denied").Inc()
		if errors.Is(err, services.ErrNotAdmin) {
			d.reply(ctx, chatID, "❌ Only admins can run this command")
		} else {
			log.Error().Err(err).Int64("chat_id", chatID).Msg("could not check admin status")
			d.reply(ctx, chatID, "❌ Could not verify admin status")
		}
		return
	}

	log.Info().Int64("chat_id", chatID).Int64("user_id", msg.From.ID).Msg("delete duplicates command called by admin")
	summary, err := d.Cleanup.Cleanup(ctx, chatID)
	if err != nil {
		commandsTotal.WithLabelValues("delete_duplicates", "error").Inc()
		log.Error().Err(err).Int64("chat_id", chatID).Msg("error in delete_duplicates command")
		d.reply(ctx, chatID, "❌ An error occurred while deleting duplicates.")
		return
	}
	commandsTotal.WithLabelValues("delete_duplicates", "ok").Inc()
	total := summary.ReportsDeleted + summary.DuplicatesDeleted
	d.reply(ctx, chatID, fmt.Sprintf("✅ Deleted %d messages (%d reports, %d duplicates).",
		total, summary.ReportsDeleted, summary.DuplicatesDeleted))
}

func (d *Dispatcher) handleStats(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID
	stats, err := d.Stats.Collect(ctx, chatID)
	if err != nil {
		commandsTotal.WithLabelValues("stats", "error").Inc()
		log.Error().Err(err).Int64("chat_id", chatID).Msg("error in stats command")
		d.reply(ctx, chatID, "❌ Could not retrieve statistics.")
		return
	}
	commandsTotal.WithLabelValues("stats", "ok").Inc()
	d.reply(ctx, chatID, formatStats(stats))
}

// reply sends a text response, logging (not propagating) send failures.
func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) {
	if _, err := d.Messenger.SendText(ctx, chatID, text); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("could not send reply")
	}
}

func (d *Dispatcher) updateTTL() time.Duration {
	if d.UpdateTTL > 0 {
		return d.UpdateTTL
	}
	return 24 * time.Hour
}

// commandName extracts the bare command from text like "/report@SomeBot arg".
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return cmd
}

// formatStats renders the /stats reply text.
func formatStats(s repo.Stats) string {
	earliest := "N/A"
	if s.EarliestSeen != nil {
		earliest = s.EarliestSeen.Format(time.RFC3339)
	}
	return fmt.Sprintf(`📈 Bot Statistics

Videos Processed: %d
Unique Videos: %d
Duplicate Sets: %d
Total Duplicates: %d
Report Messages: %d
First Video: %s

Commands:
/report - Show duplicate videos
/delete_duplicates - Remove duplicates (admin only)
/stats - Show this statistics`,
		s.TotalOccurrences, s.UniqueVideos, s.DuplicateSets,
		s.TotalDuplicates, s.ReportArtifacts, earliest)
}
