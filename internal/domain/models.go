// Package domain defines the persistence models for tracked media
// occurrences and report artifacts. These types are mapped with GORM and
// form the core data layer of the dedupe bot.
package domain

import "time"

// Artifact kinds recorded by the report generator.
const (
	ArtifactHeader = "header"
	ArtifactVideo  = "video"
	ArtifactError  = "error"
)

// Occurrence represents one posting of a video in a chat. The same
// underlying file (identified by its Telegram file_unique_id, stable across
// re-posts) may occur many times; each posting gets its own row keyed by
// (file_unique_id, message_id).
//
// Fields:
//   - FileUniqueID: stable content identity of the video across re-posts.
//   - FileID: transport reference usable to re-send this video; may differ
//     between occurrences of the same FileUniqueID.
//   - Count: denormalized total number of rows sharing FileUniqueID,
//     rewritten on every insert (see repo.RecordOccurrence).
//   - FirstSeen: when this specific posting was first recorded.
//   - ChatID / MessageID: where the posting lives in Telegram.
type Occurrence struct {
	FileUniqueID string    `json:"file_unique_id" gorm:"type:TEXT NOT NULL;primaryKey;index:idx_occurrences_unique_id"`
	FileID       string    `json:"file_id"        gorm:"type:TEXT NOT NULL"`
	Count        int64     `json:"count"          gorm:"not null;default:0"`
	FirstSeen    time.Time `json:"first_seen"     gorm:"type:DATETIME NOT NULL"`
	ChatID       int64     `json:"chat_id"        gorm:"not null;index:idx_occurrences_chat_id"`
	MessageID    int64     `json:"message_id"     gorm:"not null;primaryKey"`
}

// TableName returns the database table name for Occurrence.
func (Occurrence) TableName() string { return "occurrences" }

// ReportArtifact records one message produced by a /report run (the header,
// each re-sent video, and any per-item error notice) so a later cleanup can
// remove it from the chat. Artifacts are bookkeeping, not a source of truth:
// cleanup purges the rows regardless of whether the chat messages were still
// deletable.
type ReportArtifact struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	ChatID    int64     `json:"chat_id"    gorm:"not null;index:idx_report_artifacts_chat_id"`
	MessageID int64     `json:"message_id" gorm:"not null"`
	Kind      string    `json:"kind"       gorm:"type:TEXT NOT NULL;index:idx_report_artifacts_kind;check:kind IN ('header','video','error')"`
	CreatedAt time.Time `json:"created_at" gorm:"type:DATETIME NOT NULL"`
}

// TableName returns the database table name for ReportArtifact.
func (ReportArtifact) TableName() string { return "report_artifacts" }

// ProcessedUpdate marks a Telegram update ID as handled. Telegram re-delivers
// updates when a webhook call fails or the poller restarts; the dispatcher
// consults this table to skip replays. Rows expire after a TTL and are
// reaped opportunistically.
type ProcessedUpdate struct {
	UpdateID  int64     `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (ProcessedUpdate) TableName() string { return "processed_updates" }
