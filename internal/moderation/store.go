package moderation

import (
	"context"
	"time"
)

// Store defines the persistence interface for moderation records.
// Implementations must be safe for concurrent use, and deleting an
// absent key must succeed: a manual unmute and a scheduler expiry can
// race to remove the same record.
type Store interface {
	// Bans
	PutBan(ctx context.Context, rec BanRecord) error
	DeleteBan(ctx context.Context, chatID, userID int64) error
	IsBanned(ctx context.Context, chatID, userID int64) bool

	// Mutes
	PutMute(ctx context.Context, rec MuteRecord) error
	DeleteMute(ctx context.Context, chatID, userID int64) error
	GetMute(ctx context.Context, chatID, userID int64) (*MuteRecord, error)
	ListMutes(ctx context.Context) ([]MuteRecord, error)
	// ListExpiredMutes returns the records whose ExpiresAt is at or
	// before now.
	ListExpiredMutes(ctx context.Context, now time.Time) ([]MuteRecord, error)
}

// AuditSink receives a trace of every successful moderation action.
// Implementations must never fail the action: errors are logged and
// swallowed inside the sink.
type AuditSink interface {
	Record(ctx context.Context, action string, actorID, chatID, targetID int64, detail string)
}

// NopAudit is an AuditSink that discards everything.
type NopAudit struct{}

func (NopAudit) Record(context.Context, string, int64, int64, int64, string) {}
