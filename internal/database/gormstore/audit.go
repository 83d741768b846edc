// Package gormstore keeps the moderation audit trail in a SQLite table.
// Audit writes are best-effort: a failed append is logged and never
// fails the action that produced it.
package gormstore

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// AuditEntry is one logged moderation or registry action. ActorID 0
// marks actions taken by the controller itself (scheduler expiries).
type AuditEntry struct {
	ID        uint      `gorm:"primaryKey"`
	Action    string    `gorm:"not null;index"`
	ActorID   int64     `gorm:"not null"`
	ChatID    int64     `gorm:"not null"`
	TargetID  int64     `gorm:"not null"`
	Detail    string    `gorm:"default:''"`
	CreatedAt time.Time `gorm:"not null"`
}

// AuditLog is the SQLite-backed audit trail.
type AuditLog struct {
	db *gorm.DB
}

// Open opens (creating if needed) the audit database at path and applies
// the schema.
func Open(path string) (*AuditLog, error) {
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	if err := db.AutoMigrate(&AuditEntry{}); err != nil {
		return nil, fmt.Errorf("migrating audit schema: %w", err)
	}

	return &AuditLog{db: db}, nil
}

// Append stores one entry.
func (l *AuditLog) Append(ctx context.Context, entry AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return l.db.WithContext(ctx).Create(&entry).Error
}

// Record implements moderation.AuditSink. Failures are logged, never
// propagated.
func (l *AuditLog) Record(ctx context.Context, action string, actorID, chatID, targetID int64, detail string) {
	entry := AuditEntry{
		Action:   action,
		ActorID:  actorID,
		ChatID:   chatID,
		TargetID: targetID,
		Detail:   detail,
	}
	if err := l.Append(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("audit: failed to append entry")
	}
}

// Recent returns the most recent entries, newest first.
func (l *AuditLog) Recent(ctx context.Context, limit int) ([]AuditEntry, error) {
	var entries []AuditEntry
	err := l.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// Close closes the underlying connection.
func (l *AuditLog) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
