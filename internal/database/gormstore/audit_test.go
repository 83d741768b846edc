package gormstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safronx/sentinel/internal/moderation"
)

func openTestLog(t *testing.T) *AuditLog {
	t.Helper()
	log, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func TestAuditAppendAndRecent(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, AuditEntry{Action: "ban", ActorID: 1, ChatID: -5, TargetID: 42}))
	require.NoError(t, log.Append(ctx, AuditEntry{Action: "mute", ActorID: 1, ChatID: -5, TargetID: 43, Detail: "15m"}))
	require.NoError(t, log.Append(ctx, AuditEntry{Action: "unmute", ActorID: 0, ChatID: -5, TargetID: 43, Detail: "expired"}))

	entries, err := log.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "unmute", entries[0].Action)
	assert.Equal(t, "mute", entries[1].Action)
	assert.Equal(t, "expired", entries[0].Detail)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestAuditRecordNeverFails(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	// Record is the fire-and-forget sink the executor uses.
	var sink moderation.AuditSink = log
	sink.Record(ctx, "ban", 1, -5, 42, "")

	entries, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ban", entries[0].Action)
	assert.Equal(t, int64(42), entries[0].TargetID)
}

func TestAuditRecentEmpty(t *testing.T) {
	log := openTestLog(t)

	entries, err := log.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
