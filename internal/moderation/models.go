// Package moderation implements the moderation core: target resolution,
// the action executor for ban/unban/mute/unmute, and the scheduler that
// reverses mutes when they expire.
package moderation

import (
	"strconv"
	"time"
)

// BanRecord marks a user as banned in a chat. Existence of the record is
// the semantic payload; actor and timestamp feed the audit log only.
type BanRecord struct {
	ChatID   int64     `json:"chat_id"`
	UserID   int64     `json:"user_id"`
	BannedBy int64     `json:"banned_by,omitempty"`
	BannedAt time.Time `json:"banned_at,omitempty"`
}

// MuteRecord is a time-bounded restriction. ExpiresAt is strictly in the
// future at creation; the expiry scheduler reverses the record once it
// passes.
type MuteRecord struct {
	ChatID    int64     `json:"chat_id"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Target is a resolved moderation target. DisplayName may be empty when
// the target was supplied as a bare numeric id.
type Target struct {
	UserID      int64
	DisplayName string
}

// Name returns the display name, falling back to the user id.
func (t Target) Name() string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return strconv.FormatInt(t.UserID, 10)
}
