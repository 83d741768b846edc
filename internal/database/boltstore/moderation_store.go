package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/safronx/sentinel/internal/moderation"
)

// ModerationStore persists ban and mute records keyed by "chatID:userID".
type ModerationStore struct {
	db *bolt.DB
}

// Ensure ModerationStore implements the interface at compile time.
var _ moderation.Store = (*ModerationStore)(nil)

func recordKey(chatID, userID int64) []byte {
	return []byte(fmt.Sprintf("%d:%d", chatID, userID))
}

// PutBan stores a ban record, overwriting any existing one for the key.
func (s *ModerationStore) PutBan(ctx context.Context, rec moderation.BanRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketBans)
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", BucketBans)
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal ban record: %w", err)
		}
		return bucket.Put(recordKey(rec.ChatID, rec.UserID), data)
	})
}

// DeleteBan removes a ban record. Deleting an absent key succeeds.
func (s *ModerationStore) DeleteBan(ctx context.Context, chatID, userID int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketBans)
		if bucket == nil {
			return nil
		}
		return bucket.Delete(recordKey(chatID, userID))
	})
}

// IsBanned reports whether a ban record exists for the key.
func (s *ModerationStore) IsBanned(ctx context.Context, chatID, userID int64) bool {
	banned := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketBans)
		if bucket == nil {
			return nil
		}
		banned = bucket.Get(recordKey(chatID, userID)) != nil
		return nil
	})
	return banned
}

// PutMute stores a mute record, overwriting any existing one for the key.
func (s *ModerationStore) PutMute(ctx context.Context, rec moderation.MuteRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketMutes)
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", BucketMutes)
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal mute record: %w", err)
		}
		return bucket.Put(recordKey(rec.ChatID, rec.UserID), data)
	})
}

// DeleteMute removes a mute record. Deleting an absent key succeeds, so
// a manual unmute and a scheduler expiry can race without error.
func (s *ModerationStore) DeleteMute(ctx context.Context, chatID, userID int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketMutes)
		if bucket == nil {
			return nil
		}
		return bucket.Delete(recordKey(chatID, userID))
	})
}

// GetMute returns the mute record for the key, or nil when absent.
func (s *ModerationStore) GetMute(ctx context.Context, chatID, userID int64) (*moderation.MuteRecord, error) {
	var rec *moderation.MuteRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketMutes)
		if bucket == nil {
			return nil
		}
		data := bucket.Get(recordKey(chatID, userID))
		if data == nil {
			return nil
		}
		var m moderation.MuteRecord
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("failed to unmarshal mute record: %w", err)
		}
		rec = &m
		return nil
	})
	return rec, err
}

// ListMutes returns all stored mute records.
func (s *ModerationStore) ListMutes(ctx context.Context) ([]moderation.MuteRecord, error) {
	return s.listMutes(func(moderation.MuteRecord) bool { return true })
}

// ListExpiredMutes returns the mute records expiring at or before now.
func (s *ModerationStore) ListExpiredMutes(ctx context.Context, now time.Time) ([]moderation.MuteRecord, error) {
	return s.listMutes(func(rec moderation.MuteRecord) bool {
		return !rec.ExpiresAt.After(now)
	})
}

func (s *ModerationStore) listMutes(keep func(moderation.MuteRecord) bool) ([]moderation.MuteRecord, error) {
	var records []moderation.MuteRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketMutes)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var rec moderation.MuteRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal mute record %s: %w", k, err)
			}
			if keep(rec) {
				records = append(records, rec)
			}
			return nil
		})
	})

	return records, err
}
