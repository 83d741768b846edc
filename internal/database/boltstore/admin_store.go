package boltstore

import (
	"encoding/json"
	"fmt"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/safronx/sentinel/internal/roles"
)

// AdminStore persists the administrator registry. It implements
// roles.AdminStore: Save replaces the whole registry in one transaction,
// and Load returns records in their original insertion order.
type AdminStore struct {
	db *bolt.DB
}

// adminRow is the stored shape of one registration. Seq preserves
// insertion order across the lexicographic bucket iteration.
type adminRow struct {
	UserID int64      `json:"id"`
	Role   roles.Role `json:"role"`
	Seq    int        `json:"seq"`
}

// Save rewrites the registry wholesale.
func (s *AdminStore) Save(records []roles.AdminRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(BucketAdmins); err != nil && err != bolt.ErrBucketNotFound {
			return fmt.Errorf("clearing admin bucket: %w", err)
		}
		bucket, err := tx.CreateBucket(BucketAdmins)
		if err != nil {
			return fmt.Errorf("recreating admin bucket: %w", err)
		}

		for i, rec := range records {
			data, err := json.Marshal(adminRow{UserID: rec.UserID, Role: rec.Role, Seq: i})
			if err != nil {
				return fmt.Errorf("marshaling admin %s: %w", rec.Username, err)
			}
			if err := bucket.Put([]byte(rec.Username), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load returns all stored registrations in insertion order.
func (s *AdminStore) Load() ([]roles.AdminRecord, error) {
	type ordered struct {
		rec roles.AdminRecord
		seq int
	}
	var rows []ordered

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketAdmins)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var row adminRow
			if err := json.Unmarshal(v, &row); err != nil {
				return fmt.Errorf("failed to unmarshal admin %s: %w", k, err)
			}
			rows = append(rows, ordered{
				rec: roles.AdminRecord{Username: string(k), UserID: row.UserID, Role: row.Role},
				seq: row.Seq,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	records := make([]roles.AdminRecord, len(rows))
	for i, r := range rows {
		records[i] = r.rec
	}
	return records, nil
}
