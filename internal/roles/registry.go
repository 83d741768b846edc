package roles

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// AdminStore is the persistence port for the administrator registry.
// Save receives the full record list in insertion order and must replace
// whatever was stored before (whole-registry rewrite, last writer wins).
type AdminStore interface {
	Load() ([]AdminRecord, error)
	Save(records []AdminRecord) error
}

// Registry is the in-memory administrator registry. It is hydrated from
// the AdminStore at construction and flushed back synchronously after
// every mutation. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	records []AdminRecord // insertion order
	store   AdminStore
	ownerID int64
}

// NewRegistry loads the registry from the store. The owner id is rejected
// as a registration target: the owner is configuration, not a record.
func NewRegistry(store AdminStore, ownerID int64) (*Registry, error) {
	records, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading admin registry: %w", err)
	}

	log.Info().Int("admins", len(records)).Msg("roles: admin registry loaded")

	return &Registry{
		records: records,
		store:   store,
		ownerID: ownerID,
	}, nil
}

// RoleOf returns the role registered for the given user id, if any.
// The owner identity is not consulted here; the permission engine
// short-circuits it before reaching the registry.
func (r *Registry) RoleOf(userID int64) (Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.UserID != 0 && rec.UserID == userID {
			return rec.Role, true
		}
	}
	return 0, false
}

// FindByUsername returns the record registered under the given handle.
func (r *Registry) FindByUsername(username string) (AdminRecord, bool) {
	username = normalizeUsername(username)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.Username == username {
			return rec, true
		}
	}
	return AdminRecord{}, false
}

// SetRole registers or updates an administrator. Only Trainee..Deputy are
// assignable. A non-zero user id may back at most one record, and the
// configured owner id can never be registered.
func (r *Registry) SetRole(username string, userID int64, role Role) error {
	if !role.Assignable() {
		return fmt.Errorf("%w: %s is not assignable", ErrInvalidRole, role)
	}
	username = normalizeUsername(username)
	if username == "" {
		return fmt.Errorf("%w: empty username", ErrInvalidRole)
	}
	if userID != 0 && userID == r.ownerID {
		return fmt.Errorf("%w: cannot register the owner", ErrInvalidRole)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if userID != 0 {
		for _, rec := range r.records {
			if rec.UserID == userID && rec.Username != username {
				return fmt.Errorf("%w: id %d is @%s", ErrDuplicateID, userID, rec.Username)
			}
		}
	}

	snapshot := r.snapshotLocked()

	updated := false
	for i := range r.records {
		if r.records[i].Username == username {
			r.records[i].Role = role
			if userID != 0 {
				r.records[i].UserID = userID
			}
			updated = true
			break
		}
	}
	if !updated {
		r.records = append(r.records, AdminRecord{Username: username, UserID: userID, Role: role})
	}

	if err := r.flushLocked(); err != nil {
		r.records = snapshot
		return err
	}
	return nil
}

// Remove deletes an administrator registration by username.
func (r *Registry) Remove(username string) error {
	username = normalizeUsername(username)

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, rec := range r.records {
		if rec.Username == username {
			snapshot := r.snapshotLocked()
			r.records = append(r.records[:i], r.records[i+1:]...)
			if err := r.flushLocked(); err != nil {
				r.records = snapshot
				return err
			}
			return nil
		}
	}
	return fmt.Errorf("%w: @%s", ErrNotFound, username)
}

// List returns all records in insertion order.
func (r *Registry) List() []AdminRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]AdminRecord, len(r.records))
	copy(out, r.records)
	return out
}

// snapshotLocked copies the record list so a failed flush can restore
// it: memory and disk must not disagree past the mutation call.
// Caller must hold the write lock.
func (r *Registry) snapshotLocked() []AdminRecord {
	out := make([]AdminRecord, len(r.records))
	copy(out, r.records)
	return out
}

// flushLocked writes the registry through to the store.
// Caller must hold the write lock.
func (r *Registry) flushLocked() error {
	if err := r.store.Save(r.records); err != nil {
		return fmt.Errorf("persisting admin registry: %w", err)
	}
	return nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}
