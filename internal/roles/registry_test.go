package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memAdminStore is an in-memory AdminStore that counts flushes.
type memAdminStore struct {
	records []AdminRecord
	saves   int
	saveErr error
}

func (s *memAdminStore) Load() ([]AdminRecord, error) {
	out := make([]AdminRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *memAdminStore) Save(records []AdminRecord) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.records = make([]AdminRecord, len(records))
	copy(s.records, records)
	return nil
}

const ownerID = int64(999)

func newTestRegistry(t *testing.T) (*Registry, *memAdminStore) {
	t.Helper()
	store := &memAdminStore{}
	reg, err := NewRegistry(store, ownerID)
	require.NoError(t, err)
	return reg, store
}

func TestRegistry_SetRoleAndRoleOf(t *testing.T) {
	reg, store := newTestRegistry(t)

	require.NoError(t, reg.SetRole("alice", 10, Moderator))

	role, ok := reg.RoleOf(10)
	require.True(t, ok)
	assert.Equal(t, Moderator, role)

	// Every mutation flushes synchronously.
	assert.Equal(t, 1, store.saves)

	// Upsert: same username, new role.
	require.NoError(t, reg.SetRole("alice", 10, Deputy))
	role, _ = reg.RoleOf(10)
	assert.Equal(t, Deputy, role)
	assert.Equal(t, 2, store.saves)

	records := reg.List()
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].Username)
}

func TestRegistry_SetRoleRejectsOwnerRole(t *testing.T) {
	reg, store := newTestRegistry(t)

	err := reg.SetRole("alice", 10, Owner)
	assert.ErrorIs(t, err, ErrInvalidRole)
	assert.Zero(t, store.saves)
}

func TestRegistry_SetRoleRejectsOwnerID(t *testing.T) {
	reg, _ := newTestRegistry(t)

	err := reg.SetRole("boss", ownerID, Deputy)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRegistry_SetRoleRejectsDuplicateID(t *testing.T) {
	reg, _ := newTestRegistry(t)

	require.NoError(t, reg.SetRole("alice", 10, Moderator))
	err := reg.SetRole("bob", 10, Trainee)
	assert.ErrorIs(t, err, ErrDuplicateID)

	// A record without a resolved id does not collide.
	require.NoError(t, reg.SetRole("carol", 0, Trainee))
	require.NoError(t, reg.SetRole("dave", 0, Trainee))
}

func TestRegistry_Remove(t *testing.T) {
	reg, store := newTestRegistry(t)

	require.NoError(t, reg.SetRole("alice", 10, Moderator))
	require.NoError(t, reg.Remove("alice"))

	_, ok := reg.RoleOf(10)
	assert.False(t, ok)
	assert.Equal(t, 2, store.saves)

	err := reg.Remove("alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_SetRoleRollsBackOnSaveFailure(t *testing.T) {
	reg, store := newTestRegistry(t)

	require.NoError(t, reg.SetRole("alice", 10, Moderator))

	// A failed flush must leave memory matching disk, for both the
	// upsert and the insert path.
	store.saveErr = assert.AnError

	require.Error(t, reg.SetRole("alice", 10, Deputy))
	role, ok := reg.RoleOf(10)
	require.True(t, ok)
	assert.Equal(t, Moderator, role)

	require.Error(t, reg.SetRole("bob", 11, Trainee))
	_, ok = reg.RoleOf(11)
	assert.False(t, ok)
	assert.Len(t, reg.List(), 1)
}

func TestRegistry_RemoveRollsBackOnSaveFailure(t *testing.T) {
	reg, store := newTestRegistry(t)

	require.NoError(t, reg.SetRole("alice", 10, Moderator))

	// Otherwise a failed removal would resurrect the admin on restart
	// while this process keeps treating them as removed.
	store.saveErr = assert.AnError
	require.Error(t, reg.Remove("alice"))

	role, ok := reg.RoleOf(10)
	require.True(t, ok)
	assert.Equal(t, Moderator, role)
}

func TestRegistry_ListInsertionOrder(t *testing.T) {
	reg, _ := newTestRegistry(t)

	require.NoError(t, reg.SetRole("zed", 1, Trainee))
	require.NoError(t, reg.SetRole("alice", 2, Deputy))
	require.NoError(t, reg.SetRole("mike", 3, Moderator))

	records := reg.List()
	require.Len(t, records, 3)
	assert.Equal(t, "zed", records[0].Username)
	assert.Equal(t, "alice", records[1].Username)
	assert.Equal(t, "mike", records[2].Username)
}

func TestRegistry_UsernameNormalization(t *testing.T) {
	reg, _ := newTestRegistry(t)

	require.NoError(t, reg.SetRole("@Alice", 10, Moderator))

	rec, ok := reg.FindByUsername("alice")
	require.True(t, ok)
	assert.Equal(t, int64(10), rec.UserID)

	_, ok = reg.FindByUsername("@ALICE")
	assert.True(t, ok)
}

func TestRegistry_LoadsExistingRecords(t *testing.T) {
	store := &memAdminStore{records: []AdminRecord{
		{Username: "alice", UserID: 10, Role: Deputy},
	}}
	reg, err := NewRegistry(store, ownerID)
	require.NoError(t, err)

	role, ok := reg.RoleOf(10)
	require.True(t, ok)
	assert.Equal(t, Deputy, role)
}
