package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safronx/sentinel/internal/roles"
	"github.com/safronx/sentinel/internal/telegram"
)

func TestResolver_ReplyTakesPrecedence(t *testing.T) {
	// A message that is both a reply and carries a numeric argument
	// resolves to the reply author, never the numeral.
	resolver := NewResolver(&fakeAdmins{}, newFakeAPI())

	msg := groupMessage(1, &telegram.User{ID: 5}, "/ban 42")
	msg.ReplyToMessage = &telegram.Message{
		From: &telegram.User{ID: 77, FirstName: "Eve", Username: "eve"},
	}

	target, err := resolver.Resolve(context.Background(), msg, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(77), target.UserID)
	assert.Equal(t, "Eve", target.DisplayName)
}

func TestResolver_NumericArgument(t *testing.T) {
	// A numeral resolves as a bare id without consulting the registry
	// or the directory.
	api := newFakeAPI()
	resolver := NewResolver(&fakeAdmins{}, api)

	msg := groupMessage(1, &telegram.User{ID: 5}, "/ban 424242")
	target, err := resolver.Resolve(context.Background(), msg, "424242")
	require.NoError(t, err)
	assert.Equal(t, int64(424242), target.UserID)
	assert.Empty(t, target.DisplayName)
	assert.Empty(t, api.callsFor("getChat"))
}

func TestResolver_NumericWithAtPrefix(t *testing.T) {
	resolver := NewResolver(&fakeAdmins{}, newFakeAPI())

	msg := groupMessage(1, &telegram.User{ID: 5}, "")
	target, err := resolver.Resolve(context.Background(), msg, "@1234")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), target.UserID)
}

func TestResolver_EmptyArgument(t *testing.T) {
	resolver := NewResolver(&fakeAdmins{}, newFakeAPI())

	msg := groupMessage(1, &telegram.User{ID: 5}, "/ban")
	_, err := resolver.Resolve(context.Background(), msg, "")
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestResolver_AdminRegistryLookup(t *testing.T) {
	admins := &fakeAdmins{records: map[string]roles.AdminRecord{
		"alice": {Username: "alice", UserID: 31337, Role: roles.Moderator},
	}}
	api := newFakeAPI()
	resolver := NewResolver(admins, api)

	msg := groupMessage(1, &telegram.User{ID: 5}, "")
	target, err := resolver.Resolve(context.Background(), msg, "@alice")
	require.NoError(t, err)
	assert.Equal(t, int64(31337), target.UserID)
	assert.Equal(t, "@alice", target.DisplayName)
	assert.Empty(t, api.callsFor("getChat"))
}

func TestResolver_RegistryRecordWithoutIDFallsThrough(t *testing.T) {
	// A registry record that never got a resolved id cannot satisfy the
	// lookup; the directory is consulted next.
	admins := &fakeAdmins{records: map[string]roles.AdminRecord{
		"bob": {Username: "bob", UserID: 0, Role: roles.Trainee},
	}}
	api := newFakeAPI()
	api.chats["bob"] = &telegram.Chat{ID: 555, Type: "private", FirstName: "Bob"}
	resolver := NewResolver(admins, api)

	msg := groupMessage(1, &telegram.User{ID: 5}, "")
	target, err := resolver.Resolve(context.Background(), msg, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(555), target.UserID)
	assert.Equal(t, "Bob", target.DisplayName)
}

func TestResolver_DirectoryLookup(t *testing.T) {
	api := newFakeAPI()
	api.chats["carol"] = &telegram.Chat{ID: 888, Type: "private", Username: "carol"}
	resolver := NewResolver(&fakeAdmins{}, api)

	msg := groupMessage(1, &telegram.User{ID: 5}, "")
	target, err := resolver.Resolve(context.Background(), msg, "@carol")
	require.NoError(t, err)
	assert.Equal(t, int64(888), target.UserID)
	assert.Equal(t, "@carol", target.DisplayName)
}

func TestResolver_DirectoryErrorsFoldIntoNotFound(t *testing.T) {
	// Transient lookup failures are treated the same as not-found.
	api := newFakeAPI()
	api.chatErr = errors.New("connection reset")
	resolver := NewResolver(&fakeAdmins{}, api)

	msg := groupMessage(1, &telegram.User{ID: 5}, "")
	_, err := resolver.Resolve(context.Background(), msg, "@ghost")
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestResolver_NonPrivateChatIsNotATarget(t *testing.T) {
	api := newFakeAPI()
	api.chats["newschannel"] = &telegram.Chat{ID: -100, Type: "channel"}
	resolver := NewResolver(&fakeAdmins{}, api)

	msg := groupMessage(1, &telegram.User{ID: 5}, "")
	_, err := resolver.Resolve(context.Background(), msg, "@newschannel")
	assert.ErrorIs(t, err, ErrTargetNotFound)
}
