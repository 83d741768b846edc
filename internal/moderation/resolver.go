package moderation

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/safronx/sentinel/internal/roles"
	"github.com/safronx/sentinel/internal/telegram"
)

// AdminLookup is the slice of the admin registry the resolver needs.
type AdminLookup interface {
	FindByUsername(username string) (roles.AdminRecord, bool)
}

// Directory resolves public handles to identities via the platform.
type Directory interface {
	GetChatByUsername(ctx context.Context, username string) (*telegram.Chat, error)
}

// Resolver turns a human-supplied reference into a concrete identity.
type Resolver struct {
	admins    AdminLookup
	directory Directory
}

// NewResolver wires a target resolver.
func NewResolver(admins AdminLookup, directory Directory) *Resolver {
	return &Resolver{admins: admins, directory: directory}
}

// Resolve tries, strictly in order, first success wins:
//
//  1. the author of the message this command replies to (arg is ignored)
//  2. a bare decimal id, trusted without verification
//  3. an admin registry record carrying a known user id
//  4. a public profile looked up through the platform directory
//
// Anything else is ErrTargetNotFound. Directory lookup failures other
// than not-found are logged and folded into resolution failure rather
// than propagated.
func (r *Resolver) Resolve(ctx context.Context, msg *telegram.Message, arg string) (Target, error) {
	if msg != nil && msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		author := msg.ReplyToMessage.From
		return Target{UserID: author.ID, DisplayName: author.DisplayName()}, nil
	}

	arg = strings.TrimSpace(arg)
	if arg == "" {
		return Target{}, ErrTargetNotFound
	}

	handle := strings.TrimPrefix(arg, "@")

	if id, err := strconv.ParseInt(handle, 10, 64); err == nil && id > 0 {
		return Target{UserID: id}, nil
	}

	if rec, ok := r.admins.FindByUsername(handle); ok && rec.UserID != 0 {
		return Target{UserID: rec.UserID, DisplayName: "@" + rec.Username}, nil
	}

	chat, err := r.directory.GetChatByUsername(ctx, handle)
	if err != nil {
		if !telegram.IsNotFound(err) {
			log.Debug().Err(err).Str("handle", handle).Msg("moderation: directory lookup failed")
		}
		return Target{}, ErrTargetNotFound
	}
	if chat.Type == "private" {
		return Target{UserID: chat.ID, DisplayName: chat.DisplayName()}, nil
	}

	return Target{}, ErrTargetNotFound
}
