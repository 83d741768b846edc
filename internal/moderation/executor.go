package moderation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/safronx/sentinel/internal/metrics"
	"github.com/safronx/sentinel/internal/roles"
	"github.com/safronx/sentinel/internal/telegram"
)

// Restriction masks. Muted denies the four send capabilities; unmuted
// restores exactly the same four.
var (
	MutedPermissions = telegram.ChatPermissions{}

	UnmutedPermissions = telegram.ChatPermissions{
		CanSendMessages:       true,
		CanSendMediaMessages:  true,
		CanSendOtherMessages:  true,
		CanAddWebPagePreviews: true,
	}
)

// PlatformActions is the slice of the platform API the executor invokes.
type PlatformActions interface {
	GetChatMember(ctx context.Context, chatID, userID int64) (*telegram.ChatMember, error)
	BanChatMember(ctx context.Context, chatID, userID int64) error
	UnbanChatMember(ctx context.Context, chatID, userID int64) error
	RestrictChatMember(ctx context.Context, chatID, userID int64, perms telegram.ChatPermissions, until time.Time) error
}

// PermissionChecker answers whether an actor may invoke a named action.
type PermissionChecker interface {
	CanInvoke(userID int64, action string) bool
}

// TargetResolver resolves a command argument or reply into an identity.
type TargetResolver interface {
	Resolve(ctx context.Context, msg *telegram.Message, arg string) (Target, error)
}

// Executor orchestrates moderation actions: permission check, target
// resolution, controller privilege verification, the platform call, and
// the store update.
type Executor struct {
	perms    PermissionChecker
	resolver TargetResolver
	store    Store
	api      PlatformActions
	audit    AuditSink
	selfID   int64
	clock    func() time.Time
}

// NewExecutor wires an executor. selfID is the controller's own platform
// user id, used to verify its privileges in the target chat.
func NewExecutor(perms PermissionChecker, resolver TargetResolver, store Store, api PlatformActions, audit AuditSink, selfID int64) *Executor {
	if audit == nil {
		audit = NopAudit{}
	}
	return &Executor{
		perms:    perms,
		resolver: resolver,
		store:    store,
		api:      api,
		audit:    audit,
		selfID:   selfID,
		clock:    time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (e *Executor) SetClock(clock func() time.Time) { e.clock = clock }

// preflight runs the checks shared by all four actions, in order:
// action grant, chat kind, target resolution, controller privilege.
func (e *Executor) preflight(ctx context.Context, action string, msg *telegram.Message, arg string) (Target, error) {
	if msg.From == nil || !e.perms.CanInvoke(msg.From.ID, action) {
		return Target{}, ErrPermissionDenied
	}
	if !msg.Chat.IsGroup() {
		return Target{}, ErrWrongContext
	}

	target, err := e.resolver.Resolve(ctx, msg, arg)
	if err != nil {
		return Target{}, err
	}

	self, err := e.api.GetChatMember(ctx, msg.Chat.ID, e.selfID)
	if err != nil {
		return target, &ExternalActionError{Action: action, Err: err}
	}
	if !self.CanRestrict() {
		return target, ErrControllerPrivilege
	}

	return target, nil
}

// classify maps a platform failure onto the error taxonomy. Forbidden
// means the target outranks the controller; nothing is retried.
func classify(action string, err error) error {
	if telegram.IsForbidden(err) {
		return fmt.Errorf("%w: %s", ErrActionForbidden, action)
	}
	return &ExternalActionError{Action: action, Err: err}
}

// Ban bans the resolved target and records the ban.
func (e *Executor) Ban(ctx context.Context, msg *telegram.Message, arg string) (Target, error) {
	target, err := e.preflight(ctx, roles.ActionBan, msg, arg)
	if err != nil {
		metrics.ModerationActionsTotal.WithLabelValues(roles.ActionBan, "rejected").Inc()
		return target, err
	}

	if err := e.api.BanChatMember(ctx, msg.Chat.ID, target.UserID); err != nil {
		metrics.ModerationActionsTotal.WithLabelValues(roles.ActionBan, "failed").Inc()
		return target, classify(roles.ActionBan, err)
	}

	rec := BanRecord{
		ChatID:   msg.Chat.ID,
		UserID:   target.UserID,
		BannedBy: msg.From.ID,
		BannedAt: e.clock(),
	}
	if err := e.store.PutBan(ctx, rec); err != nil {
		return target, fmt.Errorf("recording ban: %w", err)
	}

	metrics.ModerationActionsTotal.WithLabelValues(roles.ActionBan, "ok").Inc()
	e.audit.Record(ctx, roles.ActionBan, msg.From.ID, msg.Chat.ID, target.UserID, "")
	log.Info().Int64("chat", msg.Chat.ID).Int64("target", target.UserID).Int64("actor", msg.From.ID).Msg("moderation: user banned")
	return target, nil
}

// Unban lifts a ban and removes the record.
func (e *Executor) Unban(ctx context.Context, msg *telegram.Message, arg string) (Target, error) {
	target, err := e.preflight(ctx, roles.ActionUnban, msg, arg)
	if err != nil {
		metrics.ModerationActionsTotal.WithLabelValues(roles.ActionUnban, "rejected").Inc()
		return target, err
	}

	if err := e.api.UnbanChatMember(ctx, msg.Chat.ID, target.UserID); err != nil {
		metrics.ModerationActionsTotal.WithLabelValues(roles.ActionUnban, "failed").Inc()
		return target, classify(roles.ActionUnban, err)
	}

	if err := e.store.DeleteBan(ctx, msg.Chat.ID, target.UserID); err != nil {
		return target, fmt.Errorf("removing ban record: %w", err)
	}

	metrics.ModerationActionsTotal.WithLabelValues(roles.ActionUnban, "ok").Inc()
	e.audit.Record(ctx, roles.ActionUnban, msg.From.ID, msg.Chat.ID, target.UserID, "")
	log.Info().Int64("chat", msg.Chat.ID).Int64("target", target.UserID).Int64("actor", msg.From.ID).Msg("moderation: user unbanned")
	return target, nil
}

// Mute restricts the resolved target for the given number of minutes and
// records the expiry. An existing mute for the same target is overwritten.
func (e *Executor) Mute(ctx context.Context, msg *telegram.Message, targetArg, minutesArg string) (Target, time.Time, error) {
	target, err := e.preflight(ctx, roles.ActionMute, msg, targetArg)
	if err != nil {
		metrics.ModerationActionsTotal.WithLabelValues(roles.ActionMute, "rejected").Inc()
		return target, time.Time{}, err
	}

	minutes, err := parseMinutes(minutesArg)
	if err != nil {
		metrics.ModerationActionsTotal.WithLabelValues(roles.ActionMute, "rejected").Inc()
		return target, time.Time{}, err
	}

	until := e.clock().Add(time.Duration(minutes) * time.Minute)
	if err := e.api.RestrictChatMember(ctx, msg.Chat.ID, target.UserID, MutedPermissions, until); err != nil {
		metrics.ModerationActionsTotal.WithLabelValues(roles.ActionMute, "failed").Inc()
		return target, time.Time{}, classify(roles.ActionMute, err)
	}

	rec := MuteRecord{ChatID: msg.Chat.ID, UserID: target.UserID, ExpiresAt: until}
	if err := e.store.PutMute(ctx, rec); err != nil {
		return target, time.Time{}, fmt.Errorf("recording mute: %w", err)
	}

	metrics.ModerationActionsTotal.WithLabelValues(roles.ActionMute, "ok").Inc()
	e.audit.Record(ctx, roles.ActionMute, msg.From.ID, msg.Chat.ID, target.UserID, fmt.Sprintf("%dm", minutes))
	log.Info().Int64("chat", msg.Chat.ID).Int64("target", target.UserID).Time("until", until).Msg("moderation: user muted")
	return target, until, nil
}

// Unmute restores the target's send permissions. The platform call is
// issued even when no mute record exists, and removing an absent record
// is a no-op: the scheduler may have expired it already.
func (e *Executor) Unmute(ctx context.Context, msg *telegram.Message, arg string) (Target, error) {
	target, err := e.preflight(ctx, roles.ActionUnmute, msg, arg)
	if err != nil {
		metrics.ModerationActionsTotal.WithLabelValues(roles.ActionUnmute, "rejected").Inc()
		return target, err
	}

	if err := e.api.RestrictChatMember(ctx, msg.Chat.ID, target.UserID, UnmutedPermissions, time.Time{}); err != nil {
		metrics.ModerationActionsTotal.WithLabelValues(roles.ActionUnmute, "failed").Inc()
		return target, classify(roles.ActionUnmute, err)
	}

	if err := e.store.DeleteMute(ctx, msg.Chat.ID, target.UserID); err != nil {
		return target, fmt.Errorf("removing mute record: %w", err)
	}

	metrics.ModerationActionsTotal.WithLabelValues(roles.ActionUnmute, "ok").Inc()
	e.audit.Record(ctx, roles.ActionUnmute, msg.From.ID, msg.Chat.ID, target.UserID, "")
	log.Info().Int64("chat", msg.Chat.ID).Int64("target", target.UserID).Msg("moderation: user unmuted")
	return target, nil
}

func parseMinutes(arg string) (int, error) {
	if arg == "" {
		return 0, fmt.Errorf("%w: mute duration is required", ErrInvalidArgument)
	}
	minutes, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%w: duration must be a number of minutes", ErrInvalidArgument)
	}
	if minutes <= 0 {
		return 0, fmt.Errorf("%w: duration must be positive", ErrInvalidArgument)
	}
	return minutes, nil
}
