package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/safronx/sentinel/internal/roles"
	"github.com/safronx/sentinel/internal/telegram"
)

func (d *Dispatcher) handleStart() string {
	return "Hi! I'm Safronx Security. I keep this chat in order."
}

func (d *Dispatcher) handleSetAdm(ctx context.Context, msg *telegram.Message, args []string) (string, error) {
	actor := actorID(msg)
	if !d.engine.CanInvoke(actor, roles.ActionSetAdm) {
		return "", errPermission
	}
	if len(args) < 2 {
		return "⚠️ Usage: /setadm <username> <role>\nRoles: trainee, moderator, senior, deputy", nil
	}

	role, err := roles.ParseRole(args[1])
	if err != nil {
		return "⚠️ Unknown role. Roles: trainee, moderator, senior, deputy", nil
	}
	if !role.Assignable() {
		return "❌ The owner is set in configuration and cannot be assigned.", nil
	}

	username := strings.TrimPrefix(args[0], "@")

	// Best-effort identity resolution: a reply or a resolvable handle
	// pins the record to a user id, otherwise the record is stored by
	// username alone until the user can be resolved.
	var userID int64
	if target, rerr := d.resolver.Resolve(ctx, msg, args[0]); rerr == nil {
		userID = target.UserID
	}

	if err := d.registry.SetRole(username, userID, role); err != nil {
		switch {
		case errors.Is(err, roles.ErrDuplicateID):
			return "❌ That user is already registered under another username.", nil
		case errors.Is(err, roles.ErrInvalidRole):
			return "❌ " + err.Error(), nil
		default:
			return "", err
		}
	}

	d.audit.Record(ctx, roles.ActionSetAdm, actor, msg.Chat.ID, userID, fmt.Sprintf("@%s -> %s", username, role))
	return fmt.Sprintf("✅ @%s is now %s!", username, role), nil
}

func (d *Dispatcher) handleDemote(ctx context.Context, msg *telegram.Message, args []string) (string, error) {
	if !d.engine.CanInvoke(actorID(msg), roles.ActionDemote) {
		return "", errPermission
	}
	if len(args) < 1 {
		return "⚠️ Usage: /nahuisadm <username>", nil
	}

	username := strings.TrimPrefix(args[0], "@")
	if err := d.registry.Remove(username); err != nil {
		if errors.Is(err, roles.ErrNotFound) {
			return fmt.Sprintf("⚠️ @%s is not an admin.", username), nil
		}
		return "", err
	}
	d.audit.Record(ctx, roles.ActionDemote, actorID(msg), msg.Chat.ID, 0, "@"+username)
	return fmt.Sprintf("✅ @%s is no longer an admin.", username), nil
}

func (d *Dispatcher) handleAdmins() string {
	records := d.registry.List()
	if len(records) == 0 {
		return "👤 No admins yet."
	}

	var b strings.Builder
	b.WriteString("📋 Admins:")
	for _, rec := range records {
		b.WriteString(fmt.Sprintf("\n@%s — %s", rec.Username, rec.Role))
	}
	return b.String()
}

func (d *Dispatcher) handleBan(ctx context.Context, msg *telegram.Message, args []string) (string, error) {
	target, err := d.exec.Ban(ctx, msg, firstArg(args))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ %s is banned.", target.Name()), nil
}

func (d *Dispatcher) handleUnban(ctx context.Context, msg *telegram.Message, args []string) (string, error) {
	target, err := d.exec.Unban(ctx, msg, firstArg(args))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ %s is unbanned.", target.Name()), nil
}

func (d *Dispatcher) handleMute(ctx context.Context, msg *telegram.Message, args []string) (string, error) {
	if len(args) == 0 {
		return "⚠️ Usage: /mute <target> <minutes> (or reply with /mute <minutes>)", nil
	}

	// The duration is always the last argument; the target may come from
	// a reply instead of an argument.
	minutesArg := args[len(args)-1]
	targetArg := ""
	if len(args) >= 2 {
		targetArg = args[0]
	}

	target, until, err := d.exec.Mute(ctx, msg, targetArg, minutesArg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🔇 %s is muted until %s.", target.Name(), until.UTC().Format("15:04 MST")), nil
}

func (d *Dispatcher) handleUnmute(ctx context.Context, msg *telegram.Message, args []string) (string, error) {
	target, err := d.exec.Unmute(ctx, msg, firstArg(args))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🔊 %s can speak again.", target.Name()), nil
}

func (d *Dispatcher) handleSetPerm(ctx context.Context, msg *telegram.Message, args []string) (string, error) {
	// Grant editing is gated by rank, not by an action grant.
	if !d.engine.HasAuthority(actorID(msg), roles.Deputy) {
		return "", errPermission
	}
	if len(args) < 3 {
		return "⚠️ Usage: /setperm <role> <command> on|off", nil
	}

	role, err := roles.ParseRole(args[0])
	if err != nil {
		return "⚠️ Unknown role. Roles: trainee, moderator, senior, deputy", nil
	}
	action := strings.TrimPrefix(strings.ToLower(args[1]), "/")

	var gerr error
	switch strings.ToLower(args[2]) {
	case "on":
		gerr = d.grants.Grant(role, action)
	case "off":
		gerr = d.grants.Revoke(role, action)
	default:
		return "⚠️ Usage: /setperm <role> <command> on|off", nil
	}
	if gerr != nil {
		if errors.Is(gerr, roles.ErrOwnerImmutable) {
			return "❌ The owner role cannot be edited.", nil
		}
		return "", gerr
	}

	d.audit.Record(ctx, roles.ActionSetPerm, actorID(msg), msg.Chat.ID, 0, fmt.Sprintf("%s %s %s", role, action, strings.ToLower(args[2])))
	if strings.ToLower(args[2]) == "on" {
		return fmt.Sprintf("✅ %s may now use /%s.", role, action), nil
	}
	return fmt.Sprintf("✅ %s may no longer use /%s.", role, action), nil
}

func (d *Dispatcher) handlePerms(args []string) string {
	if len(args) < 1 {
		return "⚠️ Usage: /perms <role>"
	}
	role, err := roles.ParseRole(args[0])
	if err != nil || role == roles.Owner {
		if role == roles.Owner && err == nil {
			return "👑 The owner may do everything."
		}
		return "⚠️ Unknown role. Roles: trainee, moderator, senior, deputy"
	}

	actions := d.grants.Actions(role)
	if len(actions) == 0 {
		return fmt.Sprintf("📋 %s has no granted commands.", role)
	}
	for _, a := range actions {
		if a == roles.Wildcard {
			return fmt.Sprintf("📋 %s may use every command.", role)
		}
	}
	return fmt.Sprintf("📋 %s may use: %s", role, strings.Join(actions, ", "))
}

func actorID(msg *telegram.Message) int64 {
	if msg.From == nil {
		return 0
	}
	return msg.From.ID
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
