// Package dispatch receives updates from the platform, routes slash
// commands to their handlers and turns every outcome, success or domain
// error, into a user-facing reply. Nothing in here crashes the process:
// the only fatal condition lives in startup configuration.
package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/safronx/sentinel/internal/metrics"
	"github.com/safronx/sentinel/internal/moderation"
	"github.com/safronx/sentinel/internal/roles"
	"github.com/safronx/sentinel/internal/telegram"
)

// BotAPI is the slice of the platform API the dispatcher drives.
type BotAPI interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) (*telegram.Message, error)
}

// Deps wires the dispatcher's collaborators.
type Deps struct {
	API         BotAPI
	Registry    *roles.Registry
	Engine      *roles.Engine
	Grants      *roles.Grants
	Executor    *moderation.Executor
	Resolver    moderation.TargetResolver
	Audit       moderation.AuditSink
	BotUsername string
	PollTimeout int
}

// Dispatcher long-polls for updates and handles commands sequentially.
type Dispatcher struct {
	api         BotAPI
	registry    *roles.Registry
	engine      *roles.Engine
	grants      *roles.Grants
	exec        *moderation.Executor
	resolver    moderation.TargetResolver
	audit       moderation.AuditSink
	botUsername string
	pollTimeout int

	offset int64
}

// New creates a dispatcher.
func New(deps Deps) *Dispatcher {
	if deps.PollTimeout == 0 {
		deps.PollTimeout = 30
	}
	if deps.Audit == nil {
		deps.Audit = moderation.NopAudit{}
	}
	return &Dispatcher{
		api:         deps.API,
		registry:    deps.Registry,
		engine:      deps.Engine,
		grants:      deps.Grants,
		exec:        deps.Executor,
		resolver:    deps.Resolver,
		audit:       deps.Audit,
		botUsername: deps.BotUsername,
		pollTimeout: deps.PollTimeout,
	}
}

// Run polls for updates until the context is cancelled. Transport errors
// back the poll off up to 30 seconds and never terminate the loop.
func (d *Dispatcher) Run(ctx context.Context) error {
	log.Info().Int("poll_timeout", d.pollTimeout).Msg("dispatch: update loop started")

	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("dispatch: context cancelled, stopping")
			return nil
		default:
		}

		updates, err := d.api.GetUpdates(ctx, d.offset, d.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Dur("backoff", backoff).Msg("dispatch: getUpdates failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		for _, upd := range updates {
			d.offset = upd.UpdateID + 1
			metrics.UpdatesTotal.Inc()
			if upd.Message == nil {
				continue
			}
			d.handleMessage(ctx, upd.Message)
		}
	}
}

// handleMessage routes a message to its command handler, if any.
func (d *Dispatcher) handleMessage(ctx context.Context, msg *telegram.Message) {
	cmd, args, ok := d.parseCommand(msg.Text)
	if !ok {
		return
	}

	var (
		reply string
		err   error
	)

	switch cmd {
	case "start":
		reply = d.handleStart()
	case "setadm":
		reply, err = d.handleSetAdm(ctx, msg, args)
	case "nahuisadm":
		reply, err = d.handleDemote(ctx, msg, args)
	case "admins":
		reply = d.handleAdmins()
	case "ban":
		reply, err = d.handleBan(ctx, msg, args)
	case "unban":
		reply, err = d.handleUnban(ctx, msg, args)
	case "mute":
		reply, err = d.handleMute(ctx, msg, args)
	case "unmute":
		reply, err = d.handleUnmute(ctx, msg, args)
	case "setperm":
		reply, err = d.handleSetPerm(ctx, msg, args)
	case "perms":
		reply = d.handlePerms(args)
	default:
		return
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		reply = renderError(err)
		log.Debug().Err(err).Str("command", cmd).Msg("dispatch: command rejected")
	}
	metrics.CommandsTotal.WithLabelValues(cmd, outcome).Inc()

	if reply == "" {
		return
	}
	if _, err := d.api.SendMessage(ctx, msg.Chat.ID, reply); err != nil {
		log.Warn().Err(err).Int64("chat", msg.Chat.ID).Msg("dispatch: failed to send reply")
	}
}

// parseCommand splits "/cmd@bot arg1 arg2" into its command name and
// arguments. Commands addressed to a different bot are ignored.
func (d *Dispatcher) parseCommand(text string) (string, []string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil, false
	}

	cmd := strings.TrimPrefix(fields[0], "/")
	if i := strings.Index(cmd, "@"); i >= 0 {
		mention := cmd[i+1:]
		cmd = cmd[:i]
		if d.botUsername != "" && !strings.EqualFold(mention, d.botUsername) {
			return "", nil, false
		}
	}
	if cmd == "" {
		return "", nil, false
	}
	return strings.ToLower(cmd), fields[1:], true
}
