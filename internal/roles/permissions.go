package roles

import (
	"fmt"
	"sort"
	"sync"
)

// Action names on the command surface. Moderation actions are gated by
// the grant sets below; the meta-actions additionally fall under the
// ordinal check in the dispatcher.
const (
	ActionBan     = "ban"
	ActionUnban   = "unban"
	ActionMute    = "mute"
	ActionUnmute  = "unmute"
	ActionSetAdm  = "setadm"
	ActionDemote  = "nahuisadm"
	ActionSetPerm = "setperm"
)

// Wildcard grants a role every action.
const Wildcard = "*"

// Grants maps each rank to the set of action names it may invoke.
// Process-lifetime state: it is rebuilt from defaults at startup and
// mutated only through Grant/Revoke. The Owner rank is not representable
// here; the engine bypasses grants for the owner identity entirely.
type Grants struct {
	mu     sync.RWMutex
	byRole map[Role]map[string]struct{}
}

// DefaultGrants returns the startup grant table.
func DefaultGrants() *Grants {
	g := &Grants{byRole: make(map[Role]map[string]struct{})}
	defaults := map[Role][]string{
		Trainee:         {},
		Moderator:       {ActionBan, ActionMute, ActionUnmute},
		SeniorModerator: {ActionBan, ActionUnban, ActionMute, ActionUnmute},
		Deputy:          {Wildcard},
	}
	for role, actions := range defaults {
		set := make(map[string]struct{}, len(actions))
		for _, a := range actions {
			set[a] = struct{}{}
		}
		g.byRole[role] = set
	}
	return g
}

// Allows reports whether the role's grant set contains the action or the
// wildcard. This is the only place the wildcard sentinel is interpreted.
func (g *Grants) Allows(role Role, action string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set, ok := g.byRole[role]
	if !ok {
		return false
	}
	if _, ok := set[Wildcard]; ok {
		return true
	}
	_, ok = set[action]
	return ok
}

// Grant adds an action to a role's set. The Owner rank is immutable.
func (g *Grants) Grant(role Role, action string) error {
	if role == Owner {
		return ErrOwnerImmutable
	}
	if !role.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.byRole[role]
	if !ok {
		set = make(map[string]struct{})
		g.byRole[role] = set
	}
	set[action] = struct{}{}
	return nil
}

// Revoke removes an action from a role's set. Revoking an action the role
// never had is a no-op.
func (g *Grants) Revoke(role Role, action string) error {
	if role == Owner {
		return ErrOwnerImmutable
	}
	if !role.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if set, ok := g.byRole[role]; ok {
		delete(set, action)
	}
	return nil
}

// Actions returns the role's granted action names, sorted.
func (g *Grants) Actions(role Role) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set, ok := g.byRole[role]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Engine answers authority questions, combining the configured owner
// identity, the admin registry and the grant table.
type Engine struct {
	registry *Registry
	grants   *Grants
	ownerID  int64
}

// NewEngine wires a permission engine.
func NewEngine(registry *Registry, grants *Grants, ownerID int64) *Engine {
	return &Engine{registry: registry, grants: grants, ownerID: ownerID}
}

// IsOwner reports whether the user is the configured owner identity.
func (e *Engine) IsOwner(userID int64) bool {
	return userID != 0 && userID == e.ownerID
}

// HasAuthority reports whether the actor's rank is at least required.
// The owner always passes; an unknown actor never does.
func (e *Engine) HasAuthority(userID int64, required Role) bool {
	if e.IsOwner(userID) {
		return true
	}
	role, ok := e.registry.RoleOf(userID)
	if !ok {
		return false
	}
	return role >= required
}

// CanInvoke reports whether the actor may invoke the named action through
// an explicit grant. The owner may invoke everything.
func (e *Engine) CanInvoke(userID int64, action string) bool {
	if e.IsOwner(userID) {
		return true
	}
	role, ok := e.registry.RoleOf(userID)
	if !ok {
		return false
	}
	return e.grants.Allows(role, action)
}
