// Package roles holds the administrator registry and the permission engine:
// who carries which rank, and which named actions each rank may invoke.
package roles

import (
	"errors"
	"fmt"
	"strings"
)

// Role is an administrator rank. Ordering is total: a higher value always
// outranks a lower one, and the ordinal comparison is the sole basis for
// hierarchy checks.
type Role int

const (
	Trainee Role = iota
	Moderator
	SeniorModerator
	Deputy
	Owner
)

var roleNames = map[Role]string{
	Trainee:         "trainee",
	Moderator:       "moderator",
	SeniorModerator: "senior",
	Deputy:          "deputy",
	Owner:           "owner",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// Assignable reports whether r may be given to an administrator record.
// Owner exists only as the configured owner identity and is never stored.
func (r Role) Assignable() bool {
	return r.Valid() && r != Owner
}

var (
	ErrInvalidRole    = errors.New("invalid role")
	ErrNotFound       = errors.New("admin not found")
	ErrOwnerImmutable = errors.New("owner role cannot be edited")
	ErrDuplicateID    = errors.New("user id already registered under another username")
)

// ParseRole parses a role name as used on the command surface.
// "owner" parses successfully so callers can reject it with a specific
// message, but it is never Assignable.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trainee":
		return Trainee, nil
	case "moderator", "mod":
		return Moderator, nil
	case "senior", "seniormoderator":
		return SeniorModerator, nil
	case "deputy":
		return Deputy, nil
	case "owner":
		return Owner, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// AdminRecord is one administrator registration. Username is the unique
// key; UserID may be zero when the handle could not be resolved yet.
type AdminRecord struct {
	Username string `json:"username"`
	UserID   int64  `json:"user_id"`
	Role     Role   `json:"role"`
}
