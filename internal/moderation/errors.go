package moderation

import (
	"errors"
	"fmt"
)

// Error taxonomy for moderation actions. All of these are recovered at
// the command-handler boundary and rendered as user-facing messages;
// none of them should crash the process.
var (
	// ErrPermissionDenied means the actor lacks the authority or the
	// explicit action grant.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrWrongContext means the action was attempted outside a
	// group-like chat.
	ErrWrongContext = errors.New("action requires a group chat")

	// ErrTargetNotFound means every resolution strategy was exhausted.
	ErrTargetNotFound = errors.New("target not found")

	// ErrInvalidArgument means a malformed argument, such as a
	// non-positive mute duration.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrControllerPrivilege means the controller itself lacks the
	// platform right to restrict or ban members in this chat.
	ErrControllerPrivilege = errors.New("controller lacks restrict privilege in this chat")

	// ErrActionForbidden means the platform refused the action, usually
	// because the target outranks the controller. Not retried.
	ErrActionForbidden = errors.New("platform refused the action")
)

// ExternalActionError wraps any other failure from the external platform
// call. Not retried; the underlying message is reported to the user.
type ExternalActionError struct {
	Action string
	Err    error
}

func (e *ExternalActionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Action, e.Err)
}

func (e *ExternalActionError) Unwrap() error { return e.Err }
