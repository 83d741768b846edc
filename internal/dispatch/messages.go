package dispatch

import (
	"errors"
	"fmt"

	"github.com/safronx/sentinel/internal/moderation"
)

// errPermission is the shared denial for handlers that gate on the
// permission engine themselves.
var errPermission = moderation.ErrPermissionDenied

// renderError maps the error taxonomy onto user-facing replies. Every
// moderation error ends here; none of them propagate past the dispatcher.
func renderError(err error) string {
	switch {
	case errors.Is(err, moderation.ErrPermissionDenied):
		return "❌ You don't have permission to do that."
	case errors.Is(err, moderation.ErrWrongContext):
		return "⚠️ This command only works in a group chat."
	case errors.Is(err, moderation.ErrTargetNotFound):
		return "⚠️ I can't find that user. Reply to their message, or give me a numeric id or a public @username."
	case errors.Is(err, moderation.ErrInvalidArgument):
		return "⚠️ The mute duration must be a positive number of minutes."
	case errors.Is(err, moderation.ErrControllerPrivilege):
		return "⚠️ I can't restrict members here. Make me an administrator with the restrict right first."
	case errors.Is(err, moderation.ErrActionForbidden):
		return "❌ The platform refused: that user outranks me."
	}

	var extErr *moderation.ExternalActionError
	if errors.As(err, &extErr) {
		return fmt.Sprintf("❌ Action failed: %v", extErr.Err)
	}
	return "❌ Something went wrong, please try again."
}
