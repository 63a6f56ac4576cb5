package governor

import (
	"errors"
	"fmt"

	"github.com/srg/blgov/internal/identity"
)

// ErrNotReady is matched (via errors.Is) by every InteractionError raised
// because the governor holds no live object.
var ErrNotReady = &InteractionError{Reason: ReasonNotReady}

// InteractionReason tells why an interaction was refused
type InteractionReason string

const (
	ReasonNotReady InteractionReason = "not_ready"
)

// InteractionError is returned by Interact when the operation could not be started
type InteractionError struct {
	Identity identity.Identity
	Label    string
	Reason   InteractionReason
}

func (e *InteractionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Identity.IsZero() {
		return fmt.Sprintf("interaction refused: %s", e.Reason)
	}
	return fmt.Sprintf("%s on %s refused: %s", e.Label, e.Identity, e.Reason)
}

// Is allows errors.Is to compare InteractionError values by Reason
func (e *InteractionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*InteractionError)
	if !ok {
		return false
	}
	return e.Reason == t.Reason
}

// HookError wraps a failure raised by one of the kind-specific hooks
type HookError struct {
	Hook     string // "init", "refresh", "release"
	Identity identity.Identity
	Err      error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook failed for %s: %v", e.Hook, e.Identity, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// IsNotReady reports whether err was caused by interacting with a governor that is not ready
func IsNotReady(err error) bool {
	return errors.Is(err, ErrNotReady)
}
