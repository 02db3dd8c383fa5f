package telegram

import (
	"errors"
	"fmt"
	"time"

	"github.com/gotd/td/tgerr"
)

// Errors returned by Client. RPC errors are mapped onto these so callers can
// classify outcomes with errors.Is instead of matching RPC strings.
var (
	ErrNotFound           = errors.New("group not found")
	ErrNotGroup           = errors.New("reference is not a group or channel")
	ErrForbidden          = errors.New("group is not accessible")
	ErrNotMember          = errors.New("invite link points to a group the account has not joined")
	ErrBadReference       = errors.New("unsupported group reference")
	ErrPeerFlood          = errors.New("rate limited by telegram")
	ErrPrivacyRestricted  = errors.New("user privacy settings forbid the invite")
	ErrUserIsBot          = errors.New("user is a bot")
	ErrAlreadyParticipant = errors.New("user is already a participant")
	ErrAdminRequired      = errors.New("admin rights are required in the target group")
)

// FloodError carries a rate limit signal and the wait the server asked for.
// Wait is zero for PEER_FLOOD, which has no explicit duration.
type FloodError struct {
	Wait time.Duration
	Err  error
}

func (e *FloodError) Error() string {
	if e.Wait > 0 {
		return fmt.Sprintf("flood wait %s: %v", e.Wait, e.Err)
	}
	return fmt.Sprintf("peer flood: %v", e.Err)
}

// Unwrap exposes ErrPeerFlood and the original RPC error.
func (e *FloodError) Unwrap() []error {
	return []error{ErrPeerFlood, e.Err}
}

// mapInviteError converts an invite RPC error into a package error.
// Errors that have no mapping are returned unchanged.
func mapInviteError(err error) error {
	if err == nil {
		return nil
	}

	if d, ok := tgerr.AsFloodWait(err); ok {
		return &FloodError{Wait: d, Err: err}
	}

	switch {
	case tgerr.Is(err, "PEER_FLOOD"):
		return &FloodError{Err: err}
	case tgerr.Is(err, "USER_PRIVACY_RESTRICTED", "USER_NOT_MUTUAL_CONTACT", "USER_CHANNELS_TOO_MUCH", "USER_KICKED"):
		return fmt.Errorf("%w: %v", ErrPrivacyRestricted, err)
	case tgerr.Is(err, "USER_BOT", "BOT_GROUPS_BLOCKED"):
		return fmt.Errorf("%w: %v", ErrUserIsBot, err)
	case tgerr.Is(err, "USER_ALREADY_PARTICIPANT"):
		return fmt.Errorf("%w: %v", ErrAlreadyParticipant, err)
	case tgerr.Is(err, "CHAT_ADMIN_REQUIRED", "CHAT_WRITE_FORBIDDEN", "RIGHT_FORBIDDEN", "CHAT_ADMIN_INVITE_REQUIRED"):
		return fmt.Errorf("%w: %v", ErrAdminRequired, err)
	}
	return err
}

// mapResolveError converts a resolution RPC error into a package error.
func mapResolveError(err error) error {
	switch {
	case tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID", "INVITE_HASH_INVALID", "INVITE_HASH_EXPIRED", "CHANNEL_INVALID"):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case tgerr.Is(err, "CHANNEL_PRIVATE", "CHAT_FORBIDDEN"):
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	return err
}
