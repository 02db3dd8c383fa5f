package inviter

import (
	"errors"
	"time"

	"github.com/blockedby/tg-inviter/internal/telegram"
)

// Outcome is the classified result of handling one member.
type Outcome int

// Member outcomes.
const (
	OutcomeSuccess Outcome = iota
	OutcomeSkip
	OutcomeSoftFail
	OutcomeRateLimited
	OutcomeFatal
	OutcomeUnknownFail
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkip:
		return "skip"
	case OutcomeSoftFail:
		return "soft_fail"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown_fail"
	}
}

// Classify maps an invite error to an Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, telegram.ErrPeerFlood):
		return OutcomeRateLimited
	case errors.Is(err, telegram.ErrAdminRequired):
		return OutcomeFatal
	case errors.Is(err, telegram.ErrAlreadyParticipant):
		return OutcomeSkip
	case errors.Is(err, telegram.ErrPrivacyRestricted), errors.Is(err, telegram.ErrUserIsBot):
		return OutcomeSoftFail
	default:
		return OutcomeUnknownFail
	}
}

// floodPause returns how long to pause after a flood signal: the platform's
// requested wait when it exceeds the configured cooldown.
func floodPause(err error, cooldown time.Duration) time.Duration {
	var fe *telegram.FloodError
	if errors.As(err, &fe) && fe.Wait > cooldown {
		return fe.Wait
	}
	return cooldown
}

// skipReason reports why a member must not be invited, or "" if it can be.
func skipReason(m telegram.Member, selfID int64) string {
	switch {
	case m.Self || (selfID != 0 && m.ID == selfID):
		return "self"
	case m.Bot:
		return "bot"
	case m.Deleted:
		return "deleted"
	default:
		return ""
	}
}
