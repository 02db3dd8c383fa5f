// Package auth decides who may command the agent.
package auth

import (
	"github.com/blockedby/tg-inviter/internal/config"
)

// Gate authorizes exactly one principal, fixed at construction.
//
// In user mode the principal is the logged-in account itself, so only the
// owner's own messages are trusted. In bot mode it is the configured admin;
// the bot's own id is never authorized. A zero principal authorizes nobody.
type Gate struct {
	mode      config.Mode
	principal int64
}

// NewGate builds a gate for mode. selfID is the acting account id and
// adminID the configured admin; which one becomes the principal depends
// on mode.
func NewGate(mode config.Mode, selfID, adminID int64) *Gate {
	principal := selfID
	if mode == config.ModeBot {
		principal = adminID
		if principal == selfID {
			principal = 0
		}
	}
	return &Gate{mode: mode, principal: principal}
}

// Authorize reports whether senderID may issue commands.
func (g *Gate) Authorize(senderID int64) bool {
	if g == nil || g.principal == 0 {
		return false
	}
	return senderID == g.principal
}

// Mode returns the identity mode the gate was built for.
func (g *Gate) Mode() config.Mode {
	return g.mode
}

// Principal returns the single authorized sender id.
func (g *Gate) Principal() int64 {
	return g.principal
}
