package telegram

import (
	"context"
)

// GroupKind tells which RPC family a group needs.
type GroupKind int

// Group kinds.
const (
	// GroupChannel is a supergroup or broadcast channel.
	GroupChannel GroupKind = iota + 1
	// GroupChat is a legacy basic group.
	GroupChat
)

func (k GroupKind) String() string {
	switch k {
	case GroupChannel:
		return "channel"
	case GroupChat:
		return "chat"
	default:
		return "unknown"
	}
}

// Group is a resolved source or target group.
// It is valid for one scrape job only and is never cached across commands.
type Group struct {
	Kind       GroupKind
	ID         int64  // channel or chat id
	AccessHash int64  // zero for basic chats
	Username   string // without @, may be empty
	Title      string
}

// Member is one entry of a group's membership listing.
type Member struct {
	ID         int64
	AccessHash int64
	Username   string
	Bot        bool // automated account
	Deleted    bool
	Self       bool // the acting account itself
}

// StatusMessage is a single outbound message that is edited in place.
type StatusMessage interface {
	Edit(ctx context.Context, text string) error
}

// Chat is the conversation an inbound command came from.
type Chat interface {
	// Reply sends text as a reply to the command and returns it as an editable status message.
	Reply(ctx context.Context, text string) (StatusMessage, error)
}

// Inbound is a text message delivered to the agent.
type Inbound struct {
	SenderID  int64
	ChatID    int64
	MessageID int
	Text      string
	Chat      Chat
}

// InboundHandler consumes inbound text messages.
type InboundHandler func(ctx context.Context, in Inbound) error
