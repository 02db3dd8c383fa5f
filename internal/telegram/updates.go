package telegram

import (
	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/dispatcher/handlers"
	"github.com/celestix/gotgproto/dispatcher/handlers/filters"
	"github.com/celestix/gotgproto/ext"
	"github.com/gotd/td/tg"
)

// subscribe registers a text message handler on the protocol dispatcher.
// Outgoing messages are delivered too: in user mode the owner commands the
// agent from the same account.
func subscribe(proto *gotgproto.Client, c *Client, selfID int64, handle InboundHandler) {
	proto.Dispatcher.AddHandler(handlers.NewMessage(filters.Message.Text, func(ctx *ext.Context, u *ext.Update) error {
		if u.EffectiveMessage == nil || u.EffectiveMessage.Message == nil {
			return nil
		}

		in, ok := inboundFromMessage(u.EffectiveMessage.Message, selfID)
		if !ok {
			return nil
		}

		effective := u.EffectiveChat()
		if effective == nil {
			return nil
		}
		peer := effective.GetInputPeer()
		if _, empty := peer.(*tg.InputPeerEmpty); empty || peer == nil {
			return nil
		}

		in.Chat = c.ChatFor(peer, in.MessageID)
		return handle(ctx, in)
	}))
}

// inboundFromMessage extracts sender, chat and text from a message.
// Messages without text are dropped.
func inboundFromMessage(msg *tg.Message, selfID int64) (Inbound, bool) {
	if msg == nil || msg.Message == "" {
		return Inbound{}, false
	}

	in := Inbound{
		SenderID:  senderID(msg, selfID),
		MessageID: msg.ID,
		Text:      msg.Message,
	}

	switch p := msg.PeerID.(type) {
	case *tg.PeerUser:
		in.ChatID = p.UserID
	case *tg.PeerChat:
		in.ChatID = p.ChatID
	case *tg.PeerChannel:
		in.ChatID = p.ChannelID
	}
	return in, true
}

// senderID resolves who wrote msg. Outgoing messages are ours; private
// messages without from_id come from the peer itself.
func senderID(msg *tg.Message, selfID int64) int64 {
	if msg.Out {
		return selfID
	}
	switch from := msg.FromID.(type) {
	case *tg.PeerUser:
		return from.UserID
	case *tg.PeerChannel, *tg.PeerChat:
		// anonymous admins and channel posts have no user identity
		return 0
	}
	if p, ok := msg.PeerID.(*tg.PeerUser); ok {
		return p.UserID
	}
	return 0
}
