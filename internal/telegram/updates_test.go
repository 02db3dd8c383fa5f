package telegram

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
)

func TestInboundFromMessage(t *testing.T) {
	const self = int64(100)

	tests := []struct {
		name       string
		msg        *tg.Message
		wantOK     bool
		wantSender int64
		wantChat   int64
	}{
		{
			name:       "outgoing in saved messages",
			msg:        &tg.Message{ID: 1, Out: true, PeerID: &tg.PeerUser{UserID: self}, Message: ".status"},
			wantOK:     true,
			wantSender: self,
			wantChat:   self,
		},
		{
			name:       "group message with from id",
			msg:        &tg.Message{ID: 2, FromID: &tg.PeerUser{UserID: 7}, PeerID: &tg.PeerChannel{ChannelID: 55}, Message: ".status"},
			wantOK:     true,
			wantSender: 7,
			wantChat:   55,
		},
		{
			name:       "private incoming without from id",
			msg:        &tg.Message{ID: 3, PeerID: &tg.PeerUser{UserID: 8}, Message: "hi"},
			wantOK:     true,
			wantSender: 8,
			wantChat:   8,
		},
		{
			name:       "anonymous admin",
			msg:        &tg.Message{ID: 4, FromID: &tg.PeerChannel{ChannelID: 55}, PeerID: &tg.PeerChannel{ChannelID: 55}, Message: ".status"},
			wantOK:     true,
			wantSender: 0,
			wantChat:   55,
		},
		{
			name: "no text",
			msg:  &tg.Message{ID: 5, PeerID: &tg.PeerUser{UserID: 8}},
		},
		{
			name: "nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, ok := inboundFromMessage(tt.msg, self)
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantSender, in.SenderID)
			assert.Equal(t, tt.wantChat, in.ChatID)
			assert.Equal(t, tt.msg.ID, in.MessageID)
			assert.Equal(t, tt.msg.Message, in.Text)
		})
	}
}

func TestGroupKind_String(t *testing.T) {
	assert.Equal(t, "channel", GroupChannel.String())
	assert.Equal(t, "chat", GroupChat.String())
	assert.Equal(t, "unknown", GroupKind(0).String())
}
