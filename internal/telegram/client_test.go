package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI records calls and returns canned responses.
type fakeAPI struct {
	resolved    map[string]*tg.ContactsResolvedPeer
	resolveErr  error
	invites     map[string]tg.ChatInviteClass
	pages       []*tg.ChannelsChannelParticipants
	pageCalls   []int // offsets requested
	fullChat    *tg.MessagesChatFull
	inviteErr   map[int64]error
	missing     map[int64]bool
	invited     []int64
	sendResult  tg.UpdatesClass
	sent        []*tg.MessagesSendMessageRequest
	edits       []*tg.MessagesEditMessageRequest
	editErr     error
	addChatUser []int64
}

func (f *fakeAPI) ContactsResolveUsername(_ context.Context, req *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	r, ok := f.resolved[req.Username]
	if !ok {
		return nil, tgerr.New(400, "USERNAME_NOT_OCCUPIED")
	}
	return r, nil
}

func (f *fakeAPI) MessagesCheckChatInvite(_ context.Context, hash string) (tg.ChatInviteClass, error) {
	inv, ok := f.invites[hash]
	if !ok {
		return nil, tgerr.New(400, "INVITE_HASH_INVALID")
	}
	return inv, nil
}

func (f *fakeAPI) ChannelsGetParticipants(_ context.Context, req *tg.ChannelsGetParticipantsRequest) (tg.ChannelsChannelParticipantsClass, error) {
	f.pageCalls = append(f.pageCalls, req.Offset)
	idx := len(f.pageCalls) - 1
	if idx >= len(f.pages) {
		return &tg.ChannelsChannelParticipants{}, nil
	}
	return f.pages[idx], nil
}

func (f *fakeAPI) MessagesGetFullChat(_ context.Context, _ int64) (*tg.MessagesChatFull, error) {
	if f.fullChat == nil {
		return nil, tgerr.New(400, "CHAT_ID_INVALID")
	}
	return f.fullChat, nil
}

func (f *fakeAPI) ChannelsInviteToChannel(_ context.Context, req *tg.ChannelsInviteToChannelRequest) (*tg.MessagesInvitedUsers, error) {
	user := req.Users[0].(*tg.InputUser)
	f.invited = append(f.invited, user.UserID)
	if err := f.inviteErr[user.UserID]; err != nil {
		return nil, err
	}
	res := &tg.MessagesInvitedUsers{Updates: &tg.Updates{}}
	if f.missing[user.UserID] {
		res.MissingInvitees = []tg.MissingInvitee{{UserID: user.UserID}}
	}
	return res, nil
}

func (f *fakeAPI) MessagesAddChatUser(_ context.Context, req *tg.MessagesAddChatUserRequest) (*tg.MessagesInvitedUsers, error) {
	user := req.UserID.(*tg.InputUser)
	f.addChatUser = append(f.addChatUser, user.UserID)
	return &tg.MessagesInvitedUsers{Updates: &tg.Updates{}}, nil
}

func (f *fakeAPI) MessagesSendMessage(_ context.Context, req *tg.MessagesSendMessageRequest) (tg.UpdatesClass, error) {
	f.sent = append(f.sent, req)
	if f.sendResult != nil {
		return f.sendResult, nil
	}
	return &tg.UpdateShortSentMessage{ID: 501}, nil
}

func (f *fakeAPI) MessagesEditMessage(_ context.Context, req *tg.MessagesEditMessageRequest) (tg.UpdatesClass, error) {
	f.edits = append(f.edits, req)
	if f.editErr != nil {
		return nil, f.editErr
	}
	return &tg.Updates{}, nil
}

func newTestClient(api API) *Client {
	return NewClient(api, NewRateLimiter(1000, 100))
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		in       string
		wantKind refKind
		want     string
		wantErr  bool
	}{
		{in: "@source", wantKind: refUsername, want: "source"},
		{in: "source", wantKind: refUsername, want: "source"},
		{in: "https://t.me/source", wantKind: refUsername, want: "source"},
		{in: "t.me/source", wantKind: refUsername, want: "source"},
		{in: "https://t.me/+AbCdEf", wantKind: refInvite, want: "AbCdEf"},
		{in: "https://t.me/joinchat/AbCdEf", wantKind: refInvite, want: "AbCdEf"},
		{in: "telegram.me/joinchat/XyZ", wantKind: refInvite, want: "XyZ"},
		{in: "@", wantErr: true},
		{in: "", wantErr: true},
		{in: "https://example.com/source", wantErr: true},
		{in: "https://t.me/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			kind, value, err := parseRef(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadReference)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.want, value)
		})
	}
}

func TestClient_ResolveGroup_Username(t *testing.T) {
	api := &fakeAPI{resolved: map[string]*tg.ContactsResolvedPeer{
		"source": {
			Peer:  &tg.PeerChannel{ChannelID: 10},
			Chats: []tg.ChatClass{&tg.Channel{ID: 10, AccessHash: 99, Title: "Source", Megagroup: true}},
		},
		"someone": {
			Peer:  &tg.PeerUser{UserID: 5},
			Users: []tg.UserClass{&tg.User{ID: 5}},
		},
		"private": {
			Peer:  &tg.PeerChannel{ChannelID: 11},
			Chats: []tg.ChatClass{&tg.ChannelForbidden{ID: 11, Title: "Private"}},
		},
	}}
	c := newTestClient(api)

	t.Run("channel", func(t *testing.T) {
		g, err := c.ResolveGroup(context.Background(), "@source")
		require.NoError(t, err)
		assert.Equal(t, GroupChannel, g.Kind)
		assert.Equal(t, int64(10), g.ID)
		assert.Equal(t, int64(99), g.AccessHash)
		assert.Equal(t, "source", g.Username)
	})

	t.Run("user is not a group", func(t *testing.T) {
		_, err := c.ResolveGroup(context.Background(), "@someone")
		assert.ErrorIs(t, err, ErrNotGroup)
	})

	t.Run("unknown username", func(t *testing.T) {
		_, err := c.ResolveGroup(context.Background(), "@nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("forbidden channel", func(t *testing.T) {
		_, err := c.ResolveGroup(context.Background(), "@private")
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestClient_ResolveGroup_Invite(t *testing.T) {
	api := &fakeAPI{invites: map[string]tg.ChatInviteClass{
		"joined":  &tg.ChatInviteAlready{Chat: &tg.Chat{ID: 20, Title: "Basic"}},
		"outside": &tg.ChatInvite{Title: "Not joined"},
	}}
	c := newTestClient(api)

	g, err := c.ResolveGroup(context.Background(), "https://t.me/+joined")
	require.NoError(t, err)
	assert.Equal(t, GroupChat, g.Kind)
	assert.Equal(t, int64(20), g.ID)

	_, err = c.ResolveGroup(context.Background(), "https://t.me/+outside")
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = c.ResolveGroup(context.Background(), "https://t.me/joinchat/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_ListMembers_Channel_Pages(t *testing.T) {
	api := &fakeAPI{pages: []*tg.ChannelsChannelParticipants{
		{
			Count: 4,
			Participants: []tg.ChannelParticipantClass{
				&tg.ChannelParticipantCreator{UserID: 1},
				&tg.ChannelParticipant{UserID: 2},
				&tg.ChannelParticipantBanned{Peer: &tg.PeerUser{UserID: 3}},
			},
			Users: []tg.UserClass{
				&tg.User{ID: 1, AccessHash: 11},
				&tg.User{ID: 2, AccessHash: 22, Bot: true},
				&tg.User{ID: 3, AccessHash: 33},
			},
		},
		{
			Count: 4,
			Participants: []tg.ChannelParticipantClass{
				&tg.ChannelParticipantSelf{UserID: 4},
			},
			Users: []tg.UserClass{
				&tg.User{ID: 4, AccessHash: 44, Self: true},
			},
		},
	}}
	c := newTestClient(api)

	members, err := c.ListMembers(context.Background(), &Group{Kind: GroupChannel, ID: 10})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 3}, api.pageCalls)
	require.Len(t, members, 3)
	assert.Equal(t, Member{ID: 1, AccessHash: 11}, members[0])
	assert.True(t, members[1].Bot)
	assert.True(t, members[2].Self)
}

func TestClient_ListMembers_Chat(t *testing.T) {
	api := &fakeAPI{fullChat: &tg.MessagesChatFull{
		FullChat: &tg.ChatFull{
			ID: 20,
			Participants: &tg.ChatParticipants{
				ChatID: 20,
				Participants: []tg.ChatParticipantClass{
					&tg.ChatParticipantCreator{UserID: 1},
					&tg.ChatParticipant{UserID: 2},
				},
			},
		},
		Users: []tg.UserClass{
			&tg.User{ID: 1},
			&tg.User{ID: 2, Deleted: true},
		},
	}}
	c := newTestClient(api)

	members, err := c.ListMembers(context.Background(), &Group{Kind: GroupChat, ID: 20})
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.True(t, members[1].Deleted)
}

func TestClient_ListMembers_HiddenChat(t *testing.T) {
	api := &fakeAPI{fullChat: &tg.MessagesChatFull{
		FullChat: &tg.ChatFull{ID: 20, Participants: &tg.ChatParticipantsForbidden{ChatID: 20}},
	}}
	c := newTestClient(api)

	_, err := c.ListMembers(context.Background(), &Group{Kind: GroupChat, ID: 20})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestClient_InviteMember_Errors(t *testing.T) {
	api := &fakeAPI{
		inviteErr: map[int64]error{
			2: tgerr.New(400, "PEER_FLOOD"),
			3: tgerr.New(420, "FLOOD_WAIT_30"),
			4: tgerr.New(403, "USER_PRIVACY_RESTRICTED"),
			5: tgerr.New(400, "USER_BOT"),
			6: tgerr.New(400, "USER_ALREADY_PARTICIPANT"),
			7: tgerr.New(400, "CHAT_ADMIN_REQUIRED"),
			8: tgerr.New(500, "INTERNAL"),
		},
		missing: map[int64]bool{9: true},
	}
	c := newTestClient(api)
	g := &Group{Kind: GroupChannel, ID: 30, AccessHash: 3}
	ctx := context.Background()

	assert.NoError(t, c.InviteMember(ctx, g, Member{ID: 1}))

	err := c.InviteMember(ctx, g, Member{ID: 2})
	assert.ErrorIs(t, err, ErrPeerFlood)
	var flood *FloodError
	require.ErrorAs(t, err, &flood)
	assert.Zero(t, flood.Wait)

	err = c.InviteMember(ctx, g, Member{ID: 3})
	require.ErrorAs(t, err, &flood)
	assert.Equal(t, 30*time.Second, flood.Wait)

	assert.ErrorIs(t, c.InviteMember(ctx, g, Member{ID: 4}), ErrPrivacyRestricted)
	assert.ErrorIs(t, c.InviteMember(ctx, g, Member{ID: 5}), ErrUserIsBot)
	assert.ErrorIs(t, c.InviteMember(ctx, g, Member{ID: 6}), ErrAlreadyParticipant)
	assert.ErrorIs(t, c.InviteMember(ctx, g, Member{ID: 7}), ErrAdminRequired)

	err = c.InviteMember(ctx, g, Member{ID: 8})
	require.Error(t, err)
	assert.True(t, tgerr.Is(err, "INTERNAL"))

	assert.ErrorIs(t, c.InviteMember(ctx, g, Member{ID: 9}), ErrPrivacyRestricted)

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9}, api.invited)
	// invite flood waits stay with the caller
	assert.Zero(t, c.rateLimiter.FloodWaitRemaining())
}

func TestClient_InviteMember_BasicChat(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(api)

	err := c.InviteMember(context.Background(), &Group{Kind: GroupChat, ID: 20}, Member{ID: 7, AccessHash: 70})
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, api.addChatUser)
}

func TestChat_ReplyAndEdit(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(api)
	peer := &tg.InputPeerUser{UserID: 1, AccessHash: 2}

	status, err := c.ChatFor(peer, 42).Reply(context.Background(), "Starting")
	require.NoError(t, err)

	require.Len(t, api.sent, 1)
	assert.Equal(t, "Starting", api.sent[0].Message)
	reply, ok := api.sent[0].ReplyTo.(*tg.InputReplyToMessage)
	require.True(t, ok)
	assert.Equal(t, 42, reply.ReplyToMsgID)

	require.NoError(t, status.Edit(context.Background(), "Progress"))
	require.Len(t, api.edits, 1)
	assert.Equal(t, 501, api.edits[0].ID)
	assert.Equal(t, "Progress", api.edits[0].Message)

	api.editErr = tgerr.New(400, "MESSAGE_NOT_MODIFIED")
	assert.NoError(t, status.Edit(context.Background(), "Progress"))

	api.editErr = tgerr.New(400, "MESSAGE_ID_INVALID")
	assert.Error(t, status.Edit(context.Background(), "Progress"))
}

func TestSentMessageID(t *testing.T) {
	id, ok := sentMessageID(&tg.Updates{Updates: []tg.UpdateClass{
		&tg.UpdateMessageID{ID: 7, RandomID: 1},
		&tg.UpdateMessageID{ID: 8, RandomID: 2},
	}}, 2)
	assert.True(t, ok)
	assert.Equal(t, 8, id)

	id, ok = sentMessageID(&tg.Updates{Updates: []tg.UpdateClass{
		&tg.UpdateNewChannelMessage{Message: &tg.Message{ID: 9}},
	}}, 5)
	assert.True(t, ok)
	assert.Equal(t, 9, id)

	_, ok = sentMessageID(&tg.UpdatesTooLong{}, 1)
	assert.False(t, ok)
}

func TestMapInviteError_Passthrough(t *testing.T) {
	assert.Nil(t, mapInviteError(nil))

	plain := errors.New("network down")
	assert.Same(t, plain, mapInviteError(plain))
}
