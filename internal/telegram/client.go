// Package telegram provides the MTProto transport used by the agent: group
// resolution, member listing, invites and editable status messages.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/blockedby/tg-inviter/internal/logger"
)

// participantsPageSize is the largest page channels.getParticipants accepts.
const participantsPageSize = 200

// API is the subset of *tg.Client the transport calls.
type API interface {
	ContactsResolveUsername(ctx context.Context, request *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error)
	MessagesCheckChatInvite(ctx context.Context, hash string) (tg.ChatInviteClass, error)
	ChannelsGetParticipants(ctx context.Context, request *tg.ChannelsGetParticipantsRequest) (tg.ChannelsChannelParticipantsClass, error)
	MessagesGetFullChat(ctx context.Context, chatID int64) (*tg.MessagesChatFull, error)
	ChannelsInviteToChannel(ctx context.Context, request *tg.ChannelsInviteToChannelRequest) (*tg.MessagesInvitedUsers, error)
	MessagesAddChatUser(ctx context.Context, request *tg.MessagesAddChatUserRequest) (*tg.MessagesInvitedUsers, error)
	MessagesSendMessage(ctx context.Context, request *tg.MessagesSendMessageRequest) (tg.UpdatesClass, error)
	MessagesEditMessage(ctx context.Context, request *tg.MessagesEditMessageRequest) (tg.UpdatesClass, error)
}

// Client wraps the raw API with rate limiting and error mapping.
type Client struct {
	api         API
	rateLimiter *RateLimiter
	log         *logger.Logger
}

// NewClient creates a transport over api.
func NewClient(api API, rateLimiter *RateLimiter) *Client {
	if rateLimiter == nil {
		rateLimiter = DefaultRateLimiter()
	}
	return &Client{
		api:         api,
		rateLimiter: rateLimiter,
		log:         logger.Get(),
	}
}

// wait applies the rate limiter before a call.
func (c *Client) wait(ctx context.Context) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.log.Error().Err(err).Msg("telegram: rate limiter wait failed")
		return err
	}
	return nil
}

// noteFloodWait pushes a FLOOD_WAIT deadline into the limiter.
func (c *Client) noteFloodWait(err error) {
	if d, ok := tgerr.AsFloodWait(err); ok {
		c.log.Warn().Dur("wait", d).Msg("telegram: FLOOD_WAIT detected, updating rate limiter")
		c.rateLimiter.SetFloodWait(d)
	}
}

// refKind is the shape of a textual group reference.
type refKind int

const (
	refUsername refKind = iota + 1
	refInvite
)

// parseRef accepts @name, name, t.me/name, t.me/+hash and t.me/joinchat/hash.
func parseRef(ref string) (refKind, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, "", ErrBadReference
	}

	if strings.HasPrefix(ref, "@") {
		name := strings.TrimPrefix(ref, "@")
		if name == "" {
			return 0, "", ErrBadReference
		}
		return refUsername, name, nil
	}

	raw := ref
	if !strings.Contains(raw, "://") && (strings.HasPrefix(raw, "t.me/") || strings.HasPrefix(raw, "telegram.me/")) {
		raw = "https://" + raw
	}
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return 0, "", fmt.Errorf("%w: %v", ErrBadReference, err)
		}
		host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
		if host != "t.me" && host != "telegram.me" {
			return 0, "", fmt.Errorf("%w: unknown host %q", ErrBadReference, u.Host)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		switch {
		case len(parts) >= 2 && parts[0] == "joinchat" && parts[1] != "":
			return refInvite, parts[1], nil
		case len(parts) >= 1 && strings.HasPrefix(parts[0], "+") && len(parts[0]) > 1:
			return refInvite, parts[0][1:], nil
		case len(parts) >= 1 && parts[0] != "":
			return refUsername, parts[0], nil
		}
		return 0, "", ErrBadReference
	}

	if strings.ContainsAny(ref, " /") {
		return 0, "", ErrBadReference
	}
	return refUsername, ref, nil
}

// ResolveGroup resolves a textual reference to a group.
func (c *Client) ResolveGroup(ctx context.Context, ref string) (*Group, error) {
	kind, value, err := parseRef(ref)
	if err != nil {
		return nil, err
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	switch kind {
	case refInvite:
		return c.resolveInvite(ctx, value)
	default:
		return c.resolveUsername(ctx, value)
	}
}

func (c *Client) resolveUsername(ctx context.Context, username string) (*Group, error) {
	c.log.Info().Str("username", username).Msg("telegram: resolving username")

	resolved, err := c.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		c.noteFloodWait(err)
		c.log.Error().Err(err).Str("username", username).Msg("telegram: failed to resolve username")
		return nil, fmt.Errorf("resolve username %s: %w", username, mapResolveError(err))
	}

	var wantID int64
	switch p := resolved.Peer.(type) {
	case *tg.PeerChannel:
		wantID = p.ChannelID
	case *tg.PeerChat:
		wantID = p.ChatID
	default:
		return nil, fmt.Errorf("resolve username %s: %w", username, ErrNotGroup)
	}

	for _, chat := range resolved.Chats {
		if chatID(chat) != wantID {
			continue
		}
		g, err := groupFromChat(chat)
		if err != nil {
			return nil, fmt.Errorf("resolve username %s: %w", username, err)
		}
		if g.Username == "" {
			g.Username = username
		}
		return g, nil
	}
	return nil, fmt.Errorf("resolve username %s: %w", username, ErrNotFound)
}

func (c *Client) resolveInvite(ctx context.Context, hash string) (*Group, error) {
	c.log.Info().Msg("telegram: resolving invite link")

	invite, err := c.api.MessagesCheckChatInvite(ctx, hash)
	if err != nil {
		c.noteFloodWait(err)
		return nil, fmt.Errorf("check invite: %w", mapResolveError(err))
	}

	switch inv := invite.(type) {
	case *tg.ChatInviteAlready:
		return groupFromChat(inv.Chat)
	case *tg.ChatInvitePeek:
		return groupFromChat(inv.Chat)
	default:
		return nil, fmt.Errorf("check invite: %w", ErrNotMember)
	}
}

func chatID(chat tg.ChatClass) int64 {
	switch ch := chat.(type) {
	case *tg.Channel:
		return ch.ID
	case *tg.Chat:
		return ch.ID
	case *tg.ChannelForbidden:
		return ch.ID
	case *tg.ChatForbidden:
		return ch.ID
	}
	return 0
}

// groupFromChat converts a chat constructor to a Group.
func groupFromChat(chat tg.ChatClass) (*Group, error) {
	switch ch := chat.(type) {
	case *tg.Channel:
		return &Group{
			Kind:       GroupChannel,
			ID:         ch.ID,
			AccessHash: ch.AccessHash,
			Username:   ch.Username,
			Title:      ch.Title,
		}, nil
	case *tg.Chat:
		if ch.Deactivated {
			return nil, fmt.Errorf("chat %d was migrated to a supergroup: %w", ch.ID, ErrForbidden)
		}
		return &Group{
			Kind:  GroupChat,
			ID:    ch.ID,
			Title: ch.Title,
		}, nil
	case *tg.ChannelForbidden, *tg.ChatForbidden:
		return nil, ErrForbidden
	}
	return nil, ErrNotGroup
}

// ListMembers returns the full membership of g in server order.
func (c *Client) ListMembers(ctx context.Context, g *Group) ([]Member, error) {
	switch g.Kind {
	case GroupChannel:
		return c.listChannelMembers(ctx, g)
	case GroupChat:
		return c.listChatMembers(ctx, g)
	}
	return nil, fmt.Errorf("list members: %w", ErrNotGroup)
}

func (c *Client) listChannelMembers(ctx context.Context, g *Group) ([]Member, error) {
	var members []Member
	seen := make(map[int64]struct{})
	offset := 0

	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		c.log.Debug().Int64("channel_id", g.ID).Int("offset", offset).Msg("telegram: calling ChannelsGetParticipants")
		res, err := c.api.ChannelsGetParticipants(ctx, &tg.ChannelsGetParticipantsRequest{
			Channel: &tg.InputChannel{ChannelID: g.ID, AccessHash: g.AccessHash},
			Filter:  &tg.ChannelParticipantsRecent{},
			Offset:  offset,
			Limit:   participantsPageSize,
		})
		if err != nil {
			c.noteFloodWait(err)
			c.log.Error().Err(err).Int("offset", offset).Msg("telegram: ChannelsGetParticipants failed")
			return nil, fmt.Errorf("get participants: %w", mapResolveError(err))
		}

		page, ok := res.(*tg.ChannelsChannelParticipants)
		if !ok || len(page.Participants) == 0 {
			break
		}

		users := indexUsers(page.Users)
		for _, p := range page.Participants {
			id, ok := participantUserID(p)
			if !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			if u, ok := users[id]; ok {
				seen[id] = struct{}{}
				members = append(members, memberFromUser(u))
			}
		}

		offset += len(page.Participants)
		if offset >= page.Count {
			break
		}
	}

	c.log.Info().Int64("channel_id", g.ID).Int("members", len(members)).Msg("telegram: listed channel members")
	return members, nil
}

func (c *Client) listChatMembers(ctx context.Context, g *Group) ([]Member, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	full, err := c.api.MessagesGetFullChat(ctx, g.ID)
	if err != nil {
		c.noteFloodWait(err)
		return nil, fmt.Errorf("get full chat: %w", mapResolveError(err))
	}

	chatFull, ok := full.FullChat.(*tg.ChatFull)
	if !ok {
		return nil, fmt.Errorf("get full chat: unexpected type %T", full.FullChat)
	}
	parts, ok := chatFull.Participants.(*tg.ChatParticipants)
	if !ok {
		return nil, fmt.Errorf("get full chat: participant list hidden: %w", ErrForbidden)
	}

	users := indexUsers(full.Users)
	members := make([]Member, 0, len(parts.Participants))
	for _, p := range parts.Participants {
		var id int64
		switch cp := p.(type) {
		case *tg.ChatParticipant:
			id = cp.UserID
		case *tg.ChatParticipantCreator:
			id = cp.UserID
		case *tg.ChatParticipantAdmin:
			id = cp.UserID
		default:
			continue
		}
		if u, ok := users[id]; ok {
			members = append(members, memberFromUser(u))
		}
	}
	return members, nil
}

func participantUserID(p tg.ChannelParticipantClass) (int64, bool) {
	switch cp := p.(type) {
	case *tg.ChannelParticipant:
		return cp.UserID, true
	case *tg.ChannelParticipantSelf:
		return cp.UserID, true
	case *tg.ChannelParticipantCreator:
		return cp.UserID, true
	case *tg.ChannelParticipantAdmin:
		return cp.UserID, true
	}
	// banned and left entries are not members
	return 0, false
}

func indexUsers(list []tg.UserClass) map[int64]*tg.User {
	users := make(map[int64]*tg.User, len(list))
	for _, u := range list {
		if user, ok := u.(*tg.User); ok {
			users[user.ID] = user
		}
	}
	return users
}

func memberFromUser(u *tg.User) Member {
	return Member{
		ID:         u.ID,
		AccessHash: u.AccessHash,
		Username:   u.Username,
		Bot:        u.Bot,
		Deleted:    u.Deleted,
		Self:       u.Self,
	}
}

// InviteMember adds m to g. Errors are mapped to the package sentinels;
// a member the server silently refused (missing invitee) is reported as
// ErrPrivacyRestricted.
//
// FLOOD_WAIT from an invite is left to the caller and does not hold back
// other calls such as status edits.
func (c *Client) InviteMember(ctx context.Context, g *Group, m Member) error {
	if err := c.rateLimiter.limiter.Wait(ctx); err != nil {
		return err
	}

	user := &tg.InputUser{UserID: m.ID, AccessHash: m.AccessHash}

	var (
		res *tg.MessagesInvitedUsers
		err error
	)
	switch g.Kind {
	case GroupChannel:
		res, err = c.api.ChannelsInviteToChannel(ctx, &tg.ChannelsInviteToChannelRequest{
			Channel: &tg.InputChannel{ChannelID: g.ID, AccessHash: g.AccessHash},
			Users:   []tg.InputUserClass{user},
		})
	case GroupChat:
		res, err = c.api.MessagesAddChatUser(ctx, &tg.MessagesAddChatUserRequest{
			ChatID: g.ID,
			UserID: user,
		})
	default:
		return fmt.Errorf("invite: %w", ErrNotGroup)
	}
	if err != nil {
		return fmt.Errorf("invite user %d: %w", m.ID, mapInviteError(err))
	}

	if res != nil && len(res.MissingInvitees) > 0 {
		return fmt.Errorf("invite user %d: %w", m.ID, ErrPrivacyRestricted)
	}
	return nil
}

// ChatFor returns a Chat that replies to message replyTo in peer.
func (c *Client) ChatFor(peer tg.InputPeerClass, replyTo int) Chat {
	return &chat{client: c, peer: peer, replyTo: replyTo}
}

type chat struct {
	client  *Client
	peer    tg.InputPeerClass
	replyTo int
}

// Reply sends text as a reply and returns the message as editable status.
func (ch *chat) Reply(ctx context.Context, text string) (StatusMessage, error) {
	if err := ch.client.wait(ctx); err != nil {
		return nil, err
	}

	req := &tg.MessagesSendMessageRequest{
		Peer:     ch.peer,
		Message:  text,
		RandomID: rand.Int64(),
	}
	if ch.replyTo != 0 {
		req.ReplyTo = &tg.InputReplyToMessage{ReplyToMsgID: ch.replyTo}
	}

	upd, err := ch.client.api.MessagesSendMessage(ctx, req)
	if err != nil {
		ch.client.noteFloodWait(err)
		return nil, fmt.Errorf("send message: %w", err)
	}

	id, ok := sentMessageID(upd, req.RandomID)
	if !ok {
		return nil, errors.New("send message: no message id in response")
	}

	return &statusMessage{client: ch.client, peer: ch.peer, id: id}, nil
}

// sentMessageID finds the id of the message sent with randomID.
func sentMessageID(upd tg.UpdatesClass, randomID int64) (int, bool) {
	var updates []tg.UpdateClass
	switch u := upd.(type) {
	case *tg.UpdateShortSentMessage:
		return u.ID, true
	case *tg.Updates:
		updates = u.Updates
	case *tg.UpdatesCombined:
		updates = u.Updates
	default:
		return 0, false
	}

	for _, update := range updates {
		if m, ok := update.(*tg.UpdateMessageID); ok && m.RandomID == randomID {
			return m.ID, true
		}
	}
	// fall back to the first new message in the batch
	for _, update := range updates {
		switch u := update.(type) {
		case *tg.UpdateNewMessage:
			if m, ok := u.Message.(*tg.Message); ok {
				return m.ID, true
			}
		case *tg.UpdateNewChannelMessage:
			if m, ok := u.Message.(*tg.Message); ok {
				return m.ID, true
			}
		}
	}
	return 0, false
}

type statusMessage struct {
	client *Client
	peer   tg.InputPeerClass
	id     int
}

// Edit replaces the message text. An unchanged text is not an error.
func (s *statusMessage) Edit(ctx context.Context, text string) error {
	if err := s.client.wait(ctx); err != nil {
		return err
	}

	_, err := s.client.api.MessagesEditMessage(ctx, &tg.MessagesEditMessageRequest{
		Peer:    s.peer,
		ID:      s.id,
		Message: text,
	})
	if err != nil {
		if tgerr.Is(err, "MESSAGE_NOT_MODIFIED") {
			return nil
		}
		s.client.noteFloodWait(err)
		return fmt.Errorf("edit message %d: %w", s.id, err)
	}
	return nil
}
