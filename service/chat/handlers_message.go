package chat

import (
	"context"
	"encoding/json"
	"time"

	"realchat/module/chat/model"
	"realchat/tools/decode"
	"realchat/tools/errs"
	"realchat/tools/ids"
)

// ===== thread open / history =====

type openThreadPayload struct {
	ThreadID string `json:"threadId"`
	PeerID   string `json:"peerId"`
}

// handleOpenThread pushes the viewer's filtered history of a thread. Opening
// by peer id also works before any conversation exists: the client gets the
// peer summary and an empty history, and the conversation document is only
// created by the first send.
func (s *Server) handleOpenThread(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[openThreadPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}

	if p.PeerID != "" {
		return s.openPeerThread(ctx, c, p.PeerID)
	}
	if p.ThreadID == "" {
		return errs.ErrMissingField.WithDetail("threadId or peerId")
	}

	conv, g, err := s.resolveThread(ctx, p.ThreadID)
	if err != nil {
		return err
	}
	if conv != nil {
		if !conv.HasParticipant(c.UserID) {
			return errs.ErrNotParticipant.WithRef(conv.ConversationID)
		}
		return s.openPeerThread(ctx, c, conv.Counterpart(c.UserID))
	}
	if !g.IsMember(c.UserID) {
		return errs.ErrNotMember.WithRef(g.GroupID)
	}
	view, err := s.threadViewFor(ctx, g.MessageIDs, c.UserID)
	if err != nil {
		return err
	}
	c.Push(BuildFrame(EvGroupInfo, s.groupInfoOf(g, c.UserID)))
	c.Push(BuildFrame(EvGroupMessage, map[string]any{
		"groupId":  g.GroupID,
		"messages": view,
	}))
	return nil
}

func (s *Server) openPeerThread(ctx context.Context, c *Client, peerID string) error {
	peer, err := s.st.Users.Get(ctx, peerID)
	if err != nil {
		return err
	}

	conversationID := ""
	var view []*model.Message
	if conv, err := s.st.Convs.FindByPair(ctx, c.UserID, peerID); err == nil {
		conversationID = conv.ConversationID
		if view, err = s.threadViewFor(ctx, conv.MessageIDs, c.UserID); err != nil {
			return err
		}
	}

	c.Push(BuildFrame(EvMessageUser, map[string]any{
		"peer":           peer.Summary(s.presence.IsOnline(peerID)),
		"conversationId": conversationID,
	}))
	c.Push(BuildFrame(EvMessage, map[string]any{
		"conversationId": conversationID,
		"messages":       view,
	}))
	return nil
}

func (s *Server) groupInfoOf(g *model.GroupChat, viewerID string) GroupSummary {
	return GroupSummary{
		GroupID:      g.GroupID,
		Name:         g.Name,
		AvatarURL:    g.AvatarURL,
		CreatorID:    g.CreatorID,
		MemberIDs:    g.MemberIDs,
		Unseen:       g.Unseen[viewerID].Count,
		LastActivity: g.LastActivity,
	}
}

// ===== send / forward =====

type sendMessagePayload struct {
	ThreadID string `json:"threadId"`
	PeerID   string `json:"peerId"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl"`
	VideoURL string `json:"videoUrl"`
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	ReplyTo  string `json:"replyTo"`
}

func (s *Server) handleSendMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[sendMessagePayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}

	msg := &model.Message{
		MsgID:      ids.GenerateString(),
		SenderID:   c.UserID,
		Text:       p.Text,
		ImageURL:   p.ImageURL,
		VideoURL:   p.VideoURL,
		FileURL:    p.FileURL,
		FileName:   p.FileName,
		ReplyTo:    p.ReplyTo,
		CreateTime: time.Now().UTC(),
	}
	if !msg.HasContent() {
		return errs.ErrEmptyMessage
	}
	return s.deliver(ctx, c, msg, p.ThreadID, p.PeerID)
}

type forwardPayload struct {
	MsgID    string `json:"msgId"`
	ThreadID string `json:"threadId"`
	PeerID   string `json:"peerId"`
}

// handleForwardMessage creates a fresh message in the target thread carrying
// the original content and a provenance pointer. Forwarding back into the
// source thread is rejected, as is forwarding a recalled message.
func (s *Server) handleForwardMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[forwardPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if p.MsgID == "" {
		return errs.ErrMissingField.WithDetail("msgId")
	}

	orig, err := s.st.Msgs.Get(ctx, p.MsgID)
	if err != nil {
		return err
	}
	if orig.Recalled {
		return errs.ErrBadPayload.WithDetail("cannot forward a recalled message").WithRef(orig.MsgID)
	}
	if p.ThreadID != "" && p.ThreadID == orig.ThreadID {
		return errs.ErrSelfForward.WithRef(orig.ThreadID)
	}

	msg := &model.Message{
		MsgID:       ids.GenerateString(),
		SenderID:    c.UserID,
		Text:        orig.Text,
		ImageURL:    orig.ImageURL,
		VideoURL:    orig.VideoURL,
		FileURL:     orig.FileURL,
		FileName:    orig.FileName,
		ForwardFrom: orig.MsgID,
		CreateTime:  time.Now().UTC(),
	}
	return s.deliverForward(ctx, c, msg, orig.ThreadID, p.ThreadID, p.PeerID)
}

// deliver routes a new message into its thread: appends, bumps the last
// pointer and fans the refreshed views out to the audience. The direct path
// re-checks mutual friendship at send time; the group path requires current
// membership.
func (s *Server) deliver(ctx context.Context, c *Client, msg *model.Message, threadID, peerID string) error {
	if peerID != "" && threadID == "" {
		conv, err := s.directThreadWith(ctx, c.UserID, peerID)
		if err != nil {
			return err
		}
		return s.deliverDirect(ctx, c, msg, conv)
	}
	if threadID == "" {
		return errs.ErrMissingField.WithDetail("threadId or peerId")
	}

	conv, g, err := s.resolveThread(ctx, threadID)
	if err != nil {
		return err
	}
	if conv != nil {
		if !conv.HasParticipant(c.UserID) {
			return errs.ErrNotParticipant.WithRef(conv.ConversationID)
		}
		if err := s.requireFriendship(ctx, c.UserID, conv.Counterpart(c.UserID)); err != nil {
			return err
		}
		return s.deliverDirect(ctx, c, msg, conv)
	}
	if !g.IsMember(c.UserID) {
		return errs.ErrNotMember.WithRef(g.GroupID)
	}
	return s.deliverGroup(ctx, c, msg, g)
}

// deliverForward is deliver plus the self-forward guard on the peer path,
// where the target conversation id is only known after pair resolution.
func (s *Server) deliverForward(ctx context.Context, c *Client, msg *model.Message, sourceThreadID, threadID, peerID string) error {
	if peerID != "" && threadID == "" {
		conv, err := s.directThreadWith(ctx, c.UserID, peerID)
		if err != nil {
			return err
		}
		if conv.ConversationID == sourceThreadID {
			return errs.ErrSelfForward.WithRef(sourceThreadID)
		}
		return s.deliverDirect(ctx, c, msg, conv)
	}
	return s.deliver(ctx, c, msg, threadID, peerID)
}

// directThreadWith resolves (or lazily creates) the single conversation of a
// pair, after verifying mutual friendship.
func (s *Server) directThreadWith(ctx context.Context, userID, peerID string) (*model.Conversation, error) {
	if _, err := s.st.Users.Get(ctx, peerID); err != nil {
		return nil, err
	}
	if err := s.requireFriendship(ctx, userID, peerID); err != nil {
		return nil, err
	}
	return s.st.Convs.FindOrCreate(ctx, userID, peerID)
}

func (s *Server) requireFriendship(ctx context.Context, userID, peerID string) error {
	u, err := s.st.Users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !u.IsFriend(peerID) {
		return errs.ErrNotFriends.WithRef(peerID)
	}
	return nil
}

func (s *Server) deliverDirect(ctx context.Context, c *Client, msg *model.Message, conv *model.Conversation) error {
	msg.ThreadID = conv.ConversationID
	if err := s.st.Msgs.Insert(ctx, msg); err != nil {
		return err
	}
	if err := s.st.Convs.AppendMessage(ctx, conv.ConversationID, msg.MsgID); err != nil {
		return err
	}
	s.fanDirect(conv.ConversationID, conv.UserA, conv.UserB)
	c.Push(BuildSuccessFrame(EvSendMessage, map[string]any{
		"msgId":          msg.MsgID,
		"conversationId": conv.ConversationID,
	}))
	return nil
}

func (s *Server) deliverGroup(ctx context.Context, c *Client, msg *model.Message, g *model.GroupChat) error {
	msg.ThreadID = g.GroupID
	if err := s.st.Msgs.Insert(ctx, msg); err != nil {
		return err
	}
	if err := s.st.Groups.AppendMessage(ctx, g.GroupID, msg.MsgID); err != nil {
		return err
	}
	// Members with an active viewing marker for this group are reading it
	// right now, so their counters stay put.
	bump := g.UnseenFor(msg.SenderID, s.conns.ViewersOf(g.GroupID))
	if err := s.st.Groups.IncrementUnseen(ctx, g.GroupID, bump); err != nil {
		return err
	}
	s.fanGroup(g.GroupID, g.MemberIDs)
	c.Push(BuildSuccessFrame(EvSendMessage, map[string]any{
		"msgId":   msg.MsgID,
		"groupId": g.GroupID,
	}))
	return nil
}

// ===== reactions =====

type reactPayload struct {
	MsgID string `json:"msgId"`
	Emoji string `json:"emoji"`
}

// handleReact toggles the actor's reaction: same emoji removes it, a
// different one replaces it, none adds it. The toggle decision is a read
// followed by a keyed write, so two simultaneous toggles by the same user
// may land either way; the keyed map still never holds more than one
// reaction per user.
func (s *Server) handleReact(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[reactPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if p.MsgID == "" || p.Emoji == "" {
		return errs.ErrMissingField.WithDetail("msgId, emoji")
	}

	msg, audience, err := s.messageAudience(ctx, c.UserID, p.MsgID)
	if err != nil {
		return err
	}
	if msg.Recalled {
		return errs.ErrMessageNotFound.WithRef(msg.MsgID).WithDetail("message was recalled")
	}

	updated, removed := model.ToggleReaction(msg.Reactions, c.UserID, p.Emoji)
	if removed {
		err = s.st.Msgs.RemoveReaction(ctx, msg.MsgID, c.UserID)
	} else {
		err = s.st.Msgs.SetReaction(ctx, msg.MsgID, c.UserID, p.Emoji)
	}
	if err != nil {
		return err
	}
	s.broadcastReaction(msg, updated, audience)
	return nil
}

type removeReactionPayload struct {
	MsgID string `json:"msgId"`
}

func (s *Server) handleRemoveReaction(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[removeReactionPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if p.MsgID == "" {
		return errs.ErrMissingField.WithDetail("msgId")
	}

	msg, audience, err := s.messageAudience(ctx, c.UserID, p.MsgID)
	if err != nil {
		return err
	}
	if err := s.st.Msgs.RemoveReaction(ctx, msg.MsgID, c.UserID); err != nil {
		return err
	}
	updated := msg.Reactions
	delete(updated, c.UserID)
	s.broadcastReaction(msg, updated, audience)
	return nil
}

// messageAudience loads a message and verifies the actor belongs to its
// thread, returning the user ids that should see updates to it.
func (s *Server) messageAudience(ctx context.Context, userID, msgID string) (*model.Message, []string, error) {
	msg, err := s.st.Msgs.Get(ctx, msgID)
	if err != nil {
		return nil, nil, err
	}
	conv, g, err := s.resolveThread(ctx, msg.ThreadID)
	if err != nil {
		return nil, nil, err
	}
	if conv != nil {
		if !conv.HasParticipant(userID) {
			return nil, nil, errs.ErrNotParticipant.WithRef(conv.ConversationID)
		}
		return msg, []string{conv.UserA, conv.UserB}, nil
	}
	if !g.IsMember(userID) {
		return nil, nil, errs.ErrNotMember.WithRef(g.GroupID)
	}
	return msg, g.MemberIDs, nil
}

func (s *Server) broadcastReaction(msg *model.Message, reactions map[string]string, audience []string) {
	if reactions == nil {
		reactions = map[string]string{}
	}
	payload := BuildFrame(EvReactionUpdate, map[string]any{
		"msgId":     msg.MsgID,
		"threadId":  msg.ThreadID,
		"reactions": reactions,
	})
	for _, uid := range audience {
		s.pushToUser(uid, payload)
	}
}

// ===== recall / soft delete =====

type recallPayload struct {
	MsgID string `json:"msgId"`
}

// handleRecallMessage hides a message's payload globally, sender only. The
// message keeps its slot in the sequence; the thread's last-message pointer
// is advanced past any recalled tail.
func (s *Server) handleRecallMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[recallPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if p.MsgID == "" {
		return errs.ErrMissingField.WithDetail("msgId")
	}

	msg, err := s.st.Msgs.Get(ctx, p.MsgID)
	if err != nil {
		return err
	}
	if msg.SenderID != c.UserID {
		return errs.ErrNotSender.WithRef(msg.MsgID)
	}
	if err := s.st.Msgs.SetRecalled(ctx, msg.MsgID); err != nil {
		return err
	}

	conv, g, err := s.resolveThread(ctx, msg.ThreadID)
	if err != nil {
		return err
	}
	if conv != nil {
		if err := s.rollLastPointer(ctx, conv.MessageIDs, func(id string) error {
			return s.st.Convs.SetLastMessage(ctx, conv.ConversationID, id)
		}); err != nil {
			return err
		}
		s.fanDirect(conv.ConversationID, conv.UserA, conv.UserB)
		return nil
	}
	if err := s.rollLastPointer(ctx, g.MessageIDs, func(id string) error {
		return s.st.Groups.SetLastMessage(ctx, g.GroupID, id)
	}); err != nil {
		return err
	}
	s.fanGroup(g.GroupID, g.MemberIDs)
	return nil
}

// rollLastPointer re-derives the last-message pointer as the newest
// non-recalled message; empty when everything is recalled.
func (s *Server) rollLastPointer(ctx context.Context, msgIDs []string, set func(id string) error) error {
	msgs, err := s.st.Msgs.GetMany(ctx, msgIDs)
	if err != nil {
		return err
	}
	last := ""
	if m := LastVisible(msgs); m != nil {
		last = m.MsgID
	}
	return set(last)
}

type deleteMessagePayload struct {
	MsgID string `json:"msgId"`
}

// handleDeleteMessage hides a message from the deleting viewer only. Other
// participants' views are untouched, so only the actor's own connections
// get the recomputed sequence.
func (s *Server) handleDeleteMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[deleteMessagePayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if p.MsgID == "" {
		return errs.ErrMissingField.WithDetail("msgId")
	}

	msg, _, err := s.messageAudience(ctx, c.UserID, p.MsgID)
	if err != nil {
		return err
	}
	if err := s.st.Users.AddDeletedMessage(ctx, c.UserID, msg.MsgID); err != nil {
		return err
	}

	conv, g, err := s.resolveThread(ctx, msg.ThreadID)
	if err != nil {
		return err
	}
	if conv != nil {
		view, err := s.threadViewFor(ctx, conv.MessageIDs, c.UserID)
		if err != nil {
			return err
		}
		s.pushToUser(c.UserID, BuildFrame(EvMessage, map[string]any{
			"conversationId": conv.ConversationID,
			"messages":       view,
		}))
		sidebar, err := s.conversationSummaries(ctx, c.UserID)
		if err != nil {
			return err
		}
		s.pushToUser(c.UserID, BuildFrame(EvConversation, sidebar))
		return nil
	}
	view, err := s.threadViewFor(ctx, g.MessageIDs, c.UserID)
	if err != nil {
		return err
	}
	s.pushToUser(c.UserID, BuildFrame(EvGroupMessage, map[string]any{
		"groupId":  g.GroupID,
		"messages": view,
	}))
	return nil
}

// ===== search / seen =====

type searchPayload struct {
	ThreadID string `json:"threadId"`
	Query    string `json:"query"`
}

func (s *Server) handleSearchMessages(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[searchPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if p.ThreadID == "" {
		return errs.ErrMissingField.WithDetail("threadId")
	}

	conv, g, err := s.resolveThread(ctx, p.ThreadID)
	if err != nil {
		return err
	}
	var msgIDs []string
	switch {
	case conv != nil:
		if !conv.HasParticipant(c.UserID) {
			return errs.ErrNotParticipant.WithRef(conv.ConversationID)
		}
		msgIDs = conv.MessageIDs
	default:
		if !g.IsMember(c.UserID) {
			return errs.ErrNotMember.WithRef(g.GroupID)
		}
		msgIDs = g.MessageIDs
	}

	deleted, err := s.deletedSetOf(ctx, c.UserID)
	if err != nil {
		return err
	}
	msgs, err := s.st.Msgs.GetMany(ctx, msgIDs)
	if err != nil {
		return err
	}
	c.Push(BuildFrame(EvSearchResult, map[string]any{
		"threadId": p.ThreadID,
		"query":    p.Query,
		"messages": SearchView(msgs, deleted, p.Query),
	}))
	return nil
}

type markSeenPayload struct {
	ThreadID string `json:"threadId"`
}

// handleMarkSeen acknowledges a thread: a direct thread flags the
// counterpart's messages as seen, a group thread resets the caller's unread
// counter. Either way only the caller's own sidebar changes.
func (s *Server) handleMarkSeen(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[markSeenPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if p.ThreadID == "" {
		return errs.ErrMissingField.WithDetail("threadId")
	}

	conv, g, err := s.resolveThread(ctx, p.ThreadID)
	if err != nil {
		return err
	}
	if conv != nil {
		if !conv.HasParticipant(c.UserID) {
			return errs.ErrNotParticipant.WithRef(conv.ConversationID)
		}
		if err := s.st.Msgs.MarkSeenFrom(ctx, conv.MessageIDs, conv.Counterpart(c.UserID)); err != nil {
			return err
		}
		sidebar, err := s.conversationSummaries(ctx, c.UserID)
		if err != nil {
			return err
		}
		s.pushToUser(c.UserID, BuildFrame(EvConversation, sidebar))
		return nil
	}
	if !g.IsMember(c.UserID) {
		return errs.ErrNotMember.WithRef(g.GroupID)
	}
	if err := s.st.Groups.ResetUnseen(ctx, g.GroupID, c.UserID, g.LastMsgID); err != nil {
		return err
	}
	sidebar, err := s.groupSummaries(ctx, c.UserID)
	if err != nil {
		return err
	}
	s.pushToUser(c.UserID, BuildFrame(EvUserGroups, sidebar))
	return nil
}
