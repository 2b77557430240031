package chat

import (
	"context"
	"encoding/json"

	"realchat/module/chat/model"
	"realchat/tools/decode"
	"realchat/tools/errs"
)

// ===== viewing markers =====

type viewingPayload struct {
	ThreadID string `json:"threadId"`
}

// handleViewingThread records the advisory "reading this thread right now"
// marker on the connection. It only suppresses unseen bumps for messages
// that arrive while set; it never mutates stored state.
func (s *Server) handleViewingThread(_ context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[viewingPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if p.ThreadID == "" {
		return errs.ErrMissingField.WithDetail("threadId")
	}
	c.SetViewing(p.ThreadID)
	return nil
}

func (s *Server) handleLeaveThread(_ context.Context, c *Client, _ json.RawMessage) error {
	c.SetViewing("")
	return nil
}

// ===== pull-based snapshots =====

// handleGetContacts pushes every other known user with their online flag.
func (s *Server) handleGetContacts(ctx context.Context, c *Client, _ json.RawMessage) error {
	users, err := s.st.Users.ListOthers(ctx, c.UserID)
	if err != nil {
		return err
	}
	out := make([]model.Summary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary(s.presence.IsOnline(u.UserID)))
	}
	c.Push(BuildFrame(EvContacts, out))

	sidebar, err := s.conversationSummaries(ctx, c.UserID)
	if err != nil {
		return err
	}
	c.Push(BuildFrame(EvConversation, sidebar))
	return nil
}

// handleGetFriends pushes the caller's friend list and pending inbound
// requests.
func (s *Server) handleGetFriends(ctx context.Context, c *Client, _ json.RawMessage) error {
	if err := s.pushFriendList(ctx, c.UserID); err != nil {
		return err
	}
	return s.pushPendingRequests(ctx, c.UserID)
}

func (s *Server) handleGetUserGroups(ctx context.Context, c *Client, _ json.RawMessage) error {
	sidebar, err := s.groupSummaries(ctx, c.UserID)
	if err != nil {
		return err
	}
	c.Push(BuildFrame(EvUserGroups, sidebar))
	return nil
}
