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

// ===== friend request workflow =====

type sendFriendReqPayload struct {
	ToUserID string `json:"toUserId"`
}

// handleSendFriendRequest creates a pending request. Any prior record
// between the pair, in either direction, is cleared first so at most one
// pending request exists per unordered pair.
func (s *Server) handleSendFriendRequest(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[sendFriendReqPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if p.ToUserID == "" {
		return errs.ErrMissingField.WithDetail("toUserId")
	}
	if p.ToUserID == c.UserID {
		return errs.ErrSelfRequest
	}

	if _, err := s.st.Users.Get(ctx, p.ToUserID); err != nil {
		return err
	}
	me, err := s.st.Users.Get(ctx, c.UserID)
	if err != nil {
		return err
	}
	if me.IsFriend(p.ToUserID) {
		return errs.ErrAlreadyFriends.WithRef(p.ToUserID)
	}

	if err := s.st.Friends.DeletePair(ctx, c.UserID, p.ToUserID); err != nil {
		return err
	}
	req := &model.FriendRequest{
		RequestID:  ids.GenerateString(),
		FromUserID: c.UserID,
		ToUserID:   p.ToUserID,
		Status:     model.RequestPending,
		CreateTime: time.Now().UTC(),
	}
	if err := s.st.Friends.Insert(ctx, req); err != nil {
		return err
	}

	s.pushToUser(p.ToUserID, BuildFrame(EvNewFriendReq, map[string]any{
		"requestId": req.RequestID,
		"from":      me.Summary(true),
	}))
	if err := s.pushPendingRequests(ctx, p.ToUserID); err != nil {
		return err
	}
	c.Push(BuildSuccessFrame(EvSendFriendReq, map[string]any{"requestId": req.RequestID}))
	return nil
}

type respondFriendReqPayload struct {
	RequestID string `json:"requestId"`
	Accept    bool   `json:"accept"`
}

// handleRespondFriendRequest resolves a pending request, receiver only.
// Accept inserts the edge on both user documents (two set-inserts, not a
// transaction; re-accepting converges because $addToSet is idempotent),
// then the request record is deleted either way.
func (s *Server) handleRespondFriendRequest(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[respondFriendReqPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if p.RequestID == "" {
		return errs.ErrMissingField.WithDetail("requestId")
	}

	req, err := s.st.Friends.Get(ctx, p.RequestID)
	if err != nil {
		return err
	}
	if req.ToUserID != c.UserID {
		return errs.ErrNotReceiver.WithRef(req.RequestID)
	}

	me, err := s.st.Users.Get(ctx, c.UserID)
	if err != nil {
		return err
	}

	if p.Accept {
		if err := s.st.Users.AddFriend(ctx, req.FromUserID, req.ToUserID); err != nil {
			return err
		}
		if err := s.st.Users.AddFriend(ctx, req.ToUserID, req.FromUserID); err != nil {
			return err
		}
		s.pushToUser(req.FromUserID, BuildFrame(EvFriendAccepted, map[string]any{
			"requestId": req.RequestID,
			"by":        me.Summary(true),
		}))
	} else {
		s.pushToUser(req.FromUserID, BuildFrame(EvFriendRejected, map[string]any{
			"requestId": req.RequestID,
			"by":        me.Summary(true),
		}))
	}

	if err := s.st.Friends.Delete(ctx, req.RequestID); err != nil {
		return err
	}
	if err := s.pushPendingRequests(ctx, c.UserID); err != nil {
		return err
	}
	if p.Accept {
		if err := s.pushFriendList(ctx, req.FromUserID); err != nil {
			return err
		}
		if err := s.pushFriendList(ctx, req.ToUserID); err != nil {
			return err
		}
	}
	c.Push(BuildSuccessFrame(EvRespondFriendRq, map[string]any{
		"requestId": req.RequestID,
		"accepted":  p.Accept,
	}))
	return nil
}

type unfriendPayload struct {
	UserID string `json:"userId"`
}

// handleUnfriend removes the mutual edge. The conversation and its messages
// stay; only the ability to send new messages goes away, enforced by the
// friendship re-check at send time.
func (s *Server) handleUnfriend(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[unfriendPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if p.UserID == "" {
		return errs.ErrMissingField.WithDetail("userId")
	}

	me, err := s.st.Users.Get(ctx, c.UserID)
	if err != nil {
		return err
	}
	if !me.IsFriend(p.UserID) {
		return errs.ErrNotFriends.WithRef(p.UserID)
	}

	if err := s.st.Users.RemoveFriend(ctx, c.UserID, p.UserID); err != nil {
		return err
	}
	if err := s.st.Users.RemoveFriend(ctx, p.UserID, c.UserID); err != nil {
		return err
	}

	if err := s.pushFriendList(ctx, c.UserID); err != nil {
		return err
	}
	if err := s.pushFriendList(ctx, p.UserID); err != nil {
		return err
	}
	c.Push(BuildSuccessFrame(EvUnfriend, map[string]any{"userId": p.UserID}))
	return nil
}

// ===== pushed friend state =====

// pushFriendList pushes the user's refreshed friend summaries to every live
// connection; no-op when offline.
func (s *Server) pushFriendList(ctx context.Context, userID string) error {
	if len(s.conns.ListByUser(userID)) == 0 {
		return nil
	}
	u, err := s.st.Users.Get(ctx, userID)
	if err != nil {
		return err
	}
	friends, err := s.st.Users.GetMany(ctx, u.FriendIDs)
	if err != nil {
		return err
	}
	out := make([]model.Summary, 0, len(friends))
	for _, f := range friends {
		out = append(out, f.Summary(s.presence.IsOnline(f.UserID)))
	}
	s.pushToUser(userID, BuildFrame(EvFriends, out))
	return nil
}

// pendingRequestView is one row of the inbound friend-request list, the
// request enriched with the requester's profile.
type pendingRequestView struct {
	RequestID  string        `json:"requestId"`
	From       model.Summary `json:"from"`
	CreateTime time.Time     `json:"createTime"`
}

func (s *Server) pushPendingRequests(ctx context.Context, userID string) error {
	if len(s.conns.ListByUser(userID)) == 0 {
		return nil
	}
	reqs, err := s.st.Friends.ListPendingFor(ctx, userID)
	if err != nil {
		return err
	}
	out := make([]pendingRequestView, 0, len(reqs))
	for _, r := range reqs {
		from, err := s.st.Users.Get(ctx, r.FromUserID)
		if err != nil {
			continue // requester gone, skip the row
		}
		out = append(out, pendingRequestView{
			RequestID:  r.RequestID,
			From:       from.Summary(s.presence.IsOnline(from.UserID)),
			CreateTime: r.CreateTime,
		})
	}
	s.pushToUser(userID, BuildFrame(EvFriendRequests, out))
	return nil
}
