package chat

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"realchat/module/chat/model"
	"realchat/tools/decode"
	"realchat/tools/errs"
	"realchat/tools/ids"
)

// ===== group lifecycle =====

type createGroupPayload struct {
	Name      string   `json:"name"`
	AvatarURL string   `json:"avatarUrl"`
	MemberIDs []string `json:"memberIds"`
}

// handleCreateGroup creates a group with the caller as creator and member.
// Every listed member must resolve to an existing user.
func (s *Server) handleCreateGroup(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[createGroupPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if strings.TrimSpace(p.Name) == "" {
		return errs.ErrMissingField.WithDetail("name")
	}

	members := dedupeWith(c.UserID, p.MemberIDs)
	if err := s.requireUsersExist(ctx, members); err != nil {
		return err
	}

	now := time.Now().UTC()
	g := &model.GroupChat{
		GroupID:      ids.GenerateString(),
		Name:         strings.TrimSpace(p.Name),
		AvatarURL:    p.AvatarURL,
		CreatorID:    c.UserID,
		MemberIDs:    members,
		MessageIDs:   []string{},
		Unseen:       map[string]model.UnseenRecord{},
		LastActivity: now,
		CreateTime:   now,
	}
	if err := s.st.Groups.Insert(ctx, g); err != nil {
		return err
	}
	if err := s.postSystemMessage(ctx, g.GroupID, c.UserID, s.displayName(ctx, c.UserID)+" created the group"); err != nil {
		return err
	}

	s.fanGroup(g.GroupID, g.MemberIDs)
	c.Push(BuildSuccessFrame(EvCreateGroup, map[string]any{"groupId": g.GroupID}))
	return nil
}

type addMembersPayload struct {
	GroupID   string   `json:"groupId"`
	MemberIDs []string `json:"memberIds"`
}

// handleAddMembers lets any current member grow the group. Ids already in
// the group are filtered out; the call fails when nothing new remains.
func (s *Server) handleAddMembers(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[addMembersPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if p.GroupID == "" {
		return errs.ErrMissingField.WithDetail("groupId")
	}

	g, err := s.st.Groups.Get(ctx, p.GroupID)
	if err != nil {
		return err
	}
	if !g.IsMember(c.UserID) {
		return errs.ErrNotMember.WithRef(g.GroupID)
	}

	fresh := make([]string, 0, len(p.MemberIDs))
	for _, id := range dedupeWith("", p.MemberIDs) {
		if id != "" && !g.IsMember(id) {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		return errs.ErrNoNewMembers.WithRef(g.GroupID)
	}
	if err := s.requireUsersExist(ctx, fresh); err != nil {
		return err
	}
	if err := s.st.Groups.AddMembers(ctx, g.GroupID, fresh); err != nil {
		return err
	}

	names := make([]string, 0, len(fresh))
	for _, id := range fresh {
		names = append(names, s.displayName(ctx, id))
	}
	if err := s.postSystemMessage(ctx, g.GroupID, c.UserID,
		s.displayName(ctx, c.UserID)+" added "+strings.Join(names, ", ")); err != nil {
		return err
	}

	s.fanGroup(g.GroupID, append(g.MemberIDs, fresh...))
	c.Push(BuildSuccessFrame(EvAddMembers, map[string]any{
		"groupId": g.GroupID,
		"added":   fresh,
	}))
	return nil
}

type kickMemberPayload struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

// handleKickMember removes a member, creator only. The creator cannot kick
// themselves; that path is leave, which requires a transfer first.
func (s *Server) handleKickMember(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[kickMemberPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if p.GroupID == "" || p.UserID == "" {
		return errs.ErrMissingField.WithDetail("groupId, userId")
	}

	g, err := s.st.Groups.Get(ctx, p.GroupID)
	if err != nil {
		return err
	}
	if !g.IsCreator(c.UserID) {
		return errs.ErrNotOwner.WithRef(g.GroupID)
	}
	if p.UserID == c.UserID {
		return errs.ErrCreatorLeave.WithRef(g.GroupID)
	}
	if !g.IsMember(p.UserID) {
		return errs.ErrTargetNotInGrp.WithRef(p.UserID)
	}

	if err := s.st.Groups.RemoveMember(ctx, g.GroupID, p.UserID); err != nil {
		return err
	}
	if err := s.postSystemMessage(ctx, g.GroupID, c.UserID,
		s.displayName(ctx, p.UserID)+" was removed from the group"); err != nil {
		return err
	}

	s.fanGroup(g.GroupID, remaining(g.MemberIDs, p.UserID))
	s.fanGroupSidebar([]string{p.UserID})
	c.Push(BuildSuccessFrame(EvKickMember, map[string]any{
		"groupId": g.GroupID,
		"userId":  p.UserID,
	}))
	return nil
}

type leaveGroupPayload struct {
	GroupID string `json:"groupId"`
}

func (s *Server) handleLeaveGroup(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[leaveGroupPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if p.GroupID == "" {
		return errs.ErrMissingField.WithDetail("groupId")
	}

	g, err := s.st.Groups.Get(ctx, p.GroupID)
	if err != nil {
		return err
	}
	if !g.IsMember(c.UserID) {
		return errs.ErrNotMember.WithRef(g.GroupID)
	}
	if g.IsCreator(c.UserID) {
		return errs.ErrCreatorLeave.WithRef(g.GroupID)
	}

	if err := s.st.Groups.RemoveMember(ctx, g.GroupID, c.UserID); err != nil {
		return err
	}
	if err := s.postSystemMessage(ctx, g.GroupID, c.UserID,
		s.displayName(ctx, c.UserID)+" left the group"); err != nil {
		return err
	}

	s.fanGroup(g.GroupID, remaining(g.MemberIDs, c.UserID))
	s.fanGroupSidebar([]string{c.UserID})
	c.Push(BuildSuccessFrame(EvLeaveGroup, map[string]any{"groupId": g.GroupID}))
	return nil
}

type deleteGroupPayload struct {
	GroupID string `json:"groupId"`
}

// handleDeleteGroup deletes the group document, creator only. Message
// documents stay behind unreferenced; nothing reads them once the group's
// id list is gone.
func (s *Server) handleDeleteGroup(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[deleteGroupPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if p.GroupID == "" {
		return errs.ErrMissingField.WithDetail("groupId")
	}

	g, err := s.st.Groups.Get(ctx, p.GroupID)
	if err != nil {
		return err
	}
	if !g.IsCreator(c.UserID) {
		return errs.ErrNotOwner.WithRef(g.GroupID)
	}
	if err := s.st.Groups.Delete(ctx, g.GroupID); err != nil {
		return err
	}

	gone := BuildFrame(EvGroupDeleted, map[string]any{
		"groupId": g.GroupID,
		"name":    g.Name,
	})
	for _, uid := range g.MemberIDs {
		s.pushToUser(uid, gone)
	}
	s.fanGroupSidebar(g.MemberIDs)
	c.Push(BuildSuccessFrame(EvDeleteGroup, map[string]any{"groupId": g.GroupID}))
	return nil
}

type transferOwnerPayload struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

func (s *Server) handleTransferOwnership(ctx context.Context, c *Client, data json.RawMessage) error {
	p, err := decode.Payload[transferOwnerPayload](data)
	if err != nil {
		return errs.ErrBadPayload.WithDetail(err.Error())
	}
	if p.GroupID == "" || p.UserID == "" {
		return errs.ErrMissingField.WithDetail("groupId, userId")
	}

	g, err := s.st.Groups.Get(ctx, p.GroupID)
	if err != nil {
		return err
	}
	if !g.IsCreator(c.UserID) {
		return errs.ErrNotOwner.WithRef(g.GroupID)
	}
	if !g.IsMember(p.UserID) {
		return errs.ErrTargetNotInGrp.WithRef(p.UserID)
	}

	if err := s.st.Groups.SetCreator(ctx, g.GroupID, p.UserID); err != nil {
		return err
	}
	if err := s.postSystemMessage(ctx, g.GroupID, c.UserID,
		"ownership transferred to "+s.displayName(ctx, p.UserID)); err != nil {
		return err
	}

	s.fanGroup(g.GroupID, g.MemberIDs)
	c.Push(BuildSuccessFrame(EvTransferOwner, map[string]any{
		"groupId": g.GroupID,
		"userId":  p.UserID,
	}))
	return nil
}

// ===== helpers =====

// postSystemMessage appends a system entry to a group thread. System
// entries never bump unseen counters.
func (s *Server) postSystemMessage(ctx context.Context, groupID, actorID, text string) error {
	msg := &model.Message{
		MsgID:      ids.GenerateString(),
		SenderID:   actorID,
		ThreadID:   groupID,
		Text:       text,
		System:     true,
		CreateTime: time.Now().UTC(),
	}
	if err := s.st.Msgs.Insert(ctx, msg); err != nil {
		return err
	}
	return s.st.Groups.AppendMessage(ctx, groupID, msg.MsgID)
}

// displayName resolves a user id to its profile name, falling back to the
// id itself so system messages never fail the mutation that produced them.
func (s *Server) displayName(ctx context.Context, userID string) string {
	u, err := s.st.Users.Get(ctx, userID)
	if err != nil || u.Name == "" {
		return userID
	}
	return u.Name
}

// requireUsersExist verifies every id resolves to a user document.
func (s *Server) requireUsersExist(ctx context.Context, userIDs []string) error {
	users, err := s.st.Users.GetMany(ctx, userIDs)
	if err != nil {
		return err
	}
	if len(users) != len(userIDs) {
		found := make(map[string]bool, len(users))
		for _, u := range users {
			found[u.UserID] = true
		}
		for _, id := range userIDs {
			if !found[id] {
				return errs.ErrUserNotFound.WithRef(id)
			}
		}
	}
	return nil
}

// dedupeWith returns first (when non-empty) followed by the unique ids,
// preserving order.
func dedupeWith(first string, ids []string) []string {
	seen := make(map[string]bool, len(ids)+1)
	out := make([]string, 0, len(ids)+1)
	if first != "" {
		seen[first] = true
		out = append(out, first)
	}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func remaining(members []string, removed string) []string {
	out := make([]string, 0, len(members))
	for _, id := range members {
		if id != removed {
			out = append(out, id)
		}
	}
	return out
}
