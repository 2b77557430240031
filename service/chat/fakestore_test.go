package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"realchat/module/chat/model"
	"realchat/module/chat/store"
	"realchat/tools/errs"
	"realchat/tools/ids"
)

// In-memory store fakes mirroring the mongo implementations' semantics
// (set-insert, pull, keyed map writes, not-found sentinels) so gateway
// tests run without a live database. Fan-out workers read concurrently
// with handler writes, hence the mutexes.

func newMemStores() *store.Stores {
	return &store.Stores{
		Users:   &memUsers{m: map[string]*model.User{}},
		Friends: &memFriends{m: map[string]*model.FriendRequest{}},
		Convs:   &memConvs{m: map[string]*model.Conversation{}},
		Msgs:    &memMsgs{m: map[string]*model.Message{}},
		Groups:  &memGroups{m: map[string]*model.GroupChat{}},
	}
}

// ===== users =====

type memUsers struct {
	mu sync.Mutex
	m  map[string]*model.User
}

func (s *memUsers) put(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[u.UserID] = u
}

func (s *memUsers) Get(_ context.Context, userID string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.m[userID]
	if !ok {
		return nil, errs.ErrUserNotFound.WithRef(userID)
	}
	return u, nil
}

func (s *memUsers) GetMany(_ context.Context, userIDs []string) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.User, 0, len(userIDs))
	for _, id := range userIDs {
		if u, ok := s.m[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *memUsers) ListOthers(_ context.Context, exceptID string) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.User, 0, len(s.m))
	for id, u := range s.m {
		if id != exceptID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *memUsers) AddFriend(_ context.Context, ownerID, friendID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.m[ownerID]
	if !ok {
		return errs.ErrUserNotFound.WithRef(ownerID)
	}
	u.FriendIDs = addToSet(u.FriendIDs, friendID)
	return nil
}

func (s *memUsers) RemoveFriend(_ context.Context, ownerID, friendID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.m[ownerID]
	if !ok {
		return errs.ErrUserNotFound.WithRef(ownerID)
	}
	u.FriendIDs = pull(u.FriendIDs, friendID)
	return nil
}

func (s *memUsers) AddDeletedMessage(_ context.Context, userID, msgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.m[userID]
	if !ok {
		return errs.ErrUserNotFound.WithRef(userID)
	}
	u.DeletedMsgIDs = addToSet(u.DeletedMsgIDs, msgID)
	return nil
}

// ===== friend requests =====

type memFriends struct {
	mu sync.Mutex
	m  map[string]*model.FriendRequest
}

func (s *memFriends) Get(_ context.Context, requestID string) (*model.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.m[requestID]
	if !ok {
		return nil, errs.ErrRequestNotFound.WithRef(requestID)
	}
	return r, nil
}

func (s *memFriends) DeletePair(_ context.Context, a, b string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.m {
		if (r.FromUserID == a && r.ToUserID == b) || (r.FromUserID == b && r.ToUserID == a) {
			delete(s.m, id)
		}
	}
	return nil
}

func (s *memFriends) Insert(_ context.Context, req *model.FriendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[req.RequestID] = req
	return nil
}

func (s *memFriends) Delete(_ context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, requestID)
	return nil
}

func (s *memFriends) ListPendingFor(_ context.Context, userID string) ([]*model.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.FriendRequest
	for _, r := range s.m {
		if r.ToUserID == userID && r.Status == model.RequestPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memFriends) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// ===== conversations =====

type memConvs struct {
	mu sync.Mutex
	m  map[string]*model.Conversation
}

func (s *memConvs) Get(_ context.Context, conversationID string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.m[conversationID]
	if !ok {
		return nil, errs.ErrThreadNotFound.WithRef(conversationID)
	}
	return c, nil
}

func (s *memConvs) FindByPair(_ context.Context, a, b string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := model.PairKey(a, b)
	for _, c := range s.m {
		if c.PairKey == key {
			return c, nil
		}
	}
	return nil, errs.ErrThreadNotFound
}

func (s *memConvs) FindOrCreate(_ context.Context, a, b string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := model.PairKey(a, b)
	for _, c := range s.m {
		if c.PairKey == key {
			return c, nil
		}
	}
	now := time.Now()
	c := &model.Conversation{
		ConversationID: ids.GenerateString(),
		PairKey:        key,
		UserA:          a,
		UserB:          b,
		MessageIDs:     []string{},
		LastActivity:   now,
		CreateTime:     now,
	}
	s.m[c.ConversationID] = c
	return c, nil
}

func (s *memConvs) AppendMessage(_ context.Context, conversationID, msgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.m[conversationID]
	if !ok {
		return errs.ErrThreadNotFound.WithRef(conversationID)
	}
	c.MessageIDs = append(c.MessageIDs, msgID)
	c.LastMsgID = msgID
	c.LastActivity = time.Now()
	return nil
}

func (s *memConvs) SetLastMessage(_ context.Context, conversationID, msgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.m[conversationID]
	if !ok {
		return errs.ErrThreadNotFound.WithRef(conversationID)
	}
	c.LastMsgID = msgID
	return nil
}

func (s *memConvs) ListFor(_ context.Context, userID string) ([]*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Conversation
	for _, c := range s.m {
		if c.UserA == userID || c.UserB == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out, nil
}

func (s *memConvs) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// ===== messages =====

type memMsgs struct {
	mu sync.Mutex
	m  map[string]*model.Message
}

func (s *memMsgs) Insert(_ context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[msg.MsgID] = msg
	return nil
}

func (s *memMsgs) Get(_ context.Context, msgID string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.m[msgID]
	if !ok {
		return nil, errs.ErrMessageNotFound.WithRef(msgID)
	}
	return m, nil
}

func (s *memMsgs) GetMany(_ context.Context, msgIDs []string) ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Message, 0, len(msgIDs))
	for _, id := range msgIDs {
		if m, ok := s.m[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memMsgs) SetReaction(_ context.Context, msgID, userID, emoji string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.m[msgID]
	if !ok {
		return errs.ErrMessageNotFound.WithRef(msgID)
	}
	if m.Reactions == nil {
		m.Reactions = map[string]string{}
	}
	m.Reactions[userID] = emoji
	return nil
}

func (s *memMsgs) RemoveReaction(_ context.Context, msgID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.m[msgID]
	if !ok {
		return errs.ErrMessageNotFound.WithRef(msgID)
	}
	delete(m.Reactions, userID)
	return nil
}

func (s *memMsgs) SetRecalled(_ context.Context, msgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.m[msgID]
	if !ok {
		return errs.ErrMessageNotFound.WithRef(msgID)
	}
	m.Recalled = true
	return nil
}

func (s *memMsgs) MarkSeenFrom(_ context.Context, msgIDs []string, senderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range msgIDs {
		if m, ok := s.m[id]; ok && m.SenderID == senderID {
			m.Seen = true
		}
	}
	return nil
}

// ===== groups =====

type memGroups struct {
	mu sync.Mutex
	m  map[string]*model.GroupChat
}

func (s *memGroups) Insert(_ context.Context, g *model.GroupChat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[g.GroupID] = g
	return nil
}

func (s *memGroups) Get(_ context.Context, groupID string) (*model.GroupChat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.m[groupID]
	if !ok {
		return nil, errs.ErrGroupNotFound.WithRef(groupID)
	}
	return g, nil
}

func (s *memGroups) ListFor(_ context.Context, userID string) ([]*model.GroupChat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.GroupChat
	for _, g := range s.m {
		if g.IsMember(userID) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out, nil
}

func (s *memGroups) AddMembers(_ context.Context, groupID string, memberIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.m[groupID]
	if !ok {
		return errs.ErrGroupNotFound.WithRef(groupID)
	}
	for _, id := range memberIDs {
		g.MemberIDs = addToSet(g.MemberIDs, id)
	}
	return nil
}

func (s *memGroups) RemoveMember(_ context.Context, groupID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.m[groupID]
	if !ok {
		return errs.ErrGroupNotFound.WithRef(groupID)
	}
	g.MemberIDs = pull(g.MemberIDs, memberID)
	delete(g.Unseen, memberID)
	return nil
}

func (s *memGroups) SetCreator(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.m[groupID]
	if !ok {
		return errs.ErrGroupNotFound.WithRef(groupID)
	}
	g.CreatorID = userID
	return nil
}

func (s *memGroups) AppendMessage(_ context.Context, groupID, msgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.m[groupID]
	if !ok {
		return errs.ErrGroupNotFound.WithRef(groupID)
	}
	g.MessageIDs = append(g.MessageIDs, msgID)
	g.LastMsgID = msgID
	g.LastActivity = time.Now()
	return nil
}

func (s *memGroups) SetLastMessage(_ context.Context, groupID, msgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.m[groupID]
	if !ok {
		return errs.ErrGroupNotFound.WithRef(groupID)
	}
	g.LastMsgID = msgID
	return nil
}

func (s *memGroups) IncrementUnseen(_ context.Context, groupID string, memberIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.m[groupID]
	if !ok {
		return errs.ErrGroupNotFound.WithRef(groupID)
	}
	if g.Unseen == nil {
		g.Unseen = map[string]model.UnseenRecord{}
	}
	for _, id := range memberIDs {
		rec := g.Unseen[id]
		rec.Count++
		g.Unseen[id] = rec
	}
	return nil
}

func (s *memGroups) ResetUnseen(_ context.Context, groupID, memberID, lastMsgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.m[groupID]
	if !ok {
		return errs.ErrGroupNotFound.WithRef(groupID)
	}
	if g.Unseen == nil {
		g.Unseen = map[string]model.UnseenRecord{}
	}
	g.Unseen[memberID] = model.UnseenRecord{Count: 0, LastSeenMsgID: lastMsgID}
	return nil
}

func (s *memGroups) Delete(_ context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, groupID)
	return nil
}

// ===== small helpers =====

func addToSet(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func pull(list []string, v string) []string {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
