package chat

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realchat/tools/errs"
)

func createGroup(t *testing.T, s *Server, c *Client, name string, memberIDs ...string) string {
	t.Helper()
	err := s.handleCreateGroup(context.Background(), c, raw(map[string]any{
		"name":      name,
		"memberIds": memberIDs,
	}))
	require.NoError(t, err)
	var ack struct {
		GroupID string `json:"groupId"`
	}
	require.NoError(t, json.Unmarshal(await(t, c, "create-group-success"), &ack))
	return ack.GroupID
}

func TestCreateGroupCreatorIsMember(t *testing.T) {
	s, st := newTestServer()
	seedUser(st, "alice", "Alice")
	seedUser(st, "bob", "Bob")
	seedUser(st, "carol", "Carol")

	alice := connect(s, "alice")
	drain(alice)

	gid := createGroup(t, s, alice, "weekend plans", "bob", "carol")

	ctx := context.Background()
	g, err := st.Groups.Get(ctx, gid)
	require.NoError(t, err)
	assert.True(t, g.IsCreator("alice"))
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, g.MemberIDs)

	// Creation leaves a system entry in the thread.
	require.Len(t, g.MessageIDs, 1)
	m, err := st.Msgs.Get(ctx, g.MessageIDs[0])
	require.NoError(t, err)
	assert.True(t, m.System)
}

func TestCreateGroupRejectsUnknownMember(t *testing.T) {
	s, st := newTestServer()
	seedUser(st, "alice", "Alice")
	alice := connect(s, "alice")

	err := s.handleCreateGroup(context.Background(), alice, raw(map[string]any{
		"name":      "nope",
		"memberIds": []string{"ghost"},
	}))
	require.ErrorIs(t, err, errs.ErrUserNotFound)
}

func TestAddMembersFiltersExisting(t *testing.T) {
	s, st := newTestServer()
	seedUser(st, "alice", "Alice")
	seedUser(st, "bob", "Bob")
	seedUser(st, "carol", "Carol")

	alice := connect(s, "alice")
	drain(alice)
	gid := createGroup(t, s, alice, "team", "bob")
	ctx := context.Background()

	// bob already in; only carol is new
	err := s.handleAddMembers(ctx, alice, raw(map[string]any{
		"groupId":   gid,
		"memberIds": []string{"bob", "carol"},
	}))
	require.NoError(t, err)
	g, _ := st.Groups.Get(ctx, gid)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, g.MemberIDs)

	// nothing new left
	err = s.handleAddMembers(ctx, alice, raw(map[string]any{
		"groupId":   gid,
		"memberIds": []string{"bob", "carol"},
	}))
	require.ErrorIs(t, err, errs.ErrNoNewMembers)

	// non-members cannot add
	seedUser(st, "dave", "Dave")
	dave := connect(s, "dave")
	err = s.handleAddMembers(ctx, dave, raw(map[string]any{
		"groupId":   gid,
		"memberIds": []string{"dave"},
	}))
	require.ErrorIs(t, err, errs.ErrNotMember)
}

func TestKickMemberCreatorOnly(t *testing.T) {
	s, st := newTestServer()
	seedUser(st, "alice", "Alice")
	seedUser(st, "bob", "Bob")
	seedUser(st, "carol", "Carol")

	alice := connect(s, "alice")
	bob := connect(s, "bob")
	drain(alice)
	drain(bob)
	gid := createGroup(t, s, alice, "team", "bob", "carol")
	ctx := context.Background()

	err := s.handleKickMember(ctx, bob, raw(map[string]any{"groupId": gid, "userId": "carol"}))
	require.ErrorIs(t, err, errs.ErrNotOwner)

	err = s.handleKickMember(ctx, alice, raw(map[string]any{"groupId": gid, "userId": "ghost"}))
	require.ErrorIs(t, err, errs.ErrTargetNotInGrp)

	// creator kicking themselves is the leave path, which needs a transfer
	err = s.handleKickMember(ctx, alice, raw(map[string]any{"groupId": gid, "userId": "alice"}))
	require.ErrorIs(t, err, errs.ErrCreatorLeave)

	err = s.handleKickMember(ctx, alice, raw(map[string]any{"groupId": gid, "userId": "carol"}))
	require.NoError(t, err)
	g, _ := st.Groups.Get(ctx, gid)
	assert.False(t, g.IsMember("carol"))
	_, hasUnseen := g.Unseen["carol"]
	assert.False(t, hasUnseen)
}

func TestLeaveGroupCreatorMustTransferFirst(t *testing.T) {
	s, st := newTestServer()
	seedUser(st, "alice", "Alice")
	seedUser(st, "bob", "Bob")

	alice := connect(s, "alice")
	drain(alice)
	gid := createGroup(t, s, alice, "team", "bob")
	ctx := context.Background()

	err := s.handleLeaveGroup(ctx, alice, raw(map[string]any{"groupId": gid}))
	require.ErrorIs(t, err, errs.ErrCreatorLeave)

	err = s.handleTransferOwnership(ctx, alice, raw(map[string]any{"groupId": gid, "userId": "bob"}))
	require.NoError(t, err)

	err = s.handleLeaveGroup(ctx, alice, raw(map[string]any{"groupId": gid}))
	require.NoError(t, err)

	g, _ := st.Groups.Get(ctx, gid)
	assert.True(t, g.IsCreator("bob"))
	assert.False(t, g.IsMember("alice"))
	assert.True(t, g.IsMember("bob"))
}

func TestTransferOwnershipRequiresMemberTarget(t *testing.T) {
	s, st := newTestServer()
	seedUser(st, "alice", "Alice")
	seedUser(st, "bob", "Bob")
	seedUser(st, "carol", "Carol")

	alice := connect(s, "alice")
	drain(alice)
	gid := createGroup(t, s, alice, "team", "bob")

	err := s.handleTransferOwnership(context.Background(), alice, raw(map[string]any{
		"groupId": gid,
		"userId":  "carol",
	}))
	require.ErrorIs(t, err, errs.ErrTargetNotInGrp)
	g, _ := st.Groups.Get(context.Background(), gid)
	assert.True(t, g.IsCreator("alice"))
}

func TestDeleteGroupCreatorOnlyAndNotifies(t *testing.T) {
	s, st := newTestServer()
	seedUser(st, "alice", "Alice")
	seedUser(st, "bob", "Bob")

	alice := connect(s, "alice")
	bob := connect(s, "bob")
	drain(alice)
	drain(bob)
	gid := createGroup(t, s, alice, "doomed", "bob")
	ctx := context.Background()

	err := s.handleDeleteGroup(ctx, bob, raw(map[string]any{"groupId": gid}))
	require.ErrorIs(t, err, errs.ErrNotOwner)

	err = s.handleDeleteGroup(ctx, alice, raw(map[string]any{"groupId": gid}))
	require.NoError(t, err)

	var gone struct {
		GroupID string `json:"groupId"`
	}
	require.NoError(t, json.Unmarshal(await(t, bob, EvGroupDeleted), &gone))
	assert.Equal(t, gid, gone.GroupID)

	_, err = st.Groups.Get(ctx, gid)
	require.ErrorIs(t, err, errs.ErrGroupNotFound)
}

func TestGroupUnseenCountersAndViewingSuppression(t *testing.T) {
	s, st := newTestServer()
	seedUser(st, "alice", "Alice")
	seedUser(st, "bob", "Bob")
	seedUser(st, "carol", "Carol")

	alice := connect(s, "alice")
	bob := connect(s, "bob")
	carol := connect(s, "carol")
	drain(alice)
	drain(bob)
	drain(carol)
	gid := createGroup(t, s, alice, "team", "bob", "carol")
	ctx := context.Background()

	// carol is reading the thread right now
	require.NoError(t, s.handleViewingThread(ctx, carol, raw(map[string]any{"threadId": gid})))

	err := s.handleSendMessage(ctx, alice, raw(map[string]any{"threadId": gid, "text": "ping"}))
	require.NoError(t, err)

	g, _ := st.Groups.Get(ctx, gid)
	assert.Equal(t, int64(1), g.Unseen["bob"].Count)
	assert.Equal(t, int64(0), g.Unseen["carol"].Count)
	assert.Equal(t, int64(0), g.Unseen["alice"].Count)

	// bob acknowledges
	require.NoError(t, s.handleMarkSeen(ctx, bob, raw(map[string]any{"threadId": gid})))
	g, _ = st.Groups.Get(ctx, gid)
	assert.Equal(t, int64(0), g.Unseen["bob"].Count)
	assert.Equal(t, g.LastMsgID, g.Unseen["bob"].LastSeenMsgID)

	// marker dies with leave-thread
	require.NoError(t, s.handleLeaveThread(ctx, carol, nil))
	err = s.handleSendMessage(ctx, alice, raw(map[string]any{"threadId": gid, "text": "ping 2"}))
	require.NoError(t, err)
	g, _ = st.Groups.Get(ctx, gid)
	assert.Equal(t, int64(1), g.Unseen["carol"].Count)
}

func TestGroupSendMembersOnly(t *testing.T) {
	s, st := newTestServer()
	seedUser(st, "alice", "Alice")
	seedUser(st, "bob", "Bob")
	seedUser(st, "mallory", "Mallory")

	alice := connect(s, "alice")
	drain(alice)
	gid := createGroup(t, s, alice, "team", "bob")

	mallory := connect(s, "mallory")
	err := s.handleSendMessage(context.Background(), mallory, raw(map[string]any{
		"threadId": gid,
		"text":     "let me in",
	}))
	require.ErrorIs(t, err, errs.ErrNotMember)
	g, _ := st.Groups.Get(context.Background(), gid)
	require.Len(t, g.MessageIDs, 1) // only the creation system entry
}
