package chat

import (
	"context"
	"time"

	"realchat/logger"
	"realchat/module/chat/model"
	"realchat/module/chat/store"
	"realchat/module/user"
	"realchat/service/storage"
	"realchat/tools/errs"
)

const (
	fanoutWorkers = 8
	fanoutQueue   = 1024
	presenceTTL   = 5 * time.Minute
	buildTimeout  = 10 * time.Second
)

// Server owns every component of the session gateway: the connection
// registry, the reference-counted presence set, the fan-out pool and the
// event dispatcher. It is the only component that talks to individual
// connections.
type Server struct {
	gwID     string
	st       *store.Stores
	resolver *user.Resolver
	conns    *ConnRegistry
	presence *Presence
	fan      *Fanout
	disp     *Dispatcher
}

func NewServer(gwID string, st *store.Stores, resolver *user.Resolver) *Server {
	s := &Server{
		gwID:     gwID,
		st:       st,
		resolver: resolver,
		conns:    NewConnRegistry(),
		presence: NewPresence(),
		disp:     NewDispatcher(),
	}
	s.fan = NewFanout(s.conns, fanoutWorkers, fanoutQueue)
	s.registerHandlers()
	return s
}

func (s *Server) registerHandlers() {
	d := s.disp
	d.Register(EvOpenThread, s.handleOpenThread)
	d.Register(EvSendMessage, s.handleSendMessage)
	d.Register(EvForwardMessage, s.handleForwardMessage)
	d.Register(EvReact, s.handleReact)
	d.Register(EvRemoveReaction, s.handleRemoveReaction)
	d.Register(EvRecallMessage, s.handleRecallMessage)
	d.Register(EvDeleteMessage, s.handleDeleteMessage)
	d.Register(EvSearchMessages, s.handleSearchMessages)
	d.Register(EvMarkSeen, s.handleMarkSeen)
	d.Register(EvSendFriendReq, s.handleSendFriendRequest)
	d.Register(EvRespondFriendRq, s.handleRespondFriendRequest)
	d.Register(EvUnfriend, s.handleUnfriend)
	d.Register(EvCreateGroup, s.handleCreateGroup)
	d.Register(EvAddMembers, s.handleAddMembers)
	d.Register(EvKickMember, s.handleKickMember)
	d.Register(EvLeaveGroup, s.handleLeaveGroup)
	d.Register(EvDeleteGroup, s.handleDeleteGroup)
	d.Register(EvTransferOwner, s.handleTransferOwnership)
	d.Register(EvViewingThread, s.handleViewingThread)
	d.Register(EvLeaveThread, s.handleLeaveThread)
	d.Register(EvGetContacts, s.handleGetContacts)
	d.Register(EvGetFriends, s.handleGetFriends)
	d.Register(EvGetUserGroups, s.handleGetUserGroups)
}

func (s *Server) Presence() *Presence { return s.presence }

// ===== connection lifecycle =====

// register adds the client, joins presence and, on a user's first
// connection, broadcasts the refreshed online snapshot to everyone.
// The new connection itself always learns the current snapshot.
func (s *Server) register(c *Client) {
	s.conns.Add(c)
	first := s.presence.Join(c.UserID)
	if err := storage.PresenceOnline(c.UserID, s.gwID, presenceTTL); err != nil {
		logger.Debug("[gateway] presence mirror unavailable")
	}
	if first {
		s.broadcastOnline()
	} else {
		c.Push(BuildFrame(EvOnlineUsers, s.presence.Snapshot()))
	}
}

// unregister removes the client and, when the user's last connection is
// gone, broadcasts the shrunken snapshot. In-flight tasks for the
// connection are left to finish; they just can't deliver here anymore.
func (s *Server) unregister(c *Client) {
	s.conns.Remove(c)
	c.Close()
	if s.presence.Leave(c.UserID) {
		if err := storage.PresenceOffline(c.UserID); err != nil {
			logger.Debug("[gateway] presence mirror unavailable")
		}
		s.broadcastOnline()
	}
}

func (s *Server) broadcastOnline() {
	payload := BuildFrame(EvOnlineUsers, s.presence.Snapshot())
	for _, c := range s.conns.All() {
		c.Push(payload)
	}
}

// pushToUser delivers one prebuilt frame to every live connection of a
// user; no-op when offline.
func (s *Server) pushToUser(userID string, payload []byte) {
	for _, c := range s.conns.ListByUser(userID) {
		c.Push(payload)
	}
}

// ===== thread resolution =====

// resolveThread maps a thread id to either a conversation or a group.
func (s *Server) resolveThread(ctx context.Context, threadID string) (*model.Conversation, *model.GroupChat, error) {
	if conv, err := s.st.Convs.Get(ctx, threadID); err == nil {
		return conv, nil, nil
	}
	if g, err := s.st.Groups.Get(ctx, threadID); err == nil {
		return nil, g, nil
	}
	return nil, nil, errs.ErrThreadNotFound.WithRef(threadID)
}

// ===== fan-out =====

// fanDirect recomputes and pushes both participants' views of a direct
// thread: the filtered message sequence plus the refreshed sidebar.
func (s *Server) fanDirect(conversationID string, participants ...string) {
	s.fan.Push(participants, func(uid string) [][]byte {
		ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
		defer cancel()

		conv, err := s.st.Convs.Get(ctx, conversationID)
		if err != nil {
			return nil
		}
		view, err := s.threadViewFor(ctx, conv.MessageIDs, uid)
		if err != nil {
			logger.Debug("[fanout] view recompute failed")
			return nil
		}
		sidebar, err := s.conversationSummaries(ctx, uid)
		if err != nil {
			return nil
		}
		return [][]byte{
			BuildFrame(EvMessage, map[string]any{
				"conversationId": conv.ConversationID,
				"messages":       view,
			}),
			BuildFrame(EvConversation, sidebar),
		}
	})
}

// fanGroup does the same for a group thread.
func (s *Server) fanGroup(groupID string, members []string) {
	s.fan.Push(members, func(uid string) [][]byte {
		ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
		defer cancel()

		g, err := s.st.Groups.Get(ctx, groupID)
		if err != nil {
			return nil
		}
		view, err := s.threadViewFor(ctx, g.MessageIDs, uid)
		if err != nil {
			return nil
		}
		sidebar, err := s.groupSummaries(ctx, uid)
		if err != nil {
			return nil
		}
		return [][]byte{
			BuildFrame(EvGroupMessage, map[string]any{
				"groupId":  g.GroupID,
				"messages": view,
			}),
			BuildFrame(EvUserGroups, sidebar),
		}
	})
}

// fanGroupSidebar refreshes only the group sidebar, for members who left
// or were removed and for group deletion.
func (s *Server) fanGroupSidebar(userIDs []string) {
	s.fan.Push(userIDs, func(uid string) [][]byte {
		ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
		defer cancel()
		sidebar, err := s.groupSummaries(ctx, uid)
		if err != nil {
			return nil
		}
		return [][]byte{BuildFrame(EvUserGroups, sidebar)}
	})
}
