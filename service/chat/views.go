package chat

import (
	"context"
	"sort"
	"strings"
	"time"

	"realchat/module/chat/model"
)

// Per-viewer view computation. Two participants of the same thread may see
// different sequences: soft-deleted messages vanish only for the viewer
// who deleted them, recalled messages stay in place but masked for all.

// FilterView returns the messages a viewer sees in display order:
// soft-deleted ids are dropped, recalled payloads are masked.
func FilterView(msgs []*model.Message, deleted map[string]bool) []*model.Message {
	out := make([]*model.Message, 0, len(msgs))
	for _, m := range msgs {
		if deleted[m.MsgID] {
			continue
		}
		out = append(out, m.ViewFor())
	}
	return out
}

// SearchView matches the viewer's filtered view against a case-insensitive
// substring query, newest first. Recalled messages are excluded entirely:
// their content must not be discoverable through search.
func SearchView(msgs []*model.Message, deleted map[string]bool, query string) []*model.Message {
	q := strings.TrimSpace(query)
	out := make([]*model.Message, 0)
	for _, m := range msgs {
		if deleted[m.MsgID] || m.Recalled {
			continue
		}
		if m.Matches(q) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreateTime.After(out[j].CreateTime)
	})
	return out
}

// LastVisible returns the most recent non-recalled message, for advancing
// a thread's last-message pointer after a recall.
func LastVisible(msgs []*model.Message) *model.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if !msgs[i].Recalled {
			return msgs[i]
		}
	}
	return nil
}

// UnseenDirect counts the counterpart's messages the viewer has not seen
// yet, within the viewer's own filtered view.
func UnseenDirect(msgs []*model.Message, counterpart string, deleted map[string]bool) int {
	n := 0
	for _, m := range msgs {
		if deleted[m.MsgID] || m.Recalled {
			continue
		}
		if m.SenderID == counterpart && !m.Seen {
			n++
		}
	}
	return n
}

// ThreadSummary is one row of the direct-thread sidebar.
type ThreadSummary struct {
	ConversationID string         `json:"conversationId"`
	Peer           model.Summary  `json:"peer"`
	LastMessage    *model.Message `json:"lastMessage,omitempty"`
	Unseen         int            `json:"unseen"`
	LastActivity   time.Time      `json:"lastActivity"`
}

// GroupSummary is one row of the group sidebar.
type GroupSummary struct {
	GroupID      string         `json:"groupId"`
	Name         string         `json:"name"`
	AvatarURL    string         `json:"avatarUrl"`
	CreatorID    string         `json:"creatorId"`
	MemberIDs    []string       `json:"memberIds"`
	LastMessage  *model.Message `json:"lastMessage,omitempty"`
	Unseen       int64          `json:"unseen"`
	LastActivity time.Time      `json:"lastActivity"`
}

// deletedSetOf loads the viewer's personal soft-deleted id set.
func (s *Server) deletedSetOf(ctx context.Context, viewerID string) (map[string]bool, error) {
	u, err := s.st.Users.Get(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(u.DeletedMsgIDs))
	for _, id := range u.DeletedMsgIDs {
		set[id] = true
	}
	return set, nil
}

// threadViewFor recomputes the filtered message sequence of a thread for
// one viewer.
func (s *Server) threadViewFor(ctx context.Context, msgIDs []string, viewerID string) ([]*model.Message, error) {
	deleted, err := s.deletedSetOf(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.st.Msgs.GetMany(ctx, msgIDs)
	if err != nil {
		return nil, err
	}
	return FilterView(msgs, deleted), nil
}

// conversationSummaries builds the viewer's direct-thread sidebar, ordered
// by most recent activity (the store sorts on last_activity).
func (s *Server) conversationSummaries(ctx context.Context, viewerID string) ([]ThreadSummary, error) {
	convs, err := s.st.Convs.ListFor(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	deleted, err := s.deletedSetOf(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	out := make([]ThreadSummary, 0, len(convs))
	for _, conv := range convs {
		peerID := conv.Counterpart(viewerID)
		peer, err := s.st.Users.Get(ctx, peerID)
		if err != nil {
			continue // dangling participant, skip the row
		}
		msgs, err := s.st.Msgs.GetMany(ctx, conv.MessageIDs)
		if err != nil {
			return nil, err
		}
		view := FilterView(msgs, deleted)
		var last *model.Message
		if len(view) > 0 {
			last = view[len(view)-1]
		}
		out = append(out, ThreadSummary{
			ConversationID: conv.ConversationID,
			Peer:           peer.Summary(s.presence.IsOnline(peerID)),
			LastMessage:    last,
			Unseen:         UnseenDirect(msgs, peerID, deleted),
			LastActivity:   conv.LastActivity,
		})
	}
	return out, nil
}

// groupSummaries builds the viewer's group sidebar.
func (s *Server) groupSummaries(ctx context.Context, viewerID string) ([]GroupSummary, error) {
	groups, err := s.st.Groups.ListFor(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		var last *model.Message
		if g.LastMsgID != "" {
			if m, err := s.st.Msgs.Get(ctx, g.LastMsgID); err == nil {
				last = m.ViewFor()
			}
		}
		out = append(out, GroupSummary{
			GroupID:      g.GroupID,
			Name:         g.Name,
			AvatarURL:    g.AvatarURL,
			CreatorID:    g.CreatorID,
			MemberIDs:    g.MemberIDs,
			LastMessage:  last,
			Unseen:       g.Unseen[viewerID].Count,
			LastActivity: g.LastActivity,
		})
	}
	return out, nil
}
