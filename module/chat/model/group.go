package model

import (
	"time"
)

const GroupTableName = "groups"

// UnseenRecord tracks one member's unread state inside a group. Kept as a
// map entry keyed by member id so counter bumps are per-key $inc updates.
type UnseenRecord struct {
	Count         int64  `bson:"count"`
	LastSeenMsgID string `bson:"last_seen_msg_id"`
}

// GroupChat is a named multi-member thread. The creator is always a member
// and the only one allowed to kick, transfer ownership, or delete the
// group; the creator cannot leave without transferring first.
type GroupChat struct {
	GroupID   string `bson:"group_id"` // unique index
	Name      string `bson:"name"`
	AvatarURL string `bson:"avatar_url"`
	CreatorID string `bson:"creator_id"`

	MemberIDs  []string `bson:"member_ids"`
	MessageIDs []string `bson:"message_ids"` // insertion order == display order
	LastMsgID  string   `bson:"last_msg_id"`

	Unseen map[string]UnseenRecord `bson:"unseen"` // member id -> unread state

	LastActivity time.Time `bson:"last_activity"`
	CreateTime   time.Time `bson:"create_time"`
}

func (*GroupChat) TableName() string { return GroupTableName }

func (g *GroupChat) IsMember(userID string) bool {
	for _, id := range g.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (g *GroupChat) IsCreator(userID string) bool { return g.CreatorID == userID }

// UnseenFor computes which members should have their unread counter bumped
// for a message from senderID: every member except the sender and except
// members with an active viewing marker for this group.
func (g *GroupChat) UnseenFor(senderID string, viewing map[string]bool) []string {
	out := make([]string, 0, len(g.MemberIDs))
	for _, id := range g.MemberIDs {
		if id == senderID || viewing[id] {
			continue
		}
		out = append(out, id)
	}
	return out
}
