package model

import (
	"time"
)

const ConversationTableName = "conversations"

// Conversation is a direct 1:1 thread. The pair key is the sorted
// concatenation of both participant ids, backed by a unique index, which
// makes lookup order-independent: FindOrCreate(A,B) and FindOrCreate(B,A)
// resolve to the same document.
type Conversation struct {
	ConversationID string `bson:"conversation_id"` // unique index
	PairKey        string `bson:"pair_key"`        // unique index, sorted "a|b"
	UserA          string `bson:"user_a"`
	UserB          string `bson:"user_b"`

	MessageIDs []string `bson:"message_ids"` // insertion order == display order
	LastMsgID  string   `bson:"last_msg_id"`

	LastActivity time.Time `bson:"last_activity"`
	CreateTime   time.Time `bson:"create_time"`
}

func (*Conversation) TableName() string { return ConversationTableName }

// PairKey builds the order-independent lookup key for a user pair.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func (c *Conversation) HasParticipant(userID string) bool {
	return c.UserA == userID || c.UserB == userID
}

// Counterpart returns the other participant from viewer's perspective.
func (c *Conversation) Counterpart(viewer string) string {
	if c.UserA == viewer {
		return c.UserB
	}
	return c.UserA
}
