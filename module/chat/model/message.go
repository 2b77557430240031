package model

import (
	"strings"
	"time"
)

const MsgTableName = "messages"

// RecalledText replaces the payload of a recalled message at read time.
// The stored document keeps its content; masking happens in every view.
const RecalledText = "[message recalled]"

// Message is one entry in a conversation or group thread.
//
// Reactions are a keyed map user id -> emoji, not an array: the at most
// one reaction per user invariant holds by construction and a single
// reaction write is an atomic keyed $set/$unset instead of a whole-array
// read-modify-write.
type Message struct {
	MsgID    string `bson:"msg_id"` // unique index
	SenderID string `bson:"sender_id"`
	ThreadID string `bson:"thread_id"` // conversation id or group id

	Text     string `bson:"text"`
	ImageURL string `bson:"image_url"`
	VideoURL string `bson:"video_url"`
	FileURL  string `bson:"file_url"`
	FileName string `bson:"file_name"`

	ReplyTo     string `bson:"reply_to,omitempty"`
	ForwardFrom string `bson:"forward_from,omitempty"`

	Reactions map[string]string `bson:"reactions"` // user id -> emoji
	Recalled  bool              `bson:"recalled"`
	System    bool              `bson:"system"` // member joined/left etc.
	Seen      bool              `bson:"seen"`   // direct threads only

	CreateTime time.Time `bson:"create_time"` // server-stamped
}

func (*Message) TableName() string { return MsgTableName }

func (m *Message) HasContent() bool {
	return m.Text != "" || m.ImageURL != "" || m.VideoURL != "" || m.FileURL != ""
}

// ToggleReaction applies the toggle semantics on the in-memory map and
// reports what the store should persist: same emoji removes the entry, a
// different emoji replaces it, no entry adds one.
//
// Returns removed=true when the user's reaction was dropped, otherwise the
// map now holds exactly emoji for userID.
func ToggleReaction(reactions map[string]string, userID, emoji string) (map[string]string, bool) {
	if reactions == nil {
		reactions = make(map[string]string)
	}
	if cur, ok := reactions[userID]; ok && cur == emoji {
		delete(reactions, userID)
		return reactions, true
	}
	reactions[userID] = emoji
	return reactions, false
}

// Matches reports whether the message matches a case-insensitive substring
// query over its text and media-reference fields.
func (m *Message) Matches(query string) bool {
	q := strings.ToLower(query)
	if q == "" {
		return false
	}
	for _, f := range []string{m.Text, m.ImageURL, m.VideoURL, m.FileURL, m.FileName} {
		if f != "" && strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// ViewFor returns the copy of m a given viewer is allowed to see: a
// recalled message keeps its place in the sequence but its payload is
// replaced by the hidden marker for everyone, sender included.
func (m *Message) ViewFor() *Message {
	if !m.Recalled {
		return m
	}
	v := *m
	v.Text = RecalledText
	v.ImageURL = ""
	v.VideoURL = ""
	v.FileURL = ""
	v.FileName = ""
	v.Reactions = nil
	return &v
}
