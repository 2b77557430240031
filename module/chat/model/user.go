package model

import (
	"time"
)

const UserTableName = "users"

// User is the identity document the external identity system owns. The
// core only reads the profile fields and mutates the two sets it is
// responsible for: the friend edge set and the per-viewer soft-deleted
// message set.
type User struct {
	UserID    string `bson:"user_id"` // unique index
	Name      string `bson:"name"`
	AvatarURL string `bson:"avatar_url"`

	FriendIDs     []string `bson:"friend_ids"`      // mutual friendship edges
	DeletedMsgIDs []string `bson:"deleted_msg_ids"` // messages hidden from this user only

	CreateTime time.Time `bson:"create_time"`
	UpdateTime time.Time `bson:"update_time"`
}

func (*User) TableName() string { return UserTableName }

func (u *User) IsFriend(userID string) bool {
	for _, id := range u.FriendIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (u *User) HasDeleted(msgID string) bool {
	for _, id := range u.DeletedMsgIDs {
		if id == msgID {
			return true
		}
	}
	return false
}

// Summary is the profile view pushed to clients (contacts, peer header).
type Summary struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	Online    bool   `json:"online"`
}

func (u *User) Summary(online bool) Summary {
	return Summary{UserID: u.UserID, Name: u.Name, AvatarURL: u.AvatarURL, Online: online}
}
