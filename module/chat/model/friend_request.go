package model

import (
	"time"
)

const FriendRequestTableName = "friend_requests"

// Request status. Terminal states are transient: a resolved request is
// deleted right after both sides have been notified, so at rest only
// pending records exist.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// FriendRequest is one half of the pending -> {accepted,rejected} -> gone
// state machine. At most one pending record may exist per unordered user
// pair; the store deletes any prior record between the pair before
// inserting a fresh pending one.
type FriendRequest struct {
	RequestID  string    `bson:"request_id"` // unique index
	FromUserID string    `bson:"from_user_id"`
	ToUserID   string    `bson:"to_user_id"`
	Status     string    `bson:"status"`
	CreateTime time.Time `bson:"create_time"`
}

func (*FriendRequest) TableName() string { return FriendRequestTableName }
