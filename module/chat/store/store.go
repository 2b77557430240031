package store

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"realchat/module/chat/model"
)

// The gateway talks to storage through these interfaces. The mongo
// implementations below are the production backend; tests exercise the
// gateway against in-memory fakes.
//
// Write methods are chosen so that everything that can be a single atomic
// document primitive ($addToSet/$pull/$push/$inc/keyed $set) is one.
// Read-modify-write survives only where no primitive fits (reaction
// toggle), and that path is explicitly best-effort.

type UserStore interface {
	Get(ctx context.Context, userID string) (*model.User, error)
	GetMany(ctx context.Context, userIDs []string) ([]*model.User, error)
	ListOthers(ctx context.Context, exceptID string) ([]*model.User, error)
	AddFriend(ctx context.Context, ownerID, friendID string) error
	RemoveFriend(ctx context.Context, ownerID, friendID string) error
	AddDeletedMessage(ctx context.Context, userID, msgID string) error
}

type FriendStore interface {
	Get(ctx context.Context, requestID string) (*model.FriendRequest, error)
	// DeletePair removes every request between the unordered pair,
	// whichever side sent it.
	DeletePair(ctx context.Context, a, b string) error
	Insert(ctx context.Context, req *model.FriendRequest) error
	Delete(ctx context.Context, requestID string) error
	ListPendingFor(ctx context.Context, userID string) ([]*model.FriendRequest, error)
}

type ConversationStore interface {
	Get(ctx context.Context, conversationID string) (*model.Conversation, error)
	FindByPair(ctx context.Context, a, b string) (*model.Conversation, error)
	// FindOrCreate resolves the unordered pair to its single conversation,
	// creating an empty one on first use.
	FindOrCreate(ctx context.Context, a, b string) (*model.Conversation, error)
	AppendMessage(ctx context.Context, conversationID, msgID string) error
	SetLastMessage(ctx context.Context, conversationID, msgID string) error
	ListFor(ctx context.Context, userID string) ([]*model.Conversation, error)
}

type MessageStore interface {
	Insert(ctx context.Context, msg *model.Message) error
	Get(ctx context.Context, msgID string) (*model.Message, error)
	// GetMany returns the messages for ids preserving the order of ids;
	// ids with no document are skipped.
	GetMany(ctx context.Context, msgIDs []string) ([]*model.Message, error)
	SetReaction(ctx context.Context, msgID, userID, emoji string) error
	RemoveReaction(ctx context.Context, msgID, userID string) error
	SetRecalled(ctx context.Context, msgID string) error
	// MarkSeenFrom flags every listed message authored by senderID as seen.
	MarkSeenFrom(ctx context.Context, msgIDs []string, senderID string) error
}

type GroupStore interface {
	Insert(ctx context.Context, g *model.GroupChat) error
	Get(ctx context.Context, groupID string) (*model.GroupChat, error)
	ListFor(ctx context.Context, userID string) ([]*model.GroupChat, error)
	AddMembers(ctx context.Context, groupID string, memberIDs []string) error
	RemoveMember(ctx context.Context, groupID, memberID string) error
	SetCreator(ctx context.Context, groupID, userID string) error
	AppendMessage(ctx context.Context, groupID, msgID string) error
	SetLastMessage(ctx context.Context, groupID, msgID string) error
	IncrementUnseen(ctx context.Context, groupID string, memberIDs []string) error
	ResetUnseen(ctx context.Context, groupID, memberID, lastMsgID string) error
	Delete(ctx context.Context, groupID string) error
}

// Stores bundles everything the gateway needs.
type Stores struct {
	Users   UserStore
	Friends FriendStore
	Convs   ConversationStore
	Msgs    MessageStore
	Groups  GroupStore
}

// NewMongo wires all stores onto one database handle.
func NewMongo(db *mongo.Database) *Stores {
	return &Stores{
		Users:   &mongoUsers{c: db.Collection(model.UserTableName)},
		Friends: &mongoFriends{c: db.Collection(model.FriendRequestTableName)},
		Convs:   &mongoConversations{c: db.Collection(model.ConversationTableName)},
		Msgs:    &mongoMessages{c: db.Collection(model.MsgTableName)},
		Groups:  &mongoGroups{c: db.Collection(model.GroupTableName)},
	}
}
