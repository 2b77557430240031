package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"realchat/module/chat/model"
	"realchat/tools/errs"
)

// EnsureIndexes creates the unique and query indexes the stores rely on.
// Idempotent; call once at startup after mongo is ready.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	specs := []struct {
		coll   string
		models []mongo.IndexModel
	}{
		{model.UserTableName, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: unique},
		}},
		{model.FriendRequestTableName, []mongo.IndexModel{
			{Keys: bson.D{{Key: "request_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "to_user_id", Value: 1}, {Key: "status", Value: 1}}},
		}},
		{model.ConversationTableName, []mongo.IndexModel{
			{Keys: bson.D{{Key: "conversation_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "pair_key", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "user_a", Value: 1}}},
			{Keys: bson.D{{Key: "user_b", Value: 1}}},
		}},
		{model.MsgTableName, []mongo.IndexModel{
			{Keys: bson.D{{Key: "msg_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "thread_id", Value: 1}, {Key: "create_time", Value: 1}}},
		}},
		{model.GroupTableName, []mongo.IndexModel{
			{Keys: bson.D{{Key: "group_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "member_ids", Value: 1}}},
		}},
	}

	for _, spec := range specs {
		if _, err := db.Collection(spec.coll).Indexes().CreateMany(ctx, spec.models); err != nil {
			return errs.WrapMsg(err, "ensure indexes: "+spec.coll)
		}
	}
	return nil
}
