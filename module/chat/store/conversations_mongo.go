package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"realchat/module/chat/model"
	"realchat/tools/errs"
	"realchat/tools/ids"
)

type mongoConversations struct {
	c *mongo.Collection
}

func (s *mongoConversations) Get(ctx context.Context, conversationID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.c.FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrThreadNotFound.WithRef(conversationID)
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &conv, nil
}

func (s *mongoConversations) FindByPair(ctx context.Context, a, b string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.c.FindOne(ctx, bson.M{"pair_key": model.PairKey(a, b)}).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrThreadNotFound
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &conv, nil
}

// FindOrCreate upserts on the unique pair key, so two concurrent first
// messages between the same pair still converge on one document.
func (s *mongoConversations) FindOrCreate(ctx context.Context, a, b string) (*model.Conversation, error) {
	now := time.Now()
	key := model.PairKey(a, b)
	update := bson.M{"$setOnInsert": bson.M{
		"conversation_id": ids.GenerateString(),
		"pair_key":        key,
		"user_a":          a,
		"user_b":          b,
		"message_ids":     []string{},
		"last_msg_id":     "",
		"last_activity":   now,
		"create_time":     now,
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var conv model.Conversation
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"pair_key": key}, update, opts).Decode(&conv); err != nil {
		return nil, errs.Wrap(err)
	}
	return &conv, nil
}

func (s *mongoConversations) AppendMessage(ctx context.Context, conversationID, msgID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"conversation_id": conversationID},
		bson.M{
			"$push": bson.M{"message_ids": msgID},
			"$set":  bson.M{"last_msg_id": msgID, "last_activity": time.Now()},
		})
	if err != nil {
		return errs.Wrap(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrThreadNotFound.WithRef(conversationID)
	}
	return nil
}

func (s *mongoConversations) SetLastMessage(ctx context.Context, conversationID, msgID string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"conversation_id": conversationID},
		bson.M{"$set": bson.M{"last_msg_id": msgID}})
	return errs.Wrap(err)
}

func (s *mongoConversations) ListFor(ctx context.Context, userID string) ([]*model.Conversation, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"$or": bson.A{bson.M{"user_a": userID}, bson.M{"user_b": userID}}},
		options.Find().SetSort(bson.M{"last_activity": -1}))
	if err != nil {
		return nil, errs.Wrap(err)
	}
	var out []*model.Conversation
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}
