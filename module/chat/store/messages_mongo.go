package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"realchat/module/chat/model"
	"realchat/tools/errs"
)

type mongoMessages struct {
	c *mongo.Collection
}

func (s *mongoMessages) Insert(ctx context.Context, msg *model.Message) error {
	_, err := s.c.InsertOne(ctx, msg)
	return errs.Wrap(err)
}

func (s *mongoMessages) Get(ctx context.Context, msgID string) (*model.Message, error) {
	var m model.Message
	err := s.c.FindOne(ctx, bson.M{"msg_id": msgID}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrMessageNotFound.WithRef(msgID)
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &m, nil
}

// GetMany preserves the order of msgIDs — the thread's message id array is
// the authoritative display order, not any index on this collection.
func (s *mongoMessages) GetMany(ctx context.Context, msgIDs []string) ([]*model.Message, error) {
	if len(msgIDs) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"msg_id": bson.M{"$in": msgIDs}})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	var fetched []*model.Message
	if err := cur.All(ctx, &fetched); err != nil {
		return nil, errs.Wrap(err)
	}
	byID := make(map[string]*model.Message, len(fetched))
	for _, m := range fetched {
		byID[m.MsgID] = m
	}
	out := make([]*model.Message, 0, len(msgIDs))
	for _, id := range msgIDs {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *mongoMessages) SetReaction(ctx context.Context, msgID, userID, emoji string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"msg_id": msgID},
		bson.M{"$set": bson.M{"reactions." + userID: emoji}})
	if err != nil {
		return errs.Wrap(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrMessageNotFound.WithRef(msgID)
	}
	return nil
}

func (s *mongoMessages) RemoveReaction(ctx context.Context, msgID, userID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"msg_id": msgID},
		bson.M{"$unset": bson.M{"reactions." + userID: ""}})
	if err != nil {
		return errs.Wrap(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrMessageNotFound.WithRef(msgID)
	}
	return nil
}

// SetRecalled is monotonic: there is no way back to recalled=false.
func (s *mongoMessages) SetRecalled(ctx context.Context, msgID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"msg_id": msgID},
		bson.M{"$set": bson.M{"recalled": true}})
	if err != nil {
		return errs.Wrap(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrMessageNotFound.WithRef(msgID)
	}
	return nil
}

func (s *mongoMessages) MarkSeenFrom(ctx context.Context, msgIDs []string, senderID string) error {
	if len(msgIDs) == 0 {
		return nil
	}
	_, err := s.c.UpdateMany(ctx,
		bson.M{"msg_id": bson.M{"$in": msgIDs}, "sender_id": senderID},
		bson.M{"$set": bson.M{"seen": true}})
	return errs.Wrap(err)
}
