package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"realchat/module/chat/model"
	"realchat/tools/errs"
)

type mongoUsers struct {
	c *mongo.Collection
}

func (s *mongoUsers) Get(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrUserNotFound.WithRef(userID)
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &u, nil
}

func (s *mongoUsers) GetMany(ctx context.Context, userIDs []string) ([]*model.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"user_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	var out []*model.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

func (s *mongoUsers) ListOthers(ctx context.Context, exceptID string) ([]*model.User, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": bson.M{"$ne": exceptID}})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	var out []*model.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

func (s *mongoUsers) AddFriend(ctx context.Context, ownerID, friendID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": ownerID},
		bson.M{
			"$addToSet": bson.M{"friend_ids": friendID},
			"$set":      bson.M{"update_time": time.Now()},
		})
	if err != nil {
		return errs.Wrap(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrUserNotFound.WithRef(ownerID)
	}
	return nil
}

func (s *mongoUsers) RemoveFriend(ctx context.Context, ownerID, friendID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": ownerID},
		bson.M{
			"$pull": bson.M{"friend_ids": friendID},
			"$set":  bson.M{"update_time": time.Now()},
		})
	if err != nil {
		return errs.Wrap(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrUserNotFound.WithRef(ownerID)
	}
	return nil
}

func (s *mongoUsers) AddDeletedMessage(ctx context.Context, userID, msgID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$addToSet": bson.M{"deleted_msg_ids": msgID}})
	if err != nil {
		return errs.Wrap(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrUserNotFound.WithRef(userID)
	}
	return nil
}
