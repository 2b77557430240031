package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"realchat/module/chat/model"
	"realchat/tools/errs"
)

type mongoFriends struct {
	c *mongo.Collection
}

func (s *mongoFriends) Get(ctx context.Context, requestID string) (*model.FriendRequest, error) {
	var req model.FriendRequest
	err := s.c.FindOne(ctx, bson.M{"request_id": requestID}).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrRequestNotFound.WithRef(requestID)
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &req, nil
}

func (s *mongoFriends) DeletePair(ctx context.Context, a, b string) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"from_user_id": a, "to_user_id": b},
		bson.M{"from_user_id": b, "to_user_id": a},
	}})
	return errs.Wrap(err)
}

func (s *mongoFriends) Insert(ctx context.Context, req *model.FriendRequest) error {
	_, err := s.c.InsertOne(ctx, req)
	return errs.Wrap(err)
}

func (s *mongoFriends) Delete(ctx context.Context, requestID string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"request_id": requestID})
	return errs.Wrap(err)
}

func (s *mongoFriends) ListPendingFor(ctx context.Context, userID string) ([]*model.FriendRequest, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"to_user_id": userID, "status": model.RequestPending},
		options.Find().SetSort(bson.M{"create_time": -1}))
	if err != nil {
		return nil, errs.Wrap(err)
	}
	var out []*model.FriendRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}
