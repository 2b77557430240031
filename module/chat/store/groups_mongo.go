package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"realchat/module/chat/model"
	"realchat/tools/errs"
)

type mongoGroups struct {
	c *mongo.Collection
}

func (s *mongoGroups) Insert(ctx context.Context, g *model.GroupChat) error {
	_, err := s.c.InsertOne(ctx, g)
	return errs.Wrap(err)
}

func (s *mongoGroups) Get(ctx context.Context, groupID string) (*model.GroupChat, error) {
	var g model.GroupChat
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID}).Decode(&g)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrGroupNotFound.WithRef(groupID)
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &g, nil
}

func (s *mongoGroups) ListFor(ctx context.Context, userID string) ([]*model.GroupChat, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"member_ids": userID},
		options.Find().SetSort(bson.M{"last_activity": -1}))
	if err != nil {
		return nil, errs.Wrap(err)
	}
	var out []*model.GroupChat
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

func (s *mongoGroups) AddMembers(ctx context.Context, groupID string, memberIDs []string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID},
		bson.M{"$addToSet": bson.M{"member_ids": bson.M{"$each": memberIDs}}})
	if err != nil {
		return errs.Wrap(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrGroupNotFound.WithRef(groupID)
	}
	return nil
}

// RemoveMember pulls the member and drops their unseen record in one
// document update.
func (s *mongoGroups) RemoveMember(ctx context.Context, groupID, memberID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID},
		bson.M{
			"$pull":  bson.M{"member_ids": memberID},
			"$unset": bson.M{"unseen." + memberID: ""},
		})
	if err != nil {
		return errs.Wrap(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrGroupNotFound.WithRef(groupID)
	}
	return nil
}

func (s *mongoGroups) SetCreator(ctx context.Context, groupID, userID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID},
		bson.M{"$set": bson.M{"creator_id": userID}})
	if err != nil {
		return errs.Wrap(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrGroupNotFound.WithRef(groupID)
	}
	return nil
}

func (s *mongoGroups) AppendMessage(ctx context.Context, groupID, msgID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID},
		bson.M{
			"$push": bson.M{"message_ids": msgID},
			"$set":  bson.M{"last_msg_id": msgID, "last_activity": time.Now()},
		})
	if err != nil {
		return errs.Wrap(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrGroupNotFound.WithRef(groupID)
	}
	return nil
}

func (s *mongoGroups) SetLastMessage(ctx context.Context, groupID, msgID string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID},
		bson.M{"$set": bson.M{"last_msg_id": msgID}})
	return errs.Wrap(err)
}

// IncrementUnseen bumps every listed member's counter in a single $inc,
// keyed per member, so concurrent posts never lose increments.
func (s *mongoGroups) IncrementUnseen(ctx context.Context, groupID string, memberIDs []string) error {
	if len(memberIDs) == 0 {
		return nil
	}
	inc := bson.M{}
	for _, id := range memberIDs {
		inc["unseen."+id+".count"] = 1
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"group_id": groupID}, bson.M{"$inc": inc})
	return errs.Wrap(err)
}

func (s *mongoGroups) ResetUnseen(ctx context.Context, groupID, memberID, lastMsgID string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID},
		bson.M{"$set": bson.M{
			"unseen." + memberID: model.UnseenRecord{Count: 0, LastSeenMsgID: lastMsgID},
		}})
	return errs.Wrap(err)
}

func (s *mongoGroups) Delete(ctx context.Context, groupID string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"group_id": groupID})
	return errs.Wrap(err)
}
