package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"traveltales/models"
)

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.Followers == nil {
		user.Followers = []string{}
	}
	if user.Following == nil {
		user.Following = []string{}
	}
	_, err := s.users.InsertOne(ctx, user)
	return translate(err)
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *MongoStore) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0, len(ids))
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s *MongoStore) ListUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s *MongoStore) UpdateUser(ctx context.Context, id string, update models.UserUpdate) (*models.User, error) {
	set := bson.M{}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.DateOfBirth != nil {
		set["date_of_birth"] = *update.DateOfBirth
	}
	if update.ProfileImage != nil {
		set["profile_image"] = *update.ProfileImage
	}
	if len(set) == 0 {
		return s.GetUser(ctx, id)
	}
	return s.updateUserReturning(ctx, id, bson.M{"$set": set})
}

func (s *MongoStore) SetRole(ctx context.Context, id, role string) (*models.User, error) {
	return s.updateUserReturning(ctx, id, bson.M{"$set": bson.M{"role": role}})
}

func (s *MongoStore) updateUserReturning(ctx context.Context, id string, update bson.M) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	if err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *MongoStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) AddFollowing(ctx context.Context, userID, targetID string) error {
	return s.updateUser(ctx, userID, bson.M{"$addToSet": bson.M{"following": targetID}})
}

func (s *MongoStore) RemoveFollowing(ctx context.Context, userID, targetID string) error {
	return s.updateUser(ctx, userID, bson.M{"$pull": bson.M{"following": targetID}})
}

func (s *MongoStore) AddFollower(ctx context.Context, userID, followerID string) error {
	return s.updateUser(ctx, userID, bson.M{"$addToSet": bson.M{"followers": followerID}})
}

func (s *MongoStore) RemoveFollower(ctx context.Context, userID, followerID string) error {
	return s.updateUser(ctx, userID, bson.M{"$pull": bson.M{"followers": followerID}})
}

func (s *MongoStore) updateUser(ctx context.Context, id string, update bson.M) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
