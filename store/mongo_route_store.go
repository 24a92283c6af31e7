package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"traveltales/models"
)

func (s *MongoStore) CreateRoute(ctx context.Context, route *models.Route) error {
	if route.PlaceNames == nil {
		route.PlaceNames = []string{}
	}
	if route.Likes == nil {
		route.Likes = []string{}
	}
	if route.Comments == nil {
		route.Comments = []models.Comment{}
	}
	_, err := s.routes.InsertOne(ctx, route)
	return translate(err)
}

func (s *MongoStore) GetRoute(ctx context.Context, id string) (*models.Route, error) {
	var route models.Route
	if err := s.routes.FindOne(ctx, bson.M{"_id": id}).Decode(&route); err != nil {
		return nil, translate(err)
	}
	return &route, nil
}

func (s *MongoStore) ListRoutesByOwner(ctx context.Context, ownerID string, isDraft bool) ([]models.Route, error) {
	return s.findRoutes(ctx, bson.M{"user_id": ownerID, "is_draft": isDraft}, newestFirst())
}

func (s *MongoStore) ListAllRoutes(ctx context.Context) ([]models.Route, error) {
	return s.findRoutes(ctx, bson.M{}, newestFirst())
}

func (s *MongoStore) ListFeed(ctx context.Context, limit int) ([]models.Route, error) {
	opts := newestFirst()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.findRoutes(ctx, bson.M{"is_draft": false}, opts)
}

func (s *MongoStore) NearbyRoutes(ctx context.Context, center models.Point, radiusMeters float64) ([]models.Route, error) {
	filter := bson.M{
		"is_draft": false,
		"start_location": bson.M{
			"$nearSphere": bson.M{
				"$geometry":    models.NewGeoPoint(center),
				"$maxDistance": radiusMeters,
			},
		},
	}
	// $nearSphere already orders by distance.
	return s.findRoutes(ctx, filter, options.Find().SetLimit(MaxNearbyResults))
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}

func (s *MongoStore) findRoutes(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Route, error) {
	cursor, err := s.routes.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find routes: %w", err)
	}
	defer cursor.Close(ctx)

	routes := make([]models.Route, 0)
	if err := cursor.All(ctx, &routes); err != nil {
		return nil, fmt.Errorf("decode routes: %w", err)
	}
	return routes, nil
}

// UpdateRoute writes only the supplied fields. New points also reset
// place names until enrichment catches up.
func (s *MongoStore) UpdateRoute(ctx context.Context, id string, update models.RouteUpdate) (*models.Route, error) {
	set := bson.M{}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.RoutePoints != nil {
		points := *update.RoutePoints
		set["route_points"] = points
		set["place_names"] = []string{}
		if len(points) > 0 {
			set["start_location"] = models.NewGeoPoint(points[0])
		}
	}
	if len(set) == 0 {
		return s.GetRoute(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var route models.Route
	if err := s.routes.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&route); err != nil {
		return nil, translate(err)
	}
	return &route, nil
}

func (s *MongoStore) SetPlaceNames(ctx context.Context, id string, points []models.Point, names []string) error {
	filter := bson.M{"_id": id, "route_points": points}
	return s.updateRoute(ctx, filter, bson.M{"$set": bson.M{"place_names": nonNil(names)}})
}

func (s *MongoStore) DeleteRoute(ctx context.Context, id string) error {
	res, err := s.routes.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleLike flips membership of userID in one pipeline update so that
// concurrent toggles by different users never overwrite each other.
func (s *MongoStore) ToggleLike(ctx context.Context, routeID, userID string) ([]string, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likes": 1})

	var result struct {
		Likes []string `bson:"likes"`
	}
	err := s.routes.FindOneAndUpdate(ctx, bson.M{"_id": routeID}, toggleLikePipeline(userID), opts).Decode(&result)
	if err != nil {
		return nil, translate(err)
	}
	return nonNil(result.Likes), nil
}

func toggleLikePipeline(userID string) mongo.Pipeline {
	likes := bson.D{{Key: "$ifNull", Value: bson.A{"$likes", bson.A{}}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "likes", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$in", Value: bson.A{userID, likes}}},
			bson.D{{Key: "$filter", Value: bson.D{
				{Key: "input", Value: likes},
				{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this", userID}}}},
			}}},
			bson.D{{Key: "$concatArrays", Value: bson.A{likes, bson.A{userID}}}},
		}}}}}}},
	}
}

func (s *MongoStore) AppendComment(ctx context.Context, routeID string, comment models.Comment) error {
	return s.updateRoute(ctx, bson.M{"_id": routeID}, bson.M{"$push": bson.M{"comments": comment}})
}

func (s *MongoStore) RemoveComment(ctx context.Context, routeID, commentID string) error {
	filter := bson.M{"_id": routeID, "comments._id": commentID}
	return s.updateRoute(ctx, filter, bson.M{"$pull": bson.M{"comments": bson.M{"_id": commentID}}})
}

func (s *MongoStore) updateRoute(ctx context.Context, filter, update bson.M) error {
	res, err := s.routes.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
