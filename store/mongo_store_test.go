package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"traveltales/models"
)

func TestMongoRouteStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("toggle like returns updated set", func(mt *mtest.T) {
		s := newMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: "r1"},
			{Key: "likes", Value: bson.A{"u1", "u2"}},
		}}))

		likes, err := s.ToggleLike(ctx, "r1", "u2")
		require.NoError(mt, err)
		assert.Equal(mt, []string{"u1", "u2"}, likes)
	})

	mt.Run("toggle like on missing route", func(mt *mtest.T) {
		s := newMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := s.ToggleLike(ctx, "missing", "u1")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("get route decodes document", func(mt *mtest.T) {
		s := newMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "db.routes", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "r1"},
			{Key: "user_id", Value: "u1"},
			{Key: "title", Value: "Trip"},
			{Key: "route_points", Value: bson.A{
				bson.D{{Key: "latitude", Value: 41.0}, {Key: "longitude", Value: 29.0}},
				bson.D{{Key: "latitude", Value: 41.1}, {Key: "longitude", Value: 29.1}},
			}},
			{Key: "is_draft", Value: true},
		}))

		route, err := s.GetRoute(ctx, "r1")
		require.NoError(mt, err)
		assert.Equal(mt, "Trip", route.Title)
		assert.True(mt, route.IsDraft)
		assert.Len(mt, route.RoutePoints, 2)
	})

	mt.Run("get route not found", func(mt *mtest.T) {
		s := newMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.routes", mtest.FirstBatch))

		_, err := s.GetRoute(ctx, "missing")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("remove comment with no match", func(mt *mtest.T) {
		s := newMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := s.RemoveComment(ctx, "r1", "c1")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("append comment", func(mt *mtest.T) {
		s := newMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		err := s.AppendComment(ctx, "r1", models.Comment{ID: "c1", UserID: "u1", Text: "nice"})
		assert.NoError(mt, err)
	})

	mt.Run("set place names matches on points", func(mt *mtest.T) {
		s := newMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		points := []models.Point{{Latitude: 41.0, Longitude: 29.0}}

		err := s.SetPlaceNames(ctx, "r1", points, []string{"Istanbul"})
		assert.ErrorIs(mt, err, ErrNotFound)

		cmd := mt.GetStartedEvent().Command
		_, err = cmd.LookupErr("updates", "0", "q", "route_points")
		assert.NoError(mt, err)
	})

	mt.Run("update points clears place names", func(mt *mtest.T) {
		s := newMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: "r1"},
			{Key: "place_names", Value: bson.A{}},
		}}))
		points := []models.Point{{Latitude: 48.85, Longitude: 2.35}}

		route, err := s.UpdateRoute(ctx, "r1", models.RouteUpdate{RoutePoints: &points})
		require.NoError(mt, err)
		assert.Empty(mt, route.PlaceNames)

		names, err := mt.GetStartedEvent().Command.LookupErr("update", "$set", "place_names")
		require.NoError(mt, err)
		values, err := names.Array().Values()
		require.NoError(mt, err)
		assert.Empty(mt, values)
	})

	mt.Run("delete missing route", func(mt *mtest.T) {
		s := newMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		assert.ErrorIs(mt, s.DeleteRoute(ctx, "missing"), ErrNotFound)
	})
}

func TestMongoUserStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("duplicate email", func(mt *mtest.T) {
		s := newMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := s.CreateUser(ctx, &models.User{ID: "u1", Email: "a@x.io"})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("get users batches ids", func(mt *mtest.T) {
		s := newMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.users", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "u1"}, {Key: "username", Value: "alice"}},
			bson.D{{Key: "_id", Value: "u2"}, {Key: "username", Value: "bob"}},
		))

		users, err := s.GetUsers(ctx, []string{"u1", "u2", "ghost"})
		require.NoError(mt, err)
		require.Len(mt, users, 2)
		assert.Equal(mt, "bob", users[1].Username)

		ids, err := mt.GetStartedEvent().Command.LookupErr("filter", "_id", "$in")
		require.NoError(mt, err)
		values, err := ids.Array().Values()
		require.NoError(mt, err)
		assert.Len(mt, values, 3)
	})

	mt.Run("get users with no ids skips the query", func(mt *mtest.T) {
		s := newMongoStore(mt.DB)
		users, err := s.GetUsers(ctx, nil)
		require.NoError(mt, err)
		assert.Empty(mt, users)
	})

	mt.Run("follow edge on missing user", func(mt *mtest.T) {
		s := newMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		assert.ErrorIs(mt, s.AddFollowing(ctx, "ghost", "u2"), ErrNotFound)
	})

	mt.Run("set role returns updated user", func(mt *mtest.T) {
		s := newMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: "u1"},
			{Key: "username", Value: "sezin"},
			{Key: "role", Value: "admin"},
		}}))

		user, err := s.SetRole(ctx, "u1", models.RoleAdmin)
		require.NoError(mt, err)
		assert.Equal(mt, models.RoleAdmin, user.Role)
	})
}

func TestToggleLikePipelineShape(t *testing.T) {
	pipeline := toggleLikePipeline("u1")
	require.Len(t, pipeline, 1)
	assert.Equal(t, "$set", pipeline[0][0].Key)
}
