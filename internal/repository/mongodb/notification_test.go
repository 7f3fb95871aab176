package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestNotificationRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("save", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())
		repo, err := NewNotificationRepository(ctx, mt.Client, mt.DB.Name())
		require.NoError(mt, err)

		err = repo.Save(ctx, &entity.Notification{ID: "n-1", UserID: "u-1", Title: "Order placed"})
		assert.NoError(mt, err)
	})

	mt.Run("find by user", func(mt *mtest.T) {
		created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		ns := mt.DB.Name() + "." + CollectionNotifications
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "n-1"},
				{Key: "user_id", Value: "u-1"},
				{Key: "title", Value: "Payment received"},
				{Key: "type", Value: "payment"},
				{Key: "is_read", Value: false},
				{Key: "created_at", Value: created},
			}),
		)
		repo, err := NewNotificationRepository(ctx, mt.Client, mt.DB.Name())
		require.NoError(mt, err)

		list, err := repo.FindByUser(ctx, "u-1", 10)
		require.NoError(mt, err)
		require.Len(mt, list, 1)
		assert.Equal(mt, "Payment received", list[0].Title)
		assert.True(mt, list[0].CreatedAt.Equal(created))
	})

	mt.Run("mark read", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}},
		)
		repo, err := NewNotificationRepository(ctx, mt.Client, mt.DB.Name())
		require.NoError(mt, err)

		assert.NoError(mt, repo.MarkRead(ctx, "u-1", "n-1"))
	})

	mt.Run("mark read missing", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}},
		)
		repo, err := NewNotificationRepository(ctx, mt.Client, mt.DB.Name())
		require.NoError(mt, err)

		assert.ErrorIs(mt, repo.MarkRead(ctx, "u-1", "missing"), entity.ErrNotFound)
	})
}
