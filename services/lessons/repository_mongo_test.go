package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func lessonBSON(id primitive.ObjectID, subject string, space int) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "subject", Value: subject},
		{Key: "location", Value: "London"},
		{Key: "price", Value: 100.0},
		{Key: "space", Value: space},
		{Key: "icon", Value: "fa-book"},
	}
}

func TestMongoLessonRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "afterSchoolClasses." + lessonsCollection

	mt.Run("get lesson", func(mt *mtest.T) {
		// Arrange
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, lessonBSON(id, "Music", 6)))
		repo := NewMongoLessonRepository(mt.DB)

		// Act
		lesson, err := repo.GetLesson(context.Background(), id.Hex())

		// Assert
		require.NoError(mt, err)
		assert.Equal(mt, Lesson{ID: id.Hex(), Subject: "Music", Location: "London", Price: 100, Space: 6, Icon: "fa-book"}, *lesson)
	})

	mt.Run("get lesson not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		repo := NewMongoLessonRepository(mt.DB)

		_, err := repo.GetLesson(context.Background(), primitive.NewObjectID().Hex())

		assert.ErrorIs(mt, err, ErrLessonNotFound)
	})

	mt.Run("invalid id never reaches the server", func(mt *mtest.T) {
		repo := NewMongoLessonRepository(mt.DB)

		_, err := repo.GetLesson(context.Background(), "lesson-1")
		assert.ErrorIs(mt, err, ErrInvalidLessonID)

		_, err = repo.ReserveSpaces(context.Background(), "lesson-1", 1)
		assert.ErrorIs(mt, err, ErrInvalidLessonID)
	})

	mt.Run("reserve spaces", func(mt *mtest.T) {
		// Arrange
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: lessonBSON(id, "Music", 4)},
		))
		repo := NewMongoLessonRepository(mt.DB)

		// Act
		lesson, err := repo.ReserveSpaces(context.Background(), id.Hex(), 2)

		// Assert
		require.NoError(mt, err)
		assert.Equal(mt, 4, lesson.Space)
	})

	mt.Run("reserve spaces insufficient", func(mt *mtest.T) {
		// Arrange: findAndModify matches nothing, the lesson still exists
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
		)
		repo := NewMongoLessonRepository(mt.DB)

		// Act
		_, err := repo.ReserveSpaces(context.Background(), id.Hex(), 10)

		// Assert
		assert.ErrorIs(mt, err, ErrInsufficientCapacity)
	})

	mt.Run("reserve spaces missing lesson", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)
		repo := NewMongoLessonRepository(mt.DB)

		_, err := repo.ReserveSpaces(context.Background(), primitive.NewObjectID().Hex(), 1)

		assert.ErrorIs(mt, err, ErrLessonNotFound)
	})

	mt.Run("server error is a store failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad value",
		}))
		repo := NewMongoLessonRepository(mt.DB)

		_, err := repo.ListLessons(context.Background())

		assert.ErrorIs(mt, err, ErrStoreFailure)
	})

	mt.Run("update lesson", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: lessonBSON(id, "Music", 9)},
		))
		repo := NewMongoLessonRepository(mt.DB)
		space := 9

		lesson, err := repo.UpdateLesson(context.Background(), id.Hex(), LessonPatch{Space: &space})

		require.NoError(mt, err)
		assert.Equal(mt, 9, lesson.Space)
	})

	mt.Run("count lessons", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(12)}}))
		repo := NewMongoLessonRepository(mt.DB)

		n, err := repo.CountLessons(context.Background())

		require.NoError(mt, err)
		assert.Equal(mt, int64(12), n)
	})
}

func TestMongoOrderRepository_CreateOrder(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("assigns the generated id", func(mt *mtest.T) {
		// Arrange
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewMongoOrderRepository(mt.DB)
		order := NewOrder("Jane", "0712", []OrderedLesson{{LessonID: "abc", Subject: "Art", Quantity: 1}})

		// Act
		err := repo.CreateOrder(context.Background(), order)

		// Assert
		require.NoError(mt, err)
		_, parseErr := primitive.ObjectIDFromHex(order.ID)
		assert.NoError(mt, parseErr)
	})

	mt.Run("write error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))
		repo := NewMongoOrderRepository(mt.DB)
		order := NewOrder("Jane", "0712", nil)

		err := repo.CreateOrder(context.Background(), order)

		assert.ErrorIs(mt, err, ErrStoreFailure)
		assert.Empty(mt, order.ID)
	})
}

func TestSearchFilter(t *testing.T) {
	t.Run("text only", func(t *testing.T) {
		criteria, ok := NewSearchCriteria("art (design)")
		require.True(t, ok)

		filter := searchFilter(criteria)

		pattern := primitive.Regex{Pattern: `art \(design\)`, Options: "i"}
		assert.Equal(t, bson.M{"$or": bson.A{
			bson.M{"subject": bson.M{"$regex": pattern}},
			bson.M{"location": bson.M{"$regex": pattern}},
		}}, filter)
	})

	t.Run("integer adds price and space", func(t *testing.T) {
		criteria, ok := NewSearchCriteria("100")
		require.True(t, ok)

		filter := searchFilter(criteria)

		conditions := filter["$or"].(bson.A)
		require.Len(t, conditions, 4)
		assert.Equal(t, bson.M{"price": 100.0}, conditions[2])
		assert.Equal(t, bson.M{"space": 100}, conditions[3])
	})

	t.Run("decimal adds price only", func(t *testing.T) {
		criteria, ok := NewSearchCriteria("10.5")
		require.True(t, ok)

		conditions := searchFilter(criteria)["$or"].(bson.A)

		require.Len(t, conditions, 3)
		assert.Equal(t, bson.M{"price": 10.5}, conditions[2])
	})
}

func TestPatchFields(t *testing.T) {
	subject := "Art"
	space := 0

	assert.Equal(t, bson.M{"subject": "Art", "space": 0}, patchFields(LessonPatch{Subject: &subject, Space: &space}))
	assert.Empty(t, patchFields(LessonPatch{}))
}

func TestOrderDocumentKeepsCreatedAt(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	raw, err := bson.Marshal(orderDocument{Name: "Jane", CreatedAt: created})
	require.NoError(t, err)

	var decoded bson.M
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	assert.NotContains(t, decoded, "_id")
	assert.Equal(t, primitive.NewDateTimeFromTime(created), decoded["createdAt"])
}
