package databases

// go generate: mockery --name TimerDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/accordlabs/dispute-mediation-api/models"
)

const timerCollectionName = "disputetimers"

// TimerDatabase contains the methods to use with the dispute timer database
type TimerDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.DisputeTimer, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.DisputeTimer, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
}

type timerDatabase struct {
	db DatabaseHelper
}

// NewTimerDatabase initializes a new instance of timer database with the provided db connection
func NewTimerDatabase(db DatabaseHelper) TimerDatabase {
	return &timerDatabase{
		db: db,
	}
}

func (t *timerDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.DisputeTimer, error) {
	timer := &models.DisputeTimer{}
	err := t.db.Collection(timerCollectionName).FindOne(ctx, filter, opts...).Decode(&timer)
	if err != nil {
		return nil, err
	}
	return timer, nil
}

func (t *timerDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.DisputeTimer, error) {
	var timers []models.DisputeTimer
	curr, err := t.db.Collection(timerCollectionName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &timers)
	if err != nil {
		return nil, err
	}
	return timers, nil
}

func (t *timerDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return t.db.Collection(timerCollectionName).InsertOne(ctx, document, opts...)
}

func (t *timerDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return t.db.Collection(timerCollectionName).UpdateOne(ctx, filter, update, opts...)
}

func (t *timerDatabase) UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return t.db.Collection(timerCollectionName).UpdateMany(ctx, filter, update, opts...)
}

func (t *timerDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return t.db.Collection(timerCollectionName).DeleteOne(ctx, filter, opts...)
}
