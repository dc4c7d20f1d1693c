package databases

// go generate: mockery --name ActivityDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/accordlabs/dispute-mediation-api/models"
)

const activityCollectionName = "activitylog"

// ActivityDatabase contains the methods to use with the append-only activity
// log. There is deliberately no update or delete.
type ActivityDatabase interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ActivityLogEntry, error)
	FindByCase(ctx context.Context, caseID string, limit, page int) ([]models.ActivityLogEntry, error)
}

type activityDatabase struct {
	db DatabaseHelper
}

// NewActivityDatabase initializes a new instance of activity database with the provided db connection
func NewActivityDatabase(db DatabaseHelper) ActivityDatabase {
	return &activityDatabase{
		db: db,
	}
}

func (a *activityDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return a.db.Collection(activityCollectionName).InsertOne(ctx, document, opts...)
}

func (a *activityDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ActivityLogEntry, error) {
	var entries []models.ActivityLogEntry
	curr, err := a.db.Collection(activityCollectionName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByCase returns a page of the case's audit trail, newest first
func (a *activityDatabase) FindByCase(ctx context.Context, caseID string, limit, page int) ([]models.ActivityLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	l := int64(limit)
	skip := int64(page)*l - l
	findOpts := &options.FindOptions{
		Limit: &l,
		Skip:  &skip,
	}
	findOpts.SetSort(bson.M{"createdAt": -1})

	return a.Find(ctx, bson.M{"caseID": caseID}, findOpts)
}
