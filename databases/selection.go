package databases

// go generate: mockery --name SelectionDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/accordlabs/dispute-mediation-api/models"
)

const selectionCollectionName = "optionselections"

// SelectionDatabase contains the methods to use with the option selection database
type SelectionDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.OptionSelection, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.OptionSelection, error)
	UpsertOne(ctx context.Context, filter interface{}, update interface{}) (*mongo.UpdateResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

type selectionDatabase struct {
	db DatabaseHelper
}

// NewSelectionDatabase initializes a new instance of selection database with the provided db connection
func NewSelectionDatabase(db DatabaseHelper) SelectionDatabase {
	return &selectionDatabase{
		db: db,
	}
}

func (s *selectionDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.OptionSelection, error) {
	selection := &models.OptionSelection{}
	err := s.db.Collection(selectionCollectionName).FindOne(ctx, filter, opts...).Decode(&selection)
	if err != nil {
		return nil, err
	}
	return selection, nil
}

func (s *selectionDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.OptionSelection, error) {
	var selections []models.OptionSelection
	curr, err := s.db.Collection(selectionCollectionName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &selections)
	if err != nil {
		return nil, err
	}
	return selections, nil
}

// UpsertOne writes the latest selection for a (case, user) pair; the last
// write is authoritative.
func (s *selectionDatabase) UpsertOne(ctx context.Context, filter interface{}, update interface{}) (*mongo.UpdateResult, error) {
	opts := options.Update().SetUpsert(true)
	return s.db.Collection(selectionCollectionName).UpdateOne(ctx, filter, update, opts)
}

func (s *selectionDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return s.db.Collection(selectionCollectionName).CountDocuments(ctx, filter, opts...)
}
