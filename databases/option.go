package databases

// go generate: mockery --name OptionDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/accordlabs/dispute-mediation-api/models"
)

const optionCollectionName = "settlementoptions"

// OptionDatabase contains the methods to use with the settlement option database
type OptionDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.SettlementOption, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.SettlementOption, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
}

type optionDatabase struct {
	db DatabaseHelper
}

// NewOptionDatabase initializes a new instance of option database with the provided db connection
func NewOptionDatabase(db DatabaseHelper) OptionDatabase {
	return &optionDatabase{
		db: db,
	}
}

func (o *optionDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.SettlementOption, error) {
	option := &models.SettlementOption{}
	err := o.db.Collection(optionCollectionName).FindOne(ctx, filter, opts...).Decode(&option)
	if err != nil {
		return nil, err
	}
	return option, nil
}

func (o *optionDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.SettlementOption, error) {
	var settlementOptions []models.SettlementOption
	curr, err := o.db.Collection(optionCollectionName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &settlementOptions)
	if err != nil {
		return nil, err
	}
	return settlementOptions, nil
}

func (o *optionDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return o.db.Collection(optionCollectionName).InsertOne(ctx, document, opts...)
}
