package store

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"call-review-go/internal/config"
	"call-review-go/internal/errs"
	"call-review-go/internal/types"
)

// MongoStore keeps one document per call record.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoStore(ctx context.Context, cfg config.StoreConfig) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection),
	}, nil
}

func (s *MongoStore) ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Save(ctx context.Context, rec *types.CallRecord) error {
	if rec == nil {
		return errs.Store("save", errs.Invalid("record is nil"))
	}
	prepare(rec, uuid.NewString)
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return errs.Store("save", err)
	}
	return nil
}

func (s *MongoStore) Search(ctx context.Context, field types.SearchField, query string) ([]types.CallRecord, error) {
	if _, err := types.ParseSearchField(string(field)); err != nil {
		return nil, err
	}
	filter := bson.M{string(field): regexFilter(query)}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.Store("search", err)
	}
	defer cur.Close(ctx)

	out := []types.CallRecord{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Store("search", err)
	}
	if out == nil {
		out = []types.CallRecord{}
	}
	return out, nil
}

// regexFilter matches query literally anywhere in the field, ignoring case.
func regexFilter(query string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
