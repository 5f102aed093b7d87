package share

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/revenuemap/pkg/errors"
)

// MongoConfig selects the MongoDB deployment and collection.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoStore keeps shares in a MongoDB collection. A TTL index on
// expires_at lets the server reap expired shares; Get still checks expiry
// because the reaper runs only once a minute.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// NewMongoStore connects, pings and ensures the TTL index.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mongo: URI is required")
	}
	if cfg.Database == "" {
		cfg.Database = "revenuemap"
	}
	if cfg.Collection == "" {
		cfg.Collection = "shares"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongo")
	}

	store := &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		now:    time.Now,
	}
	if err := store.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return store, nil
}

func (m *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
	})
	if err != nil {
		return fmt.Errorf("create ttl index: %w", err)
	}
	return nil
}

func (m *MongoStore) Save(ctx context.Context, s *Share) error {
	if err := ValidateID(s.ID); err != nil {
		return err
	}
	if _, err := m.coll.InsertOne(ctx, s); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "insert share")
	}
	return nil
}

func (m *MongoStore) Get(ctx context.Context, id string) (*Share, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var s Share
	err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&s)
	return m.result(id, &s, err)
}

func (m *MongoStore) RecordView(ctx context.Context, id string) (*Share, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: m.now()}}},
	}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "views", Value: 1}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var s Share
	err := m.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&s)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		// distinguish expired from missing
		return m.Get(ctx, id)
	}
	return m.result(id, &s, err)
}

func (m *MongoStore) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if _, err := m.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "delete share")
	}
	return nil
}

func (m *MongoStore) Cleanup(ctx context.Context) (int, error) {
	res, err := m.coll.DeleteMany(ctx, bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lte", Value: m.now()}}}})
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeNetwork, err, "delete expired shares")
	}
	return int(res.DeletedCount), nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *MongoStore) result(id string, s *Share, err error) (*Share, error) {
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "load share %s", id)
	}
	if s.IsExpired(m.now()) {
		return nil, expired(id)
	}
	return s, nil
}

var _ Store = (*MongoStore)(nil)
