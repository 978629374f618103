package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type stateDocument struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStorage keeps one document per key in the "client_state" collection.
type MongoStorage struct {
	collection *mongo.Collection
	ttl        time.Duration
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

func NewMongoStorage(db *mongo.Database, ttl time.Duration) *MongoStorage {
	return &MongoStorage{
		collection: db.Collection("client_state"),
		ttl:        ttl,
	}
}

func (m *MongoStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var doc stateDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	return doc.Value, nil
}

// Set upserts the key and refreshes updated_at across its session group, so
// the TTL index expires a session's fields together.
func (m *MongoStorage) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now()
	doc := stateDocument{Key: key, Value: value, UpdatedAt: now}
	opts := options.Replace().SetUpsert(true)

	if _, err := m.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert state: %w", err)
	}

	group, _ := splitKey(key)
	siblings := bson.M{"_id": bson.M{
		"$regex": "^" + regexp.QuoteMeta(group+":"),
		"$ne":    key,
	}}
	if _, err := m.collection.UpdateMany(ctx, siblings, bson.M{"$set": bson.M{"updated_at": now}}); err != nil {
		return fmt.Errorf("failed to refresh session state: %w", err)
	}
	return nil
}

func (m *MongoStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	filter := bson.M{"_id": bson.M{"$in": keys}}
	if _, err := m.collection.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}

// CreateIndexes installs the TTL index that expires idle session state.
func (m *MongoStorage) CreateIndexes(ctx context.Context) error {
	if m.ttl <= 0 {
		return nil
	}
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(m.ttl.Seconds())),
	}
	if _, err := m.collection.Indexes().CreateOne(ctx, index); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
