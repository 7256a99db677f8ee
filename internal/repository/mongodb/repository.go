package mongodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdwise/internal/domain/models"
)

// MongoDBRepository stores path-addressed farm documents. Each farm
// collection maps to a Mongo collection; documents are keyed by their
// full path and carry the owning user id for collection scans.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
	logger *zap.Logger
}

type document struct {
	Path      string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	DocID     string    `bson:"doc_id"`
	Data      bson.D    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoDBRepository connects to uri and verifies the connection.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{client: client, dbName: dbName, logger: logger}, nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// Set upserts the document at path with the given JSON payload.
func (r *MongoDBRepository) Set(ctx context.Context, path string, data json.RawMessage) error {
	doc, coll, err := toDocument(path, data, time.Now().UTC())
	if err != nil {
		return err
	}

	_, err = r.collection(coll).ReplaceOne(ctx, bson.M{"_id": path}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// toDocument wraps a JSON payload in its stored envelope and returns the
// target collection name.
func toDocument(path string, data json.RawMessage, now time.Time) (document, string, error) {
	userID, coll, docID, err := models.ParseDocumentPath(path)
	if err != nil {
		return document{}, "", err
	}

	var fields bson.D
	if err := bson.UnmarshalExtJSON(data, false, &fields); err != nil {
		return document{}, "", fmt.Errorf("failed to convert %s to bson: %w", path, err)
	}

	return document{Path: path, UserID: userID, DocID: docID, Data: fields, UpdatedAt: now}, coll, nil
}

// fromDocument renders the stored payload back to relaxed JSON.
func fromDocument(data bson.Raw) (json.RawMessage, error) {
	return bson.MarshalExtJSON(data, false, false)
}

// Delete removes the document at path. Missing documents are not an error.
func (r *MongoDBRepository) Delete(ctx context.Context, path string) error {
	_, coll, _, err := models.ParseDocumentPath(path)
	if err != nil {
		return err
	}

	if _, err := r.collection(coll).DeleteOne(ctx, bson.M{"_id": path}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// GetAll returns every document under a collection path, ordered by document id.
func (r *MongoDBRepository) GetAll(ctx context.Context, collectionPath string) ([]json.RawMessage, error) {
	userID, coll, err := models.ParseCollectionPath(collectionPath)
	if err != nil {
		return nil, err
	}

	cursor, err := r.collection(coll).Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "doc_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collectionPath, err)
	}
	defer cursor.Close(ctx)

	var docs []json.RawMessage
	for cursor.Next(ctx) {
		var row struct {
			Data bson.Raw `bson:"data"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", collectionPath, err)
		}
		data, err := fromDocument(row.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s to json: %w", collectionPath, err)
		}
		docs = append(docs, data)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", collectionPath, err)
	}

	return docs, nil
}

// DeleteAll removes every document under a collection path.
func (r *MongoDBRepository) DeleteAll(ctx context.Context, collectionPath string) error {
	userID, coll, err := models.ParseCollectionPath(collectionPath)
	if err != nil {
		return err
	}

	res, err := r.collection(coll).DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", collectionPath, err)
	}
	r.logger.Info("collection cleared", zap.String("path", collectionPath), zap.Int64("deleted", res.DeletedCount))
	return nil
}

// Ping checks that the primary is reachable.
func (r *MongoDBRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
