package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/viddhana/pool-ledger/internal/config"
	"github.com/viddhana/pool-ledger/internal/db/model"
)

type Database struct {
	dbName string
	client *mongo.Client
}

func New(ctx context.Context, cfg config.DbConfig) (*Database, error) {
	credential := options.Credential{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	clientOps := options.Client().ApplyURI(cfg.Address).SetRegistry(model.Registry())
	if cfg.Username != "" {
		clientOps.SetAuth(credential)
	}
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return nil, err
	}

	return &Database{
		dbName: cfg.DbName,
		client: client,
	}, nil
}

func (db *Database) Ping(ctx context.Context) error {
	return db.client.Ping(ctx, readpref.Primary())
}

func (db *Database) Disconnect(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

func (db *Database) collection(name string) *mongo.Collection {
	return db.client.Database(db.dbName).Collection(name)
}

// WithTransaction requires a replica set deployment.
func (db *Database) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := db.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func findOne[T any](ctx context.Context, c *mongo.Collection, filter bson.M, key, what string) (*T, error) {
	var doc T
	err := c.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewNotFoundError(key, "%s not found", what)
		}
		return nil, err
	}
	return &doc, nil
}

func findMany[T any](ctx context.Context, c *mongo.Collection, filter bson.M, opts ...*options.FindOptions) ([]*T, error) {
	cursor, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []*T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// saveVersioned inserts the document when its version is 0, otherwise replaces
// it only if the stored version still matches. extra narrows the replace filter.
func (db *Database) saveVersioned(
	ctx context.Context, collection string, doc model.VersionedDocument, extra bson.M,
) error {
	expected := doc.GetVersion()
	doc.SetVersion(expected + 1)

	c := db.collection(collection)
	if expected == 0 {
		if _, err := c.InsertOne(ctx, doc); err != nil {
			doc.SetVersion(expected)
			if mongo.IsDuplicateKeyError(err) {
				return NewConflictError(doc.Key(), "%s %s was created concurrently", collection, doc.Key())
			}
			return err
		}
		return nil
	}

	filter := bson.M{"_id": doc.Key(), "version": expected}
	for k, v := range extra {
		filter[k] = v
	}
	res, err := c.ReplaceOne(ctx, filter, doc)
	if err != nil {
		doc.SetVersion(expected)
		return err
	}
	if res.MatchedCount == 0 {
		doc.SetVersion(expected)
		return NewConflictError(doc.Key(), "%s %s changed since version %d", collection, doc.Key(), expected)
	}
	return nil
}
