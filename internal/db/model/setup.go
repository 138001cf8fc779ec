package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/viddhana/pool-ledger/internal/config"
)

type index struct {
	Keys   bson.D
	Unique bool
}

var collections = map[string][]index{
	SchemaInfoCollection:         nil,
	PoolCollection:               nil,
	ParticipantBalanceCollection: {{Keys: bson.D{{Key: "pool_id", Value: 1}}}},
	TreasuryCollection:           nil,
	RewardStateCollection:        nil,
	RewardEpochCollection: {
		{Keys: bson.D{{Key: "pool_id", Value: 1}, {Key: "number", Value: 1}}, Unique: true},
	},
	RewardSnapshotCollection: {
		{Keys: bson.D{{Key: "pool_id", Value: 1}, {Key: "taken_at", Value: -1}}},
	},
	RiskParametersCollection:  nil,
	CircuitBreakerCollection:  nil,
	DailyWithdrawalCollection: nil,
	PayoutCollection: {
		{Keys: bson.D{{Key: "reference_id", Value: 1}}, Unique: true},
		{Keys: bson.D{{Key: "pool_id", Value: 1}, {Key: "participant", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "failed_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "processed_at", Value: 1}}},
	},
	PayoutThresholdCollection: {{Keys: bson.D{{Key: "pool_id", Value: 1}, {Key: "_id", Value: 1}}}},
	OutboxEventCollection:     {{Keys: bson.D{{Key: "published_at", Value: 1}, {Key: "_id", Value: 1}}}},
}

// Setup creates collections and indexes and stamps the schema version. It
// refuses to run against a database written by an incompatible schema.
func Setup(ctx context.Context, cfg *config.DbConfig) error {
	credential := options.Credential{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	clientOps := options.Client().ApplyURI(cfg.Address).SetRegistry(Registry())
	if cfg.Username != "" {
		clientOps.SetAuth(credential)
	}
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(ctx); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to disconnect setup client")
		}
	}()

	database := client.Database(cfg.DbName)

	// Create a context with timeout
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := checkSchema(ctx, database); err != nil {
		return err
	}

	for collection, idxs := range collections {
		createCollection(ctx, database, collection)
		for _, idx := range idxs {
			createIndex(ctx, database, collection, idx)
		}
	}

	_, err = database.Collection(SchemaInfoCollection).ReplaceOne(
		ctx,
		bson.M{"_id": schemaInfoID},
		NewSchemaInfoDocument(),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to stamp schema version: %w", err)
	}

	log.Ctx(ctx).Info().Str("schema_version", SchemaVersion).Msg("Collections and Indexes created successfully.")
	return nil
}

func checkSchema(ctx context.Context, database *mongo.Database) error {
	var info SchemaInfoDocument
	err := database.Collection(SchemaInfoCollection).
		FindOne(ctx, bson.M{"_id": schemaInfoID}).
		Decode(&info)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	return CheckSchemaVersion(info.Version)
}

func createCollection(ctx context.Context, database *mongo.Database, collectionName string) {
	if err := database.CreateCollection(ctx, collectionName); err != nil {
		// NamespaceExists on every run after the first one
		log.Ctx(ctx).Debug().Msg(fmt.Sprintf("Collection maybe already exists: %s, info: %s", collectionName, err))
		return
	}

	log.Ctx(ctx).Debug().Msg(fmt.Sprintf("Collection created successfully: %s", collectionName))
}

func createIndex(ctx context.Context, database *mongo.Database, collectionName string, idx index) {
	index := mongo.IndexModel{
		Keys:    idx.Keys,
		Options: options.Index().SetUnique(idx.Unique),
	}

	if _, err := database.Collection(collectionName).Indexes().CreateOne(ctx, index); err != nil {
		log.Ctx(ctx).Debug().Msg(fmt.Sprintf("Failed to create index on collection '%s': %v", collectionName, err))
		return
	}

	log.Ctx(ctx).Debug().Msg(fmt.Sprintf("Index created successfully on collection '%s'", collectionName))
}
