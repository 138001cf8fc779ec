//go:build integration

package db_test

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/viddhana/pool-ledger/internal/config"
	"github.com/viddhana/pool-ledger/internal/db"
	"github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/types"
)

const (
	mongoDatabase = "test-database"
	replicaSet    = "rs0"

	// this version corresponds to docker tag for mongodb
	// it should be in sync with mongo version used in production
	mongoVersion = "7.0.5"
)

var testDB *db.Database

// mongo connected to test database, used for truncating collections
var mongoDB *mongo.Database

func TestMain(m *testing.M) {
	// first setup container with MongoDb
	dbConfig, cleanup, err := setupMongoContainer()
	if err != nil {
		log.Fatalf("failed to setup mongo container: %v", err)
	}

	// apply migrations
	err = model.Setup(context.Background(), dbConfig)
	if err != nil {
		cleanup()
		log.Fatalf("failed to init mongo database: %v", err)
	}

	// using config from container mongo initialize client used in tests
	testDB, err = setupClient(dbConfig)
	if err != nil {
		cleanup()
		log.Fatalf("failed to setup client: %v", err)
	}

	mongoDB, err = setupMongoClient(dbConfig)
	if err != nil {
		cleanup()
		log.Fatalf("failed to setup mongo client: %v", err)
	}

	// integration tests run on this line
	code := m.Run()
	cleanup()

	os.Exit(code)
}

// setupMongoContainer starts a single node replica set, transactions are not
// available on a standalone server. The cleanup function MUST be called in the
// end to cleanup docker resources.
func setupMongoContainer() (*config.DbConfig, func(), error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, nil, err
	}

	randomString := strings.ToLower(gofakeit.LetterN(3))

	// there can be only 1 container with the same name, so we add
	// random string in the end in case there is still old container running
	containerName := "mongo-integration-tests-db-" + randomString
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Name:       containerName,
		Repository: "mongo",
		Tag:        mongoVersion,
		Cmd:        []string{"--replSet", replicaSet, "--bind_ip_all"},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		err := pool.Purge(resource)
		if err != nil {
			log.Fatalf("failed to purge resource: %v", err)
		}
	}

	initiate := []string{
		"mongosh", "--quiet", "--eval",
		fmt.Sprintf("rs.initiate({_id: '%s', members: [{_id: 0, host: 'localhost:27017'}]})", replicaSet),
	}
	err = pool.Retry(func() error {
		var stderr bytes.Buffer
		code, err := resource.Exec(initiate, dockertest.ExecOptions{StdErr: &stderr})
		if err != nil {
			return err
		}
		if code != 0 {
			return fmt.Errorf("rs.initiate exited with %d: %s", code, stderr.String())
		}
		return nil
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// get host port (randomly chosen) that is mapped to mongo port inside container
	hostPort := resource.GetPort("27017/tcp")
	cfg := &config.DbConfig{
		Driver:  config.DbDriverMongo,
		DbName:  mongoDatabase,
		Address: fmt.Sprintf("mongodb://localhost:%s/?directConnection=true", hostPort),
	}

	// wait for the node to become primary
	err = pool.Retry(func() error {
		client, err := setupClient(cfg)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		return client.Ping(context.Background())
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return cfg, cleanup, nil
}

func setupClient(cfg *config.DbConfig) (*db.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return db.New(ctx, *cfg)
}

func setupMongoClient(cfg *config.DbConfig) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Address))
	if err != nil {
		return nil, err
	}

	return client.Database(cfg.DbName), nil
}

func resetDatabase(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	collections := []string{
		model.PoolCollection,
		model.ParticipantBalanceCollection,
		model.TreasuryCollection,
		model.RewardEpochCollection,
		model.PayoutCollection,
		model.OutboxEventCollection,
	}

	for _, collection := range collections {
		_, err := mongoDB.Collection(collection).DeleteMany(ctx, bson.M{})
		require.NoError(t, err)
	}
}

func TestSavePool(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})

	poolID := gofakeit.LetterN(8)
	pool := model.NewPoolDocument(poolID, "BTC", time.Now().UTC())
	require.NoError(t, testDB.SavePool(ctx, pool))
	require.EqualValues(t, 1, pool.Version)

	t.Run("duplicate insert", func(t *testing.T) {
		err := testDB.SavePool(ctx, model.NewPoolDocument(poolID, "BTC", time.Now().UTC()))
		require.Error(t, err)
		assert.True(t, db.IsConflictError(err))
	})

	t.Run("math types survive the round trip", func(t *testing.T) {
		stored, err := testDB.GetPool(ctx, poolID)
		require.NoError(t, err)
		stored.TVL = types.MustParseAmount("1.5")
		stored.ExchangeRate = sdkmath.LegacyMustNewDecFromStr("1.25")
		require.NoError(t, testDB.SavePool(ctx, stored))

		reloaded, err := testDB.GetPool(ctx, poolID)
		require.NoError(t, err)
		assert.Equal(t, stored.TVL.String(), reloaded.TVL.String())
		assert.True(t, reloaded.ExchangeRate.Equal(stored.ExchangeRate))
		assert.EqualValues(t, 2, reloaded.Version)
	})

	t.Run("stale version", func(t *testing.T) {
		err := testDB.SavePool(ctx, pool)
		require.Error(t, err)
		assert.True(t, db.IsConflictError(err))
	})
}

func TestWithTransaction(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})

	poolID := gofakeit.LetterN(8)
	err := testDB.WithTransaction(ctx, func(ctx context.Context) error {
		if err := testDB.SavePool(ctx, model.NewPoolDocument(poolID, "BTC", time.Now().UTC())); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	_, err = testDB.GetPool(ctx, poolID)
	assert.True(t, db.IsNotFoundError(err))
}

func TestUpdatePayoutStatus(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})

	now := time.Now().UTC()
	payout := &model.PayoutDocument{
		ID:          uuid.NewString(),
		ReferenceID: gofakeit.UUID(),
		PoolID:      "main",
		Participant: gofakeit.Username(),
		Recipient:   "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
		Amount:      sdkmath.NewInt(100),
		Fee:         sdkmath.ZeroInt(),
		NetAmount:   sdkmath.NewInt(100),
		Status:      types.PayoutStatusPending,
		Source:      model.PayoutSourceRequest,
		CreatedAt:   now,
	}
	require.NoError(t, testDB.SaveNewPayout(ctx, payout))

	dup := *payout
	dup.ID = uuid.NewString()
	err := testDB.SaveNewPayout(ctx, &dup)
	require.Error(t, err)
	assert.True(t, db.IsDuplicateKeyError(err))

	updated, err := testDB.UpdatePayoutStatus(
		ctx, payout.ID, types.QualifiedStatesForProcessing(), types.PayoutStatusProcessing,
		db.WithFee(sdkmath.NewInt(1), sdkmath.NewInt(99)), db.WithQuotaWindow(now), db.WithProcessedAt(now),
	)
	require.NoError(t, err)
	assert.Equal(t, types.PayoutStatusProcessing, updated.Status)
	assert.Equal(t, "99", updated.NetAmount.String())
	require.NotNil(t, updated.QuotaWindow)

	_, err = testDB.UpdatePayoutStatus(ctx, payout.ID, types.QualifiedStatesForProcessing(), types.PayoutStatusProcessing)
	require.Error(t, err)
	assert.True(t, db.IsNotFoundError(err))

	updated, err = testDB.UpdatePayoutStatus(
		ctx, payout.ID, types.QualifiedStatesForCompletion(), types.PayoutStatusCompleted,
		db.WithTransferRef("ref"), db.WithConfirmedAt(now),
	)
	require.NoError(t, err)
	assert.Equal(t, types.PayoutStatusCompleted, updated.Status)

	outstanding, err := testDB.HasOutstandingPayout(ctx, payout.PoolID, payout.Participant)
	require.NoError(t, err)
	assert.False(t, outstanding)
}

func TestClosedEpoch(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})

	start := time.Now().UTC().Truncate(time.Second)
	epoch := model.NewRewardEpochDocument("main", 0, sdkmath.NewInt(5), start, gofakeit.Username())
	require.NoError(t, testDB.SaveRewardEpoch(ctx, epoch))

	end := start.Add(time.Minute)
	epoch.EndTime = &end
	require.NoError(t, testDB.SaveRewardEpoch(ctx, epoch))

	epoch.Rate = sdkmath.NewInt(50)
	err := testDB.SaveRewardEpoch(ctx, epoch)
	require.Error(t, err)
	assert.True(t, db.IsConflictError(err))

	epoch.Paid = sdkmath.NewInt(120)
	require.NoError(t, testDB.SaveEpochPaid(ctx, epoch))

	stored, err := testDB.GetRewardEpoch(ctx, "main", 0)
	require.NoError(t, err)
	assert.Equal(t, "5", stored.Rate.String())
	assert.Equal(t, "120", stored.Paid.String())
}

func TestOutboxOrdering(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := uuid.NewV7()
		require.NoError(t, err)
		ids = append(ids, id.String())
		require.NoError(t, testDB.SaveOutboxEvent(ctx, &model.OutboxEventDocument{
			ID:        id.String(),
			Type:      types.EventPayoutQueued,
			PoolID:    "main",
			Payload:   "{}",
			CreatedAt: time.Now().UTC(),
		}))
	}

	events, err := testDB.FindUnpublishedEvents(ctx, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, ids[i], e.ID)
	}

	require.NoError(t, testDB.MarkEventPublished(ctx, ids[0], time.Now().UTC()))
	events, err = testDB.FindUnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 4)
}
