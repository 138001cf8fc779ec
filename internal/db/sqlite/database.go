// Package sqlite is the embedded implementation of db.DbInterface on gorm and a
// pure Go sqlite driver. It backs single node deployments and the unit tests
// of the core.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/viddhana/pool-ledger/internal/db"
	"github.com/viddhana/pool-ledger/internal/db/model"
)

var migrateModels = []any{
	&model.SchemaInfoDocument{},
	&model.PoolDocument{},
	&model.ParticipantBalanceDocument{},
	&model.TreasuryDocument{},
	&model.RewardStateDocument{},
	&model.RewardEpochDocument{},
	&model.RewardSnapshotDocument{},
	&model.RiskParametersDocument{},
	&model.CircuitBreakerDocument{},
	&model.DailyWithdrawalDocument{},
	&model.PayoutDocument{},
	&model.PayoutThresholdDocument{},
	&model.OutboxEventDocument{},
}

type Database struct {
	db *gorm.DB
}

var _ db.DbInterface = (*Database)(nil)

type txKey struct{}

// New opens the database at path, an empty path opens a private in-memory
// database. Tables are migrated and the schema version is checked.
func New(path string) (*Database, error) {
	var dsn string
	if path == "" {
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	} else {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	gdb, err := gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
			TranslateError:         true,
		},
	)
	if err != nil {
		return nil, err
	}

	// a single connection serializes writers, which sqlite requires anyway
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	d := &Database{db: gdb}
	if err := d.migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) migrate() error {
	for _, m := range migrateModels {
		if err := d.db.AutoMigrate(m); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", m, err)
		}
	}

	var info model.SchemaInfoDocument
	err := d.db.Take(&info).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err := model.CheckSchemaVersion(info.Version); err != nil {
		return err
	}
	return d.db.Save(model.NewSchemaInfoDocument()).Error
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return sqlDB.Close()
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// conn returns the transaction bound to ctx, if any.
func (d *Database) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return d.db.WithContext(ctx)
}

func (d *Database) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func take[T any](conn *gorm.DB, key, what string, query string, args ...any) (*T, error) {
	var doc T
	err := conn.Where(query, args...).Take(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, db.NewNotFoundError(key, "%s not found", what)
		}
		return nil, err
	}
	return &doc, nil
}

// saveVersioned mirrors the mongo implementation: insert at version 0,
// otherwise update only the row still at the expected version.
func (d *Database) saveVersioned(
	ctx context.Context, table string, doc model.VersionedDocument, extra ...string,
) error {
	expected := doc.GetVersion()
	doc.SetVersion(expected + 1)

	if expected == 0 {
		if err := d.conn(ctx).Create(doc).Error; err != nil {
			doc.SetVersion(expected)
			if isDuplicateKey(err) {
				return db.NewConflictError(doc.Key(), "%s %s was created concurrently", table, doc.Key())
			}
			return err
		}
		return nil
	}

	q := d.conn(ctx).Model(doc).Where("version = ?", expected)
	for _, cond := range extra {
		q = q.Where(cond)
	}
	res := q.Select("*").Updates(doc)
	if res.Error != nil {
		doc.SetVersion(expected)
		return res.Error
	}
	if res.RowsAffected == 0 {
		doc.SetVersion(expected)
		return db.NewConflictError(doc.Key(), "%s %s changed since version %d", table, doc.Key(), expected)
	}
	return nil
}
