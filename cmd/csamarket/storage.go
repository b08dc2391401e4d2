package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
	farmMongo "github.com/davicafu/csamarket/internal/farm/infra/outbound/db/mongodb"
	farmPostgres "github.com/davicafu/csamarket/internal/farm/infra/outbound/db/postgres"
	farmSQLite "github.com/davicafu/csamarket/internal/farm/infra/outbound/db/sqlite"
	shareDomain "github.com/davicafu/csamarket/internal/share/domain"
	shareMongo "github.com/davicafu/csamarket/internal/share/infra/outbound/db/mongodb"
	sharePostgres "github.com/davicafu/csamarket/internal/share/infra/outbound/db/postgres"
	shareSQLite "github.com/davicafu/csamarket/internal/share/infra/outbound/db/sqlite"
	"github.com/davicafu/csamarket/internal/config"
	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedMongo "github.com/davicafu/csamarket/internal/shared/infra/platform/db/mongodb"
	sharedPostgres "github.com/davicafu/csamarket/internal/shared/infra/platform/db/postgres"
	sharedSQLite "github.com/davicafu/csamarket/internal/shared/infra/platform/db/sqlite"
)

// storage agrupa los repositorios del driver elegido; todos comparten la
// misma base para que entidad y outbox vayan en una transacción.
type storage struct {
	farms   farmDomain.FarmRepository
	shares  shareDomain.ShareRepository
	outbox  sharedDomain.OutboxRepository
	migrate func(ctx context.Context) error
	close   func()
}

func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping SQLite: %w", err)
		}
		log.Info("🗄️ Usando SQLite", zap.String("path", cfg.SQLitePath))
		return &storage{
			farms:  farmSQLite.NewFarmRepoSQLite(db),
			shares: shareSQLite.NewShareRepoSQLite(db),
			outbox: sharedSQLite.NewOutboxRepoSQLite(db),
			migrate: func(ctx context.Context) error {
				if err := farmSQLite.InitSQLite(ctx, db); err != nil {
					return err
				}
				return shareSQLite.InitSQLite(ctx, db)
			},
			close: func() { db.Close() },
		}, nil

	case config.DriverPostgres:
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open Postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping Postgres: %w", err)
		}
		log.Info("🗄️ Usando Postgres")
		return &storage{
			farms:  farmPostgres.NewFarmRepoPostgres(db),
			shares: sharePostgres.NewShareRepoPostgres(db),
			outbox: sharedPostgres.NewOutboxRepoPostgres(db),
			migrate: func(ctx context.Context) error {
				if err := farmPostgres.InitPostgres(ctx, db); err != nil {
					return err
				}
				return sharePostgres.InitPostgres(ctx, db)
			},
			close: func() { db.Close() },
		}, nil

	case config.DriverMongoDB:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect MongoDB: %w", err)
		}
		closeClient := func() { client.Disconnect(context.Background()) }

		farms, err := farmMongo.NewFarmRepoMongoDB(ctx, client, cfg.MongoDB)
		if err != nil {
			closeClient()
			return nil, err
		}
		shares, err := shareMongo.NewShareRepoMongoDB(ctx, client, cfg.MongoDB)
		if err != nil {
			closeClient()
			return nil, err
		}
		log.Info("🗄️ Usando MongoDB", zap.String("db", cfg.MongoDB))
		return &storage{
			farms:  farms,
			shares: shares,
			outbox: sharedMongo.NewOutboxRepoMongoDB(client, cfg.MongoDB),
			migrate: func(ctx context.Context) error {
				if err := farms.EnsureIndexes(ctx); err != nil {
					return err
				}
				return shares.EnsureIndexes(ctx)
			},
			close: closeClient,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
