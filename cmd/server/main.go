package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/facturio/invoicing-system/internal/api"
	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/service"
	mongodb "github.com/facturio/invoicing-system/internal/infrastructure/db/mongo"
	redisdb "github.com/facturio/invoicing-system/internal/infrastructure/db/redis"
	"github.com/facturio/invoicing-system/internal/infrastructure/db/sqlite"
	"github.com/facturio/invoicing-system/internal/pkg/config"
	"github.com/facturio/invoicing-system/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	// The embedded database is the only hard dependency.
	local, err := sqlite.Open(cfg.SQLite.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.SQLite.Path).Msg("failed to open local database")
	}
	defer local.Close()

	// The remote handle is built without a reachability check: the process
	// must come up with the backend down, and remote-mode operations fail
	// individually until it returns.
	client, db, err := mongodb.Open(mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid mongo configuration")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}()
	go ensureRemoteIndexes(db, logger.Component("remote-indexes"))

	// Redis is optional: without it the cached query layer runs in process.
	var cache service.Cache
	rdb, err := redisdb.Connect(context.Background(), redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-process query cache")
		cache = service.NewMemoryCache()
	} else {
		defer rdb.Close()
		cache = redisdb.NewQueryCache(rdb)
	}

	e := api.NewRouter(api.Deps{
		Config: cfg,
		Log:    log,
		Local:  local,
		Mongo:  db,
		Redis:  rdb,
		Cache:  cache,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("device", cfg.DeviceID).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil {
			log.Info().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// ensureRemoteIndexes creates the remote collections' indexes. Best effort:
// the backend may be down at boot, and every index is retried on the next
// start.
func ensureRemoteIndexes(db *mongo.Database, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := mongodb.NewUserRepository(db).EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("remote user indexes not created")
		return
	}
	if err := mongodb.NewSequenceRepository(db).EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("remote sequence indexes not created")
		return
	}

	for kind, ensure := range map[domain.Kind]func(context.Context) error{
		domain.KindStore:       mongodb.NewRecordRepository[domain.Store](db, domain.KindStore).EnsureIndexes,
		domain.KindEmployee:    mongodb.NewRecordRepository[domain.Employee](db, domain.KindEmployee).EnsureIndexes,
		domain.KindCustomer:    mongodb.NewRecordRepository[domain.Customer](db, domain.KindCustomer).EnsureIndexes,
		domain.KindProduct:     mongodb.NewRecordRepository[domain.Product](db, domain.KindProduct).EnsureIndexes,
		domain.KindInvoice:     mongodb.NewRecordRepository[domain.Invoice](db, domain.KindInvoice).EnsureIndexes,
		domain.KindInvoiceLine: mongodb.NewRecordRepository[domain.InvoiceLine](db, domain.KindInvoiceLine).EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Warn().Err(err).Str("kind", string(kind)).Msg("remote record indexes not created")
		}
	}
}
