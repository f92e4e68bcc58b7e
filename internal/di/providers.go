package di

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"chatr/internal/admin"
	"chatr/internal/common"
	"chatr/internal/config"
	"chatr/internal/dbmongo"
	"chatr/internal/dbmysql"
	"chatr/internal/realtime"
)

// App is everything cmd/chatr-server needs to run.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *gorm.DB
	Router   http.Handler
	Admin    *admin.Server
	Realtime *realtime.Handler
}

func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	logger, err := common.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func ProvideMySQL(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := dbmysql.NewMySQL(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := dbmysql.AutoMigrate(db); err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

func ProvideSQLDB(db *gorm.DB) (*sql.DB, error) {
	return db.DB()
}

func ProvideMongo(cfg *config.Config, logger *zap.Logger) (*dbmongo.MongoClient, func(), error) {
	client, err := dbmongo.NewMongoConnection(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Close(ctx); err != nil {
			logger.Warn("mongo disconnect failed", zap.Error(err))
		}
	}
	return client, cleanup, nil
}
