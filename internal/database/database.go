package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/logging"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens the PostgreSQL connection pool and wraps it in gorm.
func New(cfg *config.Config) (*gorm.DB, error) {
	connector, err := pq.NewConnector(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("error parsing database dsn: %w", err)
	}

	logging.Info().
		Str("host", cfg.DBHost).
		Str("port", cfg.DBPort).
		Str("user", cfg.DBUser).
		Msg("connecting to database")

	sqlDB := sql.OpenDB(connector)

	// Set connection pool settings
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	gormConfig := GormConfig()
	gormConfig.Logger = logger.Default.LogMode(logger.Warn)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error opening gorm: %w", err)
	}

	logging.Info().Msg("successfully connected to database")
	return db, nil
}

// GormConfig is shared by the production and test connections so constraint
// errors are translated the same way on both drivers. Its logger is silent;
// New raises it to warn.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}
}

// HealthCheck checks if the database is accessible
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
