package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/churnflow/churnflow/internal/domain"
	"github.com/churnflow/churnflow/internal/platform/logger"
)

// Service owns the gorm session used for the activity store, label store and
// run registries. Driver "sqlite" opens a file database (the single-node
// default); "postgres" expects a full DSN.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(driver, dsn string, log *logger.Logger) (*Service, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	var (
		conn *gorm.DB
		err  error
	)
	cfg := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	}
	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = "churnflow.db"
		}
		conn, err = gorm.Open(sqlite.Open(dsn), cfg)
	case "postgres":
		conn, err = gorm.Open(postgres.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("db: unknown driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("db: connect %s: %w", driver, err)
	}
	return &Service{db: conn, log: log.With("service", "db")}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) AutoMigrateAll() error {
	s.log.Info("migrating tables")
	return s.db.AutoMigrate(
		&domain.ActivityRecord{},
		&domain.LabelRecord{},
		&domain.DriftMetric{},
		&domain.TrainingRun{},
	)
}
