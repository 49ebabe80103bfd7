package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/zulandar/estimaite/internal/config"
	"github.com/zulandar/estimaite/internal/db"
	"github.com/zulandar/estimaite/internal/logging"
	"gorm.io/gorm"
)

// loadConfig reads the config at path. An empty path yields the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, out io.Writer) (zerolog.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Out:    out,
	})
	if err != nil {
		return zerolog.Nop(), err
	}
	return logger, nil
}

// feedbackDSN returns the configured DSN, or one built from the mysql block.
func feedbackDSN(cfg *config.Config) string {
	if cfg.Feedback.DSN != "" {
		return cfg.Feedback.DSN
	}
	if cfg.Feedback.Driver == db.DriverMySQL {
		m := cfg.Feedback.MySQL
		return db.MySQLDSN(m.Host, m.Port, m.User, m.Password, m.Database)
	}
	return ""
}

// openFeedbackDB connects to the feedback database and migrates its tables.
func openFeedbackDB(cfg *config.Config) (*gorm.DB, error) {
	gormDB, err := db.Open(cfg.Feedback.Driver, feedbackDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect to feedback db: %w", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		db.Close(gormDB)
		return nil, err
	}
	return gormDB, nil
}
