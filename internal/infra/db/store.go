package db

import (
	"fmt"

	"mintgate/internal/config"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

// NewStore opens Postgres when POSTGRES_DSN is set. Without it the store has
// a nil DB and the issuance audit trail is disabled.
func NewStore(cfg config.Config, log logrus.FieldLogger) (*Store, error) {
	if cfg.PostgresDSN == "" {
		if log != nil {
			log.Info("POSTGRES_DSN not set; issuance audit trail disabled")
		}
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Store{DB: gdb}, nil
}

func (s *Store) Enabled() bool {
	return s != nil && s.DB != nil
}

func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
