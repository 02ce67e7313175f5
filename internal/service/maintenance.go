package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/skzy2018/ai-kakeibo-app/internal/database"
)

// MaintenanceService houses destructive/ops actions surfaced through the CLI.
type MaintenanceService struct {
	DB  *sqlx.DB
	Log zerolog.Logger
}

// resetOrder lists tables children first so foreign keys hold during the wipe.
var resetOrder = []string{
	"transaction_tags",
	"transactions",
	"data_logs",
	"tags",
	"categories",
	"accounts",
}

// Reset wipes all user data. It keeps the schema intact so the app can continue running.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := database.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		for _, t := range resetOrder {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	if _, err := s.DB.ExecContext(ctx, "VACUUM"); err != nil {
		s.Log.Warn().Err(err).Msg("vacuum after reset failed")
	}
	s.Log.Info().Msg("database reset")
	return nil
}

// Init applies migrations and seeds default categories into an empty table.
func (s *MaintenanceService) Init(ctx context.Context, seed bool) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := database.RunMigrations(s.DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if !seed {
		return nil
	}
	return database.SeedDefaults(ctx, s.DB)
}
