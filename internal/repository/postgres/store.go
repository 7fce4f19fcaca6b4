package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/honeynil/ParcelMatchService/internal/migrations"
	"github.com/honeynil/ParcelMatchService/internal/repository"
)

// Open connects to PostgreSQL, applies pending migrations and returns the
// open handle.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := migrations.Up(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("database ready", "method", "Open")
	return db, nil
}

func NewStore(db *sql.DB) *repository.Store {
	return &repository.Store{
		Transactor:   NewTxManager(db),
		Parcels:      NewParcelRepository(db),
		Trips:        NewTripRepository(db),
		Transactions: NewTransactionRepository(db),
		Tracking:     NewTrackingRepository(db),
		Audit:        NewAuditRepository(db),
		Messages:     NewMessageRepository(db),
	}
}
