// Package memory keeps the marketplace in process memory. Transactions are
// serialized behind one lock and undone on error, so it offers the same
// isolation the PostgreSQL store gives the services.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/honeynil/ParcelMatchService/internal/models"
	"github.com/honeynil/ParcelMatchService/internal/repository"
)

type journalKey struct{}

// journal collects undo steps of the active transaction.
type journal struct {
	undo []func()
}

func (j *journal) onRollback(fn func()) {
	j.undo = append(j.undo, fn)
}

type DB struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	parcels      map[string]models.Parcel
	trips        map[string]models.Trip
	reservations map[string]models.CapacityReservation
	transactions map[string]models.Transaction
	tracking     map[string][]models.TrackingUpdate
	audit        []models.AuditEntry
	messages     map[string][]models.Message

	trackingSeq int64
}

func NewDB() *DB {
	return &DB{
		parcels:      make(map[string]models.Parcel),
		trips:        make(map[string]models.Trip),
		reservations: make(map[string]models.CapacityReservation),
		transactions: make(map[string]models.Transaction),
		tracking:     make(map[string][]models.TrackingUpdate),
		messages:     make(map[string][]models.Message),
	}
}

// NewStore returns every repository backed by one fresh DB.
func NewStore() *repository.Store {
	db := NewDB()
	return &repository.Store{
		Transactor:   db,
		Parcels:      &ParcelRepository{db: db},
		Trips:        &TripRepository{db: db},
		Transactions: &TransactionRepository{db: db},
		Tracking:     &TrackingRepository{db: db},
		Audit:        &AuditRepository{db: db},
		Messages:     &MessageRepository{db: db},
	}
}

// WithinTransaction runs fn while holding the transaction lock. Writes made
// through ctx are undone if fn fails. Nested calls join the outer one.
func (db *DB) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	db.txMu.Lock()
	defer db.txMu.Unlock()

	j := &journal{}
	defer func() {
		p := recover()
		if err != nil || p != nil {
			db.rollback(j)
		}
		if p != nil {
			panic(p)
		}
	}()
	return fn(context.WithValue(ctx, journalKey{}, j))
}

func (db *DB) rollback(j *journal) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	slog.Debug("memory transaction rolled back", "method", "WithinTransaction", "steps", len(j.undo))
}

// write runs fn under the data lock. Outside a transaction the write is its
// own transaction.
func (db *DB) write(ctx context.Context, fn func(j *journal) error) error {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		db.mu.Lock()
		defer db.mu.Unlock()
		return fn(j)
	}
	return db.WithinTransaction(ctx, func(ctx context.Context) error {
		return db.write(ctx, fn)
	})
}

func (db *DB) read(fn func()) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	fn()
}
