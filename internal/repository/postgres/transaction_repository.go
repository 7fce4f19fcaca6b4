package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/honeynil/ParcelMatchService/internal/models"
	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const transactionColumns = `id, parcel_id, sender_id, traveler_id, sender_paid, platform_fee, traveler_payout, insurance, payment_status, created_at, updated_at`

type TransactionRepository struct {
	db *sql.DB
	tm *TxManager
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db, tm: NewTxManager(db)}
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	if err := row.Scan(&tx.ID, &tx.ParcelID, &tx.SenderID, &tx.TravelerID, &tx.SenderPaid, &tx.PlatformFee,
		&tx.TravelerPayout, &tx.Insurance, &tx.PaymentStatus, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) (err error) {
	ctx, span, finish := startCall(ctx, "transaction-repository", "CreateTransaction")
	defer func() { finish(err) }()

	if tx == nil {
		err = pkgerrors.ErrNilTransaction
		slog.Error("failed to create transaction", "method", "Create", "error", err)
		return err
	}
	if tx.PaymentStatus == "" {
		tx.PaymentStatus = models.PaymentPending
	}
	if !tx.PaymentStatus.Valid() {
		err = pkgerrors.Validationf("unknown payment status %q", tx.PaymentStatus)
		slog.Error("invalid payment status", "method", "Create", "status", tx.PaymentStatus, "error", err)
		return err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	span.SetAttributes(
		attribute.String("transaction_id", tx.ID),
		attribute.String("parcel_id", tx.ParcelID),
		attribute.Float64("sender_paid", tx.SenderPaid),
	)

	query := `INSERT INTO transactions (id, parcel_id, sender_id, traveler_id, sender_paid, platform_fee, traveler_payout, insurance, payment_status) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at, updated_at`
	err = conn(ctx, r.db).QueryRowContext(ctx, query, tx.ID, tx.ParcelID, tx.SenderID, tx.TravelerID, tx.SenderPaid,
		tx.PlatformFee, tx.TravelerPayout, tx.Insurance, tx.PaymentStatus).Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			slog.Warn("parcel already has a transaction", "method", "Create", "parcel_id", tx.ParcelID)
			err = pkgerrors.ErrAlreadyMatched
			return err
		}
		slog.Error("failed to create transaction", "method", "Create", "parcel_id", tx.ParcelID, "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	slog.Info("transaction created", "method", "Create", "transaction_id", tx.ID, "parcel_id", tx.ParcelID,
		"sender_paid", tx.SenderPaid, "status", tx.PaymentStatus)
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (_ *models.Transaction, err error) {
	ctx, span, finish := startCall(ctx, "transaction-repository", "GetTransactionByID")
	defer func() { finish(err) }()
	span.SetAttributes(attribute.String("transaction_id", id))

	return r.get(ctx, "GetByID", `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
}

func (r *TransactionRepository) GetByParcelID(ctx context.Context, parcelID string) (_ *models.Transaction, err error) {
	ctx, span, finish := startCall(ctx, "transaction-repository", "GetTransactionByParcelID")
	defer func() { finish(err) }()
	span.SetAttributes(attribute.String("parcel_id", parcelID))

	return r.get(ctx, "GetByParcelID", `SELECT `+transactionColumns+` FROM transactions WHERE parcel_id = $1`, parcelID)
}

func (r *TransactionRepository) get(ctx context.Context, method, query, id string) (*models.Transaction, error) {
	if !validID(id) {
		slog.Warn("transaction not found", "method", method, "id", id)
		return nil, pkgerrors.ErrTransactionNotFound
	}

	tx, err := scanTransaction(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		slog.Warn("transaction not found", "method", method, "id", id)
		return nil, pkgerrors.ErrTransactionNotFound
	}
	if err != nil {
		slog.Error("failed to get transaction", "method", method, "id", id, "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// UpdatePaymentStatus applies a payment collaborator's status. A completed
// transaction is final.
func (r *TransactionRepository) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (_ *models.Transaction, err error) {
	ctx, span, finish := startCall(ctx, "transaction-repository", "UpdatePaymentStatus")
	defer func() { finish(err) }()
	span.SetAttributes(attribute.String("transaction_id", id), attribute.String("status", string(status)))

	if !status.Valid() {
		err = pkgerrors.Validationf("unknown payment status %q", status)
		slog.Warn("invalid payment status", "method", "UpdatePaymentStatus", "transaction_id", id, "status", status)
		return nil, err
	}
	if !validID(id) {
		err = pkgerrors.ErrTransactionNotFound
		return nil, err
	}

	var updated *models.Transaction
	err = r.tm.WithinTransaction(ctx, func(ctx context.Context) error {
		db := conn(ctx, r.db)

		current, err := scanTransaction(db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
		if stderrors.Is(err, sql.ErrNoRows) {
			slog.Warn("transaction not found", "method", "UpdatePaymentStatus", "transaction_id", id)
			return pkgerrors.ErrTransactionNotFound
		}
		if err != nil {
			slog.Error("failed to lock transaction", "method", "UpdatePaymentStatus", "transaction_id", id, "error", err)
			return fmt.Errorf("failed to lock transaction: %w", err)
		}
		if current.PaymentStatus == models.PaymentCompleted {
			slog.Warn("transaction already completed", "method", "UpdatePaymentStatus", "transaction_id", id, "status", status)
			return pkgerrors.ErrTransactionCompleted
		}

		query := `UPDATE transactions SET payment_status = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + transactionColumns
		updated, err = scanTransaction(db.QueryRowContext(ctx, query, id, status))
		if err != nil {
			slog.Error("failed to update payment status", "method", "UpdatePaymentStatus", "transaction_id", id, "error", err)
			return fmt.Errorf("failed to update payment status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("payment status updated", "method", "UpdatePaymentStatus", "transaction_id", id, "status", status)
	return updated, nil
}
