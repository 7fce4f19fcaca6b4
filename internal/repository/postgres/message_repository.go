package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/honeynil/ParcelMatchService/internal/models"
	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) (err error) {
	ctx, span, finish := startCall(ctx, "message-repository", "CreateMessage")
	defer func() { finish(err) }()

	if msg == nil {
		err = pkgerrors.Validationf("message is nil")
		return err
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("conversation_id", msg.ConversationID), attribute.String("sender_id", msg.SenderID))

	query := `INSERT INTO messages (id, conversation_id, sender_id, body) VALUES ($1, $2, $3, $4) RETURNING created_at`
	err = conn(ctx, r.db).QueryRowContext(ctx, query, msg.ID, msg.ConversationID, msg.SenderID, msg.Body).Scan(&msg.CreatedAt)
	if err != nil {
		slog.Error("failed to create message", "method", "Create", "conversation_id", msg.ConversationID, "error", err)
		return fmt.Errorf("failed to create message: %w", err)
	}

	slog.Info("message stored", "method", "Create", "message_id", msg.ID, "conversation_id", msg.ConversationID)
	return nil
}

func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) (_ []models.Message, err error) {
	ctx, span, finish := startCall(ctx, "message-repository", "ListMessages")
	defer func() { finish(err) }()
	span.SetAttributes(attribute.String("conversation_id", conversationID))

	query := `SELECT id, conversation_id, sender_id, body, created_at FROM messages WHERE conversation_id = $1 ORDER BY created_at, id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, conversationID)
	if err != nil {
		slog.Error("failed to list messages", "method", "ListByConversation", "conversation_id", conversationID, "error", err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err = rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}
