package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/honeynil/ParcelMatchService/internal/audit"
	"github.com/honeynil/ParcelMatchService/internal/infrastructure/observability"
	"github.com/honeynil/ParcelMatchService/internal/models"
	"github.com/honeynil/ParcelMatchService/internal/moderation"
	"github.com/honeynil/ParcelMatchService/internal/repository"
	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxMessageLength = 2000

// SendResult carries the stored message, or the verdict that kept it back.
type SendResult struct {
	Message *models.Message    `json:"message,omitempty"`
	Verdict moderation.Verdict `json:"verdict"`
}

type ChatService interface {
	SendMessage(ctx context.Context, actor models.Actor, conversationID, text string) (*SendResult, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	CheckMessage(text string) moderation.Verdict
}

type chatService struct {
	messages  repository.MessageRepository
	moderator *moderation.Moderator
	audit     *audit.Recorder
	tracer    trace.Tracer
}

func NewChatService(messages repository.MessageRepository, moderator *moderation.Moderator, recorder *audit.Recorder) *chatService {
	return &chatService{
		messages:  messages,
		moderator: moderator,
		audit:     recorder,
		tracer:    otel.Tracer("chat-service"),
	}
}

// SendMessage screens text before storing it. A flagged message is not
// stored; the result then holds the matched keywords and a redacted
// suggestion, and the error wraps ErrFlaggedContent.
func (s *chatService) SendMessage(ctx context.Context, actor models.Actor, conversationID, text string) (*SendResult, error) {
	ctx, span := s.tracer.Start(ctx, "SendMessage")
	defer span.End()
	span.SetAttributes(attribute.String("conversation_id", conversationID))

	conversationID = strings.TrimSpace(conversationID)
	text = strings.TrimSpace(text)
	if conversationID == "" {
		err := pkgerrors.Validationf("conversation id is required")
		failSpan(span, err)
		return nil, err
	}
	if text == "" {
		err := pkgerrors.Validationf("message text is required")
		failSpan(span, err)
		return nil, err
	}
	if n := utf8.RuneCountInString(text); n > maxMessageLength {
		err := pkgerrors.Validationf("message is %d characters, limit is %d", n, maxMessageLength)
		failSpan(span, err)
		return nil, err
	}

	verdict := s.moderator.Check(text)
	if verdict.Flagged {
		observability.FlaggedMessages.Inc()
		err := fmt.Errorf("%w: %s", pkgerrors.ErrFlaggedContent, strings.Join(verdict.Keywords, ", "))
		failSpan(span, err)
		slog.Warn("message flagged", "method", "SendMessage", "conversation_id", conversationID,
			"sender_id", actor.ID, "keywords", verdict.Keywords)
		return &SendResult{Verdict: verdict}, err
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       actor.ID,
		Body:           text,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		failSpan(span, err)
		slog.Error("failed to store message", "method", "SendMessage", "conversation_id", conversationID, "error", err)
		return nil, err
	}

	s.audit.Record(ctx, actor, models.EntityMessage, msg.ID, "sent", map[string]any{
		"conversation_id": conversationID,
	})
	slog.Info("message sent", "method", "SendMessage", "message_id", msg.ID, "conversation_id", conversationID)
	return &SendResult{Message: msg, Verdict: verdict}, nil
}

func (s *chatService) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	ctx, span := s.tracer.Start(ctx, "ListMessages")
	defer span.End()

	msgs, err := s.messages.ListByConversation(ctx, strings.TrimSpace(conversationID))
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	return msgs, nil
}

func (s *chatService) CheckMessage(text string) moderation.Verdict {
	return s.moderator.Check(text)
}
