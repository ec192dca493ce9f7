package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/adiuvo-ai/adiuvo/internal/common"
	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
	"github.com/adiuvo-ai/adiuvo/internal/models"
)

// ConversationStorage implements the append-only conversation log for Badger.
// Sequence assignment happens at append time; the orchestrator serializes
// concurrent turns per session, so appends for one session never race.
type ConversationStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewConversationStorage creates a new ConversationStorage instance
func NewConversationStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ConversationStorage {
	return &ConversationStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ConversationStorage) Append(ctx context.Context, msg *models.ConversationMessage) error {
	if msg.UserID == "" || msg.SessionID == "" {
		return fmt.Errorf("user and session IDs are required")
	}
	if msg.ID == "" {
		msg.ID = common.NewMessageID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	count, err := s.db.Store().Count(&models.ConversationMessage{},
		badgerhold.Where("UserID").Eq(msg.UserID).And("SessionID").Eq(msg.SessionID))
	if err != nil {
		return fmt.Errorf("failed to count conversation messages: %w", err)
	}
	msg.Sequence = int(count)

	if err := s.db.Store().Insert(msg.ID, msg); err != nil {
		return fmt.Errorf("failed to append conversation message: %w", err)
	}

	s.logger.Debug().
		Str("user_id", msg.UserID).
		Str("session_id", msg.SessionID).
		Str("role", msg.Role).
		Int("sequence", msg.Sequence).
		Msg("Appended conversation message")

	return nil
}

func (s *ConversationStorage) History(ctx context.Context, userID, sessionID string) ([]*models.ConversationMessage, error) {
	var msgs []*models.ConversationMessage
	err := s.db.Store().Find(&msgs,
		badgerhold.Where("UserID").Eq(userID).And("SessionID").Eq(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation history: %w", err)
	}

	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Sequence < msgs[j].Sequence })

	return msgs, nil
}
