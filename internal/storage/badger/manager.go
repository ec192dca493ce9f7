package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/common"
	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db           *BadgerDB
	document     interfaces.DocumentStorage
	conversation interfaces.ConversationStorage
	form         interfaces.FormStorage
	kv           interfaces.KeyValueStorage
	logger       arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:           db,
		document:     NewDocumentStorage(db, logger),
		conversation: NewConversationStorage(db, logger),
		form:         NewFormStorage(db, logger),
		kv:           NewKVStorage(db, logger),
		logger:       logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// DocumentStorage returns the Document storage interface
func (m *Manager) DocumentStorage() interfaces.DocumentStorage {
	return m.document
}

// ConversationStorage returns the Conversation storage interface
func (m *Manager) ConversationStorage() interfaces.ConversationStorage {
	return m.conversation
}

// FormStorage returns the Form storage interface
func (m *Manager) FormStorage() interfaces.FormStorage {
	return m.form
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
