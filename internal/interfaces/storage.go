package interfaces

import (
	"context"
	"time"

	"github.com/adiuvo-ai/adiuvo/internal/models"
)

// KeyValuePair is a generic stored key/value entry (API keys, counters).
type KeyValuePair struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DocumentStorage persists documents and their chunks. The chunk records
// double as the vector index's side mapping: each chunk carries the dense
// integer IndexID assigned at ingestion.
type DocumentStorage interface {
	SaveDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentBySourceURI(ctx context.Context, sourceURI string) (*models.Document, error)
	ListDocuments(ctx context.Context, category string, limit int) ([]*models.Document, error)

	SaveChunks(ctx context.Context, chunks []*models.Chunk) error
	GetChunkByIndexID(ctx context.Context, indexID int64) (*models.Chunk, error)
	ListChunksByDocument(ctx context.Context, documentID string) ([]*models.Chunk, error)
	ListDegradedChunks(ctx context.Context, limit int) ([]*models.Chunk, error)
	UpdateChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error
	DeleteChunksByDocument(ctx context.Context, documentID string) error

	// NextIndexIDs reserves n consecutive dense index IDs and returns the
	// first. Reservation is durable so IDs are never reused across restarts.
	NextIndexIDs(ctx context.Context, n int) (int64, error)
}

// ConversationStorage is the append-only conversation log keyed by
// (user, session). Append assigns the next sequence number; History returns
// messages in chronological order.
type ConversationStorage interface {
	Append(ctx context.Context, msg *models.ConversationMessage) error
	History(ctx context.Context, userID, sessionID string) ([]*models.ConversationMessage, error)
}

// FormStorage persists form templates, per-session fill state, user
// profiles, and produced artifacts.
type FormStorage interface {
	SaveTemplate(ctx context.Context, tpl *models.FormTemplate) error
	GetTemplate(ctx context.Context, id string) (*models.FormTemplate, error)
	ListTemplates(ctx context.Context, category string) ([]*models.FormTemplate, error)

	SaveFillState(ctx context.Context, state *models.FormFillState) error
	GetFillState(ctx context.Context, userID, sessionID, templateID string) (*models.FormFillState, error)
	DeleteFillState(ctx context.Context, userID, sessionID, templateID string) error

	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	SaveProfile(ctx context.Context, profile *models.Profile) error

	SaveFilledForm(ctx context.Context, form *models.FilledForm) error
	GetFilledForm(ctx context.Context, id string) (*models.FilledForm, error)
}

// KeyValueStorage provides generic key/value persistence (case-insensitive
// keys).
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value, description string) error
	Delete(ctx context.Context, key string) error
}

// StorageManager aggregates the storage interfaces behind a single lifecycle.
// Constructed at startup and passed by handle to every component that needs
// it; never ambient global state.
type StorageManager interface {
	DocumentStorage() DocumentStorage
	ConversationStorage() ConversationStorage
	FormStorage() FormStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
