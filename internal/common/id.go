package common

import (
	"fmt"

	"github.com/google/uuid"
)

// NewDocumentID generates a unique document ID with the "doc_" prefix
// Format: doc_<uuid>
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewMessageID generates a unique conversation message ID
func NewMessageID() string {
	return "msg_" + uuid.New().String()
}

// NewFormID generates a unique filled-form artifact ID
func NewFormID() string {
	return "form_" + uuid.New().String()
}

// ChunkID builds the deterministic chunk key for a document and sequence.
func ChunkID(documentID string, sequence int) string {
	return fmt.Sprintf("chunk_%s_%d", documentID, sequence)
}
