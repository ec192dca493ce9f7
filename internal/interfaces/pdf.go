package interfaces

import (
	"context"

	"github.com/adiuvo-ai/adiuvo/internal/models"
)

// FormFiller renders collected field values onto a form template PDF and
// returns the filled document bytes.
type FormFiller interface {
	Fill(ctx context.Context, tpl *models.FormTemplate, data map[string]string) ([]byte, error)
}
