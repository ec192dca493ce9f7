package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
	"github.com/adiuvo-ai/adiuvo/internal/models"
)

// FormStorage implements the FormStorage interface for Badger
type FormStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewFormStorage creates a new FormStorage instance
func NewFormStorage(db *BadgerDB, logger arbor.ILogger) interfaces.FormStorage {
	return &FormStorage{
		db:     db,
		logger: logger,
	}
}

func (s *FormStorage) SaveTemplate(ctx context.Context, tpl *models.FormTemplate) error {
	if tpl.ID == "" {
		return fmt.Errorf("template ID is required")
	}

	now := time.Now()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now

	if err := s.db.Store().Upsert("tpl_"+tpl.ID, tpl); err != nil {
		return fmt.Errorf("failed to save form template: %w", err)
	}
	return nil
}

func (s *FormStorage) GetTemplate(ctx context.Context, id string) (*models.FormTemplate, error) {
	var tpl models.FormTemplate
	err := s.db.Store().Get("tpl_"+id, &tpl)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrMissingFormStructure
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get form template: %w", err)
	}
	return &tpl, nil
}

func (s *FormStorage) ListTemplates(ctx context.Context, category string) ([]*models.FormTemplate, error) {
	query := &badgerhold.Query{}
	if category != "" {
		query = badgerhold.Where("Category").Eq(category)
	}

	var tpls []*models.FormTemplate
	if err := s.db.Store().Find(&tpls, query); err != nil {
		return nil, fmt.Errorf("failed to list form templates: %w", err)
	}
	return tpls, nil
}

func fillStateKey(userID, sessionID, templateID string) string {
	return fmt.Sprintf("fill_%s/%s/%s", userID, sessionID, templateID)
}

func (s *FormStorage) SaveFillState(ctx context.Context, state *models.FormFillState) error {
	if state.UserID == "" || state.SessionID == "" || state.TemplateID == "" {
		return fmt.Errorf("user, session, and template IDs are required")
	}

	state.ID = fillStateKey(state.UserID, state.SessionID, state.TemplateID)
	now := time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now

	if err := s.db.Store().Upsert(state.ID, state); err != nil {
		return fmt.Errorf("failed to save form fill state: %w", err)
	}
	return nil
}

func (s *FormStorage) GetFillState(ctx context.Context, userID, sessionID, templateID string) (*models.FormFillState, error) {
	var state models.FormFillState
	err := s.db.Store().Get(fillStateKey(userID, sessionID, templateID), &state)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get form fill state: %w", err)
	}
	return &state, nil
}

func (s *FormStorage) DeleteFillState(ctx context.Context, userID, sessionID, templateID string) error {
	err := s.db.Store().Delete(fillStateKey(userID, sessionID, templateID), &models.FormFillState{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete form fill state: %w", err)
	}
	return nil
}

func (s *FormStorage) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.Store().Get("profile_"+userID, &profile)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

func (s *FormStorage) SaveProfile(ctx context.Context, profile *models.Profile) error {
	if profile.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	profile.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert("profile_"+profile.UserID, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (s *FormStorage) SaveFilledForm(ctx context.Context, form *models.FilledForm) error {
	if form.ID == "" {
		return fmt.Errorf("filled form ID is required")
	}
	if form.CreatedAt.IsZero() {
		form.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(form.ID, form); err != nil {
		return fmt.Errorf("failed to save filled form: %w", err)
	}
	return nil
}

func (s *FormStorage) GetFilledForm(ctx context.Context, id string) (*models.FilledForm, error) {
	var form models.FilledForm
	err := s.db.Store().Get(id, &form)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get filled form: %w", err)
	}
	return &form, nil
}
