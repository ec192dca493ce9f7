package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/common"
	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
	"github.com/adiuvo-ai/adiuvo/internal/models"
)

// FormFillService drives the resumable form-filling conversation. State is
// durable per (user, session, template): each Advance call either absorbs
// known profile values, asks the user for exactly one missing field, or
// completes the form and produces the filled artifact.
type FormFillService struct {
	forms  interfaces.FormStorage
	filler interfaces.FormFiller
	logger arbor.ILogger
}

// NewFormFillService creates a new form fill service.
func NewFormFillService(forms interfaces.FormStorage, filler interfaces.FormFiller, logger arbor.ILogger) *FormFillService {
	return &FormFillService{
		forms:  forms,
		filler: filler,
		logger: logger,
	}
}

// Advance moves the fill conversation one step forward. fieldValue, when
// non-empty, answers the previously asked pending field. A template without
// a recorded field layout fails the whole call with
// ErrMissingFormStructure; no partial form is ever produced.
func (s *FormFillService) Advance(ctx context.Context, session interfaces.ToolSession, templateID, fieldValue string) (*interfaces.ToolResult, error) {
	tpl, err := s.forms.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load form structure for %s: %w", templateID, err)
	}

	state, err := s.forms.GetFillState(ctx, session.UserID, session.SessionID, templateID)
	if errors.Is(err, interfaces.ErrNotFound) {
		required := tpl.RequiredFieldNames()
		state = &models.FormFillState{
			UserID:          session.UserID,
			SessionID:       session.SessionID,
			TemplateID:      templateID,
			RequiredFields:  required,
			RemainingFields: append([]string(nil), required...),
			CollectedData:   map[string]string{},
		}
		s.logger.Debug().
			Str("template_id", templateID).
			Str("user_id", session.UserID).
			Int("required_fields", len(required)).
			Msg("Started form fill session")
	} else if err != nil {
		return nil, fmt.Errorf("failed to load form fill state: %w", err)
	}

	if state.Completed {
		return &interfaces.ToolResult{
			Content:    fmt.Sprintf("The %s form is already completed. Your filled copy is available for download under reference %s.", tpl.Name, state.ArtifactID),
			UserFacing: true,
		}, nil
	}

	// A reply resolves the field the user was last asked about.
	if fieldValue != "" && state.PendingField != "" {
		state.CollectedData[state.PendingField] = fieldValue
		state.RemainingFields = removeField(state.RemainingFields, state.PendingField)
		state.PendingField = ""
	}

	profile := s.loadProfile(ctx, session.UserID)

	// Absorb every profile-known field without consuming a user turn.
	for len(state.RemainingFields) > 0 {
		next := state.RemainingFields[0]

		if value, ok := profile[next]; ok && value != "" {
			state.CollectedData[next] = value
			state.RemainingFields = state.RemainingFields[1:]
			s.logger.Debug().
				Str("template_id", templateID).
				Str("field", next).
				Msg("Absorbed field value from user profile")
			continue
		}

		// Suspend: ask for exactly this field and wait for the reply.
		state.PendingField = next
		if err := s.forms.SaveFillState(ctx, state); err != nil {
			return nil, fmt.Errorf("failed to save form fill state: %w", err)
		}

		return &interfaces.ToolResult{
			Content:    s.promptFor(tpl, next),
			UserFacing: true,
		}, nil
	}

	// All fields collected: produce the artifact.
	pdfBytes, err := s.filler.Fill(ctx, tpl, state.CollectedData)
	if err != nil {
		return nil, fmt.Errorf("failed to fill form %s: %w", templateID, err)
	}

	artifact := &models.FilledForm{
		ID:         common.NewFormID(),
		TemplateID: templateID,
		UserID:     session.UserID,
		Data:       state.CollectedData,
		PDF:        pdfBytes,
		CreatedAt:  time.Now(),
	}
	if err := s.forms.SaveFilledForm(ctx, artifact); err != nil {
		return nil, fmt.Errorf("failed to save filled form: %w", err)
	}

	state.Completed = true
	state.ArtifactID = artifact.ID
	if err := s.forms.SaveFillState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save form fill state: %w", err)
	}

	s.logger.Info().
		Str("template_id", templateID).
		Str("user_id", session.UserID).
		Str("artifact_id", artifact.ID).
		Int("fields", len(state.CollectedData)).
		Msg("Form fill completed")

	return &interfaces.ToolResult{
		Content:    fmt.Sprintf("All done! Your %s form has been filled out. Download it using reference %s.", tpl.Name, artifact.ID),
		UserFacing: true,
	}, nil
}

// loadProfile returns the user's known field values, or an empty map when no
// profile exists.
func (s *FormFillService) loadProfile(ctx context.Context, userID string) map[string]string {
	profile, err := s.forms.GetProfile(ctx, userID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return map[string]string{}
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to load user profile, collecting all fields manually")
		return map[string]string{}
	}
	if profile.Values == nil {
		return map[string]string{}
	}
	return profile.Values
}

// promptFor phrases the single-field question for the user.
func (s *FormFillService) promptFor(tpl *models.FormTemplate, fieldName string) string {
	field := tpl.FieldByName(fieldName)
	if field == nil {
		return fmt.Sprintf("Please provide a value for %q.", fieldName)
	}

	switch field.Type {
	case models.FormFieldCheckbox:
		return fmt.Sprintf("Should %q be checked on the %s form? (yes/no)", field.Label, tpl.Name)
	case models.FormFieldDate:
		return fmt.Sprintf("Please provide %q for the %s form (YYYY-MM-DD).", field.Label, tpl.Name)
	default:
		return fmt.Sprintf("Please provide %q for the %s form.", field.Label, tpl.Name)
	}
}

func removeField(fields []string, name string) []string {
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if field != name {
			out = append(out, field)
		}
	}
	return out
}

// FormFillerArgs are the arguments of the dynamic_form_filler tool. The fill
// state itself lives server-side keyed by the session, so the model only
// names the template and, when answering a question, the field value.
type FormFillerArgs struct {
	TemplateID string `json:"template_id" validate:"required"`
	FieldValue string `json:"field_value"`
}

// NewFormFillerTool builds the dynamic form-filling tool around a
// FormFillService.
func NewFormFillerTool(service *FormFillService) (interfaces.ToolDefinition, Handler) {
	definition := interfaces.ToolDefinition{
		Name:        ToolDynamicFormFiller,
		Description: "Collects field values turn by turn to fill a government PDF form. Call it with the template id to start or continue, and pass field_value when the user has answered the previously asked question.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"template_id": map[string]any{
					"type":        "string",
					"description": "Identifier of the form template to fill.",
				},
				"field_value": map[string]any{
					"type":        "string",
					"description": "The user's answer to the previously asked field question, if any.",
				},
			},
			"required": []string{"template_id"},
		},
	}

	handler := func(ctx context.Context, session interfaces.ToolSession, raw json.RawMessage) (*interfaces.ToolResult, error) {
		var args FormFillerArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}

		return service.Advance(ctx, session, args.TemplateID, args.FieldValue)
	}

	return definition, handler
}
