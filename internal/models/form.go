package models

import "time"

// FormFieldType enumerates the supported PDF form field kinds.
type FormFieldType string

const (
	FormFieldText     FormFieldType = "text"
	FormFieldCheckbox FormFieldType = "checkbox"
	FormFieldDate     FormFieldType = "date"
)

// FormField describes one fillable field on a form template: its name, the
// prompt shown to the user, and where its value lands on the template page.
type FormField struct {
	Name     string        `yaml:"name" json:"name" validate:"required"`
	Label    string        `yaml:"label" json:"label" validate:"required"`
	Type     FormFieldType `yaml:"type" json:"type" validate:"required,oneof=text checkbox date"`
	Required bool          `yaml:"required" json:"required"`
	X        float64       `yaml:"x" json:"x" validate:"gte=0"`
	Y        float64       `yaml:"y" json:"y" validate:"gte=0"`
	Page     int           `yaml:"page" json:"page" validate:"gte=0"` // 1-based; 0 means page 1
}

// FormTemplate is the recorded field layout for a fillable document. Loaded
// from YAML definitions at startup; the field order is the order fields are
// collected in during a form-fill conversation.
type FormTemplate struct {
	ID           string      `yaml:"id" json:"id" validate:"required"`
	Name         string      `yaml:"name" json:"name" validate:"required"`
	Category     string      `yaml:"category" json:"category"`
	TemplatePath string      `yaml:"template_path" json:"template_path" validate:"required"`
	Fields       []FormField `yaml:"fields" json:"fields" validate:"required,min=1,dive"`
	CreatedAt    time.Time   `yaml:"-" json:"created_at"`
	UpdatedAt    time.Time   `yaml:"-" json:"updated_at"`
}

// RequiredFieldNames returns the ordered field names of the template.
func (t *FormTemplate) RequiredFieldNames() []string {
	names := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		names = append(names, f.Name)
	}
	return names
}

// FieldByName returns the descriptor for a field name, or nil.
func (t *FormTemplate) FieldByName(name string) *FormField {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

// FormFillState is the resumable accumulator for a multi-turn form-filling
// conversation, owned by a (user, session, template) triple. RequiredFields
// is fixed at creation; CollectedData keys are a subset of its names.
type FormFillState struct {
	ID              string            `json:"id"` // userID/sessionID/templateID
	UserID          string            `json:"user_id"`
	SessionID       string            `json:"session_id"`
	TemplateID      string            `json:"template_id"`
	RequiredFields  []string          `json:"required_fields"`
	RemainingFields []string          `json:"remaining_fields"`
	CollectedData   map[string]string `json:"collected_data"`

	// PendingField is the field the user was last asked about; their next
	// reply resolves it.
	PendingField string `json:"pending_field,omitempty"`

	Completed  bool      `json:"completed"`
	ArtifactID string    `json:"artifact_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Profile holds known values for a user, keyed by form field name. Fields
// present here are absorbed into a form fill without asking the user.
type Profile struct {
	UserID    string            `json:"user_id"`
	Values    map[string]string `json:"values"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// FilledForm is a produced form artifact: the filled PDF bytes plus the data
// that went into it. Referenced from chat responses by ID for download.
type FilledForm struct {
	ID         string            `json:"id"` // form_<uuid>
	TemplateID string            `json:"template_id"`
	UserID     string            `json:"user_id"`
	Data       map[string]string `json:"data"`
	PDF        []byte            `json:"pdf"`
	CreatedAt  time.Time         `json:"created_at"`
}
