package forms

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
	"github.com/adiuvo-ai/adiuvo/internal/models"
)

type templateStore struct {
	templates map[string]*models.FormTemplate
}

func (s *templateStore) SaveTemplate(ctx context.Context, tpl *models.FormTemplate) error {
	s.templates[tpl.ID] = tpl
	return nil
}

func (s *templateStore) GetTemplate(ctx context.Context, id string) (*models.FormTemplate, error) {
	tpl, ok := s.templates[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return tpl, nil
}

func (s *templateStore) ListTemplates(ctx context.Context, category string) ([]*models.FormTemplate, error) {
	var out []*models.FormTemplate
	for _, tpl := range s.templates {
		if category == "" || tpl.Category == category {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (s *templateStore) SaveFillState(ctx context.Context, state *models.FormFillState) error {
	return nil
}

func (s *templateStore) GetFillState(ctx context.Context, userID, sessionID, templateID string) (*models.FormFillState, error) {
	return nil, interfaces.ErrNotFound
}

func (s *templateStore) DeleteFillState(ctx context.Context, userID, sessionID, templateID string) error {
	return nil
}

func (s *templateStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return nil, interfaces.ErrNotFound
}

func (s *templateStore) SaveProfile(ctx context.Context, profile *models.Profile) error {
	return nil
}

func (s *templateStore) SaveFilledForm(ctx context.Context, form *models.FilledForm) error {
	return nil
}

func (s *templateStore) GetFilledForm(ctx context.Context, id string) (*models.FilledForm, error) {
	return nil, interfaces.ErrNotFound
}

const licenseTemplateYAML = `id: dl-44
name: Driver License Application
category: dmv
template_path: dl-44.pdf
fields:
  - name: full_name
    label: What is your full legal name?
    type: text
    required: true
    x: 120
    y: 200
    page: 1
  - name: organ_donor
    label: Do you want to register as an organ donor?
    type: checkbox
    x: 90
    y: 310
    page: 1
`

func writeTemplate(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadTemplates_LoadsAndResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "dl-44.yaml", licenseTemplateYAML)

	store := &templateStore{templates: map[string]*models.FormTemplate{}}
	loaded, err := LoadTemplates(context.Background(), dir, store, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)

	tpl, err := store.GetTemplate(context.Background(), "dl-44")
	require.NoError(t, err)
	assert.Equal(t, "Driver License Application", tpl.Name)
	assert.Equal(t, filepath.Join(dir, "dl-44.pdf"), tpl.TemplatePath)
	require.Len(t, tpl.Fields, 2)
	assert.Equal(t, models.FormFieldCheckbox, tpl.Fields[1].Type)
	t.Log("✅ Template loaded with directory-relative PDF path resolved")
}

func TestLoadTemplates_MissingDirIsNotAnError(t *testing.T) {
	store := &templateStore{templates: map[string]*models.FormTemplate{}}

	loaded, err := LoadTemplates(context.Background(), "/nonexistent/forms", store, arbor.NewLogger())
	require.NoError(t, err)
	assert.Zero(t, loaded)
}

func TestLoadTemplates_RejectsInvalidDefinition(t *testing.T) {
	dir := t.TempDir()
	// Missing name and fields.
	writeTemplate(t, dir, "broken.yaml", "id: broken\ntemplate_path: broken.pdf\n")

	store := &templateStore{templates: map[string]*models.FormTemplate{}}
	_, err := LoadTemplates(context.Background(), dir, store, arbor.NewLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid template definition")
}

func TestLoadTemplates_RejectsUnknownFieldType(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "bad-type.yaml", `id: bad-type
name: Bad Type
template_path: bad.pdf
fields:
  - name: field_a
    label: A
    type: signature
    x: 1
    y: 1
    page: 1
`)

	store := &templateStore{templates: map[string]*models.FormTemplate{}}
	_, err := LoadTemplates(context.Background(), dir, store, arbor.NewLogger())
	require.Error(t, err)
}

func TestLoadTemplates_IgnoresNonYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "dl-44.yaml", licenseTemplateYAML)
	writeTemplate(t, dir, "README.md", "# templates")
	writeTemplate(t, dir, "dl-44.pdf", "%PDF-1.4 stub")

	store := &templateStore{templates: map[string]*models.FormTemplate{}}
	loaded, err := LoadTemplates(context.Background(), dir, store, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)
}
