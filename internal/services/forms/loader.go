package forms

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
	"github.com/adiuvo-ai/adiuvo/internal/models"
)

var validate = validator.New()

// LoadTemplates reads form template definitions from a directory of YAML
// files and persists them. One template per file; files that fail to parse or
// validate abort the load so a bad definition never silently disappears.
// A missing or empty directory loads zero templates.
func LoadTemplates(ctx context.Context, dir string, storage interfaces.FormStorage, logger arbor.ILogger) (int, error) {
	if dir == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug().Str("dir", dir).Msg("Form templates directory not found, skipping")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read templates directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)

	loaded := 0
	for _, path := range files {
		tpl, err := loadTemplateFile(path, dir)
		if err != nil {
			return loaded, err
		}
		if err := storage.SaveTemplate(ctx, tpl); err != nil {
			return loaded, fmt.Errorf("failed to save template %s: %w", tpl.ID, err)
		}
		loaded++

		logger.Info().
			Str("template_id", tpl.ID).
			Str("name", tpl.Name).
			Int("fields", len(tpl.Fields)).
			Msg("Form template loaded")
	}

	return loaded, nil
}

func loadTemplateFile(path, dir string) (*models.FormTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %s: %w", path, err)
	}

	var tpl models.FormTemplate
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("failed to parse template file %s: %w", path, err)
	}

	// Template paths are stored relative to the templates directory.
	if tpl.TemplatePath != "" && !filepath.IsAbs(tpl.TemplatePath) {
		tpl.TemplatePath = filepath.Join(dir, tpl.TemplatePath)
	}

	if err := validate.Struct(&tpl); err != nil {
		return nil, fmt.Errorf("invalid template definition %s: %w", path, err)
	}

	now := time.Now()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	return &tpl, nil
}
