package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
	"github.com/adiuvo-ai/adiuvo/internal/models"
)

const (
	fillFont     = "Helvetica"
	fillFontSize = 12
)

// Filler implements interfaces.FormFiller by rendering collected values as a
// transparent overlay and stamping it onto the template PDF, page by page.
// The template file itself is never modified.
type Filler struct {
	logger arbor.ILogger
}

var _ interfaces.FormFiller = (*Filler)(nil)

// NewFiller creates a new PDF form filler.
func NewFiller(logger arbor.ILogger) *Filler {
	return &Filler{
		logger: logger,
	}
}

// Fill renders data onto the template and returns the filled PDF bytes.
// Checkbox fields render an "X" when the value is affirmative; text and date
// fields render the value verbatim at the field's coordinates.
func (f *Filler) Fill(ctx context.Context, tpl *models.FormTemplate, data map[string]string) ([]byte, error) {
	if tpl.TemplatePath == "" {
		return nil, fmt.Errorf("form template %s has no template file path", tpl.ID)
	}
	if _, err := os.Stat(tpl.TemplatePath); err != nil {
		return nil, fmt.Errorf("form template file %s is not readable: %w", tpl.TemplatePath, err)
	}
	if err := api.ValidateFile(tpl.TemplatePath, nil); err != nil {
		return nil, fmt.Errorf("form template file %s is not a valid PDF: %w", tpl.TemplatePath, err)
	}

	byPage := fieldsByPage(tpl, data)
	if len(byPage) == 0 {
		return nil, fmt.Errorf("no field values to render for form %s", tpl.ID)
	}

	workDir, err := os.MkdirTemp("", "adiuvo-form-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Stamp page by page so each overlay lands only on its own page.
	current := filepath.Join(workDir, "current.pdf")
	if err := copyFile(tpl.TemplatePath, current); err != nil {
		return nil, err
	}

	pages := make([]int, 0, len(byPage))
	for page := range byPage {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	for _, page := range pages {
		overlayPath := filepath.Join(workDir, fmt.Sprintf("overlay_p%d.pdf", page))
		if err := f.renderOverlay(overlayPath, byPage[page]); err != nil {
			return nil, err
		}

		wm, err := api.PDFWatermark(overlayPath, "rot:0, sc:1 abs, pos:c", true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("failed to build overlay stamp for page %d: %w", page, err)
		}

		stamped := filepath.Join(workDir, fmt.Sprintf("stamped_p%d.pdf", page))
		if err := api.AddWatermarksFile(current, stamped, []string{fmt.Sprintf("%d", page)}, wm, nil); err != nil {
			return nil, fmt.Errorf("failed to stamp overlay onto page %d: %w", page, err)
		}
		current = stamped
	}

	filled, err := os.ReadFile(current)
	if err != nil {
		return nil, fmt.Errorf("failed to read filled form: %w", err)
	}

	f.logger.Debug().
		Str("template_id", tpl.ID).
		Int("pages", len(pages)).
		Int("fields", len(data)).
		Int("pdf_size", len(filled)).
		Msg("Filled form template")

	return filled, nil
}

// placement is one value positioned on a page.
type placement struct {
	value string
	x     float64
	y     float64
}

// fieldsByPage resolves field values to their 1-based template pages,
// skipping fields without a value. A zero page means page 1.
func fieldsByPage(tpl *models.FormTemplate, data map[string]string) map[int][]placement {
	byPage := map[int][]placement{}
	for _, field := range tpl.Fields {
		value, ok := data[field.Name]
		if !ok || value == "" {
			continue
		}

		if field.Type == models.FormFieldCheckbox {
			if !isAffirmative(value) {
				continue
			}
			value = "X"
		}

		page := field.Page
		if page < 1 {
			page = 1
		}
		byPage[page] = append(byPage[page], placement{value: value, x: field.X, y: field.Y})
	}
	return byPage
}

func isAffirmative(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "y", "true", "x", "checked", "1":
		return true
	default:
		return false
	}
}

// renderOverlay writes a single transparent Letter-size page carrying the
// given values at their absolute coordinates (points, top-left origin).
func (f *Filler) renderOverlay(path string, placements []placement) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pdf.SetFont(fillFont, "", fillFontSize)

	for _, p := range placements {
		pdf.Text(p.x, p.y, p.value)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("failed to render overlay page: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write overlay page: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
