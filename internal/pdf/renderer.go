// Package pdf implements the executor's Renderer on top of pdfcpu: page
// counting, page-range extraction for mixed-color groups, and generation
// of the separator and order-summary pages.
package pdf

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/orrn/printflow/internal/core"
)

type Renderer struct {
	conf *model.Configuration
}

func NewRenderer() *Renderer {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Renderer{conf: conf}
}

func (r *Renderer) PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("page count of %s: %w", path, err)
	}
	return n, nil
}

// ExtractRange writes pages start..end (1-based inclusive) of src into a
// standalone document at dst.
func (r *Renderer) ExtractRange(src, dst string, start, end int) error {
	selection := []string{fmt.Sprintf("%d-%d", start, end)}
	if err := api.TrimFile(src, dst, selection, r.conf); err != nil {
		return fmt.Errorf("extract pages %d-%d from %s: %w", start, end, src, err)
	}
	return nil
}

// page mirrors the pdfcpu create-JSON page description; only the fields
// we use are declared.
type page struct {
	Paper   string  `json:"paper"`
	Content content `json:"content"`
}

type content struct {
	Text []textEntry `json:"text"`
}

type textEntry struct {
	Value  string  `json:"value"`
	Anchor string  `json:"anchor,omitempty"`
	Dx     float64 `json:"dx,omitempty"`
	Dy     float64 `json:"dy,omitempty"`
	Font   font    `json:"font"`
}

type font struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

func (r *Renderer) createSinglePage(dst string, texts []textEntry) error {
	doc := struct {
		Pages map[string]page `json:"pages"`
	}{
		Pages: map[string]page{
			"1": {
				Paper:   "A4",
				Content: content{Text: texts},
			},
		},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal page description: %w", err)
	}

	spec, err := os.CreateTemp(os.TempDir(), "printflow-page-*.json")
	if err != nil {
		return fmt.Errorf("create page description: %w", err)
	}
	specName := spec.Name()
	defer os.Remove(specName)

	if _, err := spec.Write(data); err != nil {
		spec.Close()
		return fmt.Errorf("write page description: %w", err)
	}
	if err := spec.Close(); err != nil {
		return fmt.Errorf("close page description: %w", err)
	}

	if err := api.CreateFile("", specName, dst, r.conf); err != nil {
		return fmt.Errorf("render %s: %w", dst, err)
	}
	return nil
}

// LetterSeparator renders the full-page marker printed before the first
// file of a letter cycle.
func (r *Renderer) LetterSeparator(dst string, letter byte) error {
	return r.createSinglePage(dst, []textEntry{
		{
			Value:  string(letter),
			Anchor: "center",
			Font:   font{Name: "Helvetica-Bold", Size: 320},
		},
		{
			Value:  fmt.Sprintf("Letter cycle %c", letter),
			Anchor: "bottomcenter",
			Dy:     60,
			Font:   font{Name: "Helvetica", Size: 18},
		},
	})
}

// FileSeparator renders the per-file marker printed before each document.
func (r *Renderer) FileSeparator(dst, deliveryNumber string, fileNumber int) error {
	return r.createSinglePage(dst, []textEntry{
		{
			Value:  fmt.Sprintf("%d", fileNumber),
			Anchor: "center",
			Font:   font{Name: "Helvetica-Bold", Size: 220},
		},
		{
			Value:  deliveryNumber,
			Anchor: "bottomcenter",
			Dy:     60,
			Font:   font{Name: "Helvetica", Size: 24},
		},
	})
}

// OrderSummary renders the end-of-job page from the order metadata.
func (r *Renderer) OrderSummary(dst string, job *core.PrintJob) error {
	lines := []string{
		"Delivery " + job.DeliveryNumber,
		job.DisplayName,
	}
	if o := job.Order; o != nil {
		if o.OrderID != "" {
			lines = append(lines, "Order "+o.OrderID)
		}
		if o.CustomerName != "" {
			lines = append(lines, o.CustomerName)
		}
		if o.Phone != "" {
			lines = append(lines, o.Phone)
		}
		if o.Summary != "" {
			lines = append(lines, o.Summary)
		}
	}
	lines = append(lines, fmt.Sprintf("Copies: %d", job.Options.Copies))
	lines = append(lines, "Printed "+time.Now().Format("2006-01-02 15:04"))

	texts := []textEntry{
		{
			Value:  "Order Summary",
			Anchor: "topcenter",
			Dy:     -80,
			Font:   font{Name: "Helvetica-Bold", Size: 28},
		},
		{
			Value:  strings.Join(lines, "\n"),
			Anchor: "center",
			Font:   font{Name: "Helvetica", Size: 16},
		},
	}
	return r.createSinglePage(dst, texts)
}
