package core

import (
	"errors"
	"fmt"
	"time"
)

type PageSize string

const (
	PageSizeA4 PageSize = "A4"
	PageSizeA3 PageSize = "A3"
)

type ColorMode string

const (
	ColorModeColor ColorMode = "color"
	ColorModeBW    ColorMode = "bw"
	ColorModeMixed ColorMode = "mixed"
)

type Sided string

const (
	SidedSingle Sided = "single"
	SidedDouble Sided = "double"
)

var (
	ErrMissingFileURL   = errors.New("file url is required")
	ErrInvalidCopies    = errors.New("copies must be positive")
	ErrInvalidPageSize  = errors.New("invalid page size")
	ErrInvalidColorMode = errors.New("invalid color mode")
	ErrInvalidSided     = errors.New("invalid sided option")
)

// PageColorAssignment maps 1-based page numbers to a color mode for
// mixed-color jobs. A page listed in both sets, or in neither, prints
// monochrome.
type PageColorAssignment struct {
	ColorPages []int `json:"color_pages"`
	BWPages    []int `json:"bw_pages"`
}

type PrintOptions struct {
	PageSize   PageSize             `json:"page_size"`
	ColorMode  ColorMode            `json:"color_mode"`
	Sided      Sided                `json:"sided"`
	Copies     int                  `json:"copies"`
	PageCount  int                  `json:"page_count,omitempty"`
	PageColors *PageColorAssignment `json:"page_colors,omitempty"`
}

// OrderInfo carries metadata from the upstream order. It is only used to
// print the end-of-job summary page.
type OrderInfo struct {
	OrderID      string `json:"order_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Summary      string `json:"summary,omitempty"`
}

// PrintJob is immutable after submission except for DeliveryNumber, which
// is assigned exactly once on the first processing attempt.
type PrintJob struct {
	FileURL        string       `json:"file_url"`
	DisplayName    string       `json:"display_name"`
	MimeType       string       `json:"mime_type,omitempty"`
	Options        PrintOptions `json:"options"`
	DeliveryNumber string       `json:"delivery_number,omitempty"`
	Order          *OrderInfo   `json:"order,omitempty"`
}

// QueuedJob wraps a PrintJob with queue bookkeeping. Its position in the
// queue list is its processing priority: index 0 is the next (and currently
// in-flight) job.
type QueuedJob struct {
	ID            string     `json:"id"`
	Job           *PrintJob  `json:"job"`
	PrinterIndex  int        `json:"printer_index"`
	Attempts      int        `json:"attempts"`
	CreatedAt     time.Time  `json:"created_at"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

// ValidateJob checks the fields a job must carry before it may enter the
// queue. Defaults are applied in place: copies 1, page size A4, single
// sided, monochrome.
func ValidateJob(job *PrintJob) error {
	if job == nil {
		return errors.New("job is required")
	}
	if job.FileURL == "" {
		return ErrMissingFileURL
	}
	if job.Options.Copies == 0 {
		job.Options.Copies = 1
	}
	if job.Options.Copies < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCopies, job.Options.Copies)
	}
	if job.Options.PageSize == "" {
		job.Options.PageSize = PageSizeA4
	}
	if job.Options.PageSize != PageSizeA4 && job.Options.PageSize != PageSizeA3 {
		return fmt.Errorf("%w: %s", ErrInvalidPageSize, job.Options.PageSize)
	}
	if job.Options.ColorMode == "" {
		job.Options.ColorMode = ColorModeBW
	}
	switch job.Options.ColorMode {
	case ColorModeColor, ColorModeBW, ColorModeMixed:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidColorMode, job.Options.ColorMode)
	}
	if job.Options.Sided == "" {
		job.Options.Sided = SidedSingle
	}
	if job.Options.Sided != SidedSingle && job.Options.Sided != SidedDouble {
		return fmt.Errorf("%w: %s", ErrInvalidSided, job.Options.Sided)
	}
	return nil
}
