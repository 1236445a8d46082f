package core

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Dispatcher sends one rendered document to the physical printer. It owns
// all OS and driver specifics; from here it is synchronous and either
// succeeds or returns a classifiable error.
type Dispatcher interface {
	Dispatch(ctx context.Context, path string, mode ColorMode, copies int) error
}

// Fetcher downloads the job's source document to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, url, dst string) error
}

// Renderer produces the auxiliary documents the executor prints and
// extracts page ranges for mixed-color dispatch. Page arguments are
// 1-based inclusive.
type Renderer interface {
	PageCount(path string) (int, error)
	ExtractRange(src, dst string, start, end int) error
	LetterSeparator(dst string, letter byte) error
	FileSeparator(dst, deliveryNumber string, fileNumber int) error
	OrderSummary(dst string, job *PrintJob) error
}

// JobExecutor runs the workflow for one job attempt: separator pages,
// file acquisition, sequenced print calls and cleanup.
type JobExecutor struct {
	sequence        *DeliverySequence
	dispatcher      Dispatcher
	fetcher         Fetcher
	renderer        Renderer
	spoolDir        string
	settleDelay     time.Duration
	dispatchTimeout time.Duration

	// printedSeparators guards separator pages against double printing
	// when a job retries. Keyed by delivery number, append-only for the
	// life of the process.
	mu                sync.Mutex
	printedSeparators map[string]struct{}
}

func NewJobExecutor(sequence *DeliverySequence, dispatcher Dispatcher, fetcher Fetcher, renderer Renderer, spoolDir string, settleDelay, dispatchTimeout time.Duration) *JobExecutor {
	return &JobExecutor{
		sequence:          sequence,
		dispatcher:        dispatcher,
		fetcher:           fetcher,
		renderer:          renderer,
		spoolDir:          spoolDir,
		settleDelay:       settleDelay,
		dispatchTimeout:   dispatchTimeout,
		printedSeparators: make(map[string]struct{}),
	}
}

// AssignDeliveryNumber stamps the job's number on its first attempt;
// later attempts keep the number already issued. The queue invokes this
// under its own lock before Execute runs, so status snapshots taken
// while a job is in flight never observe the write in progress.
func (e *JobExecutor) AssignDeliveryNumber(qj *QueuedJob) {
	if qj.Job.DeliveryNumber == "" {
		qj.Job.DeliveryNumber = e.sequence.Next(qj.PrinterIndex)
		log.Printf("[executor] job %s assigned delivery number %s", qj.ID, qj.Job.DeliveryNumber)
	}
}

// Execute runs one attempt. Any error leaves the job at the head of the
// queue for retry; temporary artifacts are removed on every path.
func (e *JobExecutor) Execute(ctx context.Context, qj *QueuedJob) error {
	e.AssignDeliveryNumber(qj)
	job := qj.Job

	// The number already issued to the job is ground truth on retries;
	// querying live state again would advance the counter per attempt.
	fileNumber, err := ParseDeliveryFileNumber(job.DeliveryNumber, qj.PrinterIndex)
	if err != nil {
		log.Printf("[executor] job %s: %v, falling back to live file number", qj.ID, err)
		fileNumber = e.sequence.FileNumber()
	}

	workDir, err := e.makeWorkDir(qj.ID)
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	if fileNumber == 1 {
		err := e.printSeparator(ctx, workDir, job.DeliveryNumber, "letter", func(dst string) error {
			return e.renderer.LetterSeparator(dst, job.DeliveryNumber[0])
		})
		if err != nil {
			return fmt.Errorf("letter separator: %w", err)
		}
	}

	err = e.printSeparator(ctx, workDir, job.DeliveryNumber, "file", func(dst string) error {
		return e.renderer.FileSeparator(dst, job.DeliveryNumber, fileNumber)
	})
	if err != nil {
		return fmt.Errorf("file separator: %w", err)
	}

	content := filepath.Join(workDir, "content.pdf")
	if err := e.fetcher.Fetch(ctx, job.FileURL, content); err != nil {
		return fmt.Errorf("fetch %s: %w", job.FileURL, err)
	}

	switch job.Options.ColorMode {
	case ColorModeMixed:
		if err := e.dispatchMixed(ctx, workDir, content, job); err != nil {
			return err
		}
	case ColorModeColor:
		if err := e.dispatch(ctx, content, ColorModeColor, job.Options.Copies); err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}
	default:
		if err := e.dispatch(ctx, content, ColorModeBW, job.Options.Copies); err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}
	}

	if job.Order != nil {
		if err := e.printOrderSummary(ctx, workDir, job); err != nil {
			return fmt.Errorf("order summary: %w", err)
		}
	}

	return nil
}

func (e *JobExecutor) makeWorkDir(jobID string) (string, error) {
	if err := os.MkdirAll(e.spoolDir, 0o755); err != nil {
		return "", fmt.Errorf("create spool dir: %w", err)
	}
	workDir, err := os.MkdirTemp(e.spoolDir, jobID+"-")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	return workDir, nil
}

func (e *JobExecutor) printSeparator(ctx context.Context, workDir, deliveryNumber, kind string, render func(dst string) error) error {
	key := deliveryNumber + ":" + kind
	e.mu.Lock()
	_, done := e.printedSeparators[key]
	e.mu.Unlock()
	if done {
		return nil
	}

	dst := filepath.Join(workDir, kind+"-separator.pdf")
	if err := render(dst); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := e.dispatch(ctx, dst, ColorModeBW, 1); err != nil {
		return err
	}

	e.mu.Lock()
	e.printedSeparators[key] = struct{}{}
	e.mu.Unlock()
	return nil
}

// dispatchMixed splits the document into contiguous same-mode runs and
// sends them in reverse natural order so the output stack reads page 1..N
// top to bottom. A missing or unusable page-color assignment degrades to a
// single monochrome dispatch; a failed group aborts the rest.
func (e *JobExecutor) dispatchMixed(ctx context.Context, workDir, content string, job *PrintJob) error {
	pages := job.Options.PageCount
	if pages <= 0 {
		n, err := e.renderer.PageCount(content)
		if err != nil {
			return fmt.Errorf("page count: %w", err)
		}
		pages = n
	}

	pc := job.Options.PageColors
	if pc == nil || pages <= 0 {
		log.Printf("[executor] job %q: mixed mode without usable page color assignment, printing monochrome", job.DisplayName)
		if err := e.dispatch(ctx, content, ColorModeBW, job.Options.Copies); err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}
		return nil
	}

	groups := SplitPageGroups(pages, pc.ColorPages, pc.BWPages)
	for i, g := range EmissionOrder(groups) {
		if i > 0 && e.settleDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.settleDelay):
			}
		}

		part := filepath.Join(workDir, fmt.Sprintf("group-%02d.pdf", i))
		if err := e.renderer.ExtractRange(content, part, g.Start+1, g.End+1); err != nil {
			return fmt.Errorf("extract pages %d-%d: %w", g.Start+1, g.End+1, err)
		}

		mode := ColorModeColor
		if g.Monochrome {
			mode = ColorModeBW
		}
		if err := e.dispatch(ctx, part, mode, job.Options.Copies); err != nil {
			return fmt.Errorf("dispatch pages %d-%d: %w", g.Start+1, g.End+1, err)
		}
		os.Remove(part)
	}
	return nil
}

func (e *JobExecutor) printOrderSummary(ctx context.Context, workDir string, job *PrintJob) error {
	dst := filepath.Join(workDir, "summary.pdf")
	if err := e.renderer.OrderSummary(dst, job); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return e.dispatch(ctx, dst, ColorModeBW, 1)
}

func (e *JobExecutor) dispatch(ctx context.Context, path string, mode ColorMode, copies int) error {
	if e.dispatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.dispatchTimeout)
		defer cancel()
	}
	return e.dispatcher.Dispatch(ctx, path, mode, copies)
}
