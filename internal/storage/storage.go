package storage

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/bdougie/gtlayout/internal/models"
)

const DefaultBatchSize = 100 // Number of layouts per write

// LayoutsFileName is the file written by FileLayoutWriter
const LayoutsFileName = "validation_layouts.json"

var validationLayoutColumns = []string{
	"task_data_id", "mode", "frames_per_job_count", "frames", "disabled_frames",
}

// LayoutWriter defines the interface for storing validation layouts
type LayoutWriter interface {
	// Add adds a single layout, writing a batch when it is full
	Add(ctx context.Context, layout models.ValidationLayout) error

	// Flush ensures all pending layouts are saved
	Flush(ctx context.Context) error
}

// PostgresLayoutWriter copies layouts into engine_validationlayout in batches
type PostgresLayoutWriter struct {
	db        DB
	batchSize int
	mu        sync.Mutex
	pending   []models.ValidationLayout
	written   int64
}

// NewPostgresLayoutWriter creates a writer that copies batchSize layouts at a time
func NewPostgresLayoutWriter(db DB, batchSize int) *PostgresLayoutWriter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &PostgresLayoutWriter{db: db, batchSize: batchSize}
}

// Add adds a layout to the batch and flushes if the batch is full
func (w *PostgresLayoutWriter) Add(ctx context.Context, layout models.ValidationLayout) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, layout)

	if len(w.pending) >= w.batchSize {
		return w.flush(ctx)
	}
	return nil
}

// Flush writes all pending layouts
func (w *PostgresLayoutWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flush(ctx)
}

// Written returns the number of rows copied so far
func (w *PostgresLayoutWriter) Written() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

func (w *PostgresLayoutWriter) flush(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}

	rows := make([][]any, len(w.pending))
	for i, l := range w.pending {
		rows[i] = []any{
			l.DataID,
			string(l.Mode),
			l.FramesPerJobCount,
			FormatIntArray(l.Frames),
			FormatIntArray(l.DisabledFrames),
		}
	}

	n, err := w.db.CopyFrom(ctx, pgx.Identifier{"engine_validationlayout"}, validationLayoutColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to store validation layouts: %w", err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("stored %d of %d validation layouts", n, len(rows))
	}

	w.written += n
	w.pending = nil // Clear the batch
	return nil
}

// FileLayoutWriter saves layouts to a JSON file, for dry runs.
// Batches go to a partial file that Flush renames into place, so a failed
// run never leaves a layouts file behind.
type FileLayoutWriter struct {
	mu        sync.Mutex
	pending   []models.ValidationLayout
	batchSize int
	path      string
}

// NewFileLayoutWriter creates outputDir and discards layouts left by an earlier run
func NewFileLayoutWriter(outputDir string, batchSize int) (*FileLayoutWriter, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory '%s': %w", outputDir, err)
	}

	w := &FileLayoutWriter{batchSize: batchSize, path: filepath.Join(outputDir, LayoutsFileName)}
	for _, stale := range []string{w.path, w.partialPath()} {
		if err := os.Remove(stale); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove stale layouts file: %w", err)
		}
	}

	return w, nil
}

// Path returns the location of the layouts file
func (w *FileLayoutWriter) Path() string {
	return w.path
}

func (w *FileLayoutWriter) partialPath() string {
	return w.path + ".partial"
}

// Add adds a layout to the batch and flushes if the batch is full
func (w *FileLayoutWriter) Add(_ context.Context, layout models.ValidationLayout) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, layout)

	// Write to disk when batch is full
	if len(w.pending) >= w.batchSize {
		return w.flush()
	}
	return nil
}

// Flush writes all pending layouts and moves the file to Path
func (w *FileLayoutWriter) Flush(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.flush(); err != nil {
		return err
	}

	partial := w.partialPath()
	if _, err := os.Stat(partial); errors.Is(err, os.ErrNotExist) {
		// No layouts at all still produces a file
		if err := writeLayouts(partial, []models.ValidationLayout{}); err != nil {
			return err
		}
	}

	if err := os.Rename(partial, w.path); err != nil {
		return fmt.Errorf("failed to move layouts file into place: %w", err)
	}
	return nil
}

func (w *FileLayoutWriter) flush() error {
	if len(w.pending) == 0 {
		return nil
	}

	partial := w.partialPath()
	var existing []models.ValidationLayout
	if data, err := os.ReadFile(partial); err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("failed to unmarshal existing layouts: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read layouts file: %w", err)
	}

	all := append(existing, w.pending...)
	slices.SortStableFunc(all, func(a, b models.ValidationLayout) int {
		return cmp.Compare(a.DataID, b.DataID)
	})

	if err := writeLayouts(partial, all); err != nil {
		return err
	}

	w.pending = nil // Clear the batch
	return nil
}

func writeLayouts(path string, layouts []models.ValidationLayout) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create layouts file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(layouts); err != nil {
		return fmt.Errorf("failed to encode layouts: %w", err)
	}
	return nil
}
