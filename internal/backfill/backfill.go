// Package backfill creates validation layouts for tasks with ground truth jobs.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bdougie/gtlayout/internal/models"
	"github.com/bdougie/gtlayout/internal/storage"
)

const DefaultWorkers = 4

// JobSource yields ground truth jobs in chunks
type JobSource interface {
	EachChunk(ctx context.Context, fn func([]models.GroundTruthJob) error) error
}

// FrameResolver computes the relative frames a segment covers
type FrameResolver interface {
	Resolve(seg models.Segment, ds models.Dataset) ([]models.RelFrame, error)
}

// Stats summarizes a backfill run
type Stats struct {
	Jobs         int
	Layouts      int
	EmptyLayouts int
}

type Processor struct {
	resolver FrameResolver
	writer   storage.LayoutWriter
	workers  int
	logger   *slog.Logger
}

func NewProcessor(resolver FrameResolver, writer storage.LayoutWriter, workers int, logger *slog.Logger) *Processor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		resolver: resolver,
		writer:   writer,
		workers:  workers,
		logger:   logger,
	}
}

// Run builds one ground truth layout per job and writes them all.
// Any failure aborts the run before the final flush.
func (p *Processor) Run(ctx context.Context, src JobSource) (Stats, error) {
	var stats Stats

	err := src.EachChunk(ctx, func(jobs []models.GroundTruthJob) error {
		layouts, err := p.resolveChunk(ctx, jobs)
		if err != nil {
			return err
		}

		for i, layout := range layouts {
			if len(layout.Frames) == 0 {
				stats.EmptyLayouts++
				p.logger.Warn("ground truth job covers no frames",
					"job_id", jobs[i].JobID,
					"segment_id", jobs[i].Segment.ID,
					"data_id", layout.DataID,
				)
			}
			if err := p.writer.Add(ctx, layout); err != nil {
				return fmt.Errorf("job %d: %w", jobs[i].JobID, err)
			}
			stats.Layouts++
		}

		stats.Jobs += len(jobs)
		p.logger.Debug("processed ground truth chunk", "jobs", len(jobs), "total", stats.Jobs)
		return nil
	})
	if err != nil {
		return stats, err
	}

	// Flush any remaining layouts
	if err := p.writer.Flush(ctx); err != nil {
		return stats, fmt.Errorf("failed to flush final layouts: %w", err)
	}

	return stats, nil
}

// resolveChunk resolves jobs on the worker pool; layouts keep the order of jobs
func (p *Processor) resolveChunk(ctx context.Context, jobs []models.GroundTruthJob) ([]models.ValidationLayout, error) {
	layouts := make([]models.ValidationLayout, len(jobs))
	workChan := make(chan int, len(jobs))
	errorsChan := make(chan error, len(jobs))

	var wg sync.WaitGroup

	// Start worker pool
	for i := 0; i < min(p.workers, len(jobs)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workChan {
				if err := ctx.Err(); err != nil {
					errorsChan <- err
					return
				}

				job := jobs[idx]
				frames, err := p.resolver.Resolve(job.Segment, job.Dataset)
				if err != nil {
					errorsChan <- fmt.Errorf("job %d: %w", job.JobID, err)
					continue
				}
				layouts[idx] = models.NewGroundTruthLayout(job.Dataset.ID, frames)
			}
		}()
	}

	// Send work to workers
	for i := range jobs {
		workChan <- i
	}
	close(workChan)

	// Wait for all workers to finish
	wg.Wait()
	close(errorsChan)

	var errs []error
	for err := range errorsChan {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return layouts, nil
}
