package migration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bdougie/gtlayout/internal/backfill"
	"github.com/bdougie/gtlayout/internal/frameset"
	"github.com/bdougie/gtlayout/internal/storage"
)

var (
	HoneypotSupportKey = Key{App: "engine", Name: "0084_honeypot_support"}
	moveToChunksKey    = Key{App: "engine", Name: "0083_move_to_segment_chunks"}
)

// Options tunes the data steps of HoneypotSupport
type Options struct {
	Workers   int
	BatchSize int
	ChunkSize int
	Logger    *slog.Logger
}

// HoneypotSupport adds validation layouts and image placeholders, and moves
// related files to a many-to-many relation with images.
func HoneypotSupport(opts Options) Migration {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return Migration{
		Key:          HoneypotSupportKey,
		Dependencies: []Key{moveToChunksKey},
		Operations: []Operation{
			schemaOperation(storage.AddImageIsPlaceholder),
			schemaOperation(storage.AddImageRealFrame),
			schemaOperation(storage.CreateValidationParams),
			schemaOperation(storage.CreateValidationLayout),
			schemaOperation(storage.CreateValidationFrame),
			{
				// Reverting drops the table, so there is nothing to undo
				Name: "init validation layouts for ground truth jobs",
				Up:   opts.initValidationLayouts,
			},
			schemaOperation(storage.CreateRelatedFileImages),
			{
				Name: "init related file images",
				Up:   opts.initRelatedFileImages,
				Down: opts.revertRelatedFileImages,
			},
			schemaOperation(storage.DropRelatedFilePrimaryImage),
			{
				// Only renames the reverse accessor; the schema is unchanged
				Name: "alter engine_relatedfile.images related name",
			},
		},
	}
}

func schemaOperation(c storage.SchemaChange) Operation {
	op := Operation{Name: c.Name, Up: c.Apply}
	if c.Down != "" {
		op.Down = c.Revert
	}
	return op
}

func (o Options) initValidationLayouts(ctx context.Context, db storage.DB) error {
	writer := storage.NewPostgresLayoutWriter(db, o.BatchSize)
	processor := backfill.NewProcessor(frameset.NewResolver(), writer, o.Workers, o.Logger)

	stats, err := processor.Run(ctx, storage.NewGroundTruthSource(db, o.ChunkSize))
	if err != nil {
		return err
	}
	if writer.Written() != int64(stats.Layouts) {
		return fmt.Errorf("built %d validation layouts but stored %d", stats.Layouts, writer.Written())
	}

	o.Logger.Info("created ground truth validation layouts",
		"jobs", stats.Jobs,
		"layouts", stats.Layouts,
		"rows", writer.Written(),
		"empty", stats.EmptyLayouts,
	)
	return nil
}

func (o Options) initRelatedFileImages(ctx context.Context, db storage.DB) error {
	n, err := storage.BackfillRelatedFileImages(ctx, db)
	if err != nil {
		return err
	}
	o.Logger.Info("linked related files to images", "links", n)
	return nil
}

func (o Options) revertRelatedFileImages(ctx context.Context, db storage.DB) error {
	n, err := storage.RevertRelatedFileImages(ctx, db)
	if err != nil {
		return err
	}
	o.Logger.Info("restored related file primary images", "related_files", n)
	return nil
}
