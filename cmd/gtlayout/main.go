// The gtlayout command runs the honeypot support migration on a CVAT database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"

	"github.com/bdougie/gtlayout/internal/backfill"
	"github.com/bdougie/gtlayout/internal/config"
	"github.com/bdougie/gtlayout/internal/frameset"
	"github.com/bdougie/gtlayout/internal/migration"
	"github.com/bdougie/gtlayout/internal/storage"
)

const version = "1.0.0"

var errUsage = errors.New("usage")

type options struct {
	configPath  string
	outputDir   string
	verbose     bool
	showVersion bool
	command     string
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("gtlayout", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to the TOML config (default ./"+config.DefaultConfigFile+" if present)")
	fs.StringVar(&opts.outputDir, "output", "output_layouts", "Directory for resolve output")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "gtlayout v%s - validation layout migration\n\n", version)
		fmt.Fprintf(stderr, "Usage: gtlayout [options] <command>\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		fmt.Fprintf(stderr, "  up        Apply %s\n", migration.HoneypotSupportKey)
		fmt.Fprintf(stderr, "  down      Revert %s\n", migration.HoneypotSupportKey)
		fmt.Fprintf(stderr, "  resolve   Write ground truth layouts to JSON without changing the database\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, errUsage
	}
	if opts.showVersion {
		return opts, nil
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return opts, errUsage
	}
	opts.command = fs.Arg(0)

	switch opts.command {
	case "up", "down", "resolve":
		return opts, nil
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", opts.command)
		fs.Usage()
		return opts, errUsage
	}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		}),
	).With("run_id", uuid.NewString())
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		return 2
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "gtlayout v%s\n", version)
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	level, _ := cfg.Log.SlogLevel()
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(stderr, level)

	if err := execute(ctx, opts, cfg, logger); err != nil {
		logger.Error("gtlayout failed", "command", opts.command, "error", err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, opts options, cfg *config.Config, logger *slog.Logger) error {
	store, err := storage.NewPostgresStorage(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	runner := migration.NewRunner(store.DB(), logger)
	honeypot := migration.HoneypotSupport(migration.Options{
		Workers:   cfg.Backfill.Workers,
		BatchSize: cfg.Backfill.BatchSize,
		ChunkSize: cfg.Backfill.ChunkSize,
		Logger:    logger,
	})

	switch opts.command {
	case "up":
		applied, err := runner.Apply(ctx, honeypot)
		if err != nil {
			return err
		}
		if applied {
			logger.Info("migration applied", "migration", honeypot.Key.String())
		}
		return nil

	case "down":
		if err := runner.Revert(ctx, honeypot); err != nil {
			return err
		}
		logger.Info("migration reverted", "migration", honeypot.Key.String())
		return nil

	case "resolve":
		writer, err := storage.NewFileLayoutWriter(opts.outputDir, cfg.Backfill.BatchSize)
		if err != nil {
			return err
		}
		processor := backfill.NewProcessor(frameset.NewResolver(), writer, cfg.Backfill.Workers, logger)
		stats, err := processor.Run(ctx, storage.NewGroundTruthSource(store.DB(), cfg.Backfill.ChunkSize))
		if err != nil {
			return err
		}
		logger.Info("resolved ground truth layouts",
			"jobs", stats.Jobs,
			"empty", stats.EmptyLayouts,
			"output", writer.Path(),
		)
		return nil
	}

	return fmt.Errorf("unknown command %q", opts.command)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
