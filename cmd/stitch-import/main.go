package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/claude/stitch/internal/config"
	"github.com/claude/stitch/internal/importer"
	"github.com/claude/stitch/internal/logging"
	"github.com/claude/stitch/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	libraryPath := flag.String("path", "", "directory of YAML library files (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without writing to the database")
	flag.Parse()

	log := logging.NewWithWriter(os.Stdout, "info", false)

	if *libraryPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: stitch-import -config config.yaml -path /path/to/library [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Verify library directory exists
	info, err := os.Stat(*libraryPath)
	if err != nil || !info.IsDir() {
		log.Error("library path does not exist or is not a directory", "path", *libraryPath)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log = logging.NewWithWriter(os.Stdout, cfg.Log.Level, cfg.Log.JSON)

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	var logID int64
	if !*dryRun {
		logID, err = db.InsertImportLog(ctx, storage.ImportLog{Source: "cli", Status: "running"})
		if err != nil {
			log.Warn("failed to record import start", "error", err)
		}
	}

	// Run import
	start := time.Now()
	imp := importer.New(db, log, *dryRun)
	stats, importErr := imp.Import(ctx, *libraryPath)

	if logID != 0 {
		entry := importer.Record("cli", stats, importErr, time.Since(start))
		if err := db.UpdateImportLog(ctx, logID, entry); err != nil {
			log.Warn("failed to record import result", "error", err)
		}
	}

	printStats(log, stats)
	if importErr != nil {
		log.Error("import failed", "error", importErr)
		os.Exit(1)
	}
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	if stats == nil {
		return
	}
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"exercises_received", stats.ExercisesReceived,
		"exercises_created", stats.ExercisesCreated,
		"exercises_updated", stats.ExercisesUpdated,
		"routines_received", stats.RoutinesReceived,
		"routines_created", stats.RoutinesCreated,
		"routines_updated", stats.RoutinesUpdated,
	)
	if len(stats.RejectedRoutines) > 0 {
		log.Info("rejected routines (failed validation)", "routines", stats.RejectedRoutines)
	}
}
