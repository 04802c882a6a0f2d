package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/claude/stitch/internal/importer"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <dir|file>",
		Short: "Import a YAML exercise and routine library",
		Long: `Import a YAML library of exercises and routines.

A directory imports every .yaml/.yml file in it (optionally gzipped), all
exercises first so routines may reference exercises from any file. With
--server a single library file is posted to the server instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			defer ctx.close()

			start := time.Now()
			var stats *importer.Stats
			if ctx.remote() {
				if info.IsDir() {
					return fmt.Errorf("import: --server takes a single library file, not a directory")
				}
				doc, err := importer.ReadLibraryFile(path)
				if err != nil {
					return fmt.Errorf("import: %w", err)
				}
				stats, err = ctx.client().Import(cmd.Context(), doc, dryRun)
				if err != nil {
					return fmt.Errorf("import: %w", err)
				}
			} else {
				store, err := ctx.openLocal()
				if err != nil {
					return err
				}
				defer store.Close()

				imp := importer.New(store, ctx.logger(), dryRun)
				if info.IsDir() {
					stats, err = imp.Import(cmd.Context(), path)
				} else {
					var doc []byte
					if doc, err = importer.ReadLibraryFile(path); err == nil {
						stats, err = imp.ImportDocument(cmd.Context(), doc)
					}
				}
				if err != nil {
					printStats(cmd, stats)
					return fmt.Errorf("import: %w", err)
				}
			}

			printStats(cmd, stats)
			verb := "Imported"
			if dryRun {
				verb = "Dry run checked"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s library in %s\n", verb, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report counts without writing")
	return cmd
}

func printStats(cmd *cobra.Command, stats *importer.Stats) {
	if stats == nil {
		return
	}
	out := cmd.OutOrStdout()
	n := strconv.Itoa
	fmt.Fprintln(out, renderTable(
		[]string{"", "Received", "Created", "Updated"},
		[][]string{
			{"Exercises", n(stats.ExercisesReceived), n(stats.ExercisesCreated), n(stats.ExercisesUpdated)},
			{"Routines", n(stats.RoutinesReceived), n(stats.RoutinesCreated), n(stats.RoutinesUpdated)},
		},
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	))
	fmt.Fprintf(out, "Files: %d processed, %d skipped, %d errored\n",
		stats.FilesProcessed, stats.FilesSkipped, stats.FilesErrored)
	for _, name := range stats.RejectedRoutines {
		fmt.Fprintf(out, "Rejected routine: %s\n", name)
	}
}
