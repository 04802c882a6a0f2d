package main

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/claude/stitch/internal/models"
	"github.com/claude/stitch/internal/tui"
	"github.com/claude/stitch/internal/workout"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var autoEndRest bool

	cmd := &cobra.Command{
		Use:   "play <routine-id>",
		Short: "Play a routine interactively",
		Long: `Play a routine set by set.

Keys: enter/space complete the set or skip the rest, +/- change the weight,
up/down change the reps, q quits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRoutineID(args[0])
			if err != nil {
				return err
			}
			defer ctx.close()

			return ctx.withSource(func(src source) error {
				routine, err := src.GetRoutine(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("get routine %d: %w", id, err)
				}
				exercises, err := src.ListExercises(cmd.Context())
				if err != nil {
					return fmt.Errorf("list exercises: %w", err)
				}

				session := workout.NewSession(workout.Options{
					AutoEndRest: autoEndRest,
					Logger:      ctx.logger(),
				})
				if err := session.Load(*routine, models.NewCatalog(exercises).Lookup); err != nil {
					if errors.Is(err, workout.ErrNothingToPlay) {
						return fmt.Errorf("routine %q has no sets to play", routine.Name)
					}
					return err
				}
				defer session.Exit()

				program := tea.NewProgram(tui.New(session),
					tea.WithAltScreen(),
					tea.WithContext(cmd.Context()),
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(cmd.OutOrStdout()),
				)
				final, err := program.Run()
				if err != nil {
					return fmt.Errorf("player: %w", err)
				}

				if m, ok := final.(tui.Model); ok && m.Finished() {
					snap := m.Snapshot()
					fmt.Fprintf(cmd.OutOrStdout(), "Finished %s: %d sets in %s\n",
						snap.RoutineName, snap.TotalSteps, workout.FormatClock(snap.ElapsedSeconds))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&autoEndRest, "auto-end-rest", false, "End each rest automatically when its time is up")
	return cmd
}
