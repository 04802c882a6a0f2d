package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/claude/stitch/internal/models"
	"github.com/claude/stitch/internal/workout"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <routine-id>",
		Short: "Show the order in which a routine's sets are played",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRoutineID(args[0])
			if err != nil {
				return err
			}
			return ctx.withSource(func(src source) error {
				name, plan, err := ctx.loadPlan(cmd.Context(), src, id)
				if err != nil {
					return err
				}
				exercises, err := src.ListExercises(cmd.Context())
				if err != nil {
					return fmt.Errorf("list exercises: %w", err)
				}
				catalog := models.NewCatalog(exercises)

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, name)
				if len(plan) == 0 {
					fmt.Fprintln(out, "Nothing to play: the routine has no sets.")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Exercise", "Set", "Type", "Target", "Weight", "Rest"},
					planRows(plan, catalog),
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

// loadPlan asks the server for its plan when remote and flattens locally otherwise.
func (c *commandContext) loadPlan(ctx context.Context, src source, id int64) (string, []workout.PlanEntry, error) {
	routine, err := src.GetRoutine(ctx, id)
	if err != nil {
		return "", nil, fmt.Errorf("get routine %d: %w", id, err)
	}
	if c.remote() {
		plan, err := c.client().GetPlan(ctx, id)
		if err != nil {
			return "", nil, fmt.Errorf("get plan %d: %w", id, err)
		}
		return routine.Name, plan, nil
	}
	return routine.Name, workout.Plan(*routine), nil
}

func planRows(plan []workout.PlanEntry, catalog models.Catalog) [][]string {
	rows := make([][]string, 0, len(plan))
	for _, e := range plan {
		title := models.UnknownExerciseTitle
		if meta, ok := catalog.Lookup(e.ExerciseID); ok {
			title = meta.Title
		}
		if e.IsSuperset {
			title += " (SS)"
		}
		weight := ""
		if e.TargetWeight > 0 {
			weight = formatWeight(e.TargetWeight)
		}
		rest := ""
		switch {
		case e.RestOwed && e.RestAfter > 0:
			rest = workout.FormatClock(e.RestAfter)
		case e.RestOwed:
			rest = "rest"
		}
		rows = append(rows, []string{
			strconv.Itoa(e.Index + 1),
			title,
			fmt.Sprintf("%d/%d", e.SetIndex+1, e.TotalSets),
			string(e.SetType),
			workout.TargetLabel(e.Step),
			weight,
			rest,
		})
	}
	return rows
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64) + " kg"
}
