package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRoutinesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "routines",
		Short: "List stored routines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSource(func(src source) error {
				routines, err := src.ListRoutines(cmd.Context())
				if err != nil {
					return fmt.Errorf("list routines: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(routines) == 0 {
					fmt.Fprintln(out, "No routines. Import a library with `stitch-play import <dir>`.")
					return nil
				}
				rows := make([][]string, 0, len(routines))
				for _, r := range routines {
					rows = append(rows, []string{
						strconv.FormatInt(r.ID, 10),
						r.Name,
						strconv.Itoa(len(r.Series)),
						strconv.Itoa(r.SetCount()),
						r.Description,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Series", "Sets", "Description"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}
