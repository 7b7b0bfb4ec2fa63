package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipcontext/internal/deps"
	"clipcontext/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var checkServices bool
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check external tools and services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			statuses := preflight.CheckSystemDeps(cfg)
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				state := "ok"
				detail := status.Path
				if !status.Available {
					state = "missing"
					if status.Optional {
						state = "optional"
					}
					detail = status.Detail
				}
				rows = append(rows, []string{status.Name, status.Command, state, detail})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Dependency", "Command", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))

			failed := false
			if checkServices {
				results := preflight.RunAll(cmd.Context(), cfg)
				rows = rows[:0]
				for _, result := range results {
					if !result.Passed {
						failed = true
					}
					rows = append(rows, []string{result.Name, yesNo(result.Passed), result.Detail})
				}
				fmt.Fprintln(out)
				fmt.Fprint(out, renderTable(
					[]string{"Check", "Passed", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
			}

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("required tools missing: %s", strings.Join(missing, ", "))
			}
			if failed {
				return fmt.Errorf("one or more service checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkServices, "services", false, "Also check directories and the speech service")
	return cmd
}
