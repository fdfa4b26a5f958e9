package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/executor"
)

func newEstimateCmd() *cobra.Command {
	var cpu float64
	cmd := &cobra.Command{
		Use:   "estimate [type...]",
		Short: "Print simulated run times per process type",
		RunE: func(cmd *cobra.Command, args []string) error {
			estimator := conf.Estimator
			if estimator == nil {
				estimator = executor.DefaultEstimator()
			}
			return printEstimates(cmd.OutOrStdout(), estimator, cpu, args)
		},
	}
	cmd.Flags().Float64Var(&cpu, "cpu", 0, "allocated CPU units")
	return cmd
}

func printEstimates(w io.Writer, estimator *executor.Estimator, cpu float64, names []string) error {
	if cpu < 0 {
		return fmt.Errorf("invalid cpu: %v", cpu)
	}
	var types []execution.Type
	for _, name := range names {
		types = append(types, execution.Type(name))
	}
	if len(types) == 0 {
		for processType := range estimator.Base {
			types = append(types, processType)
		}
		sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TYPE\tBASE\tDURATION")
	for _, processType := range types {
		duration := estimator.Estimate(processType, execution.Resources{CPU: cpu})
		_, _ = fmt.Fprintf(tw, "%v\t%v\t%v\n", processType, estimator.BaseOf(processType), duration)
	}
	return tw.Flush()
}
