package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iota-uz/perfeval/pkg/metrics"
)

func newRootCmd() *cobra.Command {
	opts := &appOptions{}
	cmd := &cobra.Command{
		Use:           "evalctl",
		Short:         "Performance evaluation access, scoring and lifecycle tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.dumpMetrics {
				return nil
			}
			return metrics.WriteText(cmd.ErrOrStderr(), nil)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.backend, "store", "", "Store backend override (postgres|mongo|memory); defaults to STORE_BACKEND")
	flags.StringVar(&opts.fixtures, "fixtures", "", "YAML fixtures seeded into the memory store")
	flags.StringVar(&opts.token, "token", "", "HS256 principal token signed with JWT_SECRET")
	flags.Int64Var(&opts.asUser, "as-user", 0, "Act as this user id (not allowed in production)")
	flags.StringVar(&opts.asRole, "as-role", "", "Role for --as-user (Admin|Evaluator|Employee)")
	flags.Int64Var(&opts.department, "department", 0, "Department id for --as-user")
	flags.BoolVar(&opts.dumpMetrics, "dump-metrics", false, "Write Prometheus metrics to stderr after the command")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newAccessCmd(opts))
	cmd.AddCommand(newWeightsCmd(opts))
	cmd.AddCommand(newEvaluationCmd(opts))
	cmd.AddCommand(newCascadeCmd(opts))
	cmd.AddCommand(newAuthzCmd(opts))
	cmd.AddCommand(newTokenCmd(opts))
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
