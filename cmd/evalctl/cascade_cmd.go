package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

type cascadeOutput struct {
	Command string `json:"command"`
	Kind    string `json:"kind"`
	ID      int64  `json:"id"`
}

type cascadeAction func(ctx context.Context, a *app, p domain.Principal, kind domain.Kind, id int64) error

func newCascadeCmd(opts *appOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cascade",
		Short: "Soft-delete, restore or hard-delete entities (Admin)",
	}
	cmd.AddCommand(newCascadeActionCmd(opts, "deactivate", "Deactivate an entity and its dependents atomically",
		func(ctx context.Context, a *app, p domain.Principal, kind domain.Kind, id int64) error {
			return a.module.Cascade.CascadeDeactivate(ctx, p, kind, id)
		}))
	cmd.AddCommand(newCascadeActionCmd(opts, "reactivate", "Reactivate an entity (dependents stay as they are)",
		func(ctx context.Context, a *app, p domain.Principal, kind domain.Kind, id int64) error {
			return a.module.Cascade.Reactivate(ctx, p, kind, id)
		}))
	cmd.AddCommand(newCascadeActionCmd(opts, "delete", "Physically delete an entity nothing refers to",
		func(ctx context.Context, a *app, p domain.Principal, kind domain.Kind, id int64) error {
			return a.module.Cascade.HardDelete(ctx, p, kind, id)
		}))
	return cmd
}

func newCascadeActionCmd(opts *appOptions, use, short string, action cascadeAction) *cobra.Command {
	var (
		kindName string
		id       int64
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindFlag(kindName)
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app, p domain.Principal) error {
				if err := action(ctx, a, p, kind, id); err != nil {
					return err
				}
				return writeJSON(cmd, cascadeOutput{Command: "cascade " + use, Kind: string(kind), ID: id})
			})
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", "", "Entity kind, table or resource name (required)")
	cmd.Flags().Int64Var(&id, "id", 0, "Entity id (required)")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
