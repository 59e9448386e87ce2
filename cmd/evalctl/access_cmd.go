package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

type accessCheckOutput struct {
	Principal string `json:"principal"`
	Kind      string `json:"kind"`
	ID        int64  `json:"id"`
	Allowed   bool   `json:"allowed"`
}

type accessScopeOutput struct {
	Principal string          `json:"principal"`
	Kind      string          `json:"kind"`
	Filter    string          `json:"filter"`
	Rows      []domain.Record `json:"rows"`
}

func newAccessCmd(opts *appOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Inspect what the principal may see",
	}
	cmd.AddCommand(newAccessCheckCmd(opts))
	cmd.AddCommand(newAccessScopeCmd(opts))
	return cmd
}

func newAccessCheckCmd(opts *appOptions) *cobra.Command {
	var (
		kindName string
		id       int64
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Decide point access to one entity",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindFlag(kindName)
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app, p domain.Principal) error {
				allowed, err := a.module.Access.CanAccessEntity(ctx, p, kind, id)
				if err != nil {
					return err
				}
				return writeJSON(cmd, accessCheckOutput{Principal: p.String(), Kind: string(kind), ID: id, Allowed: allowed})
			})
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", "", "Entity kind, table or resource name (required)")
	cmd.Flags().Int64Var(&id, "id", 0, "Entity id (required)")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newAccessScopeCmd(opts *appOptions) *cobra.Command {
	var kindName string
	cmd := &cobra.Command{
		Use:   "scope",
		Short: "List the rows of a kind visible to the principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindFlag(kindName)
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app, p domain.Principal) error {
				filter, err := a.module.Access.ScopeFilter(ctx, p, kind)
				if err != nil {
					return err
				}
				rows, err := a.store.Query(ctx, kind, filter)
				if err != nil {
					return withCode(exitStorage, err)
				}
				return writeJSON(cmd, accessScopeOutput{
					Principal: p.String(),
					Kind:      string(kind),
					Filter:    filter.String(),
					Rows:      rowsOf(rows),
				})
			})
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", "", "Entity kind, table or resource name (required)")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}
