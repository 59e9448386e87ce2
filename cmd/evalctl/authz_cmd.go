package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
	"github.com/iota-uz/perfeval/pkg/authz"
)

func newAuthzCmd(opts *appOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authz",
		Short: "Capability policy tooling",
	}
	cmd.AddCommand(newAuthzInspectCmd(opts))
	cmd.AddCommand(newAuthzVerifyCmd(opts))
	return cmd
}

type verifyOutput struct {
	Checked    int              `json:"checked"`
	Mismatches []authz.Mismatch `json:"mismatches"`
}

func newAuthzVerifyCmd(opts *appOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the loaded policy against a YAML list of expected decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			expectations, err := authz.LoadExpectations(path)
			if err != nil {
				return withCode(exitUsage, err)
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app, _ domain.Principal) error {
				mismatches, err := a.authz.Verify(ctx, expectations)
				if err != nil {
					return err
				}
				if err := writeJSON(cmd, verifyOutput{Checked: len(expectations), Mismatches: mismatches}); err != nil {
					return err
				}
				if len(mismatches) > 0 {
					return withCode(exitValidation, errors.Errorf("%d policy expectations failed", len(mismatches)))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&path, "expectations", "config/access/expectations.yaml", "YAML expectations file")
	return cmd
}

func newAuthzInspectCmd(opts *appOptions) *cobra.Command {
	var role, object, action string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Evaluate one capability request and show the matching rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app, p domain.Principal) error {
				subject := role
				if subject == "" {
					subject = string(p.Role)
				}
				res, err := a.authz.Inspect(ctx, authz.NewRequest(authz.SubjectForRole(subject), object, action))
				if err != nil {
					return err
				}
				return writeJSON(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "Role to check (defaults to the principal's role)")
	cmd.Flags().StringVar(&object, "object", "", "Capability object, e.g. evaluation.evaluations (required)")
	cmd.Flags().StringVar(&action, "action", "", "Capability action, e.g. submit (required)")
	_ = cmd.MarkFlagRequired("object")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}
