package main

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

type evaluationOutput struct {
	Command string        `json:"command"`
	Row     domain.Record `json:"row,omitempty"`
}

type totalOutput struct {
	Command      string          `json:"command"`
	EvaluationID int64           `json:"evaluationId"`
	Total        decimal.Decimal `json:"total"`
}

func newEvaluationCmd(opts *appOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "evaluation",
		Aliases: []string{"eval"},
		Short:   "Create, score, submit and approve evaluations",
	}
	cmd.AddCommand(newEvaluationCreateCmd(opts))
	cmd.AddCommand(newEvaluationScoreCmd(opts))
	cmd.AddCommand(newEvaluationCommentCmd(opts))
	cmd.AddCommand(newEvaluationTransitionCmd(opts, "submit", "Complete an evaluation and store its total",
		func(ctx context.Context, a *app, p domain.Principal, id int64) error {
			return a.module.Lifecycle.Submit(ctx, p, id)
		}))
	cmd.AddCommand(newEvaluationTransitionCmd(opts, "approve", "Approve a completed evaluation (Admin)",
		func(ctx context.Context, a *app, p domain.Principal, id int64) error {
			return a.module.Lifecycle.Approve(ctx, p, id)
		}))
	cmd.AddCommand(newEvaluationTotalCmd(opts, "total", "Compute the live weighted total without storing it"))
	cmd.AddCommand(newEvaluationTotalCmd(opts, "recalculate", "Recompute and store the total with current weights"))
	return cmd
}

func newEvaluationCreateCmd(opts *appOptions) *cobra.Command {
	var evaluatorID, employeeID int64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a Draft evaluation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app, p domain.Principal) error {
				ev, err := a.module.Lifecycle.Create(ctx, p, evaluatorID, employeeID)
				if err != nil {
					return err
				}
				return writeJSON(cmd, evaluationOutput{Command: "evaluation create", Row: ev.Values()})
			})
		},
	}
	cmd.Flags().Int64Var(&evaluatorID, "evaluator", 0, "Evaluator user id (required)")
	cmd.Flags().Int64Var(&employeeID, "employee", 0, "Employee user id (required)")
	_ = cmd.MarkFlagRequired("evaluator")
	_ = cmd.MarkFlagRequired("employee")
	return cmd
}

func newEvaluationScoreCmd(opts *appOptions) *cobra.Command {
	var (
		evaluationID, criteriaID int64
		score                    int
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Record (or overwrite) one criterion score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app, p domain.Principal) error {
				s, err := a.module.Lifecycle.UpdateScore(ctx, p, evaluationID, criteriaID, score)
				if err != nil {
					return err
				}
				return writeJSON(cmd, evaluationOutput{Command: "evaluation score", Row: s.Values()})
			})
		},
	}
	cmd.Flags().Int64Var(&evaluationID, "evaluation", 0, "Evaluation id (required)")
	cmd.Flags().Int64Var(&criteriaID, "criteria", 0, "Criteria id (required)")
	cmd.Flags().IntVar(&score, "score", 0, "Score 1-5 (required)")
	_ = cmd.MarkFlagRequired("evaluation")
	_ = cmd.MarkFlagRequired("criteria")
	_ = cmd.MarkFlagRequired("score")
	return cmd
}

func newEvaluationCommentCmd(opts *appOptions) *cobra.Command {
	var (
		scoreID int64
		text    string
	)
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Attach a comment to a score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app, p domain.Principal) error {
				c, err := a.module.Lifecycle.AddComment(ctx, p, scoreID, text)
				if err != nil {
					return err
				}
				return writeJSON(cmd, evaluationOutput{Command: "evaluation comment", Row: c.Values()})
			})
		},
	}
	cmd.Flags().Int64Var(&scoreID, "score", 0, "Score id (required)")
	cmd.Flags().StringVar(&text, "text", "", "Comment text (required)")
	_ = cmd.MarkFlagRequired("score")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func newEvaluationTransitionCmd(opts *appOptions, use, short string, fn func(context.Context, *app, domain.Principal, int64) error) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app, p domain.Principal) error {
				if err := fn(ctx, a, p, id); err != nil {
					return err
				}
				ev, err := domain.FindAs[domain.Evaluation](ctx, a.store, domain.KindEvaluation, id)
				if err != nil {
					return withCode(exitStorage, err)
				}
				return writeJSON(cmd, evaluationOutput{Command: "evaluation " + use, Row: ev.Values()})
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Evaluation id (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newEvaluationTotalCmd(opts *appOptions, use, short string) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app, p domain.Principal) error {
				var (
					total decimal.Decimal
					err   error
				)
				if use == "recalculate" {
					total, err = a.module.Lifecycle.Recalculate(ctx, p, id)
				} else {
					total, err = a.module.Lifecycle.Total(ctx, p, id)
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd, totalOutput{Command: "evaluation " + use, EvaluationID: id, Total: total})
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Evaluation id (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
