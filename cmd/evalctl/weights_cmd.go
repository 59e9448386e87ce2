package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
	"github.com/iota-uz/perfeval/modules/evaluation/services"
)

type rebalanceOutput struct {
	Command string                    `json:"command"`
	Applied []services.WeightRequest  `json:"applied"`
	Result  services.WeightValidation `json:"result"`
}

func newWeightsCmd(opts *appOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Validate or rebalance criteria category weights",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Report whether active category weights total 100",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, opts, func(ctx context.Context, a *app, _ domain.Principal) error {
				res, err := a.module.Weights.Validate(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd, res)
			})
		},
	})
	cmd.AddCommand(newWeightsRebalanceCmd(opts))
	return cmd
}

func newWeightsRebalanceCmd(opts *appOptions) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Atomically set several category weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			requests, err := parseWeightRequests(sets)
			if err != nil {
				return err
			}
			return runWithApp(cmd, opts, func(ctx context.Context, a *app, p domain.Principal) error {
				if err := a.module.Weights.Rebalance(ctx, p, requests); err != nil {
					return err
				}
				res, err := a.module.Weights.Validate(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd, rebalanceOutput{Command: "weights rebalance", Applied: requests, Result: res})
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "category_id=weight (repeatable, required)")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

func parseWeightRequests(sets []string) ([]services.WeightRequest, error) {
	out := make([]services.WeightRequest, 0, len(sets))
	for _, s := range sets {
		idPart, weightPart, ok := strings.Cut(s, "=")
		if !ok {
			return nil, usageError("invalid --set %q (expected category_id=weight)", s)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
		if err != nil {
			return nil, usageError("invalid category id in --set %q", s)
		}
		weight, err := decimal.NewFromString(strings.TrimSpace(weightPart))
		if err != nil {
			return nil, usageError("invalid weight in --set %q", s)
		}
		out = append(out, services.WeightRequest{CategoryID: id, NewWeight: weight})
	}
	return out, nil
}
