package main

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

type tokenOutput struct {
	Token     string    `json:"token"`
	Principal string    `json:"principal"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newTokenCmd(opts *appOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Principal token helpers",
	}
	cmd.AddCommand(newTokenIssueCmd(opts))
	return cmd
}

func newTokenIssueCmd(opts *appOptions) *cobra.Command {
	var (
		userID     int64
		roleName   string
		department int64
		ttl        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign an HS256 principal token with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, ok := domain.ParseRole(roleName)
			if !ok {
				return usageError("unknown role %q", roleName)
			}
			p := domain.Principal{UserID: userID, Role: role, DepartmentID: department}
			if !p.Valid() {
				return usageError("--user must be a positive id")
			}
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if len(a.jwtSecret) == 0 {
				return usageError("JWT_SECRET is not configured")
			}

			expires := time.Now().Add(ttl).UTC().Truncate(time.Second)
			claims := p.Claims()
			claims["exp"] = expires.Unix()
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
			if err != nil {
				return errors.Wrap(err, "sign token")
			}
			return writeJSON(cmd, tokenOutput{Token: signed, Principal: p.String(), ExpiresAt: expires})
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "User id (required)")
	cmd.Flags().StringVar(&roleName, "role", "", "Admin|Evaluator|Employee (required)")
	cmd.Flags().Int64Var(&department, "department", 0, "Department id")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
