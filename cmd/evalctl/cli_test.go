package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/perfeval/modules/evaluation"
	"github.com/iota-uz/perfeval/modules/evaluation/domain"
	"github.com/iota-uz/perfeval/pkg/authz"
	"github.com/iota-uz/perfeval/pkg/logging"
)

const testSecret = "evalctl-test-secret"

func useMemoryApp(t *testing.T, production bool) {
	t.Helper()
	prev := openApp
	t.Cleanup(func() { openApp = prev })

	openApp = func(ctx context.Context, opts *appOptions) (*app, error) {
		if opts.fixtures == "" {
			opts.fixtures = "testdata/fixtures.yaml"
		}
		store, err := memoryStore(opts.fixtures)
		if err != nil {
			return nil, err
		}
		logger := logging.Discard()
		svc, err := authz.NewDefaultService(logger, authz.ModeEnforce)
		if err != nil {
			return nil, err
		}
		return &app{
			logger:     logger,
			store:      store,
			authz:      svc,
			module:     evaluation.New(store, svc, nil, logger),
			jwtSecret:  []byte(testSecret),
			production: production,
		}, nil
	}
}

func run(t *testing.T, args ...string) (map[string]any, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		return nil, err
	}
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded), out.String())
	return decoded, nil
}

func TestAccessCheck(t *testing.T) {
	useMemoryApp(t, false)

	out, err := run(t, "access", "check", "--kind", "evaluations", "--id", "5", "--as-user", "42", "--as-role", "employee")
	require.NoError(t, err)
	require.Equal(t, true, out["allowed"])
	require.Equal(t, "Employee#42", out["principal"])

	out, err = run(t, "access", "check", "--kind", "evaluation", "--id", "6", "--as-user", "7", "--as-role", "Evaluator")
	require.NoError(t, err)
	require.Equal(t, false, out["allowed"])
}

func TestAccessScope(t *testing.T) {
	useMemoryApp(t, false)

	out, err := run(t, "access", "scope", "--kind", "evaluations", "--as-user", "7", "--as-role", "Evaluator")
	require.NoError(t, err)
	rows := out["rows"].([]any)
	require.Len(t, rows, 1)
	require.EqualValues(t, 5, rows[0].(map[string]any)["id"])

	out, err = run(t, "access", "scope", "--kind", "evaluations")
	require.NoError(t, err)
	require.Empty(t, out["rows"], "no principal sees nothing")
}

func TestWeights(t *testing.T) {
	useMemoryApp(t, false)

	out, err := run(t, "weights", "validate")
	require.NoError(t, err)
	require.Equal(t, true, out["isValid"])

	out, err = run(t, "weights", "rebalance", "--set", "1=70", "--set", "2=30", "--as-user", "1", "--as-role", "Admin")
	require.NoError(t, err)
	require.Equal(t, true, out["result"].(map[string]any)["isValid"])

	_, err = run(t, "weights", "rebalance", "--set", "1=70", "--as-user", "1", "--as-role", "Admin")
	require.Equal(t, exitValidation, exitCode(err))

	_, err = run(t, "weights", "rebalance", "--set", "1=50", "--set", "2=50", "--as-user", "7", "--as-role", "Evaluator")
	require.Equal(t, exitNotAuthorized, exitCode(err))

	_, err = run(t, "weights", "rebalance", "--set", "one=50", "--as-user", "1", "--as-role", "Admin")
	require.Equal(t, exitUsage, exitCode(err))
}

func TestEvaluationCommands(t *testing.T) {
	useMemoryApp(t, false)
	evaluator := []string{"--as-user", "7", "--as-role", "Evaluator"}

	out, err := run(t, append([]string{"evaluation", "total", "--id", "5"}, evaluator...)...)
	require.NoError(t, err)
	require.Equal(t, "4.2", out["total"])

	out, err = run(t, append([]string{"evaluation", "submit", "--id", "5"}, evaluator...)...)
	require.NoError(t, err)
	row := out["row"].(map[string]any)
	require.Equal(t, "Completed", row["status"])
	require.Equal(t, "4.2", row["total_score"])

	out, err = run(t, append([]string{"evaluation", "create", "--evaluator", "7", "--employee", "42"}, evaluator...)...)
	require.NoError(t, err)
	require.Equal(t, "Draft", out["row"].(map[string]any)["status"])

	_, err = run(t, append([]string{"evaluation", "create", "--evaluator", "7", "--employee", "44"}, evaluator...)...)
	require.Equal(t, exitNotAuthorized, exitCode(err))

	_, err = run(t, append([]string{"evaluation", "approve", "--id", "5"}, evaluator...)...)
	require.Equal(t, exitNotAuthorized, exitCode(err))

	_, err = run(t, append([]string{"evaluation", "score", "--evaluation", "5", "--criteria", "1", "--score", "9"}, evaluator...)...)
	require.Equal(t, exitValidation, exitCode(err))

	out, err = run(t, append([]string{"evaluation", "comment", "--score", "1", "--text", "great"}, evaluator...)...)
	require.NoError(t, err)
	require.Equal(t, "great", out["row"].(map[string]any)["description"])
}

func TestCascadeCommands(t *testing.T) {
	useMemoryApp(t, false)
	admin := []string{"--as-user", "1", "--as-role", "Admin"}

	out, err := run(t, append([]string{"cascade", "deactivate", "--kind", "teams", "--id", "10"}, admin...)...)
	require.NoError(t, err)
	require.Equal(t, "team", out["kind"])

	_, err = run(t, append([]string{"cascade", "delete", "--kind", "teams", "--id", "10"}, admin...)...)
	require.Equal(t, exitInvalidState, exitCode(err))

	_, err = run(t, append([]string{"cascade", "deactivate", "--kind", "widgets", "--id", "1"}, admin...)...)
	require.Equal(t, exitUsage, exitCode(err))
}

func TestAuthzInspect(t *testing.T) {
	useMemoryApp(t, false)

	out, err := run(t, "authz", "inspect", "--role", "evaluator", "--object", "evaluation.evaluations", "--action", "submit")
	require.NoError(t, err)
	require.Equal(t, true, out["allowed"])

	out, err = run(t, "authz", "inspect", "--object", "evaluation.categories", "--action", "rebalance", "--as-user", "7", "--as-role", "Evaluator")
	require.NoError(t, err)
	require.Equal(t, false, out["allowed"])
}

func TestAuthzVerify(t *testing.T) {
	useMemoryApp(t, false)

	out, err := run(t, "authz", "verify", "--expectations", "../../config/access/expectations.yaml")
	require.NoError(t, err)
	require.Empty(t, out["mismatches"])
	require.NotZero(t, out["checked"])

	_, err = run(t, "authz", "verify", "--expectations", "testdata/missing.yaml")
	require.Equal(t, exitUsage, exitCode(err))
}

func TestTokenRoundTrip(t *testing.T) {
	useMemoryApp(t, true)

	out, err := run(t, "token", "issue", "--user", "42", "--role", "employee", "--department", "1")
	require.NoError(t, err)
	token := out["token"].(string)

	p, err := domain.ParseToken(token, []byte(testSecret))
	require.NoError(t, err)
	require.Equal(t, domain.Principal{UserID: 42, Role: domain.RoleEmployee, DepartmentID: 1}, p)

	out, err = run(t, "access", "check", "--kind", "evaluations", "--id", "5", "--token", token)
	require.NoError(t, err)
	require.Equal(t, true, out["allowed"])

	_, err = run(t, "access", "check", "--kind", "evaluations", "--id", "5", "--as-user", "42", "--as-role", "Employee")
	require.Equal(t, exitUsage, exitCode(err), "production refuses flag principals")

	_, err = run(t, "access", "check", "--kind", "evaluations", "--id", "5", "--token", token+"x")
	require.Equal(t, exitNotAuthorized, exitCode(err))
}

func TestMigrateRequiresPostgres(t *testing.T) {
	useMemoryApp(t, false)

	_, err := run(t, "migrate", "version")
	require.Equal(t, exitUsage, exitCode(err))
}

func TestDumpMetrics(t *testing.T) {
	useMemoryApp(t, false)

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"access", "check", "--kind", "evaluations", "--id", "5", "--as-user", "42", "--as-role", "Employee", "--dump-metrics"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	require.Contains(t, out.String(), `"allowed"`)
	require.Contains(t, errOut.String(), "evaluation_access_decisions_total")
}
