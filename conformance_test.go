package imp_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imp-lang/imp/internal/testutil"
	"github.com/imp-lang/imp/pkg/ast"
	"github.com/imp-lang/imp/pkg/diagnostics"
	"github.com/imp-lang/imp/pkg/evaluator"
	"github.com/imp-lang/imp/pkg/runtime"
)

func TestConformance(t *testing.T) {
	files, err := testutil.ListScenarios(testutil.ScenariosDir)
	require.NoError(t, err)
	require.NotEmpty(t, files, "no scenarios under %s", testutil.ScenariosDir)

	for _, file := range files {
		scenario, err := testutil.LoadScenario(file)
		require.NoError(t, err, "loading %s", file)

		t.Run(scenario.Name, func(t *testing.T) {
			switch scenario.Cmd {
			case "check":
				runCheckScenario(t, scenario)
			case "run":
				runRunScenario(t, scenario)
			default:
				t.Skipf("unsupported command: %s", scenario.Cmd)
			}
		})
	}
}

func runCheckScenario(t *testing.T, scenario *testutil.Scenario) {
	t.Helper()

	diags := runtime.Check(scenario.Source, scenario.Name+".imp")
	actualExit := 0
	if len(diags) > 0 {
		actualExit = 2
		checkDiagExpectations(t, diags, scenario)
	}
	assert.Equal(t, scenario.Expect.ExitCode, actualExit, "exit code")
}

func runRunScenario(t *testing.T, scenario *testutil.Scenario) {
	t.Helper()

	var out bytes.Buffer
	session := runtime.NewSession(
		runtime.WithInput(evaluator.NewReaderLines(strings.NewReader(scenario.Input))),
		runtime.WithOutput(&out),
		runtime.WithMaxIterations(10_000),
	)

	rep, err := session.RunSource(context.Background(), scenario.Source, scenario.Name+".imp")
	if err != nil {
		var diagErr *runtime.DiagnosticError
		require.ErrorAs(t, err, &diagErr)
		assert.Equal(t, scenario.Expect.ExitCode, 2, "exit code (parse failure)")
		checkDiagExpectations(t, diagErr.Diagnostics, scenario)
		return
	}

	assert.Equal(t, scenario.Expect.ExitCode, 0, "exit code")
	if d := testutil.Diff(scenario.Expect.Stdout, out.String()); d != "" {
		t.Errorf("stdout mismatch:\n%s", d)
	}
	assert.Equal(t, scenario.Expect.Halted, rep.Halted, "halted")
	checkVars(t, session.Machine(), scenario.Expect.Vars)
}

func checkDiagExpectations(t *testing.T, diags []diagnostics.Diagnostic, scenario *testutil.Scenario) {
	t.Helper()

	require.NotEmpty(t, diags)
	if scenario.Expect.DiagCode != "" {
		assert.Equal(t, scenario.Expect.DiagCode, diags[0].Code)
	}
	if scenario.Expect.StderrContains != "" {
		stderr := diagnostics.FormatDiagnostics(diags, false)
		assert.Contains(t, stderr, scenario.Expect.StderrContains)
	}
}

func checkVars(t *testing.T, m *evaluator.Machine, want map[string]any) {
	t.Helper()

	for name, expected := range want {
		v, err := m.Lookup(name)
		if !assert.NoError(t, err, "variable %s", name) {
			continue
		}
		switch e := expected.(type) {
		case int:
			assert.Equal(t, ast.TypeInt, v.Kind, "kind of %s", name)
			assert.Equal(t, int64(e), v.Int, "value of %s", name)
		case string:
			assert.Equal(t, ast.TypeString, v.Kind, "kind of %s", name)
			assert.Equal(t, e, v.Str, "value of %s", name)
		default:
			t.Errorf("unsupported expected value %v (%T) for %s", expected, expected, name)
		}
	}
}
