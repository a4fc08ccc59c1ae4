package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/SmartChainFlow/internal/domain"
	"github.com/shaiso/SmartChainFlow/internal/engine"
)

const okChain = `
name: greet
inputs:
  who: world
steps:
  - id: hello
    type: noop
    config:
      outputs:
        greeting: "hello {{ .Inputs.who }}"
  - id: echo
    type: transform
    depends_on: [hello]
    config:
      mappings:
        message: "{{ .Steps.hello.Outputs.greeting }}!"
`

const failingChain = `
name: broken
steps:
  - id: a
    type: noop
  - id: b
    type: fail
    depends_on: [a]
    config:
      message: boom
  - id: c
    type: noop
    depends_on: [b]
`

const cyclicChain = `
name: loop
steps:
  - id: a
    type: noop
    depends_on: [b]
  - id: b
    type: noop
    depends_on: [a]
`

// execute запускает корневую команду так же, как main.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	t.Chdir(t.TempDir())
	t.Setenv("SMARTCHAINFLOW_CONFIG", "")

	g := &Globals{}
	root := &cobra.Command{Use: "smartchainflow", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().BoolVarP(&g.Verbose, "verbose", "v", false, "")
	root.PersistentFlags().StringVar(&g.ConfigPath, "config", "", "")
	root.AddCommand(NewRunCmd(g), NewValidateCmd(g), NewPlanCmd(g))

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeChain(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunCmd_Success(t *testing.T) {
	path := writeChain(t, "greet.yaml", okChain)

	stdout, _, err := execute(t, "", "run", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "SUCCESS")
	assert.Contains(t, stdout, "2 succeeded, 0 failed, 0 skipped")
	assert.NotContains(t, stdout, "STEP", "step table only in verbose mode")
}

func TestRunCmd_VerboseAndInputs(t *testing.T) {
	path := writeChain(t, "greet.yaml", okChain)

	stdout, stderr, err := execute(t, "", "-v", "run", path, "--input", "who=gopher")
	require.NoError(t, err)
	assert.Contains(t, stdout, "STEP")
	assert.Contains(t, stdout, "outputs: echo")
	assert.Contains(t, stdout, "hello gopher!")
	assert.Contains(t, stderr, "level=DEBUG", "verbose switches logging to debug")
}

func TestRunCmd_JSON(t *testing.T) {
	path := writeChain(t, "broken.yaml", failingChain)

	stdout, _, err := execute(t, "", "run", path, "--json", "--concurrency", "2")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRunFailed)
	assert.Contains(t, err.Error(), `step "b" FAILED`)

	var result domain.RunResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, domain.RunStatusPartialFailure, result.Status)
	assert.Equal(t, domain.StepStateSkipped, result.State("c"))
	assert.Equal(t, []string{"a", "b", "c"}, result.StepIDs)
}

func TestRunCmd_CycleIsFailure(t *testing.T) {
	path := writeChain(t, "loop.yaml", cyclicChain)

	stdout, _, err := execute(t, "", "run", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrCyclicDependency)
	assert.Contains(t, stdout, "FAILURE")
	assert.Contains(t, stdout, "cyclic dependency detected")
}

func TestRunCmd_MetricsFile(t *testing.T) {
	path := writeChain(t, "greet.yaml", okChain)
	metrics := filepath.Join(t.TempDir(), "scf.prom")

	_, _, err := execute(t, "", "run", path, "--metrics-file", metrics)
	require.NoError(t, err)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), `smartchainflow_runs_total{status="SUCCESS"} 1`)
	assert.Contains(t, string(data), `smartchainflow_steps_total{state="SUCCEEDED"} 2`)
}

func TestRunCmd_Stdin(t *testing.T) {
	stdout, _, err := execute(t, okChain, "run", "-")
	require.NoError(t, err)
	assert.Contains(t, stdout, "SUCCESS greet")
}

func TestRunCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		chain   string
		args    []string
		wantErr error
		errText string
	}{
		{
			name:    "unknown step type",
			chain:   "steps:\n  - id: a\n    type: teleport\n",
			wantErr: engine.ErrUnknownStepType,
		},
		{
			name:    "duplicate id",
			chain:   "steps:\n  - id: a\n    type: noop\n  - id: a\n    type: noop\n",
			wantErr: engine.ErrDuplicateStepID,
		},
		{
			name:    "bad input",
			chain:   okChain,
			args:    []string{"--input", "novalue"},
			errText: "expected KEY=VALUE",
		},
		{
			name:    "zero concurrency",
			chain:   okChain,
			args:    []string{"--concurrency", "0"},
			errText: "concurrency must be >= 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeChain(t, "chain.yaml", tt.chain)
			_, _, err := execute(t, "", append([]string{"run", path}, tt.args...)...)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.errText != "" {
				assert.ErrorContains(t, err, tt.errText)
			}
		})
	}
}

func TestValidateCmd(t *testing.T) {
	_, stderr, err := execute(t, "", "validate", writeChain(t, "greet.yaml", okChain))
	require.NoError(t, err)
	assert.Contains(t, stderr, "Chain greet is valid: 2 steps, 2 levels")

	stdout, _, err := execute(t, "", "validate", writeChain(t, "greet.yaml", okChain), "--json")
	require.NoError(t, err)
	var report struct {
		Valid bool     `json:"valid"`
		Order []string `json:"order"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.True(t, report.Valid)
	assert.Equal(t, []string{"hello", "echo"}, report.Order)

	_, _, err = execute(t, "", "validate", writeChain(t, "loop.yaml", cyclicChain))
	assert.ErrorIs(t, err, engine.ErrCyclicDependency)
}

func TestPlanCmd(t *testing.T) {
	chain := `
steps:
  - id: fetch
    type: noop
  - id: lint
    type: noop
    depends_on: [fetch]
  - id: test
    type: noop
    depends_on: [fetch]
  - id: ship
    type: delay
    depends_on: [lint, test]
    config:
      duration_ms: 1
`
	stdout, _, err := execute(t, "", "plan", writeChain(t, "ci.yaml", chain), "--json")
	require.NoError(t, err)

	var levels []PlanLevel
	require.NoError(t, json.Unmarshal([]byte(stdout), &levels))
	require.Len(t, levels, 3)
	assert.Equal(t, "fetch", levels[0].Steps[0].ID)
	assert.Equal(t, []string{"lint", "test"}, []string{levels[1].Steps[0].ID, levels[1].Steps[1].ID})
	assert.Equal(t, "delay", levels[2].Steps[0].Type)

	stdout, _, err = execute(t, "", "plan", writeChain(t, "ci.yaml", chain))
	require.NoError(t, err)
	assert.Contains(t, stdout, "LEVEL")
	assert.Contains(t, stdout, "lint,test")
}

func TestParseInputs(t *testing.T) {
	inputs, err := parseInputs(map[string]any{"branch": "main", "n": 1}, []string{"branch=dev", "url=http://x?a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"branch": "dev", "n": 1, "url": "http://x?a=b"}, inputs)

	_, err = parseInputs(nil, []string{"=v"})
	assert.Error(t, err)
}

var ansiSeq = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func TestTable_StyledCellsStayAligned(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf, &bytes.Buffer{}, false, false)

	// Стили с разной длиной ANSI-последовательностей, как у SUCCEEDED и SKIPPED.
	rows := [][]string{
		{"a", "\x1b[1;32mSUCCEEDED\x1b[0m", "1"},
		{"long-step", "\x1b[33mSKIPPED\x1b[0m", "0"},
		{"b", "FAILED", "3"},
	}
	out.Table([]string{"STEP", "STATE", "ATTEMPTS"}, rows)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)

	header := ansiSeq.ReplaceAllString(lines[0], "")
	col := strings.Index(header, "ATTEMPTS")
	require.Positive(t, col)
	for i, line := range lines[2:] {
		plain := ansiSeq.ReplaceAllString(line, "")
		assert.Equal(t, col, len(plain)-1, "row %d: %q", i, plain)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestOutput_JSONErrors(t *testing.T) {
	err := NewOutput(&bytes.Buffer{}, &bytes.Buffer{}, true, false).JSON(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	var unsupported *json.UnsupportedTypeError
	assert.ErrorAs(t, err, &unsupported)

	err = NewOutput(failingWriter{}, &bytes.Buffer{}, true, false).RunReport(&domain.RunResult{Chain: "x"})
	assert.ErrorContains(t, err, "disk full")
}

func TestOutput_Error(t *testing.T) {
	var errW bytes.Buffer
	NewOutput(&bytes.Buffer{}, &errW, false, false).Error("boom")
	assert.Equal(t, "Error: boom\n", errW.String())
}

func TestRunCmd_EnvInTemplates(t *testing.T) {
	t.Setenv("SCF_GREETING", "hola")
	chain := `
name: env
steps:
  - id: hello
    type: noop
    config:
      outputs:
        greeting: "{{ .Env.SCF_GREETING }}"
`
	stdout, _, err := execute(t, "", "-v", "run", writeChain(t, "env.yaml", chain))
	require.NoError(t, err)
	assert.Contains(t, stdout, `"greeting": "hola"`)
}
