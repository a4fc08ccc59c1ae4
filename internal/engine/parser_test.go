package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/SmartChainFlow/internal/domain"
)

func knownTypes(t string) bool {
	return t == "shell" || t == "noop"
}

const chainYAML = `
name: build-and-ship
inputs:
  branch: main
defaults:
  timeout_sec: 60
  retry:
    max_attempts: 2
    backoff: exponential
steps:
  - id: fetch
    type: shell
    config:
      command: "git fetch origin {{ .Inputs.branch }}"
  - id: test
    type: shell
    depends_on: [fetch]
    timeout_sec: 300
    config:
      command: "go test ./..."
`

func TestParseSpec_YAML(t *testing.T) {
	spec, err := ParseSpec([]byte(chainYAML), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "build-and-ship", spec.Name)
	assert.Equal(t, "main", spec.Inputs["branch"])
	require.Len(t, spec.Steps, 2)
	assert.Equal(t, "fetch", spec.Steps[0].ID)
	assert.Equal(t, []string{"fetch"}, spec.Steps[1].DependsOn)
	assert.Equal(t, "go test ./...", spec.Steps[1].Config["command"])

	assert.Equal(t, 60.0, spec.EffectiveTimeoutSec(&spec.Steps[0]))
	assert.Equal(t, 300.0, spec.EffectiveTimeoutSec(&spec.Steps[1]))
	require.NotNil(t, spec.EffectiveRetry(&spec.Steps[0]))
	assert.Equal(t, 2, spec.EffectiveRetry(&spec.Steps[0]).MaxAttempts)

	require.NoError(t, Validate(spec, knownTypes))
}

func TestParseSpec_JSON(t *testing.T) {
	data := `{"name":"j","steps":[{"id":"a","type":"noop"},{"id":"b","type":"noop","depends_on":["a"]}]}`

	spec, err := ParseSpec([]byte(data), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "j", spec.Name)
	assert.Len(t, spec.Steps, 2)
}

func TestParseSpec_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		format  string
		wantErr error
		wantMsg string
	}{
		{name: "empty yaml", data: "", format: FormatYAML, wantErr: ErrEmptySteps},
		{name: "unknown field", data: "stepz: []", format: FormatYAML, wantMsg: "stepz"},
		{name: "unknown json field", data: `{"stepz":[]}`, format: FormatJSON, wantMsg: "stepz"},
		{name: "broken json", data: `{"steps":`, format: FormatJSON, wantMsg: "json"},
		{name: "unknown format", data: "x", format: "toml", wantErr: ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSpec([]byte(tt.data), tt.format)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]string{
		"chain.yaml": FormatYAML,
		"chain.YML":  FormatYAML,
		"chain.json": FormatJSON,
	} {
		got, err := FormatFromPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatFromPath("chain.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadSpecFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "release.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(chainYAML, "name: build-and-ship\n", "", 1)), 0o644))

	spec, err := LoadSpecFile(path)
	require.NoError(t, err)
	assert.Equal(t, "release", spec.Name, "name falls back to file name")

	_, err = LoadSpecFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    *domain.ChainSpec
		wantErr error
	}{
		{
			name:    "nil spec",
			spec:    nil,
			wantErr: ErrEmptySteps,
		},
		{
			name:    "no steps",
			spec:    &domain.ChainSpec{},
			wantErr: ErrEmptySteps,
		},
		{
			name:    "empty id",
			spec:    &domain.ChainSpec{Steps: []domain.StepDef{{Type: "noop"}}},
			wantErr: ErrEmptyStepID,
		},
		{
			name:    "empty type",
			spec:    &domain.ChainSpec{Steps: []domain.StepDef{{ID: "a"}}},
			wantErr: ErrUnknownStepType,
		},
		{
			name:    "unknown type",
			spec:    &domain.ChainSpec{Steps: []domain.StepDef{{ID: "a", Type: "ftp"}}},
			wantErr: ErrUnknownStepType,
		},
		{
			name:    "negative timeout",
			spec:    &domain.ChainSpec{Steps: []domain.StepDef{{ID: "a", Type: "noop", TimeoutSec: -1}}},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "bad backoff",
			spec: &domain.ChainSpec{Steps: []domain.StepDef{{
				ID: "a", Type: "noop", Retry: &domain.RetryPolicy{Backoff: "linear"},
			}}},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "bad default retry",
			spec: &domain.ChainSpec{
				Defaults: &domain.StepDefaults{Retry: &domain.RetryPolicy{MaxAttempts: -1}},
				Steps:    []domain.StepDef{{ID: "a", Type: "noop"}},
			},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "valid",
			spec: &domain.ChainSpec{Steps: []domain.StepDef{
				{ID: "a", Type: "noop"},
				{ID: "b", Type: "shell", DependsOn: []string{"a"}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.spec, knownTypes)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
