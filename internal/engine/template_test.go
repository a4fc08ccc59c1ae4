package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	ctx := NewContext(nil)
	assert.NotNil(t, ctx.Inputs)
	assert.NotNil(t, ctx.Steps)
	assert.NotNil(t, ctx.Env)

	ctx = NewContext(map[string]any{"key": "value"})
	v, ok := ctx.Input("key")
	assert.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestContext_AddStepResult(t *testing.T) {
	ctx := NewContext(nil)
	ctx.AddStepResult("fetch", map[string]any{"data": "test"}, "SUCCEEDED")

	v, ok := ctx.Output("fetch", "data")
	require.True(t, ok)
	assert.Equal(t, "test", v)
	assert.Equal(t, "SUCCEEDED", ctx.Steps["fetch"].Status)

	ctx.AddStepResult("empty", nil, "SUCCEEDED")
	assert.NotNil(t, ctx.Steps["empty"].Outputs)

	_, ok = ctx.Output("missing", "data")
	assert.False(t, ok)
}

func TestContext_WithInputs(t *testing.T) {
	base := NewContext(map[string]any{"branch": "main", "env": "dev"})
	merged := base.WithInputs(map[string]any{"env": "prod"})

	assert.Equal(t, "prod", merged.Inputs["env"])
	assert.Equal(t, "main", merged.Inputs["branch"])
	assert.Equal(t, "dev", base.Inputs["env"], "base must not change")
}

func TestContext_LoadEnv(t *testing.T) {
	t.Setenv("SCF_TEST_TOKEN", "secret")
	ctx := NewContext(nil)
	ctx.LoadEnv("SCF_TEST_")
	assert.Equal(t, "secret", ctx.Env["SCF_TEST_TOKEN"])
	assert.NotContains(t, ctx.Env, "PATH")
}

func TestRender(t *testing.T) {
	ctx := NewContext(map[string]any{"name": "test", "count": 42})
	ctx.AddStepResult("fetch", map[string]any{
		"status": 200,
		"items":  []any{"a", "b"},
	}, "SUCCEEDED")
	ctx.SetEnv("REGION", "eu")

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"plain text", "Plain text", "Plain text"},
		{"string input", "Hello, {{ .Inputs.name }}!", "Hello, test!"},
		{"number input", "Count: {{ .Inputs.count }}", "Count: 42"},
		{"step output", "{{ .Steps.fetch.Outputs.status }}", "200"},
		{"step status", "{{ .Steps.fetch.Status }}", "SUCCEEDED"},
		{"env", "{{ .Env.REGION }}", "eu"},
		{"json func", "{{ json .Steps.fetch.Outputs.items }}", `["a","b"]`},
		{"default func", `{{ default "x" .Inputs.missing }}`, "x"},
		{"upper func", "{{ upper .Inputs.name }}", "TEST"},
		{"coalesce func", `{{ coalesce .Inputs.missing "" "y" }}`, "y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRender_Errors(t *testing.T) {
	ctx := NewContext(nil)

	_, err := Render("{{ .Inputs.name ", ctx)
	assert.ErrorIs(t, err, ErrTemplateParse)

	_, err = Render("{{ .Unknown.field }}", ctx)
	assert.ErrorIs(t, err, ErrTemplateRender)
}

func TestRenderConfig(t *testing.T) {
	ctx := NewContext(map[string]any{"host": "example.com"})

	cfg := map[string]any{
		"url":     "https://{{ .Inputs.host }}/api",
		"retries": 3,
		"headers": map[string]any{"Host": "{{ .Inputs.host }}"},
		"args":    []any{"-h", "{{ .Inputs.host }}"},
		"tags":    []string{"{{ .Inputs.host }}"},
		"labels":  map[string]string{"h": "{{ .Inputs.host }}"},
		"nothing": nil,
	}

	got, err := RenderConfig(cfg, ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/api", got["url"])
	assert.Equal(t, 3, got["retries"])
	assert.Equal(t, map[string]any{"Host": "example.com"}, got["headers"])
	assert.Equal(t, []any{"-h", "example.com"}, got["args"])
	assert.Equal(t, []string{"example.com"}, got["tags"])
	assert.Equal(t, map[string]string{"h": "example.com"}, got["labels"])
	assert.Nil(t, got["nothing"])

	// Исходный конфиг не меняется
	assert.Equal(t, "https://{{ .Inputs.host }}/api", cfg["url"])
}

func TestRenderConfig_Nil(t *testing.T) {
	got, err := RenderConfig(nil, NewContext(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRenderConfig_ErrorNamesKey(t *testing.T) {
	_, err := RenderConfig(map[string]any{"url": "{{ .Inputs.x "}, NewContext(nil))
	require.ErrorIs(t, err, ErrTemplateParse)
	assert.Contains(t, err.Error(), "url")
}
