package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/SmartChainFlow/internal/config"
	"github.com/shaiso/SmartChainFlow/internal/domain"
	"github.com/shaiso/SmartChainFlow/internal/engine"
	"github.com/shaiso/SmartChainFlow/internal/steps"
	"github.com/shaiso/SmartChainFlow/internal/telemetry"
)

// Globals — значения persistent-флагов корневой команды.
// Заполняются cobra после парсинга, поэтому команды читают их в RunE.
type Globals struct {
	// Verbose — подробный отчёт и DEBUG логи. Не влияет на решения планировщика.
	Verbose bool

	// ConfigPath — путь к конфигурационному файлу (--config).
	ConfigPath string
}

// flagKeys связывает флаги команды с ключами конфигурации.
type flagKeys map[string]string

// setup загружает конфигурацию и настраивает логгер.
// Явно заданные флаги из keys переопределяют файл и окружение.
func (g *Globals) setup(cmd *cobra.Command, keys flagKeys) (*config.Config, *slog.Logger, error) {
	loader := config.NewLoader()
	for flag, key := range keys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := loader.Viper().BindPFlag(key, f); err != nil {
				return nil, nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	cfg, err := loader.Load(g.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	logger := telemetry.SetupLogger(telemetry.LogConfig{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Verbose: g.Verbose,
		Output:  cmd.ErrOrStderr(),
	})

	return cfg, logger, nil
}

// output создаёт Output для команды.
func (g *Globals) output(cmd *cobra.Command, jsonMode bool) *Output {
	return NewOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), jsonMode, g.Verbose)
}

// loadChain читает chain-файл. "-" — stdin команды.
func loadChain(cmd *cobra.Command, path string) (*domain.ChainSpec, error) {
	if path == "-" {
		return engine.LoadSpec(cmd.InOrStdin(), engine.FormatYAML)
	}
	return engine.LoadSpecFile(path)
}

// compiledChain — chain-файл, превращённый в реестр и граф.
type compiledChain struct {
	spec     *domain.ChainSpec
	registry *engine.Registry
	graph    *engine.Graph
}

// compileChain читает chain-файл, связывает шаги с их типами и строит граф.
func compileChain(cmd *cobra.Command, path string, logger *slog.Logger) (*compiledChain, error) {
	spec, err := loadChain(cmd, path)
	if err != nil {
		return nil, err
	}

	reg, err := steps.Compile(spec, steps.DefaultRegistry(), logger)
	if err != nil {
		return nil, err
	}

	graph, err := engine.BuildGraph(reg)
	if err != nil {
		return nil, err
	}

	return &compiledChain{spec: spec, registry: reg, graph: graph}, nil
}

// stepTypes возвращает тип каждого шага chain-файла.
func stepTypes(spec *domain.ChainSpec) map[string]string {
	types := make(map[string]string, len(spec.Steps))
	for _, s := range spec.Steps {
		types[s.ID] = s.Type
	}
	return types
}

// parseInputs разбирает значения --input KEY=VALUE поверх defaults.
func parseInputs(defaults map[string]any, kvs []string) (map[string]any, error) {
	inputs := make(map[string]any, len(defaults)+len(kvs))
	for k, v := range defaults {
		inputs[k] = v
	}
	for _, kv := range kvs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input format %q, expected KEY=VALUE", kv)
		}
		inputs[key] = value
	}
	return inputs, nil
}
