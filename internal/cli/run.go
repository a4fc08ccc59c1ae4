package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/SmartChainFlow/internal/engine"
	"github.com/shaiso/SmartChainFlow/internal/orchestrator"
	"github.com/shaiso/SmartChainFlow/internal/steps"
	"github.com/shaiso/SmartChainFlow/internal/telemetry"
)

// NewRunCmd создаёт команду run: выполнение chain-файла.
//
// Ошибки chain-файла (разбор, тип шага, конфигурация, повтор ID) возвращаются
// до запуска. Ошибки графа (цикл, неизвестная зависимость) дают run со
// статусом FAILURE. Если статус не SUCCESS, возвращается ошибка с описанием
// первого неуспешного шага в порядке регистрации.
func NewRunCmd(g *Globals) *cobra.Command {
	var inputs []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run CHAIN_FILE",
		Short: "Run a chain of steps in dependency order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup(cmd, flagKeys{
				"concurrency":  "concurrency",
				"fail-fast":    "fail_fast",
				"step-timeout": "step_timeout",
				"metrics-file": "metrics.file",
			})
			if err != nil {
				return err
			}

			spec, err := loadChain(cmd, args[0])
			if err != nil {
				return err
			}

			runInputs, err := parseInputs(spec.Inputs, inputs)
			if err != nil {
				return err
			}

			reg, err := steps.Compile(spec, steps.DefaultRegistry(), logger)
			if err != nil {
				return err
			}

			ctx := telemetry.WithLogger(cmd.Context(), logger)
			s := openSinks(ctx, cfg, logger)
			defer s.close()

			o := orchestrator.New(orchestrator.Config{
				Observers: s.observers,
				Recorders: s.recorders,
				Logger:    logger,
			})

			env := engine.NewContext(nil)
			env.LoadEnv("")

			rc := orchestrator.RunConfig{
				Chain:       spec.Name,
				Concurrency: cfg.Concurrency,
				FailFast:    cfg.FailFast,
				StepTimeout: cfg.StepTimeout,
				Inputs:      runInputs,
				Env:         env.Env,
			}

			result, err := o.Run(ctx, reg, rc)
			if err != nil {
				return err
			}

			s.writeMetrics(cfg.Metrics.File)
			if err := g.output(cmd, jsonOutput).RunReport(result); err != nil {
				return err
			}

			return result.Err()
		},
	}

	cmd.Flags().Int("concurrency", 1, "Maximum number of steps running at once")
	cmd.Flags().Bool("fail-fast", false, "Stop starting new steps after the first failure")
	cmd.Flags().Duration("step-timeout", 0, "Default per-step timeout (0 = unbounded)")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Input values as KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run result as JSON")

	return cmd
}
