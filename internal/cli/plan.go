package cli

import (
	"github.com/spf13/cobra"
)

// NewPlanCmd создаёт команду plan: уровни графа без выполнения.
// Шаги одного уровня не зависят друг от друга и могут идти параллельно.
func NewPlanCmd(g *Globals) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "plan CHAIN_FILE",
		Short: "Show execution levels of a chain without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := g.setup(cmd, nil)
			if err != nil {
				return err
			}

			chain, err := compileChain(cmd, args[0], logger)
			if err != nil {
				return err
			}

			return g.output(cmd, jsonOutput).Plan(planLevels(chain.graph, stepTypes(chain.spec)))
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
