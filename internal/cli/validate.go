package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCmd создаёт команду validate: разбор chain-файла, проверка
// типов и конфигурации шагов, построение графа. Шаги не выполняются.
func NewValidateCmd(g *Globals) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate CHAIN_FILE",
		Short: "Check a chain file without running it",
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

			out := g.output(cmd, jsonOutput)
			if jsonOutput {
				order := make([]string, 0, chain.graph.Len())
				for _, n := range chain.graph.TopologicalOrder() {
					order = append(order, n.ID())
				}
				return out.JSON(map[string]any{
					"chain":  chain.spec.Name,
					"valid":  true,
					"steps":  chain.graph.Len(),
					"levels": len(chain.graph.Levels()),
					"order":  order,
				})
			}

			out.Success(fmt.Sprintf("Chain %s is valid: %d steps, %d levels",
				chain.spec.Name, chain.graph.Len(), len(chain.graph.Levels())))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
