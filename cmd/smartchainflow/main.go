// SmartChainFlow — выполнение цепочки шагов с зависимостями.
//
// Использование:
//
//	smartchainflow [-v] [--config FILE] <command> CHAIN_FILE [flags]
//
// Команды:
//
//	run       Выполнить цепочку
//	validate  Проверить chain-файл
//	plan      Показать уровни графа
//
// SIGINT/SIGTERM отменяют run: новые шаги не запускаются, выполняющиеся
// получают отменённый context.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/SmartChainFlow/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	g := &cli.Globals{}

	rootCmd := &cobra.Command{
		Use:           "smartchainflow",
		Short:         "SmartChainFlow — dependency-ordered step runner",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&g.Verbose, "verbose", "v", false, "Per-step report and debug logging")
	rootCmd.PersistentFlags().StringVar(&g.ConfigPath, "config", "", "Config file (default ./smartchainflow.yaml)")

	rootCmd.AddCommand(
		cli.NewRunCmd(g),
		cli.NewValidateCmd(g),
		cli.NewPlanCmd(g),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		cli.NewOutput(os.Stdout, os.Stderr, false, g.Verbose).Error(err.Error())
		os.Exit(1)
	}
}
