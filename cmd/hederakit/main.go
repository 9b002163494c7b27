package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version 在构建时通过 ldflags 注入。
var version = "dev"

// main 是 hederakit 命令行的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			if exitErr.err != nil {
				fmt.Fprintln(os.Stderr, "hederakit:", exitErr.err)
			}
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, "hederakit:", err)
		os.Exit(1)
	}
}

// exitError 携带进程退出码，err 为空时不再打印信息。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hederakit",
		Short:         "Hedera agent kit",
		Long:          "hederakit 将 Hedera 共识与代币操作封装为 JSON 工具，可通过 REST、MCP 或命令行调用。",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "配置文件路径，默认读取 $HEDERA_KIT_CONFIG 或 configs/hederakit.json")
	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("hederakit version %s\n", version))

	root.AddCommand(
		newServeCmd(),
		newMCPCmd(),
		newToolsCmd(),
		newCallCmd(),
		newTokenCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "打印版本号",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hederakit version %s\n", version)
		},
	}
}
