package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jaycoolh/hedera-agent-kit/internal/config"
	"github.com/jaycoolh/hedera-agent-kit/internal/mcpserver"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "通过 stdio 提供 MCP 工具服务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := start(cmd, keepStdoutClean)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			server, err := mcpserver.New(a.registry, version)
			if err != nil {
				return err
			}
			return mcpserver.ServeStdio(cmd.Context(), server)
		},
	}
}

// keepStdoutClean 将日志从 stdout 挪到 stderr，stdout 专用于 MCP 协议帧。
func keepStdoutClean(cfg *config.Config) {
	outputs := make([]string, 0, len(cfg.Log.OutputPaths))
	for _, path := range cfg.Log.OutputPaths {
		if strings.EqualFold(strings.TrimSpace(path), "stdout") {
			path = "stderr"
		}
		outputs = append(outputs, path)
	}
	cfg.Log.OutputPaths = outputs
}
