package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	hederakit "github.com/jaycoolh/hedera-agent-kit/sdk/go/hederakit"
)

// envToken 提供远程调用默认的访问令牌。
const envToken = "HEDERA_KIT_TOKEN"

type callOptions struct {
	server string
	token  string
	async  bool
	wait   time.Duration
}

func newCallCmd() *cobra.Command {
	opts := callOptions{}
	cmd := &cobra.Command{
		Use:   "call <tool> [json|-]",
		Short: "调用单个工具并打印结果信封",
		Long: "调用单个工具并打印 JSON 结果信封。输入省略时为 {}，为 - 时从标准输入读取。\n" +
			"指定 --server 时通过 REST API 远程调用，否则在本地直接调用。\n" +
			"工具返回错误信封时进程以状态码 2 退出。",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}
			if opts.server != "" {
				return callRemote(cmd, opts, args[0], input)
			}
			return callLocal(cmd, args[0], input)
		},
	}
	cmd.Flags().StringVar(&opts.server, "server", "", "hederakit API 地址，例如 http://localhost:8080")
	cmd.Flags().StringVar(&opts.token, "token", os.Getenv(envToken), "访问令牌，默认读取 $"+envToken)
	cmd.Flags().BoolVar(&opts.async, "async", false, "远程调用时提交异步作业并等待完成")
	cmd.Flags().DurationVar(&opts.wait, "wait", 2*time.Minute, "异步作业的最长等待时间")
	return cmd
}

func readInput(stdin io.Reader, args []string) (json.RawMessage, error) {
	if len(args) == 0 {
		return json.RawMessage("{}"), nil
	}
	raw := args[0]
	if raw == "-" {
		content, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("读取标准输入失败: %w", err)
		}
		raw = string(content)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return json.RawMessage("{}"), nil
	}
	return json.RawMessage(raw), nil
}

func callLocal(cmd *cobra.Command, name string, input json.RawMessage) error {
	a, err := start(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	result := a.registry.Invoke(cmd.Context(), name, input)
	fmt.Fprintln(cmd.OutOrStdout(), result.String())
	if !result.OK() {
		return &exitError{code: 2}
	}
	return nil
}

func callRemote(cmd *cobra.Command, opts callOptions, name string, input json.RawMessage) error {
	client, err := hederakit.NewClient(opts.server, nil)
	if err != nil {
		return err
	}
	client.SetAccessToken(opts.token)
	ctx := cmd.Context()

	var raw json.RawMessage
	if opts.async {
		job, err := client.SubmitJob(ctx, hederakit.JobSubmission{Tool: name, Input: input})
		if err != nil {
			return err
		}
		waitCtx, cancel := context.WithTimeout(ctx, opts.wait)
		defer cancel()
		id := job.ID
		job, err = client.WaitForJob(waitCtx, id, time.Second)
		if err != nil {
			return fmt.Errorf("等待作业 %s 失败: %w", id, err)
		}
		raw = job.Output
		if job.Status != "succeeded" {
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return &exitError{code: 2}
		}
	} else {
		env, err := client.InvokeTool(ctx, name, input)
		if err != nil {
			return err
		}
		raw = env.Raw
		if !env.OK() {
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return &exitError{code: 2}
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return nil
}
