package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaycoolh/hedera-agent-kit/internal/auth"
	"github.com/jaycoolh/hedera-agent-kit/pkg/logger"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		perms   []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "签发 API 访问令牌",
		Long:  "使用配置中的 auth.secret 签发 JWT。auth.mode 必须为 jwt。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.Log); err != nil {
				return fmt.Errorf("初始化日志失败: %w", err)
			}
			defer logger.Sync()

			svc, err := auth.NewService(cfg.Auth)
			if err != nil {
				return err
			}
			token, expires, err := svc.IssueToken(subject, perms, ttl)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expires.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "令牌主体 (必填)")
	cmd.Flags().StringSliceVar(&perms, "perm", []string{auth.PermissionRead, auth.PermissionInvoke}, "授予的权限，可重复指定")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "有效期，为 0 时使用 auth.access_ttl")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
