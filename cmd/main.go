package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/3Eeeecho/go-pan/cmd/server"
	"github.com/3Eeeecho/go-pan/internal/config"
	"github.com/3Eeeecho/go-pan/internal/pkg/logger"
	"github.com/3Eeeecho/go-pan/internal/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig 加载配置并初始化日志系统，调用方负责 logger.Sync()
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := logger.InitLogger(logger.Options{
		OutputPath: cfg.Log.OutputPath,
		ErrorPath:  cfg.Log.ErrorPath,
		Level:      cfg.Log.Level,
	}); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:           "go-pan",
	Short:         "Personal file storage and sharing service",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		logger.Info("启动网盘程序...")
		srv, err := server.NewServer(cmd.Context(), cfg)
		if err != nil {
			logger.Error("无法启动应用程序", zap.Error(err))
			return err
		}

		// 创建一个通道用于接收停止信号
		stopChan := make(chan os.Signal, 1)
		signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(stopChan)

		if err := srv.Run(stopChan); err != nil {
			logger.Error("服务异常退出", zap.Error(err))
			return err
		}
		logger.Info("网盘程序已退出。")
		return nil
	},
}

var (
	tokenUser string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.JWT.ExpiresIn
		}
		token, err := utils.GenerateToken(tokenUser, cfg.JWT.SecretKey, cfg.JWT.Issuer, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one cleanup pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		report, err := server.Sweep(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "staging files removed: %d\norphaned shares purged: %d\n",
			report.StagingRemoved, report.SharesPurged)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	tokenCmd.Flags().StringVarP(&tokenUser, "user", "u", "", "username to embed in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to jwt.expires_in)")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(serveCmd, tokenCmd, sweepCmd)
}

// executeContext 以指定参数执行命令树
func executeContext(ctx context.Context, args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}
