// Package main 提供远程执行器 CLI 入口
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"feiyu/internal/agentclient"
	"feiyu/internal/logger"
)

var (
	serverURL   string
	token       string
	username    string
	password    string
	name        string
	insecure    bool
	noReconnect bool
	logLevel    string
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:     "feiyu-agent",
	Short:   "飞羽远程执行器",
	Long:    `飞羽远程执行器，保持到服务端的 WebSocket 连接，在本地网络内代发请求。`,
	Version: agentclient.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&serverURL, "server", "http://127.0.0.1:8910", "服务端地址")
	rootCmd.Flags().StringVar(&token, "token", "", "登录令牌，与用户名密码二选一")
	rootCmd.Flags().StringVar(&username, "username", "", "用户名")
	rootCmd.Flags().StringVar(&password, "password", "", "密码")
	rootCmd.Flags().StringVar(&name, "name", "", "执行器名称，默认取主机名")
	rootCmd.Flags().BoolVar(&insecure, "insecure", false, "跳过 TLS 证书校验")
	rootCmd.Flags().BoolVar(&noReconnect, "no-reconnect", false, "断开后不自动重连")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "日志级别")
}

func run() error {
	logger.Init(&logger.Config{Level: logLevel, Format: "console", Output: "stdout"})
	defer logger.Sync()

	if token == "" {
		if username == "" || password == "" {
			return fmt.Errorf("需要提供 --token 或 --username/--password")
		}
		var err error
		token, err = agentclient.Login(serverURL, username, password, insecure)
		if err != nil {
			return err
		}
	}

	if name == "" {
		if hostname, err := os.Hostname(); err == nil {
			name = hostname
		}
	}

	client := agentclient.New(agentclient.Config{
		ServerURL:         serverURL,
		Token:             token,
		Name:              name,
		Insecure:          insecure,
		NoReconnect:       noReconnect,
		ReconnectInterval: 5 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	if err := client.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
