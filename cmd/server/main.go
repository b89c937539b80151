package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/api"
	"github.com/Mieluoxxx/AITools-Switch/internal/app"
	"github.com/Mieluoxxx/AITools-Switch/internal/config"
	"github.com/Mieluoxxx/AITools-Switch/internal/db"
	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/Mieluoxxx/AITools-Switch/internal/supplier"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	// Version 项目版本
	Version = "0.2.0"
	// AppName 应用名称
	AppName = "AITools-Switch"

	shutdownTimeout = 10 * time.Second
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:          "aitools-switch",
		Short:        "AI 工具供应商切换与故障转移后端",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件 (默认: ./config.yaml)")

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		checkCmd(),
		failoverCmd(),
		exportCmd(),
		importCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动本地 HTTP 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			logrus.Infof("=== %s v%s ===", AppName, Version)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if logrus.GetLevel() < logrus.DebugLevel {
				gin.SetMode(gin.ReleaseMode)
			}
			server := &http.Server{
				Addr:              a.Config.Server.Addr(),
				Handler:           api.SetupRouter(a),
				ReadHeaderTimeout: 10 * time.Second,
			}

			a.Start(ctx)
			defer a.Stop()

			errCh := make(chan error, 1)
			go func() {
				logrus.Infof("🚀 服务监听于 http://%s", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("HTTP 服务异常退出: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logrus.Info("🛑 收到退出信号，正在关闭服务...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移并写入初始数据",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			database, err := db.InitDatabase(&cfg.Database)
			if err != nil {
				return err
			}
			defer db.CloseDatabase(database)

			if err := db.AutoMigrate(database); err != nil {
				return err
			}
			fmt.Println("数据库迁移完成")
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "对供应商执行一次健康检查",
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := categoryFlag(cmd)
			if err != nil {
				return err
			}

			a, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			suppliers, err := a.SupplierRepo.FindAll(cmd.Context(), category)
			if err != nil {
				return err
			}
			results, err := a.Aggregator.AssessAll(cmd.Context(), suppliers)
			if err != nil {
				return err
			}

			for i, h := range results {
				s := suppliers[i]
				active := " "
				if s.IsActive {
					active = "*"
				}
				fmt.Printf("%s %-6s %-30s %-10s %6dms %6.1f%% %d\n",
					active, s.Category, s.Name, h.Status, h.ResponseTimeMs, h.UptimePercentage, h.ConsecutiveFailures)
			}
			fmt.Printf("\n共检查 %d 个供应商\n", len(results))
			return nil
		},
	}

	cmd.Flags().String("category", "", "只检查指定类别 (claude|codex)")
	return cmd
}

func failoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "failover <category>",
		Short: "对类别执行一次自动故障转移判断",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := models.ParseCategory(args[0])
			if err != nil {
				return err
			}

			a, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			result := a.Orchestrator.AutoFailover(cmd.Context(), category)
			fmt.Println(result.Message)
			if result.Error != nil {
				return errors.New(*result.Error)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出全部供应商（令牌为明文）",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")

			a, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			data, err := a.Suppliers.Export(cmd.Context(), format)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0600); err != nil {
				return fmt.Errorf("写入导出文件失败: %w", err)
			}
			fmt.Printf("已导出到 %s\n", output)
			return nil
		},
	}

	cmd.Flags().String("format", supplier.FormatYAML, "导出格式 (yaml|json)")
	cmd.Flags().StringP("output", "o", "", "输出文件，默认标准输出")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "从导出文件导入供应商",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("读取导入文件失败: %w", err)
			}

			format, _ := cmd.Flags().GetString("format")
			if format == "" {
				format = strings.TrimPrefix(filepath.Ext(args[0]), ".")
			}

			a, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			suppliers, err := a.Suppliers.Import(cmd.Context(), data, format)
			if err != nil {
				return err
			}
			fmt.Printf("成功导入 %d 个供应商\n", len(suppliers))
			return nil
		},
	}

	cmd.Flags().String("format", "", "文件格式 (yaml|json)，默认按扩展名判断")
	return cmd
}

// bootstrap 加载配置、连接数据库并组装服务
func bootstrap() (*app.App, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	database, err := db.InitDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = db.CloseDatabase(database) }

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(database); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	a, err := app.New(cfg, database)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return a, cleanup, nil
}

// loadConfig 加载配置并初始化日志
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	setupLogger(cfg.Server.LogLevel)
	return cfg, nil
}

func setupLogger(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logrus.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("未知日志级别 %q，使用 info", level)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// categoryFlag 读取可选的 --category
func categoryFlag(cmd *cobra.Command) (models.Category, error) {
	value, _ := cmd.Flags().GetString("category")
	if value == "" {
		return "", nil
	}
	return models.ParseCategory(value)
}
