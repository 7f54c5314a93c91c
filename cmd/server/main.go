package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/z4qs/repohealth_go_server/config"
	"github.com/z4qs/repohealth_go_server/internal/analyzer"
	"github.com/z4qs/repohealth_go_server/internal/api"
	"github.com/z4qs/repohealth_go_server/internal/api/handler"
	"github.com/z4qs/repohealth_go_server/internal/export"
	"github.com/z4qs/repohealth_go_server/internal/orchestrator"
	"github.com/z4qs/repohealth_go_server/internal/pkg/stream"
	"github.com/z4qs/repohealth_go_server/internal/registry"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	// 任务注册表：每个服务进程一个实例，显式传给所有协作方
	reg := registry.New()

	// 事件分发中枢
	hub := stream.NewHub()
	stopHub := hub.Start(reg)
	defer stopHub()
	logger.Info().Msg("event stream hub started")

	// 导出与清理服务
	exportSvc := export.NewService(
		cfg.Export.TempDir,
		time.Duration(cfg.Export.ExpireMinutes)*time.Minute,
		logger,
	)
	stopCleanup := exportSvc.HookIntoRegistry(reg)
	defer stopCleanup()
	if err := exportSvc.StartJanitor(cfg.Export.SweepSchedule); err != nil {
		logger.Fatal().Err(err).Msg("failed to start export janitor")
	}
	defer exportSvc.StopJanitor()

	// 分析器
	analyzerSvc, err := analyzer.NewService(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init analyzer")
	}

	// 编排器
	orch := orchestrator.New(reg, analyzerSvc, logger)

	// Handler 和路由
	jobHandler := handler.NewJobHandler(reg, orch, exportSvc)
	streamHandler := handler.NewStreamHandler(reg, hub, logger)
	router := api.NewRouter(jobHandler, streamHandler, cfg)
	engine := router.Setup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	// 监听退出信号，优雅关闭
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info().Msg("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}
	}()

	logger.Info().Str("addr", addr).Msg("server starting")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
	logger.Info().Msg("server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Log.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
