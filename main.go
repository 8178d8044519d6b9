package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"slotarena/config"
	"slotarena/server"
)

var CLI struct {
	Config string `help:"YAML configuration file; defaults are used when omitted." type:"existingfile" short:"c"`
	Debug  bool   `help:"Force debug logging regardless of the configured level."`
}

// slotarena 入口：UDP 会话服务器 + HTTP 管理接口
func main() {
	kong.Parse(&CLI,
		kong.Name("slotarena"),
		kong.Description("authoritative UDP session server"),
		kong.UsageOnError(),
	)

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	if CLI.Debug {
		cfg.Logging.Level = "debug"
	}
	if err := server.InitLogger(cfg.Logging); err != nil {
		return err
	}
	defer server.SyncLogger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := server.NewMetrics(reg)

	transport, err := server.ListenUDP(cfg.Server.ListenAddress(), cfg.Server.ReadBuffer, cfg.Server.QueueSize)
	if err != nil {
		return err
	}
	defer transport.Close()

	srv, err := server.NewServer(server.OptionsFromConfig(cfg), transport, metrics)
	if err != nil {
		return err
	}

	// 优雅退出（Ctrl+C）
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var httpSrv *http.Server
	if cfg.HTTP.Enabled {
		httpSrv = &http.Server{
			Addr:              cfg.HTTP.ListenAddress(),
			Handler:           server.NewAdminMux(srv, reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			server.Log.Infof("admin HTTP listening on %s", httpSrv.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				server.Log.Errorf("admin listen: %v", err)
				stop()
			}
		}()
	}

	server.Log.Infow("slotarena started",
		"udp", cfg.Server.ListenAddress(),
		"max_connections", cfg.Server.MaxConnections,
		"tick_rate", cfg.Server.TickRate,
	)
	err = srv.Run(ctx, cfg.Server.TickInterval())
	server.Log.Info("Shutting down...")

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			server.Log.Warnw("admin shutdown", "error", err)
		}
	}
	return err
}
