package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/domainwalk/recudns/internal/admin"
	"github.com/domainwalk/recudns/internal/cache"
	"github.com/domainwalk/recudns/internal/config"
	"github.com/domainwalk/recudns/internal/logging"
	"github.com/domainwalk/recudns/internal/resolver"
	"github.com/domainwalk/recudns/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds parsed command-line flag values.
type cliFlags struct {
	configPath string
	addr       string
	port       int
	rootServer string
	debug      bool
	jsonLogs   bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configPath, "config", "", "Path to a YAML/TOML config file")
	flag.StringVar(&f.addr, "addr", "", "Override local_server.addr")
	flag.IntVar(&f.port, "port", 0, "Override local_server.port")
	flag.StringVar(&f.rootServer, "root-server", "", "Override root_server.addr:port")
	flag.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&f.jsonLogs, "json-logs", false, "Enable JSON structured logging")
	flag.Parse()
	return f
}

func applyCLIOverrides(cfg *config.Config, f cliFlags) error {
	if f.addr != "" {
		cfg.LocalServer.Addr = f.addr
	}
	if f.port != 0 {
		cfg.LocalServer.Port = f.port
	}
	if f.rootServer != "" {
		host, portStr, err := net.SplitHostPort(f.rootServer)
		if err != nil {
			return fmt.Errorf("invalid -root-server %q: %w", f.rootServer, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid -root-server port %q: %w", portStr, err)
		}
		cfg.RootServer.Addr = host
		cfg.RootServer.Port = port
	}
	if f.debug {
		cfg.Logging.Level = "DEBUG"
	}
	if f.jsonLogs {
		cfg.Logging.Structured = true
	}
	return nil
}

func run() error {
	flags := parseFlags()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyCLIOverrides(cfg, flags); err != nil {
		return err
	}

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: "json",
	})
	logger.Info("recudnsd starting",
		"local_server", cfg.LocalServer.FullDomain(),
		"root_server", cfg.RootServer.FullDomain(),
		"database", cfg.Database.Path,
		"max_hops", cfg.Resolver.MaxHops,
		"query_timeout", cfg.QueryTimeout,
	)

	store, err := cache.Open(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	defer store.Close()

	stats := &admin.QueryStats{}
	metrics := admin.NewMetrics()

	res := resolver.New(store, cfg.RootServer.FullDomain(), logger)
	res.MaxHops = cfg.Resolver.MaxHops
	res.Stats = stats
	res.Metrics = metrics

	handler := &server.QueryHandler{
		Logger:   logger,
		Resolver: res,
		Cache:    store,
		Timeout:  cfg.QueryTimeout,
		Stats:    stats,
		Metrics:  metrics,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var adminSrv *admin.Server
	if cfg.Admin.Enabled {
		adminSrv = admin.New(cfg.Admin.Addr, store, stats, metrics, logger)
		logger.Info("admin surface starting", "addr", cfg.Admin.Addr)
		go func() {
			serveErr := adminSrv.ListenAndServe()
			if serveErr == nil || errors.Is(serveErr, http.ErrServerClosed) {
				return
			}
			logger.Error("admin server error", "err", serveErr)
		}()
	}

	udpSrv := &server.UDPServer{Logger: logger, Handler: handler}
	serveErr := udpSrv.ListenAndServe(ctx, cfg.LocalServer.FullDomain())

	if adminSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = adminSrv.Shutdown(shutdownCtx)
		shutdownCancel()
		logger.Info("admin surface stopped")
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return fmt.Errorf("server exited with error: %w", serveErr)
	}
	logger.Info("recudnsd stopped")
	return nil
}
