// Command campus-sync runs the offline sync kit as a local daemon: it keeps
// the pending action queue, replays it when connectivity returns, refreshes
// the read caches and serves the admin API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/campuscommunity/synckit/config"
	"github.com/campuscommunity/synckit/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to the TOML config file")
	envFiles := flag.String("env", "", "comma separated dotenv files (default .env)")
	flag.Parse()

	if err := run(*configPath, splitList(*envFiles)); err != nil {
		fmt.Fprintln(os.Stderr, "campus-sync:", err)
		os.Exit(1)
	}
}

func run(configPath string, envFiles []string) error {
	cfg, err := config.Load(configPath, envFiles...)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, log, cfg)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.shutdown()

	if err := a.start(ctx); err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down", zap.Error(context.Cause(ctx)))
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
