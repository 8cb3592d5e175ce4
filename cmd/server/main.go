package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"decision-engine/internal/api"
	"decision-engine/internal/config"
)

func main() {
	cfg, err := config.Load(strings.TrimSpace(os.Getenv("DECIDE_CONFIG")))
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	if err := config.ConfigureLogging(cfg.Log); err != nil {
		logrus.Fatalf("configure logging: %v", err)
	}

	if dir := filepath.Dir(cfg.Server.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logrus.Fatalf("create data directory: %v", err)
		}
	}

	server, err := api.NewServer(api.Config{
		Settings: cfg,
		SilentDB: !strings.EqualFold(cfg.Log.Level, "debug"),
	})
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer func() {
		if cerr := server.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}()

	if cfg.AI.CacheTTL > 0 {
		pruned, err := server.DB().PruneResponses(context.Background(), time.Now().Add(-cfg.AI.CacheTTL))
		if err != nil {
			logrus.WithError(err).Warn("prune response cache")
		} else if pruned > 0 {
			logrus.WithField("pruned", pruned).Info("pruned stale cached responses")
		}
	}

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	logrus.Infof("starting decision engine backend on :%s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
