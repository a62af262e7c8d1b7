// Command blank-server runs the broadcast relay: clients connect over TCP,
// join a room, and the room's presenter pushes payloads that are fanned out
// to every member.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/feifeihai120/blank-socket/config"
	"github.com/feifeihai120/blank-socket/logger"
	"github.com/feifeihai120/blank-socket/relay"
	"github.com/feifeihai120/blank-socket/sharecache"
)

const serviceName = "blank-server"

func main() {
	configPath := flag.String("config", "", "path to ini config file (optional)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			bootstrap := logger.NewConsoleLogger(serviceName, cfg.Level())
			bootstrap.Error("failed to load config", logger.Field{Key: "error", Value: err})
			os.Exit(1)
		}
		cfg = loaded
	}

	log := buildLogger(cfg)
	defer func() {
		_ = log.Close()
	}()

	srv := relay.NewServer(cfg.Addr(), log, buildSnapshotStore(cfg, log))
	if err := srv.Start(); err != nil {
		log.Error("failed to start relay server", logger.Field{Key: "error", Value: err})
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	srv.Stop()
}

func buildLogger(cfg config.Config) logger.Logger {
	if cfg.LogDir == "" {
		return logger.NewConsoleLogger(serviceName, cfg.Level())
	}

	log, err := logger.NewFileLogger(serviceName, cfg.LogDir, cfg.Level())
	if err != nil {
		fallback := logger.NewConsoleLogger(serviceName, cfg.Level())
		fallback.Warn("file logging unavailable, using console only",
			logger.Field{Key: "error", Value: err})
		return fallback
	}

	return log
}

func buildSnapshotStore(cfg config.Config, log logger.Logger) sharecache.Store {
	switch cfg.SnapshotBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		log.Info("share snapshots backed by redis", logger.Field{Key: "addr", Value: cfg.RedisAddr})
		return sharecache.NewRedisStore(client, cfg.SnapshotTTL)
	case "none":
		log.Info("share snapshot replay disabled")
		return nil
	default:
		return sharecache.NewMemoryStore(cfg.SnapshotTTL, cfg.SnapshotTTL)
	}
}
