// Package config reads the relay's startup configuration from an ini file.
// Everything has a default, so a missing file yields a runnable server.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/ini.v1"
)

// Config is the full runtime configuration, read once at startup.
type Config struct {
	// Host is the listen address of the relay.
	Host string
	// Port is the listen port of the relay.
	Port int
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogDir enables daily-rotated file logging when non-empty.
	LogDir string
	// SnapshotBackend selects the share snapshot store: "memory", "redis",
	// or "none" to disable snapshot replay.
	SnapshotBackend string
	// SnapshotTTL is how long a share snapshot stays valid.
	SnapshotTTL time.Duration
	// RedisAddr is the redis "host:port", used when SnapshotBackend is "redis".
	RedisAddr string
}

// Default returns the configuration used when no file (or key) is present.
func Default() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            3001,
		LogLevel:        "info",
		SnapshotBackend: "memory",
		SnapshotTTL:     5 * time.Minute,
		RedisAddr:       "127.0.0.1:6379",
	}
}

// Load reads the ini file at path on top of the defaults. Keys live in the
// sections [general] (host, port), [log] (level, dir) and [snapshot]
// (backend, ttl, redis_addr).
//
// Parameters:
//   - path: The ini file to read
//
// Returns:
//   - The parsed configuration
//   - An error if the file cannot be read or a value does not parse
func Load(path string) (Config, error) {
	cfg := Default()

	file, err := ini.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}

	general := file.Section("general")
	cfg.Host = general.Key("host").MustString(cfg.Host)
	cfg.Port = general.Key("port").MustInt(cfg.Port)

	logSection := file.Section("log")
	cfg.LogLevel = logSection.Key("level").MustString(cfg.LogLevel)
	cfg.LogDir = logSection.Key("dir").MustString(cfg.LogDir)

	snapshot := file.Section("snapshot")
	cfg.SnapshotBackend = snapshot.Key("backend").MustString(cfg.SnapshotBackend)
	cfg.SnapshotTTL = snapshot.Key("ttl").MustDuration(cfg.SnapshotTTL)
	cfg.RedisAddr = snapshot.Key("redis_addr").MustString(cfg.RedisAddr)

	switch cfg.SnapshotBackend {
	case "memory", "redis", "none":
	default:
		return cfg, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
	}

	return cfg, nil
}

// Addr returns the "host:port" pair the relay should bind.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Level parses LogLevel into a zerolog level, falling back to info for
// values zerolog does not know.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}

	return level
}
