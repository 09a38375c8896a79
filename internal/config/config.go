// Package config loads relay settings from defaults, an optional YAML file,
// a .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"canvassync/internal/middleware"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port               string   `yaml:"port"`
	Domains            []string `yaml:"domains"`
	StaticDir          string   `yaml:"static_dir"`
	MaxRoomSize        int      `yaml:"max_room_size"`
	MaxRooms           int      `yaml:"max_rooms"`
	MaxMessageSize     int      `yaml:"max_message_size"`
	MessagesPerSecond  float64  `yaml:"messages_per_second"`
	BurstSize          int      `yaml:"burst_size"`
	SendQueueSize      int      `yaml:"send_queue_size"`
	ConnectsPerMinute  int      `yaml:"connects_per_minute"`
	ConnectBurst       int      `yaml:"connect_burst"`
	ReplayLastSnapshot bool     `yaml:"replay_last_snapshot"`
}

func Default() Config {
	return Config{
		Port:              "8080",
		MaxRoomSize:       50,
		MaxRooms:          1000,
		MaxMessageSize:    8 << 20,
		MessagesPerSecond: 120,
		BurstSize:         60,
		SendQueueSize:     256,
		ConnectsPerMinute: 10,
		ConnectBurst:      5,
	}
}

// Load reads envFiles (default ".env"; missing files are skipped) into the
// environment without overriding it, then builds the config.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeYAML(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DOMAINS"); v != "" {
		c.Domains = splitList(v)
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		c.StaticDir = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"MAX_ROOM_SIZE", &c.MaxRoomSize},
		{"MAX_ROOMS", &c.MaxRooms},
		{"MAX_MESSAGE_SIZE", &c.MaxMessageSize},
		{"BURST_SIZE", &c.BurstSize},
		{"SEND_QUEUE_SIZE", &c.SendQueueSize},
		{"CONNECTS_PER_MINUTE", &c.ConnectsPerMinute},
		{"CONNECT_BURST", &c.ConnectBurst},
	}
	for _, kv := range ints {
		v := os.Getenv(kv.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", kv.key, err)
		}
		*kv.dst = n
	}

	if v := os.Getenv("MESSAGES_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MESSAGES_PER_SECOND: %w", err)
		}
		c.MessagesPerSecond = f
	}
	if v := os.Getenv("REPLAY_LAST_SNAPSHOT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("REPLAY_LAST_SNAPSHOT: %w", err)
		}
		c.ReplayLastSnapshot = b
	}
	return nil
}

// Addr is the listen address
func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

// RateLimit returns the relay limits
func (c Config) RateLimit() *middleware.RateLimit {
	return middleware.NewRateLimit(c.MaxRoomSize, c.MaxRooms, c.MaxMessageSize, c.MessagesPerSecond, c.BurstSize, c.SendQueueSize)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
