package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const (
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 5000
	DefaultThreads  = 1
	DefaultLogLevel = "info"
)

type Config struct {
	NodeHost           string `json:"node_host" toml:"node_host"`
	NodePort           int64  `json:"node_port" toml:"node_port"`
	Threads            int    `json:"threads" toml:"threads"`
	MineTimeoutSeconds int64  `json:"mine_timeout_seconds" toml:"mine_timeout_seconds"`
	LogLevel           string `json:"log_level" toml:"log_level"`
}

func New() *Config {
	return &Config{
		NodeHost: DefaultHost,
		NodePort: DefaultPort,
		Threads:  DefaultThreads,
		LogLevel: DefaultLogLevel,
	}
}

// LoadConfiguration reads file over the defaults. Files ending in .toml are
// parsed as TOML, anything else as JSON. An empty path yields the defaults.
func LoadConfiguration(file string) (Config, error) {
	config := *New()
	if file == "" {
		return config, nil
	}

	configFile, err := os.Open(file)
	if err != nil {
		return config, xerrors.Errorf("couldn't open config %s: %w", file, err)
	}
	defer configFile.Close()

	if strings.EqualFold(filepath.Ext(file), ".toml") {
		_, err = toml.NewDecoder(configFile).Decode(&config)
	} else {
		err = json.NewDecoder(configFile).Decode(&config)
	}
	if err != nil {
		logrus.WithField("file", file).Error("Error parsing configfile")
		return config, xerrors.Errorf("couldn't parse config %s: %w", file, err)
	}
	return config, config.Validate()
}

func (c Config) Validate() error {
	if c.NodePort < 1 || c.NodePort > 65535 {
		return xerrors.Errorf("node_port %d out of range", c.NodePort)
	}
	if c.Threads < 1 {
		return xerrors.Errorf("threads must be at least 1, got %d", c.Threads)
	}
	if c.MineTimeoutSeconds < 0 {
		return xerrors.Errorf("mine_timeout_seconds must not be negative, got %d", c.MineTimeoutSeconds)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return xerrors.Errorf("log_level: %w", err)
	}
	return nil
}

func (c Config) Address() string {
	return c.NodeHost + ":" + strconv.FormatInt(c.NodePort, 10)
}

// MineTimeout is zero when mining is unbounded.
func (c Config) MineTimeout() time.Duration {
	return time.Duration(c.MineTimeoutSeconds) * time.Second
}
