package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EndpointsEnv is the environment variable read when no endpoints are
// configured explicitly: a comma-separated list of daemon addresses.
const EndpointsEnv = "DOCKER_ENDPOINTS"

// DefaultEndpoint is the local daemon socket used when nothing else is
// configured.
const DefaultEndpoint = "unix:///var/run/docker.sock"

// Config holds everything hutch needs to talk to a fleet of engine
// daemons.
type Config struct {
	// Endpoints lists the daemon addresses (unix:// or tcp:// forms).
	Endpoints []string `yaml:"endpoints"`

	// BuildTimeout is the wall-clock ceiling on a single image build.
	BuildTimeout time.Duration `yaml:"build_timeout"`

	// StopGrace is how long a container gets to stop before it is
	// force-removed.
	StopGrace time.Duration `yaml:"stop_grace"`

	// StartDeadline bounds the post-start status poll loop.
	StartDeadline time.Duration `yaml:"start_deadline"`

	// ExecTimeout is the default bound on exec read loops. Zero means
	// unbounded unless the caller passes one.
	ExecTimeout time.Duration `yaml:"exec_timeout"`

	// StateFile is the path of the bbolt assignment journal. Empty
	// disables the journal.
	StateFile string `yaml:"state_file"`

	// MetricsAddr, when set, serves prometheus metrics on this address.
	MetricsAddr string `yaml:"metrics_addr"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Default returns the configuration used when no file and no
// environment are present.
func Default() *Config {
	return &Config{
		Endpoints:     []string{DefaultEndpoint},
		BuildTimeout:  600 * time.Second,
		StopGrace:     10 * time.Second,
		StartDeadline: 10 * time.Second,
		LogLevel:      "info",
	}
}

// Load builds a Config from an optional YAML file, falling back to the
// DOCKER_ENDPOINTS environment variable and then to the local socket.
// Precedence per field: file > environment > default.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.Endpoints = nil

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = EndpointsFromEnv()
	}
	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = []string{DefaultEndpoint}
	}
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = 600 * time.Second
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 10 * time.Second
	}
	if cfg.StartDeadline <= 0 {
		cfg.StartDeadline = 10 * time.Second
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// EndpointsFromEnv parses the DOCKER_ENDPOINTS variable. It returns nil
// when the variable is unset or holds nothing but separators.
func EndpointsFromEnv() []string {
	raw := os.Getenv(EndpointsEnv)
	if raw == "" {
		return nil
	}
	var endpoints []string
	for _, ep := range strings.Split(raw, ",") {
		ep = strings.TrimSpace(ep)
		if ep != "" {
			endpoints = append(endpoints, ep)
		}
	}
	return endpoints
}
