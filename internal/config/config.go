package config

import (
	"runtime"
	"time"
)

// Config holds server configuration values shared by the supervisor and its workers.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// Worker pool.
	WorkerBasePort int           `mapstructure:"worker_base_port" yaml:"worker_base_port"`
	Workers        int           `mapstructure:"workers" yaml:"workers"`
	StatsInterval  time.Duration `mapstructure:"stats_interval" yaml:"stats_interval"`
	IdleGrace      time.Duration `mapstructure:"idle_grace" yaml:"idle_grace"`
	RespawnDelay   time.Duration `mapstructure:"respawn_delay" yaml:"respawn_delay"`
	PolicyFile     string        `mapstructure:"policy_file" yaml:"policy_file"`

	// Per-worker room state.
	DiffInterval     time.Duration `mapstructure:"diff_interval" yaml:"diff_interval"`
	ReapInterval     time.Duration `mapstructure:"reap_interval" yaml:"reap_interval"`
	MaxMessageLength int           `mapstructure:"max_message_length" yaml:"max_message_length"`
	FrameRateLimit   int           `mapstructure:"frame_rate_limit" yaml:"frame_rate_limit"`
	KeepAlive        time.Duration `mapstructure:"keep_alive" yaml:"keep_alive"`
	Salt             string        `mapstructure:"salt" yaml:"salt"`

	Tip TipConfig `mapstructure:"tip" yaml:"tip"`
}

// TipConfig points at the external tipping/balance service.
type TipConfig struct {
	SiteURL     string        `mapstructure:"site_url" yaml:"site_url"`
	BalancePath string        `mapstructure:"balance_path" yaml:"balance_path"`
	SendPath    string        `mapstructure:"send_path" yaml:"send_path"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		WorkerBasePort:    9000,
		Workers:           0,
		StatsInterval:     10 * time.Second,
		IdleGrace:         10 * time.Second,
		RespawnDelay:      500 * time.Millisecond,
		DiffInterval:      5 * time.Second,
		ReapInterval:      10 * time.Second,
		MaxMessageLength:  200,
		FrameRateLimit:    0,
		KeepAlive:         30 * time.Second,
		Salt:              "change-me",
		Tip: TipConfig{
			SiteURL:     "http://localhost/",
			BalancePath: "/api/tokens/balance",
			SendPath:    "/api/tokens/send",
			Timeout:     15 * time.Second,
		},
	}
}

// WorkerCount resolves the configured pool size, one worker per CPU when unset.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
