package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	PublicDir string `mapstructure:"public_dir"`
}

type InterpreterConfig struct {
	Bin       string `mapstructure:"bin"`
	SourceExt string `mapstructure:"source_ext"`
}

type SandboxConfig struct {
	TimeoutMS      int    `mapstructure:"timeout_ms"`
	WorkspaceDir   string `mapstructure:"workspace_dir"`
	MaxOutputBytes int    `mapstructure:"max_output_bytes"`
	PolicyFile     string `mapstructure:"policy_file"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Interpreter InterpreterConfig `mapstructure:"interpreter"`
	Sandbox     SandboxConfig     `mapstructure:"sandbox"`
	Storage     StorageConfig     `mapstructure:"storage"`
}

// Load reads crucible.yaml from the working directory or ~/.crucible.
// A missing config file is not an error: the service runs on defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("crucible")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.crucible")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.public_dir", "")
	v.SetDefault("interpreter.bin", "qatam")
	v.SetDefault("interpreter.source_ext", ".qtm")
	v.SetDefault("sandbox.timeout_ms", 1000)
	v.SetDefault("sandbox.workspace_dir", filepath.Join(os.TempDir(), "crucible"))
	v.SetDefault("sandbox.max_output_bytes", 64*1024)
	v.SetDefault("sandbox.policy_file", "")
	v.SetDefault("storage.db_path", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// Timeout returns the execution time budget as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Sandbox.TimeoutMS) * time.Millisecond
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
