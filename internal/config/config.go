package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/michaelbrown/podmirror/internal/runner"
)

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type ClusterConfig struct {
	Namespace      string        `mapstructure:"namespace"`
	Kubectl        string        `mapstructure:"kubectl"`
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
}

type MirrordConfig struct {
	Binary      string        `mapstructure:"binary"`
	ExecTimeout time.Duration `mapstructure:"exec_timeout"`
}

type ToolchainConfig struct {
	Cargo          string        `mapstructure:"cargo"`
	Node           string        `mapstructure:"node"`
	NPM            string        `mapstructure:"npm"`
	Python         string        `mapstructure:"python"`
	CompileMode    string        `mapstructure:"compile_mode"`
	BuildTimeout   time.Duration `mapstructure:"build_timeout"`
	InstallTimeout time.Duration `mapstructure:"install_timeout"`
}

type WorkspaceConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Cluster   ClusterConfig   `mapstructure:"cluster"`
	Mirrord   MirrordConfig   `mapstructure:"mirrord"`
	Toolchain ToolchainConfig `mapstructure:"toolchain"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
}

// Load reads podmirror.yaml from the working directory or ~/.podmirror,
// applies PODMIRROR_* environment overrides, and falls back to defaults
// for everything else. A missing config file is fine; defaults cover it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("podmirror")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.podmirror")

	v.SetEnvPrefix("podmirror")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("cluster.namespace", "default")
	v.SetDefault("cluster.kubectl", "kubectl")
	v.SetDefault("cluster.resolve_timeout", 30*time.Second)
	v.SetDefault("mirrord.binary", "mirrord")
	v.SetDefault("mirrord.exec_timeout", 2*time.Minute)
	v.SetDefault("toolchain.cargo", "cargo")
	v.SetDefault("toolchain.node", "node")
	v.SetDefault("toolchain.npm", "npm")
	v.SetDefault("toolchain.python", "python3")
	v.SetDefault("toolchain.compile_mode", "release")
	v.SetDefault("toolchain.build_timeout", 3*time.Minute)
	v.SetDefault("toolchain.install_timeout", 3*time.Minute)
	v.SetDefault("workspace.base_dir", "")

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

// RunnerToolchain converts the toolchain section into the runner package's
// settings.
func (c *Config) RunnerToolchain() runner.Toolchain {
	return runner.Toolchain{
		Cargo:          c.Toolchain.Cargo,
		Node:           c.Toolchain.Node,
		NPM:            c.Toolchain.NPM,
		Python:         c.Toolchain.Python,
		CompileMode:    c.Toolchain.CompileMode,
		BuildTimeout:   c.Toolchain.BuildTimeout,
		InstallTimeout: c.Toolchain.InstallTimeout,
	}
}
