// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/stakevault/staking"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "stakevault.config"

const (
	DefaultShutdownTimeout = "30s"
	envPrefix              = "stakevault"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config yaml.Node `yaml:"config,omitempty"`
}

type Config struct {
	DatabasePath     string `yaml:"databasePath"     split_words:"true"`
	BindAddr         string `yaml:"bindAddr"         split_words:"true"`
	ShutdownTimeout  string `yaml:"shutdownTimeout"  split_words:"true"`
	JWTSecret        string `yaml:"jwtSecret"        envconfig:"JWT_SECRET"`
	PenaltyPolicy    string `yaml:"penaltyPolicy"    split_words:"true"`
	TreasuryAccount  string `yaml:"treasuryAccount"  split_words:"true"`
	FinalizeSchedule string `yaml:"finalizeSchedule" split_words:"true"`
	ApiPort          uint   `yaml:"apiPort"          split_words:"true"`
	MetricsPort      uint   `yaml:"metricsPort"      split_words:"true"`
	FinalizeWorkers  int    `yaml:"finalizeWorkers"  split_words:"true"`
	MaxInFlightPerIP int    `yaml:"maxInFlightPerIp" envconfig:"MAX_IN_FLIGHT_PER_IP"`
	Tracing          bool   `yaml:"tracing"`
	TracingStdout    bool   `yaml:"tracingStdout"    split_words:"true"`
}

// ShutdownDuration parses ShutdownTimeout
func (c *Config) ShutdownDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return time.ParseDuration(DefaultShutdownTimeout)
	}
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	return d, nil
}

// Penalty parses PenaltyPolicy
func (c *Config) Penalty() (staking.PenaltyPolicy, error) {
	return staking.ParsePenaltyPolicy(c.PenaltyPolicy)
}

var globalConfig = defaultConfig()

func defaultConfig() *Config {
	return &Config{
		DatabasePath:     ".stakevault",
		BindAddr:         "0.0.0.0",
		ShutdownTimeout:  DefaultShutdownTimeout,
		PenaltyPolicy:    string(staking.PenaltyPolicyRetain),
		FinalizeSchedule: "@every 1m",
		ApiPort:          8080,
		MetricsPort:      12799,
		FinalizeWorkers:  4,
	}
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.stakevault/stakevault.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".stakevault", "stakevault.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/stakevault/stakevault.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/stakevault/stakevault.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		var tempCfg tempConfig
		err = yaml.Unmarshal(buf, &tempCfg)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}

		// If config section exists, use it for main config
		if !tempCfg.Config.IsZero() {
			// Overlay config values onto existing defaults
			if err := tempCfg.Config.Decode(globalConfig); err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			err = yaml.Unmarshal(buf, globalConfig)
			if err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}
	// Process environment variables
	err := envconfig.Process(envPrefix, globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	if _, err := globalConfig.Penalty(); err != nil {
		return nil, err
	}
	if _, err := globalConfig.ShutdownDuration(); err != nil {
		return nil, err
	}
	if globalConfig.FinalizeWorkers < 0 {
		return nil, fmt.Errorf(
			"invalid finalizeWorkers: %d",
			globalConfig.FinalizeWorkers,
		)
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}
