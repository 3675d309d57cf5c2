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

package main

import (
	"errors"
	"os"

	"github.com/blinklabs-io/stakevault/internal/config"
	"github.com/blinklabs-io/stakevault/internal/node"
	"github.com/spf13/cobra"
)

func serveCommand() *cobra.Command {
	var (
		bindAddr    string
		apiPort     uint
		metricsPort uint
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and finalization sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			// Flags win over the config file and environment
			flags := cmd.Flags()
			if flags.Changed("bind-addr") {
				cfg.BindAddr = bindAddr
			}
			if flags.Changed("api-port") {
				cfg.ApiPort = apiPort
			}
			if flags.Changed("metrics-port") {
				cfg.MetricsPort = metricsPort
			}
			return node.Run(cfg, commonRun(os.Stdout))
		},
	}
	cmd.Flags().StringVar(&bindAddr, "bind-addr", "", "address to bind the API and metrics listeners to")
	cmd.Flags().UintVar(&apiPort, "api-port", 0, "API listen port")
	cmd.Flags().UintVar(&metricsPort, "metrics-port", 0, "metrics listen port, 0 disables")
	return cmd
}
