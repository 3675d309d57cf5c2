// Copyright 2026 Blink Labs Software
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

package governance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type governanceMetrics struct {
	proposalsCreated   *prometheus.CounterVec
	proposalsFinalized *prometheus.CounterVec
	votes              *prometheus.CounterVec
	voteWeight         *prometheus.CounterVec
	operationFailures  *prometheus.CounterVec
	sweeps             prometheus.Counter
	sweepFinalized     prometheus.Counter
	sweepErrors        prometheus.Counter
}

func initMetrics(promRegistry prometheus.Registerer) *governanceMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &governanceMetrics{
		proposalsCreated: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "governance_proposals_created_total",
				Help: "proposals created by asset",
			},
			[]string{"asset"},
		),
		proposalsFinalized: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "governance_proposals_finalized_total",
				Help: "proposals finalized by asset",
			},
			[]string{"asset"},
		),
		votes: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "governance_votes_total",
				Help: "votes cast by asset and choice",
			},
			[]string{"asset", "choice"},
		),
		voteWeight: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "governance_vote_weight_total",
				Help: "raw stake units voted by asset and choice",
			},
			[]string{"asset", "choice"},
		),
		operationFailures: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "governance_operation_failures_total",
				Help: "failed governance operations by operation",
			},
			[]string{"op"},
		),
		sweeps: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "governance_sweeps_total",
				Help: "finalization sweeps run",
			},
		),
		sweepFinalized: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "governance_sweep_finalized_total",
				Help: "proposals finalized by the sweeper",
			},
		),
		sweepErrors: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "governance_sweep_errors_total",
				Help: "proposals the sweeper failed to finalize",
			},
		),
	}
}

func choiceLabel(choice bool) string {
	if choice {
		return "yes"
	}
	return "no"
}
