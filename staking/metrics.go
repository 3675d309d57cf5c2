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

package staking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type stakingMetrics struct {
	deposits          *prometheus.CounterVec
	depositedUnits    *prometheus.CounterVec
	unstakeRequests   *prometheus.CounterVec
	unstakeCompleted  *prometheus.CounterVec
	paidOutUnits      *prometheus.CounterVec
	penaltyUnits      *prometheus.CounterVec
	operationFailures *prometheus.CounterVec
}

func initMetrics(promRegistry prometheus.Registerer) *stakingMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &stakingMetrics{
		deposits: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staking_deposits_total",
				Help: "stake deposits by asset",
			},
			[]string{"asset"},
		),
		depositedUnits: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staking_deposited_units_total",
				Help: "raw token units deposited by asset",
			},
			[]string{"asset"},
		),
		unstakeRequests: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staking_unstake_requests_total",
				Help: "unstake requests by asset and penalty flag",
			},
			[]string{"asset", "penalty"},
		),
		unstakeCompleted: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staking_unstake_completed_total",
				Help: "completed unstakes by asset",
			},
			[]string{"asset"},
		),
		paidOutUnits: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staking_paid_out_units_total",
				Help: "raw token units returned to stakers by asset",
			},
			[]string{"asset"},
		),
		penaltyUnits: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staking_penalty_units_total",
				Help: "raw token units withheld as early exit penalties by asset",
			},
			[]string{"asset"},
		),
		operationFailures: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staking_operation_failures_total",
				Help: "failed staking operations by operation",
			},
			[]string{"op"},
		),
	}
}
