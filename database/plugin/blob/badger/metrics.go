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

package badger

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const badgerMetricNamePrefix = "database_blob_"

type blobMetrics struct {
	opsTotal   *prometheus.CounterVec
	bytesTotal *prometheus.CounterVec
}

func (d *BlobStoreBadger) registerBlobMetrics() error {
	opsTotal, err := registerCounterVec(
		d.promRegistry,
		prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: badgerMetricNamePrefix + "ops_total",
				Help: "Total number of blob operations",
			},
			[]string{"op"},
		),
	)
	if err != nil {
		return err
	}
	bytesTotal, err := registerCounterVec(
		d.promRegistry,
		prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: badgerMetricNamePrefix + "bytes_total",
				Help: "Total bytes read/written for blob operations",
			},
			[]string{"op"},
		),
	)
	if err != nil {
		return err
	}
	d.metrics = &blobMetrics{
		opsTotal:   opsTotal,
		bytesTotal: bytesTotal,
	}
	return nil
}

// registerCounterVec registers a counter, reusing one already registered
// under the same name by another store
func registerCounterVec(
	reg prometheus.Registerer,
	c *prometheus.CounterVec,
) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var areErr prometheus.AlreadyRegisteredError
		if errors.As(err, &areErr) {
			if existing, ok := areErr.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (d *BlobStoreBadger) recordOp(op string, size int) {
	if d.metrics == nil {
		return
	}
	d.metrics.opsTotal.WithLabelValues(op).Inc()
	d.metrics.bytesTotal.WithLabelValues(op).Add(float64(size))
}
