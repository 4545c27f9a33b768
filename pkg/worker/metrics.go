// Copyright 2025 Tom Barlow
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

package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus instruments every Worker shares. They're
// registered once per process against the default registry; running more
// than one Worker for the same workflow in a process reuses the same
// vector, distinguished by the workflow_slug label.
type metrics struct {
	tasksTotal   *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	inFlight     *prometheus.GaugeVec
}

var defaultMetrics = newMetrics(prometheus.DefaultRegisterer)

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		tasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dagflow_worker_tasks_total",
			Help: "Step tasks processed, by workflow, step, and outcome.",
		}, []string{"workflow_slug", "step_slug", "outcome"}),
		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dagflow_worker_task_duration_seconds",
			Help:    "Step function execution time, by workflow and step.",
			Buckets: prometheus.DefBuckets,
		}, []string{"workflow_slug", "step_slug"}),
		inFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dagflow_worker_tasks_in_flight",
			Help: "Tasks currently executing, by workflow.",
		}, []string{"workflow_slug"}),
	}
}
