// Copyright (c) 2026 Das ELB Hotel & Restaurant
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

// Package metrics provides Prometheus instrumentation for the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_pipeline_runs_total",
			Help: "Total pipeline runs by terminal status",
		},
		[]string{"status"}, // no_reply_needed, draft_created, failed
	)

	pipelineDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "concierge_pipeline_duration_seconds",
			Help:    "End-to-end pipeline duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	llmCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_llm_calls_total",
			Help: "Total LLM gateway calls",
		},
		[]string{"status"}, // success, error
	)

	llmDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "concierge_llm_duration_seconds",
			Help:    "LLM call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
)

// RecordPipelineRun records a completed pipeline run and its terminal status.
func RecordPipelineRun(status string, d time.Duration) {
	pipelineRunsTotal.WithLabelValues(status).Inc()
	pipelineDurationSeconds.Observe(d.Seconds())
}

// RecordLLMCall records a single gateway round-trip.
func RecordLLMCall(status string, d time.Duration) {
	llmCallsTotal.WithLabelValues(status).Inc()
	llmDurationSeconds.Observe(d.Seconds())
}
