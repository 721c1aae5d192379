// Copyright 2024 The sqlbridge author and other contributors.
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

// Package mstats exposes the monitoring subsystem's own counters.
package mstats

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

var (
	Ticks         = metrics.NewCounter("monitor_ticks_total")
	ProbeFailures = metrics.NewCounter("monitor_probe_failures_total")
	JournalWrites = metrics.NewCounter("monitor_journal_writes_total")
	ScriptRuns    = metrics.NewCounter("monitor_script_runs_total")
	ScriptFails   = metrics.NewCounter("monitor_script_failures_total")
	StateChanges  = metrics.NewCounter("monitor_state_changes_total")
)

func ServerDownCounter(server string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`monitor_server_down_total{server=%q}`, server))
}

func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, false)
}
