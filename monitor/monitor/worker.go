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

package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/sqlbridge/sqlbridge/monitor/event"
	"github.com/sqlbridge/sqlbridge/monitor/internal/log"
	"github.com/sqlbridge/sqlbridge/monitor/internal/mstats"
	"github.com/sqlbridge/sqlbridge/monitor/probe"
	"github.com/sqlbridge/sqlbridge/monitor/script"
	"github.com/sqlbridge/sqlbridge/monitor/server"
)

// baseInterval is the longest single sleep of the scheduling loop (it
// sleeps less when the next tick is due sooner), and so also the
// maximum latency of an immediate-tick wake.
const baseInterval = 100 * time.Millisecond

func (m *Monitor) run() {
	defer close(m.doneCh)
	m.strategy.PreLoop(m)

	var lastTick time.Time
	for {
		since := time.Since(lastTick)
		if since > m.settings.Interval ||
			m.statusChangePending.Load() ||
			m.strategy.ImmediateTickRequired(m) {
			lastTick = time.Now()
			m.tick()
			m.ticks.Inc()
			mstats.Ticks.Inc()
			since = time.Since(lastTick)
		}

		delay := baseInterval
		if toNext := m.settings.Interval - since; toNext > 0 && toNext < baseInterval {
			delay = toNext
		}
		select {
		case <-m.stopCh:
			m.strategy.PostLoop(m)
			return
		case <-time.After(delay):
		}
	}
}

func (m *Monitor) tick() {
	m.applyAdminRequests()
	m.strategy.PreTick(m)

	updateDiskSpace := m.checkDiskSpaceThisTick()

	for _, r := range m.servers {
		if r.Server.IsInMaint() {
			continue
		}
		r.StashCurrentStatus()

		res, db, err := m.prober(&m.settings.Probe, r.Server, r.conn)
		r.conn = db
		r.lastErr = err

		if probe.ConnectionIsOK(res) {
			r.ClearPending(server.AuthError)
			r.SetPending(server.Running)
			if updateDiskSpace && r.diskSpaceCheckable {
				m.updateDiskSpaceStatus(r)
			}
			m.strategy.UpdateServerStatus(m, r)
		} else {
			mstats.ProbeFailures.Inc()
			r.ClearPending(^server.WasMaster)
			if probe.IsAuthError(err) {
				r.SetPending(server.AuthError)
			} else {
				r.ClearPending(server.AuthError)
			}
			if r.StatusChanged() && r.ShouldPrintFailStatus() {
				r.logConnectError(res)
			}
		}

		if r.Server.IsDown() {
			r.errCount++
		} else {
			r.errCount = 0
		}
	}

	m.strategy.PostTick(m)

	m.flushServerStatus()
	m.strategy.ProcessStateChanges(m)
	m.hangupFailedServers()
	m.saveJournal()
}

// applyAdminRequests drains every record's request slot into the
// server status. Runs only when the admin flagged a pending change.
func (m *Monitor) applyAdminRequests() {
	if !m.statusChangePending.Swap(false) {
		return
	}
	for _, r := range m.servers {
		switch r.statusRequest.Swap(NoChange) {
		case MaintOn:
			r.Server.SetStatusBits(server.Maint)
		case MaintOff:
			r.Server.ClearStatusBits(server.Maint)
		case DrainOn:
			r.Server.SetStatusBits(server.Draining)
		case DrainOff:
			r.Server.ClearStatusBits(server.Draining)
		case NoChange:
		}
	}
}

func (m *Monitor) flushServerStatus() {
	for _, r := range m.servers {
		if !r.Server.IsInMaint() {
			r.Server.AssignStatus(r.pendingStatus)
		}
	}
}

func (m *Monitor) detectHandleStateChanges() {
	masterDown := false
	masterUp := false

	for _, r := range m.servers {
		if !r.StatusChanged() {
			continue
		}
		ev := event.Classify(r.prevStatus, r.Server.Status())
		r.Server.LastEvent = ev.String()
		r.Server.TriggeredAt = time.Now()
		r.logStateChange(ev)
		mstats.StateChanges.Inc()
		if r.Server.IsDown() {
			mstats.ServerDownCounter(r.Server.Name).Inc()
		}

		switch ev {
		case event.MasterDown:
			masterDown = true
		case event.MasterUp, event.NewMaster:
			masterUp = true
		}

		if m.settings.Script != "" && ev&m.settings.Events != 0 {
			m.launchScript(r, ev)
		}
	}

	if masterDown && masterUp {
		log.Noticef("[monitor:%s] master switch detected: lost a master and gained a new one", m.name)
	}
}

// hangupFailedServers asks the service layer to drop client sessions
// on servers that just became unusable or left the cluster.
func (m *Monitor) hangupFailedServers() {
	for _, r := range m.servers {
		if r.StatusChanged() && (!r.Server.IsUsable() || !r.Server.IsInCluster()) {
			m.service.HangupServer(r.Server)
		}
	}
}

func (m *Monitor) launchScript(r *Record, ev event.Type) {
	inv := &script.Invoker{Script: m.settings.Script, Timeout: m.settings.ScriptTimeout}
	inv.Run(m.scriptPlaceholders(r, ev))
}

func (m *Monitor) scriptPlaceholders(r *Record, ev event.Type) map[string]string {
	repl := map[string]string{
		script.TokenInitiator:   r.Server.HostPort(),
		script.TokenEvent:       ev.String(),
		script.TokenParent:      "",
		script.TokenChildren:    "",
		script.TokenNodeList:    m.appendNodeNames(server.Running, false),
		script.TokenList:        m.appendNodeNames(0, false),
		script.TokenMasterList:  m.appendNodeNames(server.Master, false),
		script.TokenSlaveList:   m.appendNodeNames(server.Slave, false),
		script.TokenSyncedList:  m.appendNodeNames(server.Joined, false),
		script.TokenCredentials: m.appendNodeNames(0, true),
	}
	if parent := m.findParentNode(r); parent != nil {
		repl[script.TokenParent] = parent.Server.HostPort()
	}
	if children := m.childNodes(r); len(children) > 0 {
		hosts := make([]string, len(children))
		for i, c := range children {
			hosts[i] = c.Server.HostPort()
		}
		repl[script.TokenChildren] = strings.Join(hosts, ",")
	}
	return repl
}

// appendNodeNames renders the [addr]:port list of servers matching the
// status filter; 0 matches everything. With credentials the user:pass
// prefix is included, honoring per-server overrides.
func (m *Monitor) appendNodeNames(filter server.Status, credentials bool) string {
	var parts []string
	for _, r := range m.servers {
		if filter != 0 && !r.Server.Status().Test(filter) {
			continue
		}
		if credentials {
			user, pass := m.settings.Probe.Username, m.settings.Probe.Password
			if r.Server.MonitorUser != "" {
				user, pass = r.Server.MonitorUser, r.Server.MonitorPassword
			}
			parts = append(parts, fmt.Sprintf("%s:%s@%s", user, pass, r.Server.HostPort()))
		} else {
			parts = append(parts, r.Server.HostPort())
		}
	}
	return strings.Join(parts, ",")
}
