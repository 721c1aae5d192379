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

	"github.com/sqlbridge/sqlbridge/monitor/internal/errn"
	"github.com/sqlbridge/sqlbridge/monitor/internal/log"
	"github.com/sqlbridge/sqlbridge/monitor/internal/models"
	"github.com/sqlbridge/sqlbridge/monitor/server"

	"github.com/cockroachdb/errors"
)

// SetServerStatus requests status bits on a monitored server. While
// the monitor runs only the maintenance and draining bits may be set
// and the change travels through the record's request slot; the worker
// applies it at the start of its next tick. On a stopped monitor the
// bits are written directly.
func (m *Monitor) SetServerStatus(name string, bits server.Status) error {
	r := m.getRecord(name)
	if r == nil {
		return errors.Wrapf(errn.ErrUnknownServer, "server %s", name)
	}

	if !m.IsRunning() {
		r.Server.SetStatusBits(bits)
		return nil
	}

	var req int32
	switch bits {
	case server.Maint:
		req = MaintOn
	case server.Draining:
		req = DrainOn
	default:
		return errors.Wrap(errn.ErrBadStatusBit, errCannotModify)
	}
	m.postStatusRequest(r, req)
	return nil
}

// ClearServerStatus is the clearing counterpart of SetServerStatus.
func (m *Monitor) ClearServerStatus(name string, bits server.Status) error {
	r := m.getRecord(name)
	if r == nil {
		return errors.Wrapf(errn.ErrUnknownServer, "server %s", name)
	}

	if !m.IsRunning() {
		r.Server.ClearStatusBits(bits)
		return nil
	}

	var req int32
	switch bits {
	case server.Maint:
		req = MaintOff
	case server.Draining:
		req = DrainOff
	default:
		return errors.Wrap(errn.ErrBadStatusBit, errCannotModify)
	}
	m.postStatusRequest(r, req)
	return nil
}

func (m *Monitor) postStatusRequest(r *Record, req int32) {
	if prev := r.statusRequest.Swap(req); prev != NoChange {
		log.Warnf("[monitor:%s] %s", m.name, warnRequestOverwritten)
	}
	m.statusChangePending.Store(true)
}

// serverView is the wire shape of one monitored server in diagnostics
// output.
type serverView struct {
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Port        int       `json:"port"`
	Status      string    `json:"status"`
	LastEvent   string    `json:"last_event,omitempty"`
	TriggeredAt time.Time `json:"triggered_at,omitempty"`
}

type monitorView struct {
	Name    string       `json:"name"`
	Module  string       `json:"module"`
	State   string       `json:"state"`
	Ticks   int64        `json:"ticks"`
	Servers []serverView `json:"servers"`
}

// ToJSON renders the monitor and its servers for the admin interface.
func (m *Monitor) ToJSON() []byte {
	v := monitorView{
		Name:    m.name,
		Module:  m.module,
		State:   m.StateString(),
		Ticks:   m.ticks.Load(),
		Servers: make([]serverView, len(m.servers)),
	}
	for i, r := range m.servers {
		v.Servers[i] = serverView{
			Name:        r.Server.Name,
			Address:     r.Server.Address,
			Port:        r.Server.Port,
			Status:      r.Server.Status().String(),
			LastEvent:   r.Server.LastEvent,
			TriggeredAt: r.Server.TriggeredAt,
		}
	}
	return models.JSONEncode(v)
}

// Show renders a plain-text diagnostics block.
func (m *Monitor) Show() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Monitor:           %s\n", m.name)
	fmt.Fprintf(&b, "Module:            %s\n", m.module)
	fmt.Fprintf(&b, "State:             %s\n", m.StateString())
	fmt.Fprintf(&b, "Sampling interval: %v\n", m.settings.Interval)
	fmt.Fprintf(&b, "Ticks:             %d\n", m.ticks.Load())
	fmt.Fprintf(&b, "Monitored servers:\n")
	for _, r := range m.servers {
		fmt.Fprintf(&b, "  %s[%s:%d]  %s\n",
			r.Server.Name, r.Server.Address, r.Server.Port, r.Server.Status().String())
	}
	return b.String()
}
