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
	"database/sql"

	"github.com/sqlbridge/sqlbridge/monitor/event"
	"github.com/sqlbridge/sqlbridge/monitor/internal/log"
	"github.com/sqlbridge/sqlbridge/monitor/probe"
	"github.com/sqlbridge/sqlbridge/monitor/server"

	"go.uber.org/atomic"
)

// Admin requests exchanged through a record's request slot. The admin
// goroutine writes, the worker drains with an atomic swap.
const (
	NoChange int32 = iota
	MaintOn
	MaintOff
	DrainOn
	DrainOff
)

// sentinelStatus marks a record whose server has never been observed.
const sentinelStatus = server.Status(^uint64(0))

// interestingBits is the mask status_changed compares over.
const interestingBits = server.Running | server.Maint | server.Master | server.Slave | server.Joined

// Record is the monitor's per-server working state. All fields except
// the request slot are owned by the worker goroutine.
type Record struct {
	Server *server.Server

	prevStatus    server.Status
	pendingStatus server.Status
	errCount      int
	conn          *sql.DB
	lastErr       error

	statusRequest atomic.Int32

	diskSpaceCheckable bool
	monitorLimits      map[string]int32
}

func newRecord(srv *server.Server, monitorLimits map[string]int32) *Record {
	return &Record{
		Server:             srv,
		prevStatus:         sentinelStatus,
		diskSpaceCheckable: true,
		monitorLimits:      monitorLimits,
	}
}

// StashCurrentStatus copies the observed server status into both the
// previous and pending words at tick start.
func (r *Record) StashCurrentStatus() {
	st := r.Server.Status()
	r.prevStatus = st
	r.pendingStatus = st
}

func (r *Record) SetPending(bits server.Status) {
	r.pendingStatus = r.pendingStatus.Set(bits)
}

func (r *Record) ClearPending(bits server.Status) {
	r.pendingStatus = r.pendingStatus.Clear(bits)
}

// StatusChanged reports a dispatchable transition: the server has been
// observed before, the interesting bits differ, neither side is in
// maintenance, and at least one side was running.
func (r *Record) StatusChanged() bool {
	if r.prevStatus == sentinelStatus {
		return false
	}
	old := r.prevStatus & interestingBits
	cur := r.Server.Status() & interestingBits
	return old != cur &&
		!(old | cur).Test(server.Maint) &&
		(old | cur).Test(server.Running)
}

// ShouldPrintFailStatus fires once per failure streak.
func (r *Record) ShouldPrintFailStatus() bool {
	return r.Server.IsDown() && r.errCount == 0
}

func (r *Record) closeConn() {
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

func (r *Record) logConnectError(res probe.Result) {
	format := "monitor was unable to connect to server %s[%s:%d] err:%v"
	if res == probe.Timeout {
		format = "monitor timed out when connecting to server %s[%s:%d] err:%v"
	}
	log.Errorf(format, r.Server.Name, r.Server.Address, r.Server.Port, r.lastErr)
}

func (r *Record) logStateChange(ev event.Type) {
	log.Noticef("Server changed state: %s[%s:%d]: %s. [%s] -> [%s]",
		r.Server.Name, r.Server.Address, r.Server.Port,
		ev.String(), r.prevStatus.String(), r.Server.Status().String())
}

func (r *Record) reportQueryError(err error) {
	log.Errorf("failed to execute query on server %s[%s:%d] err:%v",
		r.Server.Name, r.Server.Address, r.Server.Port, err)
}
