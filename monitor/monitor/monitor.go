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

// Package monitor drives the probe loop over a set of backend servers.
//
// Every mutating entry point except the worker's own tick is reserved
// for the single admin goroutine that configures monitors; the
// request slot, pending flag and tick counter are the only state
// shared with the worker.
package monitor

import (
	"database/sql"
	"time"

	"github.com/sqlbridge/sqlbridge/monitor/event"
	"github.com/sqlbridge/sqlbridge/monitor/internal/errn"
	"github.com/sqlbridge/sqlbridge/monitor/internal/log"
	"github.com/sqlbridge/sqlbridge/monitor/internal/mstats"
	"github.com/sqlbridge/sqlbridge/monitor/journal"
	"github.com/sqlbridge/sqlbridge/monitor/probe"
	"github.com/sqlbridge/sqlbridge/monitor/registry"
	"github.com/sqlbridge/sqlbridge/monitor/server"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
)

const (
	StateStopped int32 = iota
	StateRunning
)

const (
	errCannotModify = "The server is monitored, so only the maintenance and draining statuses " +
		"can be set/cleared manually. Status was not modified."
	warnRequestOverwritten = "Previous maintenance request was not yet read by the monitor " +
		"and was overwritten."
)

// Settings is the full parameter set of one monitor instance.
type Settings struct {
	Interval               time.Duration
	Probe                  probe.Settings
	JournalDir             string
	JournalMaxAge          time.Duration
	Script                 string
	ScriptTimeout          time.Duration
	Events                 event.Type
	DiskSpaceCheckInterval time.Duration
	DiskSpaceLimits        map[string]int32
}

// Service receives notifications about servers entering and leaving a
// monitor, and hangup requests for servers that became unusable. The
// surrounding proxy implements it; tests stub it.
type Service interface {
	ServerAdded(monitorName string, srv *server.Server)
	ServerRemoved(monitorName string, srv *server.Server)
	HangupServer(srv *server.Server)
}

// NopService ignores all notifications.
type NopService struct{}

func (NopService) ServerAdded(string, *server.Server)   {}
func (NopService) ServerRemoved(string, *server.Server) {}
func (NopService) HangupServer(*server.Server)          {}

type Monitor struct {
	name     string
	module   string
	settings Settings

	servers []*Record
	master  *Record

	ticks               atomic.Int64
	statusChangePending atomic.Bool
	state               atomic.Int32

	store    *journal.Store
	strategy Strategy
	service  Service

	stopCh chan struct{}
	doneCh chan struct{}

	// Worker-owned disk-space deadline.
	diskSpaceChecked time.Time

	// Probe entry point, replaceable in tests.
	prober func(*probe.Settings, *server.Server, *sql.DB) (probe.Result, *sql.DB, error)
}

// monitors is the process-wide instance index. Admin-goroutine-only,
// like the ownership registry.
var monitors = map[string]*Monitor{}

func New(name, module string, sett Settings, strat Strategy, svc Service) *Monitor {
	if strat == nil {
		strat = Base{}
	}
	if svc == nil {
		svc = NopService{}
	}
	m := &Monitor{
		name:     name,
		module:   module,
		settings: sett,
		store:    journal.NewStore(sett.JournalDir, name),
		strategy: strat,
		service:  svc,
		prober:   probe.PingOrConnect,
	}
	monitors[name] = m
	return m
}

// GetServerMonitor returns the monitor currently claiming srv, if any.
func GetServerMonitor(srv *server.Server) *Monitor {
	if owner := registry.ClaimedBy(srv.Name); owner != "" {
		return monitors[owner]
	}
	return nil
}

func (m *Monitor) Name() string { return m.name }

func (m *Monitor) Module() string { return m.module }

func (m *Monitor) Ticks() int64 { return m.ticks.Load() }

func (m *Monitor) State() int32 { return m.state.Load() }

func (m *Monitor) IsRunning() bool { return m.state.Load() == StateRunning }

func (m *Monitor) StateString() string {
	if m.IsRunning() {
		return "Running"
	}
	return "Stopped"
}

// Configure rebuilds the server list. The monitor must be stopped. A
// duplicate ownership claim refuses that server but the other adds
// proceed; the first conflict is reported.
func (m *Monitor) Configure(servers []*server.Server) error {
	if m.IsRunning() {
		return errn.ErrMonitorRunning
	}
	m.RemoveAllServers()

	var firstErr error
	for _, srv := range servers {
		if err := m.AddServer(srv); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// AddServer claims srv and appends a record for it.
func (m *Monitor) AddServer(srv *server.Server) error {
	if m.IsRunning() {
		return errn.ErrMonitorRunning
	}
	ok, owner := registry.Claim(srv.Name, m.name)
	if !ok {
		return errors.Wrapf(errn.ErrServerClaimed, "server %s owned by %s", srv.Name, owner)
	}
	m.servers = append(m.servers, newRecord(srv, m.settings.DiskSpaceLimits))
	m.service.ServerAdded(m.name, srv)
	return nil
}

// RemoveAllServers releases every claim and drops the records.
func (m *Monitor) RemoveAllServers() {
	for _, r := range m.servers {
		registry.Release(r.Server.Name, m.name)
		m.service.ServerRemoved(m.name, r.Server)
	}
	m.servers = nil
	m.master = nil
}

// Servers exposes the descriptors in insertion order.
func (m *Monitor) Servers() []*server.Server {
	out := make([]*server.Server, len(m.servers))
	for i, r := range m.servers {
		out[i] = r.Server
	}
	return out
}

// PopulateServices replays server-added notifications, used when the
// service layer restarts while the monitor is stopped.
func (m *Monitor) PopulateServices() {
	for _, r := range m.servers {
		m.service.ServerAdded(m.name, r.Server)
	}
}

// Start launches the worker goroutine. The permission pre-flight runs
// first; a monitor that fails it does not start.
func (m *Monitor) Start() error {
	if m.IsRunning() {
		return errn.ErrMonitorRunning
	}
	if !m.strategy.HasSufficientPermissions(m) {
		return errors.Newf("monitor %s lacks sufficient permissions on its servers", m.name)
	}

	if m.settings.JournalMaxAge > 0 && m.store.IsStale(m.settings.JournalMaxAge) {
		log.Warnf("[monitor:%s] journal at %s is older than %v, discarding",
			m.name, m.store.Path(), m.settings.JournalMaxAge)
		m.store.Remove()
	}

	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.state.Store(StateRunning)
	go m.run()
	log.Infof("[monitor:%s] started with %d servers", m.name, len(m.servers))
	return nil
}

// Stop signals the worker and joins it, then closes every database
// handle on the caller's goroutine.
func (m *Monitor) Stop() error {
	if !m.IsRunning() {
		return errn.ErrMonitorNotRunning
	}
	close(m.stopCh)
	<-m.doneCh
	m.state.Store(StateStopped)

	for _, r := range m.servers {
		r.closeConn()
	}
	log.Infof("[monitor:%s] stopped", m.name)
	return nil
}

// Deactivate stops the monitor if needed, releases its servers and
// removes it from the instance index. The journal stays on disk for
// the next incarnation.
func (m *Monitor) Deactivate() {
	if m.IsRunning() {
		m.Stop()
	}
	m.RemoveAllServers()
	delete(monitors, m.name)
}

// TestPermissions connects to each server and runs query. An access
// denied error on connect or query is a permanent failure; servers
// that are merely unreachable are tolerated.
func (m *Monitor) TestPermissions(query string) bool {
	if len(m.servers) == 0 {
		log.Warnf("[monitor:%s] permission check skipped, no servers", m.name)
		return true
	}

	ok := false
	for _, r := range m.servers {
		res, db, err := m.prober(&m.settings.Probe, r.Server, r.conn)
		r.conn = db
		if !probe.ConnectionIsOK(res) {
			if probe.IsConnectAccessDenied(err) {
				log.Errorf("[monitor:%s] access denied connecting to %s[%s:%d] err:%v",
					m.name, r.Server.Name, r.Server.Address, r.Server.Port, err)
				return false
			}
			log.Warnf("[monitor:%s] cannot connect to %s[%s:%d] err:%v",
				m.name, r.Server.Name, r.Server.Address, r.Server.Port, err)
			continue
		}

		permanent, err := probe.CheckPermissions(r.conn, query, m.settings.Probe.ReadTimeout)
		if err == nil {
			ok = true
			continue
		}
		r.reportQueryError(err)
		if permanent {
			return false
		}
	}
	return ok
}

// getRecord finds the record for a server name, nil when unmonitored.
func (m *Monitor) getRecord(name string) *Record {
	for _, r := range m.servers {
		if r.Server.Name == name {
			return r
		}
	}
	return nil
}

// findParentNode resolves the record whose node id equals target's
// master id.
func (m *Monitor) findParentNode(target *Record) *Record {
	if target.Server.MasterID <= 0 {
		return nil
	}
	for _, r := range m.servers {
		if r == target {
			continue
		}
		if r.Server.NodeID == target.Server.MasterID {
			return r
		}
	}
	return nil
}

// childNodes collects the records replicating from target.
func (m *Monitor) childNodes(target *Record) []*Record {
	id := target.Server.NodeID
	if id <= 0 {
		return nil
	}
	var out []*Record
	for _, r := range m.servers {
		if r != target && r.Server.MasterID == id {
			out = append(out, r)
		}
	}
	return out
}

func (m *Monitor) loadJournal() {
	payload, err := m.store.Load()
	if err != nil {
		log.Errorf("[monitor:%s] journal read failed err:%v", m.name, err)
		return
	}
	if payload == nil {
		return
	}

	err = journal.Decode(payload, func(name string, status uint64) {
		r := m.getRecord(name)
		if r == nil {
			log.Warnf("[monitor:%s] journal names unknown server %s", m.name, name)
			return
		}
		st := server.Status(status)
		r.prevStatus = st
		r.pendingStatus = st
		r.Server.AssignStatus(st)
	}, func(name string) {
		m.master = m.getRecord(name)
	})
	if err != nil {
		log.Errorf("[monitor:%s] journal decode failed err:%v", m.name, err)
		return
	}
	log.Noticef("[monitor:%s] loaded server states from journal %s", m.name, m.store.Path())
}

func (m *Monitor) saveJournal() {
	states := make([]journal.ServerState, len(m.servers))
	for i, r := range m.servers {
		states[i] = journal.ServerState{
			Name:   r.Server.Name,
			Status: uint64(r.Server.Status()),
		}
	}
	var master string
	if m.master != nil {
		master = m.master.Server.Name
	}

	if err := m.store.Save(journal.Encode(states, master)); err != nil {
		log.Errorf("[monitor:%s] journal write failed err:%v", m.name, err)
		return
	}
	mstats.JournalWrites.Inc()
}

// RemoveServerJournal deletes the on-disk journal. Admin-only, monitor
// must be stopped.
func (m *Monitor) RemoveServerJournal() error {
	if m.IsRunning() {
		return errn.ErrMonitorRunning
	}
	m.store.Remove()
	return nil
}
