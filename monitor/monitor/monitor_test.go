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
	"testing"
	"time"

	"github.com/sqlbridge/sqlbridge/monitor/event"
	"github.com/sqlbridge/sqlbridge/monitor/internal/errn"
	"github.com/sqlbridge/sqlbridge/monitor/probe"
	"github.com/sqlbridge/sqlbridge/monitor/server"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okProber(*probe.Settings, *server.Server, *sql.DB) (probe.Result, *sql.DB, error) {
	return probe.NewOK, nil, nil
}

func failProber(*probe.Settings, *server.Server, *sql.DB) (probe.Result, *sql.DB, error) {
	return probe.Refused, nil, errors.New("connection refused")
}

func newTestMonitor(t *testing.T, name string) *Monitor {
	t.Helper()
	m := New(name, "mariadbmon", Settings{
		Interval:   time.Second,
		JournalDir: t.TempDir(),
		Events:     event.All,
	}, nil, nil)
	m.prober = okProber
	t.Cleanup(m.Deactivate)
	return m
}

func TestAddServerOwnershipConflict(t *testing.T) {
	m1 := newTestMonitor(t, "mon-conflict-a")
	m2 := newTestMonitor(t, "mon-conflict-b")

	srv := server.New("conflict-srv", "10.0.0.1", 3306)
	require.NoError(t, m1.AddServer(srv))

	err := m2.AddServer(srv)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errn.ErrServerClaimed))
	assert.Contains(t, err.Error(), "mon-conflict-a")
	assert.Empty(t, m2.Servers())
}

func TestConfigureReportsFirstConflict(t *testing.T) {
	m1 := newTestMonitor(t, "mon-cfg-a")
	m2 := newTestMonitor(t, "mon-cfg-b")

	claimed := server.New("cfg-claimed", "10.0.0.1", 3306)
	free := server.New("cfg-free", "10.0.0.2", 3306)
	require.NoError(t, m1.AddServer(claimed))

	err := m2.Configure([]*server.Server{claimed, free})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errn.ErrServerClaimed))

	// The conflict-free server still joined.
	require.Len(t, m2.Servers(), 1)
	assert.Equal(t, "cfg-free", m2.Servers()[0].Name)
}

func TestGetServerMonitor(t *testing.T) {
	m := newTestMonitor(t, "mon-lookup")
	srv := server.New("lookup-srv", "10.0.0.1", 3306)
	require.NoError(t, m.AddServer(srv))

	assert.Same(t, m, GetServerMonitor(srv))
	assert.Nil(t, GetServerMonitor(server.New("unclaimed", "10.0.0.9", 3306)))
}

func TestStartStopTicks(t *testing.T) {
	m := newTestMonitor(t, "mon-ticks")
	m.settings.Interval = 10 * time.Millisecond
	require.NoError(t, m.AddServer(server.New("tick-srv", "10.0.0.1", 3306)))

	require.NoError(t, m.Start())
	assert.True(t, m.IsRunning())
	assert.Equal(t, "Running", m.StateString())
	assert.Error(t, m.Start())

	assert.Eventually(t, func() bool { return m.Ticks() >= 2 },
		5*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Stop())
	assert.False(t, m.IsRunning())
	assert.Equal(t, "Stopped", m.StateString())
	assert.Error(t, m.Stop())
}

func TestTickMarksServerRunning(t *testing.T) {
	m := newTestMonitor(t, "mon-up")
	srv := server.New("up-srv", "10.0.0.1", 3306)
	require.NoError(t, m.AddServer(srv))

	m.tick()
	assert.True(t, srv.Status().Test(server.Running))
	assert.False(t, srv.IsDown())
}

func TestTickStateChangeFlow(t *testing.T) {
	m := newTestMonitor(t, "mon-flow")
	srv := server.New("flow-srv", "10.0.0.1", 3306)
	require.NoError(t, m.AddServer(srv))

	m.tick()
	require.True(t, srv.Status().Test(server.Running))
	assert.Equal(t, event.ServerUp.String(), srv.LastEvent)

	m.prober = failProber
	m.tick()
	assert.True(t, srv.IsDown())
	assert.Equal(t, event.ServerDown.String(), srv.LastEvent)
}

func TestTickFailurePreservesWasMaster(t *testing.T) {
	m := newTestMonitor(t, "mon-wasmaster")
	m.prober = failProber
	srv := server.New("wm-srv", "10.0.0.1", 3306)
	require.NoError(t, m.AddServer(srv))
	srv.AssignStatus(server.Running | server.Master | server.WasMaster)

	m.tick()
	assert.True(t, srv.IsDown())
	assert.True(t, srv.Status().Test(server.WasMaster))
	assert.False(t, srv.Status().Test(server.Master))
}

func TestMaintenanceRequestAppliedOnTick(t *testing.T) {
	m := newTestMonitor(t, "mon-maint")
	srv := server.New("maint-srv", "10.0.0.1", 3306)
	require.NoError(t, m.AddServer(srv))

	probes := 0
	m.prober = func(*probe.Settings, *server.Server, *sql.DB) (probe.Result, *sql.DB, error) {
		probes++
		return probe.NewOK, nil, nil
	}

	m.state.Store(StateRunning)
	require.NoError(t, m.SetServerStatus("maint-srv", server.Maint))
	assert.True(t, m.statusChangePending.Load())

	m.tick()
	assert.True(t, srv.IsInMaint())
	assert.Zero(t, probes, "server in maintenance must not be probed")

	require.NoError(t, m.ClearServerStatus("maint-srv", server.Maint))
	m.tick()
	assert.False(t, srv.IsInMaint())
	assert.Equal(t, 1, probes)
	m.state.Store(StateStopped)
}

func TestSetServerStatusRejectsOtherBitsWhileRunning(t *testing.T) {
	m := newTestMonitor(t, "mon-reject")
	require.NoError(t, m.AddServer(server.New("reject-srv", "10.0.0.1", 3306)))

	m.state.Store(StateRunning)
	err := m.SetServerStatus("reject-srv", server.Master)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errn.ErrBadStatusBit))
	m.state.Store(StateStopped)
}

func TestSetServerStatusDirectWhenStopped(t *testing.T) {
	m := newTestMonitor(t, "mon-direct")
	srv := server.New("direct-srv", "10.0.0.1", 3306)
	require.NoError(t, m.AddServer(srv))

	require.NoError(t, m.SetServerStatus("direct-srv", server.Running|server.Master))
	assert.True(t, srv.IsMaster())
	require.NoError(t, m.ClearServerStatus("direct-srv", server.Master))
	assert.False(t, srv.IsMaster())
}

func TestSetServerStatusUnknownServer(t *testing.T) {
	m := newTestMonitor(t, "mon-unknown")
	err := m.SetServerStatus("no-such-server", server.Maint)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errn.ErrUnknownServer))
}

func TestJournalWarmStart(t *testing.T) {
	dir := t.TempDir()
	sett := Settings{Interval: time.Second, JournalDir: dir, Events: event.All}

	m1 := New("mon-warm", "mariadbmon", sett, nil, nil)
	m1.prober = okProber
	srv1 := server.New("warm-srv", "10.0.0.1", 3306)
	require.NoError(t, m1.AddServer(srv1))
	srv1.AssignStatus(server.Running | server.Master)
	m1.master = m1.servers[0]
	m1.saveJournal()
	m1.Deactivate()

	m2 := New("mon-warm", "mariadbmon", sett, nil, nil)
	m2.prober = okProber
	defer m2.Deactivate()
	srv2 := server.New("warm-srv", "10.0.0.1", 3306)
	require.NoError(t, m2.AddServer(srv2))

	m2.loadJournal()
	assert.Equal(t, server.Running|server.Master, srv2.Status())
	require.NotNil(t, m2.master)
	assert.Same(t, srv2, m2.master.Server)
}

func TestRemoveServerJournal(t *testing.T) {
	m := newTestMonitor(t, "mon-rmjournal")
	require.NoError(t, m.AddServer(server.New("rm-srv", "10.0.0.1", 3306)))
	m.saveJournal()
	require.NoError(t, m.RemoveServerJournal())

	payload, err := m.store.Load()
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestServiceNotifications(t *testing.T) {
	svc := &recordingService{}
	m := New("mon-svc", "mariadbmon", Settings{
		Interval:   time.Second,
		JournalDir: t.TempDir(),
	}, nil, svc)
	m.prober = failProber
	defer m.Deactivate()

	srv := server.New("svc-srv", "10.0.0.1", 3306)
	require.NoError(t, m.AddServer(srv))
	assert.Equal(t, []string{"svc-srv"}, svc.added)

	srv.AssignStatus(server.Running | server.Slave)
	m.tick()
	assert.Equal(t, []string{"svc-srv"}, svc.hangups, "failed server must be hung up")

	m.RemoveAllServers()
	assert.Equal(t, []string{"svc-srv"}, svc.removed)
}

type recordingService struct {
	added   []string
	removed []string
	hangups []string
}

func (s *recordingService) ServerAdded(_ string, srv *server.Server) {
	s.added = append(s.added, srv.Name)
}

func (s *recordingService) ServerRemoved(_ string, srv *server.Server) {
	s.removed = append(s.removed, srv.Name)
}

func (s *recordingService) HangupServer(srv *server.Server) {
	s.hangups = append(s.hangups, srv.Name)
}

func TestTopologyHelpers(t *testing.T) {
	m := newTestMonitor(t, "mon-topology")
	master := server.New("topo-master", "10.0.0.1", 3306)
	master.NodeID = 1
	slaveA := server.New("topo-slave-a", "10.0.0.2", 3306)
	slaveA.NodeID = 2
	slaveA.MasterID = 1
	slaveB := server.New("topo-slave-b", "10.0.0.3", 3306)
	slaveB.NodeID = 3
	slaveB.MasterID = 1
	require.NoError(t, m.Configure([]*server.Server{master, slaveA, slaveB}))

	parent := m.findParentNode(m.getRecord("topo-slave-a"))
	require.NotNil(t, parent)
	assert.Same(t, master, parent.Server)
	assert.Nil(t, m.findParentNode(m.getRecord("topo-master")))

	children := m.childNodes(m.getRecord("topo-master"))
	require.Len(t, children, 2)
	assert.Same(t, slaveA, children[0].Server)
	assert.Same(t, slaveB, children[1].Server)
}

func TestAppendNodeNames(t *testing.T) {
	m := newTestMonitor(t, "mon-names")
	m.settings.Probe.Username = "monuser"
	m.settings.Probe.Password = "monpass"

	a := server.New("name-a", "10.0.0.1", 3306)
	a.AssignStatus(server.Running | server.Master)
	b := server.New("name-b", "10.0.0.2", 3307)
	b.AssignStatus(server.Running | server.Slave)
	b.MonitorUser = "other"
	b.MonitorPassword = "secret"
	require.NoError(t, m.Configure([]*server.Server{a, b}))

	assert.Equal(t, "[10.0.0.1]:3306,[10.0.0.2]:3307", m.appendNodeNames(0, false))
	assert.Equal(t, "[10.0.0.1]:3306", m.appendNodeNames(server.Master, false))
	assert.Equal(t, "monuser:monpass@[10.0.0.1]:3306,other:secret@[10.0.0.2]:3307",
		m.appendNodeNames(0, true))
}

func TestToJSONAndShow(t *testing.T) {
	m := newTestMonitor(t, "mon-render")
	srv := server.New("render-srv", "10.0.0.1", 3306)
	srv.AssignStatus(server.Running)
	require.NoError(t, m.AddServer(srv))

	js := string(m.ToJSON())
	assert.Contains(t, js, `"name":"mon-render"`)
	assert.Contains(t, js, `"render-srv"`)
	assert.Contains(t, js, `"Running"`)

	show := m.Show()
	assert.Contains(t, show, "mon-render")
	assert.Contains(t, show, "render-srv[10.0.0.1:3306]")
	assert.Contains(t, show, "Running")
}
