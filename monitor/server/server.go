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

// Package server holds the backend descriptor shared between the
// monitor worker and the admin surface. The status word is the only
// field that both of them write, so it is the only atomic one.
package server

import (
	"fmt"
	"time"

	"go.uber.org/atomic"
)

type Server struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Port    int    `json:"port"`
	Version string `json:"version"`

	// Replication topology as reported by the last successful probe.
	NodeID   int64 `json:"node_id"`
	MasterID int64 `json:"master_id"`

	// Per-server overrides for the monitor credentials. Empty means
	// use the monitor-level defaults.
	MonitorUser     string `json:"monitor_user,omitempty"`
	MonitorPassword string `json:"-"`

	// Path to max-used-percentage disk limits. Key "*" applies to
	// every path without its own entry.
	DiskSpaceLimits map[string]int32 `json:"disk_space_limits,omitempty"`

	LastEvent   string    `json:"last_event"`
	TriggeredAt time.Time `json:"triggered_at"`

	status atomic.Uint64
}

func New(name, address string, port int) *Server {
	return &Server{Name: name, Address: address, Port: port}
}

func (s *Server) Status() Status {
	return Status(s.status.Load())
}

func (s *Server) AssignStatus(st Status) {
	s.status.Store(uint64(st))
}

func (s *Server) SetStatusBits(bits Status) {
	for {
		old := s.status.Load()
		if s.status.CAS(old, old|uint64(bits)) {
			return
		}
	}
}

func (s *Server) ClearStatusBits(bits Status) {
	for {
		old := s.status.Load()
		if s.status.CAS(old, old&^uint64(bits)) {
			return
		}
	}
}

func (s *Server) IsDown() bool {
	return !s.Status().Test(Running)
}

func (s *Server) IsUsable() bool {
	st := s.Status()
	return st.Test(Running) && !st.Test(Maint|Draining)
}

func (s *Server) IsInCluster() bool {
	return s.Status().Test(RoleBits)
}

func (s *Server) IsInMaint() bool {
	return s.Status().Test(Maint)
}

func (s *Server) IsMaster() bool {
	return s.Status().Test(Master)
}

func (s *Server) IsSlave() bool {
	return s.Status().Test(Slave)
}

func (s *Server) HostPort() string {
	return fmt.Sprintf("[%s]:%d", s.Address, s.Port)
}
