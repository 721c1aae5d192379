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

// Package event maps status-word transitions of a monitored backend to
// the finite event taxonomy that reaction scripts subscribe to.
package event

import (
	"strings"

	"github.com/sqlbridge/sqlbridge/monitor/internal/errn"
	"github.com/sqlbridge/sqlbridge/monitor/server"
)

// Type is a bitmask so a monitor's subscription can be a single word.
type Type uint64

const Undefined Type = 0

const (
	MasterDown Type = 1 << iota
	MasterUp
	SlaveDown
	SlaveUp
	ServerDown
	ServerUp
	SyncedDown
	SyncedUp
	LostMaster
	LostSlave
	LostSynced
	NewMaster
	NewSlave
	NewSynced
)

const All = MasterDown | MasterUp | SlaveDown | SlaveUp |
	ServerDown | ServerUp | SyncedDown | SyncedUp |
	LostMaster | LostSlave | LostSynced |
	NewMaster | NewSlave | NewSynced

var names = map[Type]string{
	MasterDown: "master_down",
	MasterUp:   "master_up",
	SlaveDown:  "slave_down",
	SlaveUp:    "slave_up",
	ServerDown: "server_down",
	ServerUp:   "server_up",
	SyncedDown: "synced_down",
	SyncedUp:   "synced_up",
	LostMaster: "lost_master",
	LostSlave:  "lost_slave",
	LostSynced: "lost_synced",
	NewMaster:  "new_master",
	NewSlave:   "new_slave",
	NewSynced:  "new_synced",
}

func (t Type) String() string {
	if name, ok := names[t]; ok {
		return name
	}
	return "undefined_event"
}

// interestingBits are the status bits transitions are classified over.
const interestingBits = server.Running | server.Maint | server.Master | server.Slave | server.Joined

const roleTypeBits = server.Master | server.Slave | server.Joined

// Classify maps a status transition to its event tag. Callers must not
// invoke it for servers whose interesting bits did not change.
func Classify(prev, cur server.Status) Type {
	prev &= interestingBits
	cur &= interestingBits
	if prev == cur {
		return Undefined
	}

	if !prev.Test(server.Running) {
		if !cur.Test(server.Running) {
			return Undefined
		}
		switch {
		case cur.Test(server.Master):
			return MasterUp
		case cur.Test(server.Slave):
			return SlaveUp
		case cur.Test(server.Joined):
			return SyncedUp
		default:
			return ServerUp
		}
	}

	if !cur.Test(server.Running) {
		switch {
		case prev.Test(server.Master):
			return MasterDown
		case prev.Test(server.Slave):
			return SlaveDown
		case prev.Test(server.Joined):
			return SyncedDown
		default:
			return ServerDown
		}
	}

	// Still running. Loss when the server had a known role and either
	// dropped it or kept the same master/slave bits; otherwise the
	// server gained a role we did not know about.
	p := prev & (server.Master | server.Slave)
	n := cur & (server.Master | server.Slave)
	if (p == 0 || n == 0 || p == n) && prev.Test(roleTypeBits) {
		switch {
		case prev.Test(server.Master):
			return LostMaster
		case prev.Test(server.Slave):
			return LostSlave
		case prev.Test(server.Joined):
			return LostSynced
		}
		return Undefined
	}
	switch {
	case cur.Test(server.Master):
		return NewMaster
	case cur.Test(server.Slave):
		return NewSlave
	case cur.Test(server.Joined):
		return NewSynced
	}
	return Undefined
}

// ParseList converts a comma-separated subscription string ("all" or
// event names) into a mask.
func ParseList(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return All, nil
	}
	var mask Type
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		found := false
		for t, name := range names {
			if name == part {
				mask |= t
				found = true
				break
			}
		}
		if !found {
			return 0, errn.ErrBadEventName
		}
	}
	return mask, nil
}
