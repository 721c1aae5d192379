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

package event

import (
	"testing"

	"github.com/sqlbridge/sqlbridge/monitor/server"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		prev server.Status
		cur  server.Status
		want Type
	}{
		{"server up", 0, server.Running, ServerUp},
		{"master up", 0, server.Running | server.Master, MasterUp},
		{"slave up", 0, server.Running | server.Slave, SlaveUp},
		{"synced up", 0, server.Running | server.Joined, SyncedUp},
		{"server down", server.Running, 0, ServerDown},
		{"master down", server.Running | server.Master, 0, MasterDown},
		{"slave down", server.Running | server.Slave, 0, SlaveDown},
		{"synced down", server.Running | server.Joined, 0, SyncedDown},
		{"demoted master becomes new slave", server.Running | server.Master, server.Running | server.Slave, NewSlave},
		{"lost master to plain running", server.Running | server.Master, server.Running, LostMaster},
		{"lost slave", server.Running | server.Slave, server.Running, LostSlave},
		{"lost synced", server.Running | server.Joined, server.Running, LostSynced},
		{"new master", server.Running, server.Running | server.Master, NewMaster},
		{"new slave", server.Running, server.Running | server.Slave, NewSlave},
		{"new synced", server.Running, server.Running | server.Joined, NewSynced},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Classify(c.prev, c.cur))
		})
	}
}

func TestClassifyIgnoresUninterestingBits(t *testing.T) {
	prev := server.Running | server.AuthError
	cur := server.Running | server.Master | server.DiskSpaceExhausted
	assert.Equal(t, NewMaster, Classify(prev, cur))
}

func TestClassifyIdentity(t *testing.T) {
	s := server.Running | server.Slave
	assert.Equal(t, Undefined, Classify(s, s))
}

func TestEventNames(t *testing.T) {
	assert.Equal(t, "master_down", MasterDown.String())
	assert.Equal(t, "new_synced", NewSynced.String())
	assert.Equal(t, "undefined_event", Undefined.String())
}

func TestParseList(t *testing.T) {
	mask, err := ParseList("all")
	assert.NoError(t, err)
	assert.Equal(t, All, mask)

	mask, err = ParseList("")
	assert.NoError(t, err)
	assert.Equal(t, All, mask)

	mask, err = ParseList("master_down, server_down,new_master")
	assert.NoError(t, err)
	assert.Equal(t, MasterDown|ServerDown|NewMaster, mask)
	assert.True(t, mask&SlaveUp == 0)

	_, err = ParseList("master_down,bogus_event")
	assert.Error(t, err)
}
