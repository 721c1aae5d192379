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
	"testing"
	"time"

	"github.com/sqlbridge/sqlbridge/monitor/internal/errn"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDiskSpaceThreshold(t *testing.T) {
	limits, err := ParseDiskSpaceThreshold("/data:80,*:90")
	require.NoError(t, err)
	assert.Equal(t, map[string]int32{"/data": 80, "*": 90}, limits)

	limits, err = ParseDiskSpaceThreshold(" /var/lib/mysql : 75 ")
	require.NoError(t, err)
	assert.Equal(t, map[string]int32{"/var/lib/mysql": 75}, limits)

	limits, err = ParseDiskSpaceThreshold("")
	require.NoError(t, err)
	assert.Nil(t, limits)

	for _, bad := range []string{
		"/data",
		"/data:",
		":80",
		"/data:0",
		"/data:101",
		"/data:abc",
		"/data:80,,",
	} {
		_, err := ParseDiskSpaceThreshold(bad)
		require.Error(t, err, "input %q", bad)
		assert.True(t, errors.Is(err, errn.ErrBadDiskSpaceLimits), "input %q", bad)
	}
}

func TestCheckDiskSpaceThisTick(t *testing.T) {
	m := newTestMonitor(t, "mon-disk")

	assert.False(t, m.checkDiskSpaceThisTick(), "zero interval disables the check")

	m.settings.DiskSpaceCheckInterval = time.Hour
	assert.True(t, m.checkDiskSpaceThisTick(), "first armed tick checks")
	assert.False(t, m.checkDiskSpaceThisTick(), "deadline not yet expired")

	m.diskSpaceChecked = time.Now().Add(-2 * time.Hour)
	assert.True(t, m.checkDiskSpaceThisTick())
}
