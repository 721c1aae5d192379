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
	"strconv"
	"strings"
	"time"

	"github.com/sqlbridge/sqlbridge/monitor/internal/errn"
	"github.com/sqlbridge/sqlbridge/monitor/internal/log"
	"github.com/sqlbridge/sqlbridge/monitor/probe"
	"github.com/sqlbridge/sqlbridge/monitor/server"

	"github.com/cockroachdb/errors"
)

// checkDiskSpaceThisTick rearms the disk-space deadline. A zero
// interval disables the check entirely.
func (m *Monitor) checkDiskSpaceThisTick() bool {
	if m.settings.DiskSpaceCheckInterval <= 0 {
		return false
	}
	if time.Since(m.diskSpaceChecked) < m.settings.DiskSpaceCheckInterval {
		return false
	}
	m.diskSpaceChecked = time.Now()
	return true
}

// updateDiskSpaceStatus queries the server's volume usage and sets or
// clears the disk-exhausted bit on the pending status. Server-specific
// limits override the monitor-wide ones; the "*" entry applies to any
// mount path without its own limit.
func (m *Monitor) updateDiskSpaceStatus(r *Record) {
	limits := r.monitorLimits
	if len(r.Server.DiskSpaceLimits) > 0 {
		limits = r.Server.DiskSpaceLimits
	}
	if len(limits) == 0 {
		return
	}

	disks, err := probe.DiskInfo(r.conn, m.settings.Probe.ReadTimeout)
	if err != nil {
		if errors.Is(err, probe.ErrDiskInfoUnsupported) {
			// Fires once; the flag stays down for the record's lifetime.
			r.diskSpaceCheckable = false
			log.Errorf("[monitor:%s] disk space cannot be monitored on %s[%s:%d]: "+
				"information_schema.DISKS is not supported on version %s",
				m.name, r.Server.Name, r.Server.Address, r.Server.Port, r.Server.Version)
			return
		}
		log.Errorf("[monitor:%s] failed to read disk info from %s[%s:%d] err:%v",
			m.name, r.Server.Name, r.Server.Address, r.Server.Port, err)
		return
	}

	exhausted := false
	for _, d := range disks {
		limit, ok := limits[d.Path]
		if !ok {
			limit, ok = limits["*"]
		}
		if !ok || limit <= 0 {
			continue
		}
		used := d.UsedPercent()
		if used >= limit {
			exhausted = true
			if !r.Server.Status().Test(server.DiskSpaceExhausted) {
				log.Warnf("[monitor:%s] server %s[%s:%d] is low on disk space on volume %s: "+
					"%d%% of space in use, limit is %d%%",
					m.name, r.Server.Name, r.Server.Address, r.Server.Port, d.Path, used, limit)
			}
		}
	}

	if exhausted {
		r.SetPending(server.DiskSpaceExhausted)
	} else {
		r.ClearPending(server.DiskSpaceExhausted)
	}
}

// ParseDiskSpaceThreshold parses a "path:percentage" list, e.g.
// "/data:80,*:90". The percentage must fall in (0,100].
func ParseDiskSpaceThreshold(s string) (map[string]int32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	out := map[string]int32{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		idx := strings.LastIndex(part, ":")
		if idx <= 0 || idx == len(part)-1 {
			return nil, errors.Wrapf(errn.ErrBadDiskSpaceLimits, "entry %q", part)
		}
		path := strings.TrimSpace(part[:idx])
		pct, err := strconv.ParseInt(strings.TrimSpace(part[idx+1:]), 10, 32)
		if err != nil || pct <= 0 || pct > 100 {
			return nil, errors.Wrapf(errn.ErrBadDiskSpaceLimits, "entry %q", part)
		}
		out[path] = int32(pct)
	}
	return out, nil
}
