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
	"github.com/sqlbridge/sqlbridge/monitor/event"
	"github.com/sqlbridge/sqlbridge/monitor/internal/config"
	"github.com/sqlbridge/sqlbridge/monitor/probe"
	"github.com/sqlbridge/sqlbridge/monitor/server"
)

// SettingsFromConfig translates the TOML monitor section into worker
// settings. The events list and disk-space thresholds are parsed here
// so a bad config fails before the monitor is constructed.
func SettingsFromConfig(mc *config.MonitorConfig) (Settings, error) {
	events, err := event.ParseList(mc.Events)
	if err != nil {
		return Settings{}, err
	}
	limits, err := ParseDiskSpaceThreshold(mc.DiskSpaceThreshold)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Interval: mc.Interval.Duration(),
		Probe: probe.Settings{
			Username:        mc.User,
			Password:        mc.Password,
			ConnectTimeout:  mc.ConnectTimeout.Duration(),
			ReadTimeout:     mc.ReadTimeout.Duration(),
			WriteTimeout:    mc.WriteTimeout.Duration(),
			ConnectAttempts: mc.ConnectAttempts,
		},
		JournalDir:             mc.JournalDir,
		JournalMaxAge:          mc.JournalMaxAge.Duration(),
		Script:                 mc.Script,
		ScriptTimeout:          mc.ScriptTimeout.Duration(),
		Events:                 events,
		DiskSpaceCheckInterval: mc.DiskSpaceCheckInterval.Duration(),
		DiskSpaceLimits:        limits,
	}, nil
}

// ServersFromConfig builds the server descriptors from the [[servers]]
// blocks. A per-server disk threshold overrides the monitor-wide one.
func ServersFromConfig(scs []config.ServerConfig) ([]*server.Server, error) {
	out := make([]*server.Server, 0, len(scs))
	for _, sc := range scs {
		srv := server.New(sc.Name, sc.Address, sc.Port)
		srv.MonitorUser = sc.MonitorUser
		srv.MonitorPassword = sc.MonitorPassword
		if sc.DiskSpaceThreshold != "" {
			limits, err := ParseDiskSpaceThreshold(sc.DiskSpaceThreshold)
			if err != nil {
				return nil, err
			}
			srv.DiskSpaceLimits = limits
		}
		out = append(out, srv)
	}
	return out, nil
}
