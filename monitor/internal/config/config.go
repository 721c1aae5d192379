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

package config

import (
	"bytes"
	"errors"
	"time"

	"github.com/sqlbridge/sqlbridge/butils/timesize"
	"github.com/sqlbridge/sqlbridge/monitor/internal/log"

	"github.com/BurntSushi/toml"
)

const DefaultConfig = `
product_name = "sqlbridge-demo"

[log]
is_debug = false
rotation_time = "Hourly"
log_file = "/tmp/monitor.log"

[monitor]
name = "default-monitor"
module = "mariadbmon"
user = "monitor"
password = ""
monitor_interval = "2s"
backend_connect_timeout = "3s"
backend_read_timeout = "3s"
backend_write_timeout = "3s"
backend_connect_attempts = 1
journal_dir = "/tmp/sqlbridge/monitor"
journal_max_age = "28800s"
disk_space_threshold = ""
disk_space_check_interval = "0s"
script = ""
script_timeout = "90s"
events = "all"
`

type LogConfig struct {
	IsDebug      bool   `toml:"is_debug" json:"is_debug"`
	RotationTime string `toml:"rotation_time" json:"rotation_time"`
	LogFile      string `toml:"log_file" json:"log_file"`
}

func (l LogConfig) Validate() error {
	if l.LogFile == "" {
		return errors.New("invalid log_file")
	}
	return nil
}

type ServerConfig struct {
	Name               string `toml:"name" json:"name"`
	Address            string `toml:"address" json:"address"`
	Port               int    `toml:"port" json:"port"`
	MonitorUser        string `toml:"monitor_user" json:"monitor_user"`
	MonitorPassword    string `toml:"monitor_password" json:"-"`
	DiskSpaceThreshold string `toml:"disk_space_threshold" json:"disk_space_threshold"`
}

func (s ServerConfig) Validate() error {
	if s.Name == "" {
		return errors.New("invalid server name")
	}
	if s.Address == "" {
		return errors.New("invalid server address")
	}
	if s.Port <= 0 || s.Port > 65535 {
		return errors.New("invalid server port")
	}
	return nil
}

type MonitorConfig struct {
	Name                   string            `toml:"name" json:"name"`
	Module                 string            `toml:"module" json:"module"`
	User                   string            `toml:"user" json:"user"`
	Password               string            `toml:"password" json:"-"`
	Interval               timesize.Duration `toml:"monitor_interval" json:"monitor_interval"`
	ConnectTimeout         timesize.Duration `toml:"backend_connect_timeout" json:"backend_connect_timeout"`
	ReadTimeout            timesize.Duration `toml:"backend_read_timeout" json:"backend_read_timeout"`
	WriteTimeout           timesize.Duration `toml:"backend_write_timeout" json:"backend_write_timeout"`
	ConnectAttempts        int               `toml:"backend_connect_attempts" json:"backend_connect_attempts"`
	JournalDir             string            `toml:"journal_dir" json:"journal_dir"`
	JournalMaxAge          timesize.Duration `toml:"journal_max_age" json:"journal_max_age"`
	DiskSpaceThreshold     string            `toml:"disk_space_threshold" json:"disk_space_threshold"`
	DiskSpaceCheckInterval timesize.Duration `toml:"disk_space_check_interval" json:"disk_space_check_interval"`
	Script                 string            `toml:"script" json:"script"`
	ScriptTimeout          timesize.Duration `toml:"script_timeout" json:"script_timeout"`
	Events                 string            `toml:"events" json:"events"`
}

func (m *MonitorConfig) Validate() error {
	if m.Name == "" {
		return errors.New("invalid monitor name")
	}
	if m.User == "" {
		return errors.New("invalid monitor user")
	}
	if m.Interval.Duration() <= 0 {
		m.Interval = timesize.Duration(2 * time.Second)
	}
	if m.ConnectTimeout.Duration() <= 0 {
		m.ConnectTimeout = timesize.Duration(3 * time.Second)
	}
	if m.ReadTimeout.Duration() <= 0 {
		m.ReadTimeout = timesize.Duration(3 * time.Second)
	}
	if m.WriteTimeout.Duration() <= 0 {
		m.WriteTimeout = timesize.Duration(3 * time.Second)
	}
	if m.ConnectAttempts <= 0 {
		m.ConnectAttempts = 1
	}
	if m.JournalMaxAge.Duration() <= 0 {
		m.JournalMaxAge = timesize.Duration(28800 * time.Second)
	}
	if m.ScriptTimeout.Duration() <= 0 {
		m.ScriptTimeout = timesize.Duration(90 * time.Second)
	}
	if m.DiskSpaceCheckInterval.Duration() < 0 {
		return errors.New("invalid disk_space_check_interval")
	}
	if m.Events == "" {
		m.Events = "all"
	}
	return nil
}

type Config struct {
	ProductName string         `toml:"product_name" json:"product_name"`
	Pidfile     string         `toml:"pidfile" json:"pidfile"`
	Log         LogConfig      `toml:"log" json:"log"`
	Monitor     MonitorConfig  `toml:"monitor" json:"monitor"`
	Servers     []ServerConfig `toml:"servers" json:"servers"`
}

func NewDefaultConfig() *Config {
	c := &Config{}
	if _, err := toml.Decode(DefaultConfig, c); err != nil {
		log.Fatalf("config decode toml failed err:%s", err.Error())
	}
	if err := c.Validate(); err != nil {
		log.Fatalf("config validate failed err:%s", err.Error())
	}
	return c
}

func (c *Config) LoadFromFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return err
	}
	return c.Validate()
}

func (c *Config) String() string {
	var b bytes.Buffer
	e := toml.NewEncoder(&b)
	e.Indent = "    "
	e.Encode(c)
	return b.String()
}

func (c *Config) Validate() error {
	if c.ProductName == "" {
		return errors.New("invalid product_name")
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if !log.CheckRotation(c.Log.RotationTime) {
		c.Log.RotationTime = log.HourlyRotate
	}
	if err := c.Monitor.Validate(); err != nil {
		return err
	}
	for _, s := range c.Servers {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
