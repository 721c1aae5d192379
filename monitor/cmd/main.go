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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/sqlbridge/sqlbridge/monitor/internal/config"
	"github.com/sqlbridge/sqlbridge/monitor/internal/log"
	"github.com/sqlbridge/sqlbridge/monitor/monitor"

	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.String("config", "", "")
	pidFile := pflag.String("pidfile", "", "")
	pflag.Parse()

	cfg := config.NewDefaultConfig()
	if *configPath != "" {
		if err := cfg.LoadFromFile(*configPath); err != nil {
			panic(fmt.Sprintf("load config failed err:%s", err.Error()))
		}
	}
	if *pidFile != "" {
		cfg.Pidfile = *pidFile
	}

	initLogger(cfg)

	sett, err := monitor.SettingsFromConfig(&cfg.Monitor)
	if err != nil {
		log.Fatalf("parse monitor settings failed err:%s", err.Error())
	}
	servers, err := monitor.ServersFromConfig(cfg.Servers)
	if err != nil {
		log.Fatalf("parse server list failed err:%s", err.Error())
	}

	m := monitor.New(cfg.Monitor.Name, cfg.Monitor.Module, sett, nil, nil)
	if err := m.Configure(servers); err != nil {
		log.Fatalf("configure monitor failed err:%s", err.Error())
	}

	log.Infof("create monitor with config\n%s", cfg)

	if cfg.Pidfile != "" {
		if pidfile, err := filepath.Abs(cfg.Pidfile); err != nil {
			log.Warnf("parse pidfile:%s failed err:%s", pidfile, err.Error())
		} else if err := os.WriteFile(pidfile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
			log.Warnf("write pidfile:%s failed err:%s", pidfile, err.Error())
		} else {
			defer func() {
				if err := os.Remove(pidfile); err != nil {
					log.Warnf("remove pidfile:%s failed err:%s", pidfile, err.Error())
				}
			}()
			log.Infof("option --pidfile = %s", pidfile)
		}
	}

	if err := m.Start(); err != nil {
		log.Fatalf("start monitor failed err:%s", err.Error())
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	log.Info("monitor is closing ...")
	m.Deactivate()
	log.CloseLog()
	log.Info("monitor is closed ...")
}

func initLogger(cfg *config.Config) {
	opts := &log.Options{
		IsDebug:      cfg.Log.IsDebug,
		RotationTime: cfg.Log.RotationTime,
		LogFile:      cfg.Log.LogFile,
	}
	log.NewLogger(opts)
}
