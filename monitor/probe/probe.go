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

// Package probe opens and checks connections to monitored MySQL
// backends.
package probe

import (
	"context"
	"database/sql"
	"net"
	"strconv"
	"time"

	"github.com/sqlbridge/sqlbridge/monitor/server"

	"github.com/cockroachdb/errors"
	"github.com/go-sql-driver/mysql"
)

type Result int

const (
	ExistingOK Result = iota
	NewOK
	Refused
	Timeout
)

func (r Result) String() string {
	switch r {
	case ExistingOK:
		return "existing_ok"
	case NewOK:
		return "new_ok"
	case Refused:
		return "refused"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ConnectionIsOK reports whether the probe left a usable connection.
func ConnectionIsOK(r Result) bool {
	return r == ExistingOK || r == NewOK
}

// Settings carries the monitor-wide connection parameters. Decrypt is
// applied to whichever password is selected; a nil Decrypt uses the
// password as-is.
type Settings struct {
	Username        string
	Password        string
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ConnectAttempts int
	Decrypt         func(string) (string, error)
}

func (s *Settings) credentials(srv *server.Server) (string, string, error) {
	user, pass := s.Username, s.Password
	if srv.MonitorUser != "" {
		user, pass = srv.MonitorUser, srv.MonitorPassword
	}
	if s.Decrypt != nil {
		plain, err := s.Decrypt(pass)
		if err != nil {
			return "", "", errors.Wrap(err, "decrypt monitor password")
		}
		pass = plain
	}
	return user, pass, nil
}

// PingOrConnect probes srv. A live handle is pinged first; on success
// the handle is reused. Otherwise a new connection is attempted up to
// ConnectAttempts times. The returned handle replaces the caller's.
func PingOrConnect(sett *Settings, srv *server.Server, db *sql.DB) (Result, *sql.DB, error) {
	if db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), sett.ReadTimeout)
		err := db.PingContext(ctx)
		cancel()
		if err == nil {
			return ExistingOK, db, nil
		}
		db.Close()
	}

	user, pass, err := sett.credentials(srv)
	if err != nil {
		return Refused, nil, err
	}

	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(srv.Address, strconv.Itoa(srv.Port))
	cfg.Timeout = sett.ConnectTimeout
	cfg.ReadTimeout = sett.ReadTimeout
	cfg.WriteTimeout = sett.WriteTimeout

	attempts := sett.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}

	start := time.Now()
	var lastErr error
	for i := 0; i < attempts; i++ {
		conn, err := mysql.NewConnector(cfg)
		if err != nil {
			lastErr = err
			continue
		}
		fresh := sql.OpenDB(conn)
		fresh.SetMaxOpenConns(1)

		ctx, cancel := context.WithTimeout(context.Background(), sett.ConnectTimeout)
		err = fresh.PingContext(ctx)
		cancel()
		if err == nil {
			return NewOK, fresh, nil
		}
		fresh.Close()
		lastErr = err
	}

	if time.Since(start) >= sett.ConnectTimeout {
		return Timeout, nil, lastErr
	}
	return Refused, nil, lastErr
}
