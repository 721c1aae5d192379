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

package probe

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-sql-driver/mysql"
)

const (
	errAccessDenied       = 1045
	errDBAccessDenied     = 1044
	errAccessDeniedNoPass = 1698

	errTableAccessDenied    = 1142
	errColumnAccessDenied   = 1143
	errSpecificAccessDenied = 1227
	errProcAccessDenied     = 1370
	errUnknownError         = 1095

	errUnknownTable = 1109
)

var ErrDiskInfoUnsupported = errors.New("server does not expose disk space information")

func mysqlErrno(err error) uint16 {
	var merr *mysql.MySQLError
	if errors.As(err, &merr) {
		return merr.Number
	}
	return 0
}

// IsAuthError reports the credential failure that maps to the
// AUTH_ERROR status bit.
func IsAuthError(err error) bool {
	return mysqlErrno(err) == errAccessDenied
}

// IsConnectAccessDenied classifies connect-phase permission failures.
func IsConnectAccessDenied(err error) bool {
	switch mysqlErrno(err) {
	case errAccessDenied, errDBAccessDenied, errAccessDeniedNoPass:
		return true
	}
	return false
}

// IsQueryAccessDenied classifies query-phase permission failures.
func IsQueryAccessDenied(err error) bool {
	switch mysqlErrno(err) {
	case errTableAccessDenied, errColumnAccessDenied, errSpecificAccessDenied,
		errProcAccessDenied, errUnknownError:
		return true
	}
	return false
}

// Disk is one mount point's capacity as reported by the backend.
type Disk struct {
	Path      string
	Total     int64
	Available int64
}

func (d Disk) UsedPercent() int32 {
	if d.Total <= 0 {
		return 0
	}
	return int32(100 - d.Available*100/d.Total)
}

// DiskInfo queries the backend's disk capacity table. Backends that do
// not carry the table get ErrDiskInfoUnsupported so callers can stop
// asking.
func DiskInfo(db *sql.DB, timeout time.Duration) ([]Disk, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	rows, err := db.QueryContext(ctx,
		"SELECT Path, Total, Available FROM information_schema.DISKS")
	if err != nil {
		if mysqlErrno(err) == errUnknownTable {
			return nil, ErrDiskInfoUnsupported
		}
		return nil, errors.Wrap(err, "query disk info")
	}
	defer rows.Close()

	var disks []Disk
	for rows.Next() {
		var d Disk
		if err := rows.Scan(&d.Path, &d.Total, &d.Available); err != nil {
			return nil, errors.Wrap(err, "scan disk info row")
		}
		disks = append(disks, d)
	}
	return disks, rows.Err()
}

// CheckPermissions runs the module's pre-flight query. Access denied
// on either connect or query is a permanent failure; everything else
// is tolerated as transient.
func CheckPermissions(db *sql.DB, query string, timeout time.Duration) (permanent bool, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return IsConnectAccessDenied(err) || IsQueryAccessDenied(err), err
	}
	rows.Close()
	return false, nil
}
