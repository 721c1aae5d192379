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

package log

import (
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

// Rotation schedules accepted by the log config. The configured path
// stays a symlink to the live file; rotated files carry the suffix.
const (
	MonthlyRotate = "Monthly"
	DailyRotate   = "Daily"
	HourlyRotate  = "Hourly"
)

// maxRotatedAge bounds how long rotated log files are kept on disk.
const maxRotatedAge = 14 * 24 * time.Hour

func CheckRotation(rotation string) bool {
	switch rotation {
	case MonthlyRotate, DailyRotate, HourlyRotate:
		return true
	}
	return false
}

// rotationSchedule resolves the filename suffix and period for a
// rotation name. Unknown names rotate hourly, the same fallback the
// config validation applies.
func rotationSchedule(rotation string) (string, time.Duration) {
	switch rotation {
	case MonthlyRotate:
		return ".%Y%m", 30 * 24 * time.Hour
	case DailyRotate:
		return ".%Y%m%d", 24 * time.Hour
	default:
		return ".%Y%m%d%H", time.Hour
	}
}

func getRotateLogs(path, rotation string) *rotatelogs.RotateLogs {
	suffix, period := rotationSchedule(rotation)
	rl, _ := rotatelogs.New(
		path+suffix,
		rotatelogs.WithLinkName(path),
		rotatelogs.WithMaxAge(maxRotatedAge),
		rotatelogs.WithRotationTime(period),
	)
	return rl
}
