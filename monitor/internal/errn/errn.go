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

package errn

import "errors"

var (
	ErrServerClaimed      = errors.New("err server is already monitored by another monitor")
	ErrUnknownServer      = errors.New("err server is not monitored by this monitor")
	ErrMonitorRunning     = errors.New("err monitor must be stopped first")
	ErrMonitorNotRunning  = errors.New("err monitor is not running")
	ErrBadStatusBit       = errors.New("err status bit cannot be modified")
	ErrBadEventName       = errors.New("err unknown event name")
	ErrBadDiskSpaceLimits = errors.New("err invalid disk space threshold")
	ErrScriptEmpty        = errors.New("err monitor script is empty")
)
