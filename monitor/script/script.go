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

// Package script launches operator-defined reaction commands when a
// monitored server changes state.
package script

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/sqlbridge/sqlbridge/monitor/internal/errn"
	"github.com/sqlbridge/sqlbridge/monitor/internal/log"
	"github.com/sqlbridge/sqlbridge/monitor/internal/mstats"
)

// Placeholder tokens substituted into the command line before spawn.
const (
	TokenInitiator   = "$INITIATOR"
	TokenParent      = "$PARENT"
	TokenChildren    = "$CHILDREN"
	TokenEvent       = "$EVENT"
	TokenNodeList    = "$NODELIST"
	TokenList        = "$LIST"
	TokenMasterList  = "$MASTERLIST"
	TokenSlaveList   = "$SLAVELIST"
	TokenSyncedList  = "$SYNCEDLIST"
	TokenCredentials = "$CREDENTIALS"
)

// SpawnFailed is returned when the child process could not be started
// at all, as opposed to a nonzero exit the script itself reported.
const SpawnFailed = -1

type Invoker struct {
	Script  string
	Timeout time.Duration
}

// Tokenize splits a command line on whitespace, keeping double-quoted
// sections together with the quotes removed.
func Tokenize(s string) []string {
	var argv []string
	var cur strings.Builder
	inQuote := false
	flushed := true

	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			flushed = false
		case !inQuote && (r == ' ' || r == '\t'):
			if !flushed || cur.Len() > 0 {
				argv = append(argv, cur.String())
				cur.Reset()
				flushed = true
			}
		default:
			cur.WriteRune(r)
			flushed = false
		}
	}
	if !flushed || cur.Len() > 0 {
		argv = append(argv, cur.String())
	}
	return argv
}

// Substitute replaces placeholder tokens in each argument.
func Substitute(argv []string, repl map[string]string) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		for token, value := range repl {
			arg = strings.ReplaceAll(arg, token, value)
		}
		out[i] = arg
	}
	return out
}

// Run tokenizes, substitutes and executes the script, bounded by the
// invoker's timeout. The return value is the script's exit code, or
// SpawnFailed when the process could not be started. A script killed
// for exceeding the timeout has no exit code and also yields -1.
func (inv *Invoker) Run(repl map[string]string) int {
	if inv.Script == "" {
		log.Errorf("monitor script run requested err:%v", errn.ErrScriptEmpty)
		return SpawnFailed
	}

	argv := Substitute(Tokenize(inv.Script), repl)
	if len(argv) == 0 {
		log.Errorf("monitor script run requested err:%v", errn.ErrScriptEmpty)
		return SpawnFailed
	}
	cmdline := strings.Join(argv, " ")

	ctx := context.Background()
	var cancel context.CancelFunc
	if inv.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	mstats.ScriptRuns.Inc()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		mstats.ScriptFails.Inc()
		log.Errorf("[script:%q] spawn failed err:%v", cmdline, err)
		return SpawnFailed
	}

	err := cmd.Wait()
	if ctx.Err() == context.DeadlineExceeded {
		mstats.ScriptFails.Inc()
		log.Errorf("[script:%q] killed after exceeding timeout %v", cmdline, inv.Timeout)
		return cmd.ProcessState.ExitCode()
	}
	if err != nil {
		code := cmd.ProcessState.ExitCode()
		mstats.ScriptFails.Inc()
		log.Errorf("[script:%q] exited with code %d err:%v", cmdline, code, err)
		return code
	}

	log.Noticef("[script:%q] executed successfully", cmdline)
	return 0
}
