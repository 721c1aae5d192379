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

// Package registry tracks which monitor owns which server. All calls
// must come from the admin goroutine that configures monitors; the map
// is deliberately unlocked.
package registry

import (
	"github.com/sqlbridge/sqlbridge/monitor/internal/log"
)

var owners = map[string]string{}

// Claim records monitor as the owner of server. If the server is
// already claimed by a different monitor, the claim fails and the
// current owner's name is returned.
func Claim(server, monitor string) (bool, string) {
	if owner, ok := owners[server]; ok && owner != monitor {
		return false, owner
	}
	owners[server] = monitor
	return true, monitor
}

// Release removes the ownership entry for server. Releasing an
// unclaimed server indicates a bookkeeping bug and is logged.
func Release(server, monitor string) {
	owner, ok := owners[server]
	if !ok {
		log.Errorf("[server:%s] release without claim by monitor %s", server, monitor)
		return
	}
	if owner != monitor {
		log.Errorf("[server:%s] release by monitor %s but owned by %s", server, monitor, owner)
		return
	}
	delete(owners, server)
}

// ClaimedBy returns the owning monitor's name, or "" when unclaimed.
func ClaimedBy(server string) string {
	return owners[server]
}

func reset() {
	owners = map[string]string{}
}
