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

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimRelease(t *testing.T) {
	reset()

	ok, owner := Claim("srv-a", "mon-1")
	assert.True(t, ok)
	assert.Equal(t, "mon-1", owner)
	assert.Equal(t, "mon-1", ClaimedBy("srv-a"))

	// Claiming again with the same monitor is a no-op.
	ok, owner = Claim("srv-a", "mon-1")
	assert.True(t, ok)
	assert.Equal(t, "mon-1", owner)

	ok, owner = Claim("srv-a", "mon-2")
	assert.False(t, ok)
	assert.Equal(t, "mon-1", owner)

	Release("srv-a", "mon-1")
	assert.Equal(t, "", ClaimedBy("srv-a"))

	ok, _ = Claim("srv-a", "mon-2")
	assert.True(t, ok)
	Release("srv-a", "mon-2")
}

func TestReleaseUnclaimed(t *testing.T) {
	reset()

	Release("srv-x", "mon-1")
	assert.Equal(t, "", ClaimedBy("srv-x"))

	Claim("srv-x", "mon-1")
	Release("srv-x", "mon-2")
	assert.Equal(t, "mon-1", ClaimedBy("srv-x"))
}
