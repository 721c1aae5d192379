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

package journal

import (
	"encoding/binary"
	"hash/crc32"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	states := []ServerState{
		{Name: "srv-a", Status: 0x5},
		{Name: "srv-b", Status: 0x3},
	}
	buf := Encode(states, "srv-a")

	size := binary.BigEndian.Uint32(buf[:4])
	require.Equal(t, int(size), len(buf)-4)

	var got []ServerState
	var master string
	err := Decode(buf[4:], func(name string, status uint64) {
		got = append(got, ServerState{Name: name, Status: status})
	}, func(name string) {
		master = name
	})
	require.NoError(t, err)
	assert.Equal(t, states, got)
	assert.Equal(t, "srv-a", master)
}

func TestCodecNoMaster(t *testing.T) {
	buf := Encode([]ServerState{{Name: "only", Status: 1}}, "")
	master := "unset"
	err := Decode(buf[4:], func(string, uint64) {}, func(name string) { master = name })
	require.NoError(t, err)
	assert.Equal(t, "unset", master)
}

func TestCodecDeterministic(t *testing.T) {
	states := []ServerState{{Name: "srv-a", Status: 7}}
	assert.Equal(t, Encode(states, "srv-a"), Encode(states, "srv-a"))
}

func TestDecodeBadSchema(t *testing.T) {
	buf := Encode([]ServerState{{Name: "x", Status: 1}}, "")
	payload := buf[4:]
	payload[0] = 99
	err := Decode(payload, func(string, uint64) {}, func(string) {})
	assert.ErrorIs(t, err, ErrBadSchema)
}

func TestDecodeBadChecksum(t *testing.T) {
	buf := Encode([]ServerState{{Name: "x", Status: 1}}, "")
	payload := buf[4:]
	payload[len(payload)-1] ^= 0xff
	err := Decode(payload, func(string, uint64) {}, func(string) {})
	assert.ErrorIs(t, err, ErrBadChecksum)
}

func TestDecodePartialApplication(t *testing.T) {
	// Corrupt the second entry's type byte, then fix the CRC so only
	// the entry walk fails: the first entry must still be delivered.
	states := []ServerState{
		{Name: "good", Status: 1},
		{Name: "bad", Status: 2},
	}
	buf := Encode(states, "")
	payload := buf[4:]

	secondType := 1 + 1 + len("good") + 1 + 8
	payload[secondType] = 42
	crc := crc32.ChecksumIEEE(payload[:len(payload)-4])
	binary.BigEndian.PutUint32(payload[len(payload)-4:], crc)

	var applied []string
	err := Decode(payload, func(name string, _ uint64) {
		applied = append(applied, name)
	}, func(string) {})
	assert.ErrorIs(t, err, ErrUnknownEntry)
	assert.Equal(t, []string{"good"}, applied)
}

func TestStoreSaveLoad(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(dir, "mon-1")

	buf := Encode([]ServerState{{Name: "srv-a", Status: 5}}, "srv-a")
	require.NoError(t, st.Save(buf))

	payload, err := st.Load()
	require.NoError(t, err)
	require.NotNil(t, payload)

	var name string
	var status uint64
	require.NoError(t, Decode(payload, func(n string, s uint64) {
		name, status = n, s
	}, func(string) {}))
	assert.Equal(t, "srv-a", name)
	assert.Equal(t, uint64(5), status)
}

func TestStoreSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(dir, "mon-1")

	buf := Encode([]ServerState{{Name: "srv-a", Status: 5}}, "")
	require.NoError(t, st.Save(buf))

	fi1, err := os.Stat(st.Path())
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, st.Save(buf))
	fi2, err := os.Stat(st.Path())
	require.NoError(t, err)
	assert.Equal(t, fi1.ModTime(), fi2.ModTime())
}

func TestStoreStaleness(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(dir, "mon-1")

	assert.False(t, st.IsStale(time.Hour))

	buf := Encode([]ServerState{{Name: "srv-a", Status: 1}}, "")
	require.NoError(t, st.Save(buf))
	assert.False(t, st.IsStale(time.Hour))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(st.Path(), old, old))
	assert.True(t, st.IsStale(time.Hour))
}

func TestStoreLoadMissing(t *testing.T) {
	st := NewStore(t.TempDir(), "mon-1")
	payload, err := st.Load()
	assert.NoError(t, err)
	assert.Nil(t, payload)
}

func TestStoreRemove(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(dir, "mon-1")
	buf := Encode([]ServerState{{Name: "srv-a", Status: 1}}, "")
	require.NoError(t, st.Save(buf))

	st.Remove()
	_, err := os.Stat(st.Path())
	assert.True(t, os.IsNotExist(err))

	// After Remove the hash is forgotten, so an identical Save writes.
	require.NoError(t, st.Save(buf))
	_, err = os.Stat(st.Path())
	assert.NoError(t, err)
}
