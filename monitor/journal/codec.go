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

// Package journal persists monitored server states across restarts.
//
// Record layout, big-endian:
//
//	[0..4)   payload_size  uint32, counts schema byte through CRC inclusive
//	[4]      schema_version uint8
//	[5..E)   entries
//	[E..E+4) crc32 over [4..E)
package journal

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/cockroachdb/errors"
)

const SchemaVersion uint8 = 2

const (
	entryServer uint8 = 1
	entryMaster uint8 = 2
)

var (
	ErrShortPayload = errors.New("journal payload shorter than advertised")
	ErrBadSchema    = errors.New("journal schema version mismatch")
	ErrBadChecksum  = errors.New("journal checksum mismatch")
	ErrCorruptEntry = errors.New("journal entry corrupt")
	ErrUnknownEntry = errors.New("journal entry type unknown")
	ErrShortLength  = errors.New("journal length header short read")
	ErrBadLength    = errors.New("journal length header invalid")
)

// ServerState is one SERVER entry: the name the monitor knows the
// backend by and its full status word at the time of the snapshot.
type ServerState struct {
	Name   string
	Status uint64
}

// Encode serializes the states plus an optional master name into a
// full journal buffer including the leading size word.
func Encode(states []ServerState, master string) []byte {
	payload := 1
	for _, s := range states {
		payload += 1 + len(s.Name) + 1 + 8
	}
	if master != "" {
		payload += 1 + len(master) + 1
	}
	payload += 4

	buf := make([]byte, 0, 4+payload)
	var scratch [8]byte

	binary.BigEndian.PutUint32(scratch[:4], uint32(payload))
	buf = append(buf, scratch[:4]...)
	buf = append(buf, SchemaVersion)

	for _, s := range states {
		buf = append(buf, entryServer)
		buf = append(buf, s.Name...)
		buf = append(buf, 0)
		binary.BigEndian.PutUint64(scratch[:], s.Status)
		buf = append(buf, scratch[:]...)
	}
	if master != "" {
		buf = append(buf, entryMaster)
		buf = append(buf, master...)
		buf = append(buf, 0)
	}

	crc := crc32.ChecksumIEEE(buf[4:])
	binary.BigEndian.PutUint32(scratch[:4], crc)
	buf = append(buf, scratch[:4]...)
	return buf
}

// Decode walks the payload (everything after the leading size word),
// invoking onServer for each SERVER entry and onMaster for a MASTER
// entry. Entries already delivered before an error stay delivered;
// callers treat the journal as a best-effort warm start.
func Decode(payload []byte, onServer func(name string, status uint64), onMaster func(name string)) error {
	if len(payload) < 1+4 {
		return ErrShortPayload
	}
	if payload[0] != SchemaVersion {
		return errors.Wrapf(ErrBadSchema, "got %d want %d", payload[0], SchemaVersion)
	}

	body := payload[1 : len(payload)-4]
	stored := binary.BigEndian.Uint32(payload[len(payload)-4:])
	if crc32.ChecksumIEEE(payload[:len(payload)-4]) != stored {
		return ErrBadChecksum
	}

	for len(body) > 0 {
		typ := body[0]
		body = body[1:]
		zero := bytes.IndexByte(body, 0)
		if zero < 0 {
			return ErrCorruptEntry
		}
		name := string(body[:zero])
		body = body[zero+1:]

		switch typ {
		case entryServer:
			if len(body) < 8 {
				return ErrCorruptEntry
			}
			onServer(name, binary.BigEndian.Uint64(body[:8]))
			body = body[8:]
		case entryMaster:
			onMaster(name)
		default:
			return errors.Wrapf(ErrUnknownEntry, "type %d", typ)
		}
	}
	return nil
}
