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
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/sqlbridge/sqlbridge/butils"
	"github.com/sqlbridge/sqlbridge/monitor/internal/log"

	"github.com/cockroachdb/errors"
)

const fileName = "monitor.dat"

// Store writes a monitor's journal with write-then-rename atomicity
// and skips the write entirely when the payload has not changed.
type Store struct {
	dir  string
	hash [sha1.Size]byte
}

func NewStore(dataDir, monitorName string) *Store {
	return &Store{dir: filepath.Join(dataDir, monitorName)}
}

func (s *Store) Path() string {
	return filepath.Join(s.dir, fileName)
}

// Save persists buf (a full Encode output). The unchanged-payload
// check hashes everything after the leading size word.
func (s *Store) Save(buf []byte) error {
	if len(buf) <= 4 {
		return ErrBadLength
	}
	sum := sha1.Sum(buf[4:])
	if sum == s.hash {
		return nil
	}

	if err := butils.DirCreate(s.dir); err != nil {
		return err
	}

	tmp := filepath.Join(s.dir, fmt.Sprintf("%s.%08x", fileName, rand.Uint32()))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return errors.Wrap(err, "create journal tempfile")
	}
	if _, err = f.Write(buf); err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "write journal tempfile")
	}

	if err := os.Rename(tmp, s.Path()); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "rename journal into place")
	}
	s.hash = sum
	return nil
}

// IsStale reports whether the journal on disk is older than maxAge.
// A missing file is not stale; it is simply absent.
func (s *Store) IsStale(maxAge time.Duration) bool {
	fi, err := os.Stat(s.Path())
	if err != nil {
		return false
	}
	return time.Since(fi.ModTime()) >= maxAge
}

// Load reads the journal payload (without the leading size word), or
// nil when no journal exists.
func (s *Store) Load() ([]byte, error) {
	f, err := os.Open(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "open journal")
	}
	defer f.Close()

	var head [4]byte
	if _, err := io.ReadFull(f, head[:]); err != nil {
		return nil, ErrShortLength
	}
	size := binary.BigEndian.Uint32(head[:])
	if size == 0 || size > 1<<20 {
		return nil, ErrBadLength
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(f, payload); err != nil {
		return nil, ErrShortPayload
	}
	return payload, nil
}

// Remove deletes the journal file and forgets the last written hash.
func (s *Store) Remove() {
	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		log.Errorf("[journal:%s] remove failed err:%v", s.Path(), err)
	}
	s.hash = [sha1.Size]byte{}
}
