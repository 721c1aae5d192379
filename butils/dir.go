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

package butils

import (
	"fmt"
	"os"
)

func DirCreate(path string) error {
	dirExists, err := IsPathExists(path)
	if err != nil {
		return fmt.Errorf("error checking if directory exists '%s': %w", path, err)
	}
	if !dirExists {
		err = os.MkdirAll(path, 0755)
		if err != nil {
			return fmt.Errorf("error creating directory '%s': %w", path, err)
		}
	}
	return nil
}

func IsPathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return true, err
}

func IsFileExist(name string) bool {
	if len(name) == 0 {
		return false
	}
	_, err := os.Stat(name)
	return err == nil || !os.IsNotExist(err)
}
