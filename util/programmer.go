// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"bytes"
	"fmt"
	"os"

	"github.com/fmchub/fru"

	"github.com/golang/glog"
)

// Writes an image to the EEPROM and, with verify set, reads it back and compares.
func ProgramImage(mem *fru.Memory, data []byte, verify bool, progress fru.ProgressFunc) error {
	var err error
	glog.Info("Programming EEPROM")
	if err = fru.Upload(mem, data, progress); err != nil {
		return fmt.Errorf("Failed to write EEPROM: %w", err)
	}
	if !verify {
		glog.Info("EEPROM programmed")
		return nil
	}
	glog.Info("Verifying contents")
	out := make([]byte, len(data))
	if _, err = mem.NewMemoryReader(0).Read(out); err != nil {
		return fmt.Errorf("Failed to read EEPROM contents: %w", err)
	}
	if i := mismatch(data, out); i >= 0 {
		return fmt.Errorf("%w: first difference at %#04x (%#02x != %#02x)", fru.ErrVerify, i, out[i], data[i])
	}
	glog.Info("EEPROM programmed and verified")
	return nil
}

func mismatch(a, b []byte) int {
	if bytes.Equal(a, b) {
		return -1
	}
	for i := range a {
		if a[i] != b[i] {
			return i
		}
	}
	return len(a)
}

// ProgramFile loads filename and writes it to the EEPROM.
func ProgramFile(mem *fru.Memory, filename string, verify bool, progress fru.ProgressFunc) error {
	data, err := LoadImage(filename)
	if err != nil {
		return err
	}
	glog.V(1).Infof("Loaded %d bytes from %v", len(data), filename)
	return ProgramImage(mem, data, verify, progress)
}

// DumpFile downloads the EEPROM into filename. A failed download leaves
// the bytes read so far in a raw file.
func DumpFile(mem *fru.Memory, filename string, progress fru.ProgressFunc) error {
	if isIntelHex(filename) {
		var buf bytes.Buffer
		if _, err := fru.Download(mem, &buf, progress); err != nil {
			return err
		}
		return SaveImage(filename, buf.Bytes())
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("%w: %v", fru.ErrFileIO, err)
	}
	defer file.Close()
	_, err = fru.Download(mem, file, progress)
	return err
}
