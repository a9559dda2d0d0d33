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
	"path/filepath"
	"strings"

	"github.com/fmchub/fru"

	"github.com/marcinbor85/gohex"
)

func isIntelHex(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".hex")
}

// Lays the segments out from address 0. Gaps read as erased EEPROM cells.
func flatten(segments []gohex.DataSegment) ([]byte, error) {
	end := 0
	for _, s := range segments {
		if e := int(s.Address) + len(s.Data); e > end {
			end = e
		}
	}
	if end > fru.MaxCapacity {
		return nil, fmt.Errorf("%w: image ends at %#x", fru.ErrArgument, end)
	}
	img := bytes.Repeat([]byte{0xFF}, end)
	for _, s := range segments {
		copy(img[s.Address:], s.Data)
	}
	return img, nil
}

func LoadIntelHexFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fru.ErrFileIO, err)
	}
	defer file.Close()

	mem := gohex.NewMemory()
	if err = mem.ParseIntelHex(file); err != nil {
		return nil, fmt.Errorf("Failed parsing %v: %v", filename, err)
	}
	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return nil, fmt.Errorf("%v holds no data", filename)
	}
	return flatten(segments)
}

// LoadImage reads an EEPROM image, Intel HEX when the name ends in .hex and
// raw binary otherwise.
func LoadImage(filename string) ([]byte, error) {
	if isIntelHex(filename) {
		return LoadIntelHexFile(filename)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fru.ErrFileIO, err)
	}
	return data, nil
}

// SaveImage writes data to filename, as Intel HEX when the name ends in .hex.
func SaveImage(filename string, data []byte) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("%w: %v", fru.ErrFileIO, err)
	}
	defer file.Close()
	if isIntelHex(filename) {
		mem := gohex.NewMemory()
		if err = mem.AddBinary(0, data); err != nil {
			return err
		}
		err = mem.DumpIntelHex(file, 16)
	} else {
		_, err = file.Write(data)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", fru.ErrFileIO, err)
	}
	return nil
}
