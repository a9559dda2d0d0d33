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

package util_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fmchub/fru"
	"github.com/fmchub/fru/sim"
	"github.com/fmchub/fru/util"
)

func newMemory(t *testing.T, conf sim.EEPROMConfig, target fru.EEPROM) (*sim.Board, *fru.Memory) {
	t.Helper()
	bc := sim.DefaultBoardConfig()
	bc.EEPROMs = []sim.EEPROMConfig{conf}
	b, err := sim.NewBoard(bc)
	if err != nil {
		t.Fatalf("NewBoard failed: %v", err)
	}
	b.Start()
	t.Cleanup(func() { b.Close() })
	p, err := fru.NewProgrammer(b.Host())
	if err != nil {
		t.Fatalf("NewProgrammer failed: %v", err)
	}
	return b, fru.NewMemory(p, target)
}

func fruImage(n int) []byte {
	img := make([]byte, n)
	for i := range img {
		img[i] = byte(i*7 + 1)
	}
	return img
}

func TestProgramImageVerifies(t *testing.T) {
	b, mem := newMemory(t, sim.DefaultEEPROM, fru.EEPROM{Addr: 0x50})
	img := fruImage(100)
	if err := util.ProgramImage(mem, img, true, nil); err != nil {
		t.Fatalf("ProgramImage failed: %v", err)
	}
	if !bytes.Equal(b.EEPROM(0).Contents()[:100], img) {
		t.Errorf("EEPROM contents differ from image")
	}
}

func TestProgramImageDetectsAliasing(t *testing.T) {
	// 128 byte part, capacity not configured: the upper half overwrites the lower.
	conf := sim.EEPROMConfig{Addr: 0x50, Width: 1, Size: 128, PageSize: 8}
	_, mem := newMemory(t, conf, fru.EEPROM{Addr: 0x50})
	err := util.ProgramImage(mem, fruImage(200), true, nil)
	if !errors.Is(err, fru.ErrVerify) {
		t.Errorf("Expected ErrVerify, got %v", err)
	}
}

func TestProgramFileAndDumpFile(t *testing.T) {
	dir := t.TempDir()
	img := fruImage(256)
	for _, name := range []string{"fru.bin", "fru.hex"} {
		t.Run(name, func(t *testing.T) {
			in := filepath.Join(dir, "in-"+name)
			out := filepath.Join(dir, "out-"+name)
			if err := util.SaveImage(in, img); err != nil {
				t.Fatalf("SaveImage failed: %v", err)
			}
			_, mem := newMemory(t, sim.DefaultEEPROM, fru.EEPROM{Addr: 0x50, Capacity: 256})
			var last fru.Progress
			if err := util.ProgramFile(mem, in, true, func(p fru.Progress) { last = p }); err != nil {
				t.Fatalf("ProgramFile failed: %v", err)
			}
			if last.Percent() != 100 {
				t.Errorf("Progress ended at %v%%", last.Percent())
			}
			if err := util.DumpFile(mem, out, nil); err != nil {
				t.Fatalf("DumpFile failed: %v", err)
			}
			got, err := util.LoadImage(out)
			if err != nil {
				t.Fatalf("LoadImage failed: %v", err)
			}
			if !bytes.Equal(got, img) {
				t.Errorf("Dumped image differs from programmed one")
			}
		})
	}
}

func TestLoadImageMissingFile(t *testing.T) {
	_, err := util.LoadImage(filepath.Join(t.TempDir(), "missing.bin"))
	if !errors.Is(err, fru.ErrFileIO) {
		t.Errorf("Expected ErrFileIO, got %v", err)
	}
}
