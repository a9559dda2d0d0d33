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

// In-memory FRU programmer: simulated 24Cxx EEPROMs on a simulated two-wire
// controller, driven by the real firmware dispatcher over an in-memory serial link.
package sim

import (
	"sync"

	"periph.io/x/conn/v3/gpio"
)

type EEPROMConfig struct {
	// 7-bit bus address.
	Addr uint8
	// Number of memory address bytes, 1 or 2.
	Width int
	// Capacity in bytes, a power of two. Addresses wrap at Size.
	Size     int
	PageSize int
	// Address phases refused after each committed write.
	WriteCycle int
	// Write-protect input; nil leaves the device writable.
	WriteProtect gpio.PinIn
	// Level of WriteProtect that blocks writes.
	ProtectLevel gpio.Level
}

// 24C02 at 0x50.
var DefaultEEPROM = EEPROMConfig{
	Addr:       0x50,
	Width:      1,
	Size:       256,
	PageSize:   8,
	WriteCycle: 1,
}

type EEPROM struct {
	mu      sync.Mutex
	conf    EEPROMConfig
	mem     []byte
	ptr     int
	writing bool
	word    []byte
	pending []byte
	busy    int
	cycles  int
}

func NewEEPROM(conf EEPROMConfig) *EEPROM {
	if conf.PageSize == 0 {
		conf.PageSize = 8
	}
	mem := make([]byte, conf.Size)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &EEPROM{conf: conf, mem: mem}
}

func (e *EEPROM) Addr() uint8 {
	return e.conf.Addr
}

// Contents returns a copy of the memory array.
func (e *EEPROM) Contents() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.mem...)
}

// Load overwrites the memory array from address 0.
func (e *EEPROM) Load(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	copy(e.mem, data)
}

// WriteCycles returns the number of committed writes.
func (e *EEPROM) WriteCycles() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cycles
}

func (e *EEPROM) mask(a int) int {
	return a & (e.conf.Size - 1)
}

func (e *EEPROM) protected() bool {
	return e.conf.WriteProtect != nil && e.conf.WriteProtect.Read() == e.conf.ProtectLevel
}

// Address phase. Returns the acknowledge.
func (e *EEPROM) selectDevice(read bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy > 0 {
		e.busy--
		return false
	}
	if !read {
		e.writing = true
		e.word = e.word[:0]
		e.pending = e.pending[:0]
	}
	return true
}

func (e *EEPROM) receive(b byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.word) < e.conf.Width {
		e.word = append(e.word, b)
		if len(e.word) == e.conf.Width {
			a := 0
			for _, w := range e.word {
				a = a<<8 | int(w)
			}
			e.ptr = e.mask(a)
		}
		return true
	}
	if e.protected() {
		return false
	}
	e.pending = append(e.pending, b)
	return true
}

func (e *EEPROM) transmit() byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := e.mem[e.ptr]
	e.ptr = e.mask(e.ptr + 1)
	return b
}

// Stop condition. Data received since the word address is committed as a page write.
func (e *EEPROM) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.writing {
		return
	}
	e.writing = false
	if n := len(e.word); n > 0 && n < e.conf.Width {
		// Partial word address: only the high byte was latched.
		e.ptr = e.mask(int(e.word[0]) << 8)
	}
	if len(e.pending) == 0 {
		return
	}
	page := e.ptr &^ (e.conf.PageSize - 1)
	off := e.ptr & (e.conf.PageSize - 1)
	for _, b := range e.pending {
		e.mem[e.mask(page+off)] = b
		off = (off + 1) % e.conf.PageSize
	}
	e.ptr = e.mask(page + off)
	e.busy = e.conf.WriteCycle
	e.cycles++
}
