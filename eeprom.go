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

package fru

import (
	"fmt"

	"github.com/fmchub/fru/protocol"

	"github.com/golang/glog"
)

// AddressWidth is the number of memory address bytes an EEPROM expects.
type AddressWidth int

const (
	WidthUnknown AddressWidth = 0
	OneByte      AddressWidth = 1
	TwoByte      AddressWidth = 2
)

func (w AddressWidth) String() string {
	switch w {
	case OneByte:
		return "1-byte"
	case TwoByte:
		return "2-byte"
	}
	return "unknown"
}

// Span is the number of memory addresses reachable with w.
func (w AddressWidth) Span() int {
	switch w {
	case OneByte:
		return 1 << 8
	case TwoByte:
		return 1 << 16
	}
	return 0
}

const (
	DefaultWriteBurst = 8
	MinCapacity       = 128
	MaxCapacity       = 65536
	MaxCapacityBits   = MaxCapacity * 8
)

var (
	readBursts  = []int{1, 8, 16, 24, 32, 40, 48, 56, protocol.MaxReadBurst}
	writeBursts = []int{1, 8, 16, 32}
)

func normalizeBurst(kind string, n, def int, legal []int) int {
	for _, v := range legal {
		if n == v {
			return n
		}
	}
	glog.Warningf("Illegal %v burst %d, using %d (allowed %v)", kind, n, def, legal)
	return def
}

// NormalizeReadBurst returns n if it is a legal read burst and the default otherwise.
func NormalizeReadBurst(n int) int {
	return normalizeBurst("read", n, protocol.DefaultReadBurst, readBursts)
}

// NormalizeWriteBurst returns n if it is a legal write burst and the default otherwise.
func NormalizeWriteBurst(n int) int {
	return normalizeBurst("write", n, DefaultWriteBurst, writeBursts)
}

// EEPROM describes the target memory. Zero Width or Capacity means unknown.
type EEPROM struct {
	Addr     byte
	Width    AddressWidth
	Capacity int
}

func (e EEPROM) String() string {
	if e.Capacity == 0 {
		return fmt.Sprintf("%#02x (%v addressing, capacity unknown)", e.Addr, e.Width)
	}
	return fmt.Sprintf("%#02x (%v addressing, %d bytes, %v)", e.Addr, e.Width, e.Capacity, e.Model())
}

// Model is the 24Cxx part number matching the capacity.
func (e EEPROM) Model() string {
	return fmt.Sprintf("24C%02d", e.Capacity*8/1024)
}

// DefaultWidth derives the address width from bit 2 of the bus address.
func DefaultWidth(addr byte) AddressWidth {
	if addr&0x04 != 0 {
		return TwoByte
	}
	return OneByte
}

// DefaultCapacity follows the VITA 57.1 recommendation for FRU EEPROMs:
// 2 kbit parts with 1-byte addressing, 32 kbit parts with 2-byte addressing.
func DefaultCapacity(w AddressWidth) int {
	if w == TwoByte {
		return 4096
	}
	return 256
}

// WithDefaults fills in an unknown width or capacity.
func (e EEPROM) WithDefaults() EEPROM {
	if e.Width == WidthUnknown {
		e.Width = DefaultWidth(e.Addr)
	}
	if e.Capacity == 0 {
		e.Capacity = DefaultCapacity(e.Width)
	}
	return e
}

func ValidCapacity(n int) bool {
	return n >= MinCapacity && n <= MaxCapacity && n%MinCapacity == 0
}

// CapacityFromBytes validates a capacity given in bytes.
func CapacityFromBytes(n int) (int, error) {
	if !ValidCapacity(n) {
		return 0, fmt.Errorf("%w: capacity %d bytes, want a multiple of %d up to %d",
			ErrArgument, n, MinCapacity, MaxCapacity)
	}
	return n, nil
}

// CapacityFromBits converts a capacity given in bits, a multiple of 1024.
func CapacityFromBits(bits int) (int, error) {
	if bits <= 0 || bits > MaxCapacityBits || bits%1024 != 0 {
		return 0, fmt.Errorf("%w: capacity %d bits, want a multiple of 1024 up to %d",
			ErrArgument, bits, MaxCapacityBits)
	}
	return bits / 8, nil
}

// CapacityHint is the smallest power of two holding n bytes.
func CapacityHint(n int) int {
	h := 1
	for h < n {
		h <<= 1
	}
	return h
}
