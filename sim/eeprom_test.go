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

package sim

import (
	"bytes"
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// Runs one write transaction: address phase, bytes, stop.
func writeTx(e *EEPROM, p ...byte) bool {
	if !e.selectDevice(false) {
		return false
	}
	ok := true
	for _, b := range p {
		ok = e.receive(b) && ok
	}
	e.stop()
	return ok
}

func readTx(e *EEPROM, n int) []byte {
	e.selectDevice(true)
	out := make([]byte, n)
	for i := range out {
		out[i] = e.transmit()
	}
	e.stop()
	return out
}

func TestEEPROMPageWriteWraps(t *testing.T) {
	e := NewEEPROM(EEPROMConfig{Addr: 0x50, Width: 1, Size: 256, PageSize: 8})
	if !writeTx(e, 0x06, 1, 2, 3, 4) {
		t.Fatalf("Write refused")
	}
	mem := e.Contents()
	if !bytes.Equal(mem[0:8], []byte{3, 4, 0xff, 0xff, 0xff, 0xff, 1, 2}) {
		t.Errorf("Unexpected page contents % x", mem[0:8])
	}
	if e.WriteCycles() != 1 {
		t.Errorf("WriteCycles() = %d", e.WriteCycles())
	}
}

func TestEEPROMAddressWraps(t *testing.T) {
	e := NewEEPROM(EEPROMConfig{Addr: 0x54, Width: 2, Size: 4096, PageSize: 32})
	data := []byte{0xde, 0xad}
	if !writeTx(e, append([]byte{0x00, 0x00}, data...)...) {
		t.Fatalf("Write refused")
	}
	writeTx(e, 0x10, 0x00)
	if got := readTx(e, 2); !bytes.Equal(got, data) {
		t.Errorf("Address 0x1000 read % x, want % x", got, data)
	}
	// Reads run over the end into address 0.
	writeTx(e, 0x0f, 0xff)
	if got := readTx(e, 3); !bytes.Equal(got, []byte{0xff, 0xde, 0xad}) {
		t.Errorf("Read across the end returned % x", got)
	}
}

func TestEEPROMPartialWordAddress(t *testing.T) {
	e := NewEEPROM(EEPROMConfig{Addr: 0x54, Width: 2, Size: 4096, PageSize: 32})
	e.Load(bytes.Repeat([]byte{0}, 0x200))
	writeTx(e, 0x02, 0x00, 0x77)
	writeTx(e, 0x02)
	if got := readTx(e, 1); got[0] != 0x77 {
		t.Errorf("Partial address read %#02x", got[0])
	}
}

func TestEEPROMWriteProtect(t *testing.T) {
	wp := &gpiotest.Pin{N: "WR", L: gpio.High}
	e := NewEEPROM(EEPROMConfig{
		Addr: 0x50, Width: 1, Size: 256, PageSize: 8,
		WriteProtect: wp, ProtectLevel: gpio.High,
	})
	if writeTx(e, 0x00, 0x12) {
		t.Errorf("Protected device acknowledged data")
	}
	if got := readTx(e, 1); got[0] != 0xff {
		t.Errorf("Protected write reached memory (%#02x)", got[0])
	}
	wp.Out(gpio.Low)
	if !writeTx(e, 0x00, 0x12) {
		t.Errorf("Unprotected write refused")
	}
	if e.Contents()[0] != 0x12 {
		t.Errorf("Write did not reach memory")
	}
}

func TestEEPROMBusyAfterWrite(t *testing.T) {
	e := NewEEPROM(EEPROMConfig{Addr: 0x50, Width: 1, Size: 256, PageSize: 8, WriteCycle: 2})
	writeTx(e, 0x00, 0x01)
	if e.selectDevice(false) || e.selectDevice(true) {
		t.Errorf("Device acknowledged during its write cycle")
	}
	if !e.selectDevice(true) {
		t.Errorf("Device still busy after its write cycle")
	}
}
