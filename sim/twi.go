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
	"fmt"
	"sync"

	"github.com/fmchub/fru/firmware"

	"periph.io/x/conn/v3/physic"
)

// TWI is a firmware.Controller with EEPROMs attached.
type TWI struct {
	mu        sync.Mutex
	clock     physic.Frequency
	devices   map[uint8]*EEPROM
	status    firmware.Status
	data      byte
	done      bool
	active    bool
	addressed bool
	cur       *EEPROM
	stall     bool
}

func NewTWI(devs ...*EEPROM) *TWI {
	t := &TWI{devices: make(map[uint8]*EEPROM)}
	for _, e := range devs {
		t.devices[e.Addr()] = e
	}
	return t
}

// Stall holds every following byte read, as a device stretching the clock forever would.
func (t *TWI) Stall(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stall = on
}

func (t *TWI) Clock() physic.Frequency {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clock
}

func (t *TWI) SetClock(f physic.Frequency) error {
	if f <= 0 {
		return fmt.Errorf("invalid bus clock %v", f)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clock = f
	return nil
}

func (t *TWI) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		t.status = firmware.StatusRepeatedStart
	} else {
		t.status = firmware.StatusStart
	}
	t.active = true
	t.addressed = false
	t.cur = nil
	t.done = true
}

func (t *TWI) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur != nil {
		t.cur.stop()
	}
	t.cur = nil
	t.active = false
	t.addressed = false
}

func (t *TWI) Transmit(b byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	if !t.addressed {
		t.addressed = true
		read := b&1 == 1
		if e, ok := t.devices[b>>1]; ok && e.selectDevice(read) {
			t.cur = e
			if read {
				t.status = firmware.StatusAddrReadAck
			} else {
				t.status = firmware.StatusAddrWriteAck
			}
			return
		}
		if read {
			t.status = firmware.StatusAddrReadNack
		} else {
			t.status = firmware.StatusAddrWriteNack
		}
		return
	}
	if t.cur != nil && t.cur.receive(b) {
		t.status = firmware.StatusDataWriteAck
	} else {
		t.status = firmware.StatusDataWriteNack
	}
}

func (t *TWI) Receive(ack bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stall {
		t.done = false
		return
	}
	t.done = true
	if t.cur == nil {
		t.data = 0xFF
	} else {
		t.data = t.cur.transmit()
	}
	if ack {
		t.status = firmware.StatusDataReadAck
	} else {
		t.status = firmware.StatusDataReadNack
	}
}

func (t *TWI) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *TWI) Status() firmware.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *TWI) Data() byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data
}
