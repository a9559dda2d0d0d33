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

// FRU programmer firmware: two-wire bus driver and serial command dispatcher.
package firmware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/physic"
)

var (
	ErrBusTimeout = errors.New("bus read timed out")
	ErrNoDevice   = errors.New("no device acknowledged the address")
	ErrDataNack   = errors.New("device did not acknowledge data")
)

// Status is the controller status after the last completed operation.
// Values follow the AVR TWI status register with prescaler bits masked.
type Status uint8

const (
	StatusStart         Status = 0x08
	StatusRepeatedStart Status = 0x10
	StatusAddrWriteAck  Status = 0x18
	StatusAddrWriteNack Status = 0x20
	StatusDataWriteAck  Status = 0x28
	StatusDataWriteNack Status = 0x30
	StatusArbLost       Status = 0x38
	StatusAddrReadAck   Status = 0x40
	StatusAddrReadNack  Status = 0x48
	StatusDataReadAck   Status = 0x50
	StatusDataReadNack  Status = 0x58
)

// Controller is the two-wire bus master peripheral.
// Start, Stop, Transmit and Receive begin an operation; Done reports its completion.
type Controller interface {
	SetClock(f physic.Frequency) error
	Start()
	Stop()
	Transmit(b byte)
	// Receive clocks in one byte, answering ACK when ack is set.
	Receive(ack bool)
	Done() bool
	Status() Status
	Data() byte
}

// BitRate returns the bit rate register value for an AVR TWI running at cpu
// with prescaler 1 and the requested scl frequency.
func BitRate(cpu, scl physic.Frequency) (uint8, error) {
	if scl <= 0 || cpu < 16*scl {
		return 0, fmt.Errorf("bus clock %v unreachable from %v", scl, cpu)
	}
	v := (int64(cpu/scl) - 16) / 2
	if v > 255 {
		return 0, fmt.Errorf("bus clock %v too slow for %v", scl, cpu)
	}
	return uint8(v), nil
}

type Bus struct {
	hw         Controller
	ackTimeout time.Duration
}

func NewBus(hw Controller, clock physic.Frequency, ackTimeout time.Duration) (*Bus, error) {
	if err := hw.SetClock(clock); err != nil {
		return nil, fmt.Errorf("SetClock failed: %v", err)
	}
	glog.V(1).Infof("Bus clock %v, read ack timeout %v", clock, ackTimeout)
	return &Bus{hw, ackTimeout}, nil
}

// Start conditions and transmitted bytes are trusted to complete.
func (b *Bus) wait() {
	for !b.hw.Done() {
	}
}

func (b *Bus) waitUntil(deadline time.Time) bool {
	for !b.hw.Done() {
		if time.Now().After(deadline) {
			return false
		}
	}
	return true
}

func (b *Bus) address(addr uint8, read bool) Status {
	b.hw.Start()
	b.wait()
	sla := addr << 1
	if read {
		sla |= 1
	}
	b.hw.Transmit(sla)
	b.wait()
	return b.hw.Status()
}

// Write sends p to the 7-bit address addr in a single transaction.
func (b *Bus) Write(addr uint8, p []byte) error {
	defer b.hw.Stop()
	if st := b.address(addr, false); st != StatusAddrWriteAck {
		return fmt.Errorf("write to %#02x (status %#02x): %w", addr, uint8(st), ErrNoDevice)
	}
	for i, c := range p {
		b.hw.Transmit(c)
		b.wait()
		if st := b.hw.Status(); st != StatusDataWriteAck {
			return fmt.Errorf("byte %d to %#02x (status %#02x): %w", i, addr, uint8(st), ErrDataNack)
		}
	}
	return nil
}

// Read fills p from the 7-bit address addr. Every byte but the last is
// acknowledged. Each byte must arrive within the ack timeout.
func (b *Bus) Read(addr uint8, p []byte) error {
	defer b.hw.Stop()
	if st := b.address(addr, true); st != StatusAddrReadAck {
		return fmt.Errorf("read from %#02x (status %#02x): %w", addr, uint8(st), ErrNoDevice)
	}
	for i := range p {
		b.hw.Receive(i < len(p)-1)
		if !b.waitUntil(time.Now().Add(b.ackTimeout)) {
			return fmt.Errorf("byte %d from %#02x: %w", i, addr, ErrBusTimeout)
		}
		p[i] = b.hw.Data()
	}
	return nil
}

// Scan reports whether a device acknowledges addr with write intent.
func (b *Bus) Scan(addr uint8) bool {
	st := b.address(addr, false)
	b.hw.Stop()
	return st == StatusAddrWriteAck
}
