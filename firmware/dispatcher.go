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

package firmware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fmchub/fru/protocol"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/physic"
)

// Port is the device end of the serial link to the host.
type Port interface {
	// Buffered returns the number of received bytes not read yet.
	Buffered() int
	ReadByte() (byte, error)
	Write(p []byte) (int, error)
	// Discard drops stray input received while the last command was serviced.
	Discard()
}

type Version struct {
	Major byte
	Minor byte
	Build byte
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

type Config struct {
	Clock physic.Frequency
	// Per byte deadline of a bus read.
	AckTimeout time.Duration
	// How long to poll the EEPROM for the end of its internal write cycle.
	WriteCycleTimeout time.Duration
	Version           Version
}

var DefaultConfig = Config{
	Clock:             100 * physic.KiloHertz,
	AckTimeout:        25 * time.Millisecond,
	WriteCycleTimeout: 10 * time.Millisecond,
	Version:           Version{1, 1, 1},
}

var errWriteCycle = errors.New("write cycle did not complete")

const pollInterval = 200 * time.Microsecond

// Dispatcher services one command per poll: opcode, argument bytes already
// buffered behind it, one response.
type Dispatcher struct {
	port      Port
	bus       *Bus
	pins      *Pins
	conf      Config
	readBurst int
	buf       [protocol.BufferSize]byte
}

func NewDispatcher(port Port, hw Controller, pins *Pins, conf *Config) (*Dispatcher, error) {
	c := DefaultConfig
	if conf != nil {
		c = *conf
	}
	bus, err := NewBus(hw, c.Clock, c.AckTimeout)
	if err != nil {
		return nil, err
	}
	if err = pins.Protect(); err != nil {
		return nil, fmt.Errorf("Failed to drive write-protect: %v", err)
	}
	glog.Infof("FRU programmer firmware %v", c.Version)
	return &Dispatcher{
		port:      port,
		bus:       bus,
		pins:      pins,
		conf:      c,
		readBurst: protocol.DefaultReadBurst,
	}, nil
}

func (d *Dispatcher) ReadBurst() int {
	return d.readBurst
}

// Poll services at most one pending command and reports whether it did.
// Input left over after the command is discarded.
func (d *Dispatcher) Poll() bool {
	if err := d.pins.Protect(); err != nil {
		glog.Warningf("Failed to drive write-protect: %v", err)
	}
	if d.port.Buffered() == 0 {
		return false
	}
	op, err := d.port.ReadByte()
	if err != nil {
		glog.Warningf("Failed to read opcode: %v", err)
		return false
	}
	d.service(protocol.Command(op), d.port.Buffered())
	d.port.Discard()
	return true
}

func (d *Dispatcher) Run(ctx context.Context) error {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Poll() {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (d *Dispatcher) reply(b ...byte) {
	if _, err := d.port.Write(b); err != nil {
		glog.Warningf("Failed to write response: %v", err)
	}
}

func (d *Dispatcher) args(n int) ([]byte, error) {
	a := d.buf[:n]
	for i := range a {
		c, err := d.port.ReadByte()
		if err != nil {
			return nil, err
		}
		a[i] = c
	}
	return a, nil
}

func (d *Dispatcher) service(cmd protocol.Command, n int) {
	glog.V(1).Infof("[fru-dispatch]: %v, %d argument bytes", cmd, n)
	switch cmd {
	case protocol.CmdReadBurst:
		d.cmdReadBurst(n)
	case protocol.CmdEcho:
		d.reply(protocol.End)
	case protocol.CmdGA:
		d.reply(d.pins.GeographicAddr())
	case protocol.CmdPresent:
		if d.pins.ModulePresent() {
			d.reply(1)
		} else {
			d.reply(0)
		}
	case protocol.CmdPolarity:
		d.reply(d.pins.PolarityBit())
	case protocol.CmdRead:
		d.cmdRead(n, 1)
	case protocol.CmdReadWide:
		d.cmdRead(n, 2)
	case protocol.CmdScan:
		d.cmdScan()
	case protocol.CmdVersion:
		v := d.conf.Version
		d.reply(v.Major, v.Minor, v.Build, protocol.End)
	case protocol.CmdWrite:
		d.cmdWrite(n, 1)
	case protocol.CmdWriteWide:
		d.cmdWrite(n, 2)
	default:
		glog.V(1).Infof("Ignoring unknown opcode %#02x", byte(cmd))
	}
}

// Any refused argument resets the burst to the default.
func (d *Dispatcher) cmdReadBurst(n int) {
	switch n {
	case 0:
		d.reply(byte(d.readBurst))
		return
	case 1:
		a, err := d.args(1)
		if err == nil && a[0] >= 1 && a[0] <= protocol.MaxReadBurst {
			d.readBurst = int(a[0])
			d.reply(protocol.Ack, a[0])
			return
		}
	}
	d.readBurst = protocol.DefaultReadBurst
	d.reply(protocol.Nack)
}

// Memory address bytes go out as a write, then readBurst bytes are read back.
// The write-protect line is held so that address bytes a narrower device
// takes for data are refused.
func (d *Dispatcher) cmdRead(n, width int) {
	if n != width+1 {
		d.reply(protocol.Nack)
		return
	}
	a, err := d.args(n)
	if err != nil {
		d.reply(protocol.Nack)
		return
	}
	dev := a[0]
	if err = d.pins.Protect(); err != nil {
		glog.Warningf("Failed to drive write-protect: %v", err)
	}
	if err = d.bus.Write(dev, a[1:]); errors.Is(err, ErrNoDevice) {
		glog.V(1).Infof("Read address phase failed: %v", err)
		d.reply(protocol.Nack)
		return
	}
	data := d.buf[n : n+d.readBurst]
	if err = d.bus.Read(dev, data); err != nil {
		glog.V(1).Infof("Read failed: %v", err)
		d.reply(protocol.Nack)
		return
	}
	res := make([]byte, 0, len(data)+1)
	res = append(res, protocol.Ack)
	d.reply(append(res, data...)...)
}

func (d *Dispatcher) cmdWrite(n, width int) {
	if n < width+2 || n > width+1+protocol.MaxWriteData {
		d.reply(protocol.Nack)
		return
	}
	a, err := d.args(n)
	if err != nil {
		d.reply(protocol.Nack)
		return
	}
	dev := a[0]
	err = d.pins.withWriteEnabled(func() error {
		return d.bus.Write(dev, a[1:])
	})
	if err == nil {
		err = d.awaitWriteCycle(dev)
	}
	if err != nil {
		glog.V(1).Infof("Write failed: %v", err)
		d.reply(protocol.Nack)
		return
	}
	d.reply(protocol.Ack)
}

// The EEPROM ignores its address until the internal write cycle is over.
func (d *Dispatcher) awaitWriteCycle(dev uint8) error {
	deadline := time.Now().Add(d.conf.WriteCycleTimeout)
	for !d.bus.Scan(dev) {
		if time.Now().After(deadline) {
			return fmt.Errorf("device %#02x: %w", dev, errWriteCycle)
		}
	}
	return nil
}

func (d *Dispatcher) cmdScan() {
	res := make([]byte, 0, protocol.EEPROMSlots+1)
	for i := 0; i < protocol.EEPROMSlots; i++ {
		addr := protocol.EEPROMBase | byte(i)
		if d.bus.Scan(addr) {
			res = append(res, addr)
		}
	}
	d.reply(append(res, protocol.End)...)
}
