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
	"context"
	"fmt"

	"github.com/fmchub/fru/firmware"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type BoardConfig struct {
	EEPROMs []EEPROMConfig
	// Geographic address strapped by the carrier, 0..3.
	GA      byte
	Present bool
	// Level of the write-protect polarity jumper.
	Polarity gpio.Level
	// nil selects firmware.DefaultConfig.
	Firmware *firmware.Config
}

// DefaultBoardConfig describes a module carrying a single 24C02 at 0x50.
func DefaultBoardConfig() BoardConfig {
	return BoardConfig{
		EEPROMs: []EEPROMConfig{DefaultEEPROM},
		Present: true,
	}
}

type Board struct {
	link    *Link
	twi     *TWI
	eeproms []*EEPROM
	disp    *firmware.Dispatcher
	wp      *gpiotest.Pin
	cancel  context.CancelFunc
	done    chan error
}

func NewBoard(conf BoardConfig) (*Board, error) {
	wp := &gpiotest.Pin{N: "WR", L: gpio.High}
	pins := &firmware.Pins{
		WriteProtect: wp,
		Polarity:     &gpiotest.Pin{N: "WR_POL", L: conf.Polarity},
		Present:      &gpiotest.Pin{N: "PRSNT_M2C_L", L: gpio.Level(!conf.Present)},
		GA0:          &gpiotest.Pin{N: "GA0", L: gpio.Level(conf.GA&1 != 0)},
		GA1:          &gpiotest.Pin{N: "GA1", L: gpio.Level(conf.GA&2 != 0)},
	}
	// Jumper matches the module: a low jumper selects an active-high line.
	protect := gpio.Level(conf.Polarity == gpio.Low)

	b := &Board{link: NewLink(), wp: wp}
	for _, ec := range conf.EEPROMs {
		ec.WriteProtect = wp
		ec.ProtectLevel = protect
		b.eeproms = append(b.eeproms, NewEEPROM(ec))
	}
	b.twi = NewTWI(b.eeproms...)

	var err error
	if b.disp, err = firmware.NewDispatcher(b.link.Device(), b.twi, pins, conf.Firmware); err != nil {
		return nil, fmt.Errorf("NewDispatcher failed: %v", err)
	}
	return b, nil
}

// Start runs the dispatcher until Close.
func (b *Board) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan error, 1)
	go func() {
		b.done <- b.disp.Run(ctx)
	}()
	glog.V(1).Infof("Simulated programmer started with %d EEPROM(s)", len(b.eeproms))
}

func (b *Board) Close() error {
	if b.cancel == nil {
		return nil
	}
	b.cancel()
	<-b.done
	b.cancel = nil
	return b.link.Host().Close()
}

func (b *Board) Host() *HostEnd {
	return b.link.Host()
}

func (b *Board) Link() *Link {
	return b.link
}

func (b *Board) TWI() *TWI {
	return b.twi
}

func (b *Board) EEPROM(i int) *EEPROM {
	return b.eeproms[i]
}

func (b *Board) Dispatcher() *firmware.Dispatcher {
	return b.disp
}

// WriteProtect returns the level the firmware drives on the write-protect line.
func (b *Board) WriteProtect() gpio.Level {
	return b.wp.Read()
}
