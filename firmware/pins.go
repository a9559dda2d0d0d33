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
	"periph.io/x/conn/v3/gpio"
)

// Pins are the FMC connector and configuration lines sampled or driven by the programmer.
type Pins struct {
	// EEPROM write-protect line.
	WriteProtect gpio.PinOut
	// Jumper selecting the write-protect polarity. Low selects an active-high line.
	Polarity gpio.PinIn
	// PRSNT_M2C_L, pulled low by an inserted module.
	Present gpio.PinIn
	GA0     gpio.PinIn
	GA1     gpio.PinIn
}

func (p *Pins) protectLevel() gpio.Level {
	if p.Polarity.Read() == gpio.Low {
		return gpio.High
	}
	return gpio.Low
}

// Protect drives the write-protect line to its protecting level.
func (p *Pins) Protect() error {
	return p.WriteProtect.Out(p.protectLevel())
}

// withWriteEnabled releases write protection while fn runs.
func (p *Pins) withWriteEnabled(fn func() error) error {
	if err := p.WriteProtect.Out(!p.protectLevel()); err != nil {
		return err
	}
	defer p.Protect()
	return fn()
}

// GeographicAddr returns GA1:GA0.
func (p *Pins) GeographicAddr() byte {
	var ga byte
	if p.GA0.Read() == gpio.High {
		ga |= 1
	}
	if p.GA1.Read() == gpio.High {
		ga |= 2
	}
	return ga
}

func (p *Pins) ModulePresent() bool {
	return p.Present.Read() == gpio.Low
}

// PolarityBit is 0 when the polarity jumper pulls its pin low.
func (p *Pins) PolarityBit() byte {
	if p.Polarity.Read() == gpio.Low {
		return 0
	}
	return 1
}
