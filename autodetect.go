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

	"github.com/golang/glog"
)

// Probe sequence of Detect. Each state's handler returns the next state.
type detectState int

const (
	stateSaveOneByte detectState = iota + 1
	stateSaveTwoByte
	stateWriteMarker
	stateReadMarker
	stateRestore
	stateSizeSearch
	stateDone
)

func (s detectState) String() string {
	switch s {
	case stateSaveOneByte:
		return "save 1-byte locations"
	case stateSaveTwoByte:
		return "save 2-byte location"
	case stateWriteMarker:
		return "write marker"
	case stateReadMarker:
		return "read marker"
	case stateRestore:
		return "restore"
	case stateSizeSearch:
		return "size search"
	case stateDone:
		return "done"
	}
	return fmt.Sprintf("state %d", int(s))
}

// Marker written to 2-byte address 0x0000.
const widthMarker = 0x01

// Attempts to put back a location the capacity probe changed.
const restoreAttempts = 3

// DetectError reports the state where detection stopped and whether the
// probed locations were put back.
type DetectError struct {
	State    detectState
	Restored bool
	Err      error
}

func (e *DetectError) Error() string {
	return fmt.Sprintf("autodetect failed in %v (restored: %v): %v", e.State, e.Restored, e.Err)
}

func (e *DetectError) Unwrap() error {
	return e.Err
}

type detector struct {
	one *Memory
	two *Memory
	// Values at 1-byte addresses 0x00, 0x01 and 2-byte address 0x0000.
	orig00   byte
	orig01   byte
	orig0000 byte
	readback byte
	// Set once the marker write was attempted and not yet undone.
	dirty    bool
	width    AddressWidth
	capacity int
}

// Detect probes the EEPROM at addr for its address width, then for its
// capacity, leaving its contents as they were. On failure the returned
// EEPROM carries the width derived from the address.
func Detect(prog *Programmer, addr byte) (EEPROM, error) {
	d := &detector{
		one: NewMemory(prog, EEPROM{Addr: addr, Width: OneByte}),
		two: NewMemory(prog, EEPROM{Addr: addr, Width: TwoByte}),
	}
	for state := stateSaveOneByte; state != stateDone; {
		next, err := d.step(state)
		if err != nil {
			restored := d.rollback()
			dflt := EEPROM{Addr: addr, Width: DefaultWidth(addr)}
			return dflt, &DetectError{state, restored, err}
		}
		glog.V(1).Infof("Autodetect %v -> %v", state, next)
		state = next
	}
	e := EEPROM{addr, d.width, d.capacity}
	glog.Infof("Detected EEPROM %v", e)
	return e, nil
}

func (d *detector) step(s detectState) (detectState, error) {
	switch s {
	case stateSaveOneByte:
		return d.saveOneByte()
	case stateSaveTwoByte:
		return d.saveTwoByte()
	case stateWriteMarker:
		return d.writeMarker()
	case stateReadMarker:
		return d.readMarker()
	case stateRestore:
		return d.restore()
	case stateSizeSearch:
		return d.sizeSearch()
	}
	return stateDone, fmt.Errorf("no handler for %v", s)
}

func (d *detector) saveOneByte() (detectState, error) {
	var err error
	if d.orig00, err = d.one.ReadByteAt(0x00); err != nil {
		return 0, err
	}
	if d.orig01, err = d.one.ReadByteAt(0x01); err != nil {
		return 0, err
	}
	return stateSaveTwoByte, nil
}

func (d *detector) saveTwoByte() (detectState, error) {
	var err error
	if d.orig0000, err = d.two.ReadByteAt(0x0000); err != nil {
		return 0, err
	}
	return stateWriteMarker, nil
}

func (d *detector) writeMarker() (detectState, error) {
	d.dirty = true
	if err := d.two.Write(0x0000, []byte{widthMarker}, false); err != nil {
		return 0, err
	}
	return stateReadMarker, nil
}

// A 1-byte device takes the low address byte of the marker write as data
// for location 0x00, so it never reads back the marker here.
func (d *detector) readMarker() (detectState, error) {
	var err error
	if d.readback, err = d.two.ReadByteAt(0x0000); err != nil {
		return 0, err
	}
	if d.readback == widthMarker {
		d.width = TwoByte
	} else {
		d.width = OneByte
	}
	return stateRestore, nil
}

func (d *detector) restore() (detectState, error) {
	if d.width == TwoByte {
		if err := d.two.Write(0x0000, []byte{d.orig0000}, false); err != nil {
			return 0, err
		}
	} else {
		if err := d.one.Write(0x00, []byte{d.orig00}, false); err != nil {
			return 0, err
		}
		if err := d.one.Write(0x01, []byte{d.orig01}, false); err != nil {
			return 0, err
		}
	}
	d.dirty = false
	return stateSizeSearch, nil
}

func (d *detector) sizeSearch() (detectState, error) {
	mem := d.one
	if d.width == TwoByte {
		mem = d.two
	}
	for n := MinCapacity; n <= MaxCapacity; n *= 2 {
		if aliases(mem, n) {
			d.capacity = n
			return stateDone, nil
		}
	}
	return 0, ErrCapacityNotFound
}

// Undoes the marker write without knowing the width. The 2-byte location
// goes first: on a 1-byte device that write lands on 0x00 and 0x01, which the
// two 1-byte writes then fix, and on a 2-byte device those only set the
// address pointer.
func (d *detector) rollback() bool {
	if !d.dirty {
		return true
	}
	ok := true
	if err := d.two.Write(0x0000, []byte{d.orig0000}, false); err != nil {
		glog.Warningf("Restoring 2-byte location 0x0000 failed: %v", err)
		ok = false
	}
	if err := d.one.Write(0x00, []byte{d.orig00}, false); err != nil {
		glog.Warningf("Restoring 1-byte location 0x00 failed: %v", err)
		ok = false
	}
	if err := d.one.Write(0x01, []byte{d.orig01}, false); err != nil {
		glog.Warningf("Restoring 1-byte location 0x01 failed: %v", err)
		ok = false
	}
	d.dirty = !ok
	return ok
}

// aliases reports whether address n reaches the same cell as address 0,
// i.e. whether the device holds n bytes. Address 0 is written back after
// every probe that tried to change it. Failures count as "not this size".
func aliases(mem *Memory, n int) bool {
	orig, err := mem.ReadByteAt(0)
	if err != nil {
		glog.V(1).Infof("Size probe %d: %v", n, err)
		return false
	}
	at, err := mem.ReadByteAt(n)
	if err != nil {
		glog.V(1).Infof("Size probe %d: %v", n, err)
		return false
	}
	if at != orig {
		return false
	}
	marker := orig + 1
	werr := mem.Write(0, []byte{marker}, false)
	var seen byte
	var rerr error
	if werr == nil {
		seen, rerr = mem.ReadByteAt(n)
	}
	restored := false
	for i := 0; i < restoreAttempts && !restored; i++ {
		if err = mem.Write(0, []byte{orig}, false); err != nil {
			glog.Warningf("Size probe %d: restoring address 0 failed: %v", n, err)
			continue
		}
		restored = true
	}
	if werr != nil || rerr != nil || !restored {
		glog.V(1).Infof("Size probe %d failed (write: %v, read: %v)", n, werr, rerr)
		return false
	}
	return seen == marker
}
