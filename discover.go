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
	"path/filepath"
	"sort"

	"github.com/golang/glog"
)

// USB CDC-ACM and USB-serial device nodes.
var serialPortPatterns = []string{
	"/dev/ttyACM*",
	"/dev/ttyUSB*",
	"/dev/cu.usbmodem*",
}

// SerialPortCandidates lists the serial device nodes a programmer may sit behind.
func SerialPortCandidates() []string {
	var names []string
	for _, p := range serialPortPatterns {
		m, err := filepath.Glob(p)
		if err != nil {
			continue
		}
		names = append(names, m...)
	}
	sort.Strings(names)
	return names
}

type OpenFunc func(name string) (SerialInterface, error)

// OpenSerial opens name with the default configuration.
func OpenSerial(name string) (SerialInterface, error) {
	return OpenSerialPort(name, nil)
}

// FindProgrammer returns a session on the first of names that answers the
// version handshake, and that name.
func FindProgrammer(names []string, open OpenFunc) (*Programmer, string, error) {
	for _, name := range names {
		port, err := open(name)
		if err != nil {
			glog.V(1).Infof("Skipping %v: %v", name, err)
			continue
		}
		p, err := NewProgrammer(port)
		if err != nil {
			glog.V(1).Infof("Skipping %v: %v", name, err)
			port.Close()
			continue
		}
		glog.Infof("FRU programmer %v found on %v", p.Version(), name)
		return p, name, nil
	}
	return nil, "", fmt.Errorf("%w (tried %v)", ErrDeviceNotFound, names)
}

// FindTarget scans the EEPROM slots and selects the last address that answered.
func FindTarget(p *Programmer) (byte, error) {
	addrs, err := p.Scan()
	if err != nil {
		return 0, fmt.Errorf("Scan failed: %w", err)
	}
	if len(addrs) == 0 {
		return 0, ErrTargetNotFound
	}
	glog.V(1).Infof("EEPROMs answering: % x", addrs)
	return addrs[len(addrs)-1], nil
}
