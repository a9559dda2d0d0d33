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

// Byte-oriented command protocol spoken between host and FRU programmer.
package protocol

import "fmt"

// Control bytes.
const (
	Ack  byte = 0x06
	Nack byte = '?'
	End  byte = 0xFF
)

type Command byte

const (
	CmdReadBurst Command = 'b' // query or set the read burst length
	CmdEcho      Command = 'f' // returns End
	CmdGA        Command = 'g' // geographic address pins
	CmdPresent   Command = 'p' // module presence
	CmdPolarity  Command = 'P' // write-protect polarity selector
	CmdRead      Command = 'r' // [dev, addr]
	CmdReadWide  Command = 'R' // [dev, addrHi, addrLo]
	CmdScan      Command = 's' // responding addresses, End terminated
	CmdVersion   Command = 'v' // major, minor, build, End
	CmdWrite     Command = 'w' // [dev, addr, data...]
	CmdWriteWide Command = 'W' // [dev, addrHi, addrLo, data...]
)

func (c Command) String() string {
	switch c {
	case CmdReadBurst:
		return "ReadBurst"
	case CmdEcho:
		return "Echo"
	case CmdGA:
		return "GeographicAddr"
	case CmdPresent:
		return "Present"
	case CmdPolarity:
		return "Polarity"
	case CmdRead:
		return "Read"
	case CmdReadWide:
		return "ReadWide"
	case CmdScan:
		return "Scan"
	case CmdVersion:
		return "Version"
	case CmdWrite:
		return "Write"
	case CmdWriteWide:
		return "WriteWide"
	}
	return fmt.Sprintf("Command(%#02x)", byte(c))
}

const (
	DefaultReadBurst = 8
	MaxReadBurst     = 64
	// Largest data payload of a single w/W command.
	MaxWriteData = 64
	// Device receive buffer: W opcode arguments plus MaxWriteData.
	BufferSize = 67
)

// FRU EEPROMs answer on EEPROMBase | GA, GA being 0..7.
const (
	EEPROMBase  byte = 0x50
	EEPROMSlots      = 8
)
