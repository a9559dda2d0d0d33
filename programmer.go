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

// FRU EEPROM programmer host client.
package fru

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fmchub/fru/protocol"

	"github.com/golang/glog"
)

// Longest sentinel-terminated reply: a scan answered by every EEPROM slot.
const maxSentinelResponse = protocol.EEPROMSlots + 1

type FwVersion struct {
	Major byte
	Minor byte
	Build byte
}

func (v FwVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

// Programmer is a session with one FRU programmer. It owns the transport
// and the burst parameters for the lifetime of the host process.
type Programmer struct {
	port       SerialInterface
	version    FwVersion
	readBurst  int
	writeBurst int
}

func (p *Programmer) send(cmd protocol.Command, args ...byte) error {
	var err error
	if err = p.port.Flush(); err != nil {
		return fmt.Errorf("Flush failed: %v", err)
	}
	frame := append([]byte{byte(cmd)}, args...)
	glog.V(2).Infof("[fru-send]: %v\n%s", cmd, hex.Dump(frame))
	var n int
	if n, err = p.port.Write(frame); err != nil {
		return fmt.Errorf("Failed to write %v command: %v", cmd, err)
	}
	if n != len(frame) {
		return fmt.Errorf("Short write of %v command (%d of %d)", cmd, n, len(frame))
	}
	return nil
}

func (p *Programmer) read(cmd protocol.Command, buf []byte) error {
	n, err := p.port.Read(buf)
	if err != nil {
		return fmt.Errorf("Failed to read %v response: %v", cmd, err)
	}
	if n < len(buf) {
		return &ResponseError{cmd, buf[:n], ErrTransportTimeout}
	}
	return nil
}

// Reads ACK followed by n bytes. Stops at a first byte that is not ACK.
func (p *Programmer) expectAckThen(cmd protocol.Command, n int) ([]byte, error) {
	status := make([]byte, 1)
	if err := p.read(cmd, status); err != nil {
		return nil, err
	}
	if status[0] != protocol.Ack {
		return nil, &ResponseError{cmd, status, ErrNack}
	}
	data := make([]byte, n)
	if n == 0 {
		return data, nil
	}
	if err := p.read(cmd, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (p *Programmer) expectWriteAck(cmd protocol.Command) error {
	_, err := p.expectAckThen(cmd, 0)
	return err
}

// Reads bytes up to the End sentinel and returns the bytes before it.
func (p *Programmer) expectSentinelTerminated(cmd protocol.Command) ([]byte, error) {
	var res []byte
	b := make([]byte, 1)
	for len(res) < maxSentinelResponse {
		if err := p.read(cmd, b); err != nil {
			return nil, err
		}
		if b[0] == protocol.End {
			return res, nil
		}
		res = append(res, b[0])
	}
	return nil, &ResponseError{cmd, res, fmt.Errorf("missing %#02x terminator", protocol.End)}
}

func (p *Programmer) expectByte(cmd protocol.Command) (byte, error) {
	b := make([]byte, 1)
	if err := p.read(cmd, b); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Only a programmer answering v with exactly three bytes and End is accepted.
func (p *Programmer) checkVersion() error {
	var err error
	if err = p.send(protocol.CmdVersion); err != nil {
		return err
	}
	var res []byte
	if res, err = p.expectSentinelTerminated(protocol.CmdVersion); err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
	}
	if len(res) != 3 {
		return fmt.Errorf("%w: version response % x", ErrDeviceNotFound, res)
	}
	p.version = FwVersion{res[0], res[1], res[2]}
	glog.V(1).Infof("FRU programmer firmware %v", p.version)
	return nil
}

// Takes ownership of port: the programmer closes it on Close().
// A read burst outside the legal set is reset to the default.
func NewProgrammer(port SerialInterface) (*Programmer, error) {
	var err error
	glog.V(1).Infof("Opening FRU programmer")
	p := &Programmer{
		port:       port,
		readBurst:  protocol.DefaultReadBurst,
		writeBurst: DefaultWriteBurst,
	}
	if err = p.checkVersion(); err != nil {
		return nil, err
	}
	var n int
	if n, err = p.ReadBurst(); err != nil {
		return nil, fmt.Errorf("Failed to query read burst: %w", err)
	}
	if NormalizeReadBurst(n) != n {
		if _, err = p.SetReadBurst(n); err != nil {
			return nil, fmt.Errorf("Failed to reset read burst: %w", err)
		}
	}
	return p, nil
}

func (p *Programmer) Close() error {
	return p.port.Close()
}

func (p *Programmer) Version() FwVersion {
	return p.version
}

// Echo checks that the programmer answers f with End.
func (p *Programmer) Echo() error {
	if err := p.send(protocol.CmdEcho); err != nil {
		return err
	}
	b, err := p.expectByte(protocol.CmdEcho)
	if err != nil {
		return err
	}
	if b != protocol.End {
		return &ResponseError{protocol.CmdEcho, []byte{b}, ErrNack}
	}
	return nil
}

func (p *Programmer) query(cmd protocol.Command) (byte, error) {
	if err := p.send(cmd); err != nil {
		return 0, err
	}
	return p.expectByte(cmd)
}

// GeographicAddr returns the GA1:GA0 pins seen by the programmer.
func (p *Programmer) GeographicAddr() (byte, error) {
	return p.query(protocol.CmdGA)
}

func (p *Programmer) ModulePresent() (bool, error) {
	b, err := p.query(protocol.CmdPresent)
	return b == 1, err
}

// WriteProtectPolarity returns 0 when the polarity jumper is low.
func (p *Programmer) WriteProtectPolarity() (byte, error) {
	return p.query(protocol.CmdPolarity)
}

// ReadBurst queries the programmer's read burst and adopts it for this session.
func (p *Programmer) ReadBurst() (int, error) {
	b, err := p.query(protocol.CmdReadBurst)
	if err != nil {
		return 0, err
	}
	if b == 0 || b > protocol.MaxReadBurst {
		return 0, &ResponseError{protocol.CmdReadBurst, []byte{b}, ErrArgument}
	}
	p.readBurst = int(b)
	return p.readBurst, nil
}

// SetReadBurst sets the number of bytes returned per read command. Values
// outside the legal set are replaced by the default. Returns the value in effect.
func (p *Programmer) SetReadBurst(n int) (int, error) {
	b := NormalizeReadBurst(n)
	if err := p.send(protocol.CmdReadBurst, byte(b)); err != nil {
		return p.readBurst, err
	}
	res, err := p.expectAckThen(protocol.CmdReadBurst, 1)
	if err != nil {
		var re *ResponseError
		if errors.As(err, &re) && bytes.Equal(re.Resp, []byte{protocol.Nack}) {
			// Refused values reset the programmer to the default.
			p.readBurst = protocol.DefaultReadBurst
		}
		return p.readBurst, err
	}
	if int(res[0]) != b {
		return p.readBurst, &ResponseError{protocol.CmdReadBurst, res, fmt.Errorf("echoed %d, sent %d", res[0], b)}
	}
	p.readBurst = b
	glog.V(1).Infof("Read burst set to %d", b)
	return b, nil
}

// SetWriteBurst sets the host side write group size. Values outside the
// legal set are replaced by the default. Returns the value in effect.
func (p *Programmer) SetWriteBurst(n int) int {
	p.writeBurst = NormalizeWriteBurst(n)
	return p.writeBurst
}

func (p *Programmer) WriteBurst() int {
	return p.writeBurst
}

// Scan returns the addresses of the EEPROM slots that acknowledge.
func (p *Programmer) Scan() ([]byte, error) {
	if err := p.send(protocol.CmdScan); err != nil {
		return nil, err
	}
	return p.expectSentinelTerminated(protocol.CmdScan)
}

func encodeAddr(addr int, width AddressWidth) (protocol.Command, protocol.Command, []byte, error) {
	switch width {
	case OneByte:
		return protocol.CmdRead, protocol.CmdWrite, []byte{byte(addr)}, nil
	case TwoByte:
		return protocol.CmdReadWide, protocol.CmdWriteWide, []byte{byte(addr >> 8), byte(addr)}, nil
	}
	return 0, 0, nil, fmt.Errorf("%w: %v", ErrUnknownWidth, width)
}

// Read returns one read burst from memory address addr of device dev.
// Addresses are truncated to the width.
func (p *Programmer) Read(dev byte, addr int, width AddressWidth) ([]byte, error) {
	cmd, _, a, err := encodeAddr(addr, width)
	if err != nil {
		return nil, err
	}
	if err = p.send(cmd, append([]byte{dev}, a...)...); err != nil {
		return nil, err
	}
	return p.expectAckThen(cmd, p.readBurst)
}

// Write stores data at memory address addr of device dev in one bus transaction.
func (p *Programmer) Write(dev byte, addr int, width AddressWidth, data []byte) error {
	_, cmd, a, err := encodeAddr(addr, width)
	if err != nil {
		return err
	}
	if len(data) == 0 || len(data) > protocol.MaxWriteData {
		return fmt.Errorf("%w: %d data bytes", ErrArgument, len(data))
	}
	args := append([]byte{dev}, a...)
	if err = p.send(cmd, append(args, data...)...); err != nil {
		return err
	}
	return p.expectWriteAck(cmd)
}
