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

// EEPROM memory interface.
package fru

import (
	"bytes"
	"fmt"
	"io"
)

type Memory struct {
	prog   *Programmer
	target EEPROM
}

// NewMemory binds target to prog. An unknown width is derived from the address.
func NewMemory(prog *Programmer, target EEPROM) *Memory {
	if target.Width == WidthUnknown {
		target.Width = DefaultWidth(target.Addr)
	}
	return &Memory{prog, target}
}

func (m *Memory) Target() EEPROM {
	return m.target
}

// Read returns one read burst starting at addr.
func (m *Memory) Read(addr int) ([]byte, error) {
	data, err := m.prog.Read(m.target.Addr, addr, m.target.Width)
	if err != nil {
		return nil, fmt.Errorf("Read at %#04x failed: %w", addr, err)
	}
	return data, nil
}

func (m *Memory) ReadByteAt(addr int) (byte, error) {
	data, err := m.Read(addr)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// ReadFull fills data from addr on, one burst at a time.
func (m *Memory) ReadFull(addr int, data []byte) error {
	for n := 0; n < len(data); {
		chunk, err := m.Read(addr + n)
		if err != nil {
			return err
		}
		n += copy(data[n:], chunk)
	}
	return nil
}

// Writes data at addr in one command.
// With validate set the range is read back and compared.
func (m *Memory) Write(addr int, data []byte, validate bool) error {
	if err := m.prog.Write(m.target.Addr, addr, m.target.Width, data); err != nil {
		return fmt.Errorf("Write at %#04x failed: %w", addr, err)
	}
	if !validate {
		return nil
	}
	out := make([]byte, len(data))
	if err := m.ReadFull(addr, out); err != nil {
		return err
	}
	if !bytes.Equal(out, data) {
		return fmt.Errorf("%w at %#04x: wrote % x, read % x", ErrVerify, addr, data, out)
	}
	return nil
}

type memReader struct {
	mem  *Memory
	addr int
}

func (r *memReader) Read(p []byte) (n int, err error) {
	if err = r.mem.ReadFull(r.addr, p); err != nil {
		return 0, err
	}
	r.addr += len(p)
	return len(p), nil
}

// NewMemoryReader reads sequentially from addr in read bursts.
func (m *Memory) NewMemoryReader(addr int) io.Reader {
	return &memReader{m, addr}
}

type memWriter struct {
	mem       *Memory
	addr      int
	blockSize int
}

// Whole blocks go out as burst writes, the remainder one byte at a time.
func (w *memWriter) Write(p []byte) (n int, err error) {
	for n < len(p) {
		toWrite := w.blockSize
		if len(p)-n < w.blockSize {
			toWrite = 1
		}
		if err = w.mem.Write(w.addr, p[n:n+toWrite], false); err != nil {
			return n, err
		}
		n += toWrite
		w.addr += toWrite
	}
	return n, nil
}

// NewMemoryWriter writes sequentially from addr in groups of the session's write burst.
func (m *Memory) NewMemoryWriter(addr int) io.Writer {
	return &memWriter{m, addr, m.prog.WriteBurst()}
}
