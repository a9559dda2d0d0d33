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
	"bytes"
	"testing"
	"time"
)

func TestDiscardKeepsNextFrame(t *testing.T) {
	l := NewLink()
	h, d := l.Host(), l.Device()
	h.Write([]byte{'r', 0x50})
	if op, _ := d.ReadByte(); op != 'r' {
		t.Fatalf("Unexpected opcode %#02x", op)
	}
	d.Write([]byte{'?'})
	// The host answers the reply before the device drops the stray byte.
	h.Write([]byte{'f'})
	d.Discard()
	if n := d.Buffered(); n != 1 {
		t.Fatalf("Buffered() = %d after Discard, want 1", n)
	}
	if op, _ := d.ReadByte(); op != 'f' {
		t.Errorf("Next frame lost, read %#02x", op)
	}
}

func TestDiscardWithoutReply(t *testing.T) {
	l := NewLink()
	h, d := l.Host(), l.Device()
	h.Write([]byte{'x', 1, 2, 3})
	d.ReadByte()
	d.Discard()
	if n := d.Buffered(); n != 0 {
		t.Errorf("Buffered() = %d after Discard, want 0", n)
	}
}

func TestDropResponse(t *testing.T) {
	l := NewLink()
	h, d := l.Host(), l.Device()
	h.SetTimeout(5 * time.Millisecond)
	l.DropResponse(1)

	h.Write([]byte{'f'})
	d.ReadByte()
	d.Write([]byte{0xff})
	buf := make([]byte, 1)
	if n, err := h.Read(buf); n != 0 || err != nil {
		t.Errorf("Dropped response read as %d bytes (%v)", n, err)
	}

	h.Write([]byte{'f'})
	d.ReadByte()
	d.Write([]byte{0xff})
	if n, err := h.Read(buf); n != 1 || err != nil || !bytes.Equal(buf, []byte{0xff}) {
		t.Errorf("Read = %d, % x, %v", n, buf, err)
	}
}
