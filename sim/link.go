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
	"errors"
	"io"
	"sync"
	"time"
)

var ErrClosed = errors.New("link closed")

const DefaultTimeout = 100 * time.Millisecond

// Link is an in-memory serial line. Host writes arrive at the device whole,
// the way a USB CDC packet does.
type Link struct {
	mu       sync.Mutex
	toDevice []byte
	toHost   []byte
	notify   chan struct{}
	timeout  time.Duration
	closed   bool
	writes   int
	drop     map[int]bool
	dropping bool

	// Device input already buffered when the device last replied.
	stale   int
	replied bool
}

func NewLink() *Link {
	return &Link{
		notify:  make(chan struct{}, 1),
		timeout: DefaultTimeout,
		drop:    make(map[int]bool),
	}
}

// DropResponse discards everything the device sends in reply to the n-th
// host write, counting from 1.
func (l *Link) DropResponse(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.drop[n] = true
}

// Writes returns the number of host writes so far.
func (l *Link) Writes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writes
}

func (l *Link) Host() *HostEnd {
	return &HostEnd{l}
}

func (l *Link) Device() *DeviceEnd {
	return &DeviceEnd{l}
}

// HostEnd is the host side of a Link. Read blocks until p is full or the
// timeout elapses and reports a short count without error on timeout.
type HostEnd struct {
	l *Link
}

func (h *HostEnd) Read(p []byte) (n int, err error) {
	l := h.l
	l.mu.Lock()
	deadline := time.Now().Add(l.timeout)
	l.mu.Unlock()
	for {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return n, io.EOF
		}
		k := copy(p[n:], l.toHost)
		l.toHost = l.toHost[k:]
		l.mu.Unlock()
		n += k
		if n == len(p) {
			return n, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return n, nil
		}
		t := time.NewTimer(remaining)
		select {
		case <-l.notify:
		case <-t.C:
		}
		t.Stop()
	}
}

func (h *HostEnd) Write(p []byte) (int, error) {
	l := h.l
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, ErrClosed
	}
	l.writes++
	l.dropping = l.drop[l.writes]
	l.toDevice = append(l.toDevice, p...)
	return len(p), nil
}

func (h *HostEnd) Flush() error {
	l := h.l
	l.mu.Lock()
	defer l.mu.Unlock()
	l.toHost = nil
	return nil
}

func (h *HostEnd) Timeout() time.Duration {
	h.l.mu.Lock()
	defer h.l.mu.Unlock()
	return h.l.timeout
}

func (h *HostEnd) SetTimeout(timeout time.Duration) {
	h.l.mu.Lock()
	defer h.l.mu.Unlock()
	h.l.timeout = timeout
}

func (h *HostEnd) Close() error {
	h.l.mu.Lock()
	defer h.l.mu.Unlock()
	h.l.closed = true
	return nil
}

// DeviceEnd implements firmware.Port.
type DeviceEnd struct {
	l *Link
}

func (d *DeviceEnd) Buffered() int {
	d.l.mu.Lock()
	defer d.l.mu.Unlock()
	return len(d.l.toDevice)
}

func (d *DeviceEnd) ReadByte() (byte, error) {
	l := d.l
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.toDevice) == 0 {
		return 0, io.EOF
	}
	b := l.toDevice[0]
	l.toDevice = l.toDevice[1:]
	return b, nil
}

func (d *DeviceEnd) Write(p []byte) (int, error) {
	l := d.l
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, ErrClosed
	}
	if !l.dropping {
		l.toHost = append(l.toHost, p...)
	}
	l.stale, l.replied = len(l.toDevice), true
	select {
	case l.notify <- struct{}{}:
	default:
	}
	return len(p), nil
}

// Discard drops the input that was already buffered when the device last
// replied, so a command the host sent in reaction to that reply survives.
func (d *DeviceEnd) Discard() {
	l := d.l
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.toDevice)
	if l.replied && l.stale < n {
		n = l.stale
	}
	l.toDevice = l.toDevice[n:]
	l.stale, l.replied = 0, false
}
