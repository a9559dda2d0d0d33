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

// Serial transport to the FRU programmer.
package fru

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/term"
)

//go:generate mockgen -destination=mocks/serial.go -package=mocks github.com/fmchub/fru SerialInterface
type SerialInterface interface {
	io.Reader
	io.Writer
	io.Closer
	// Clears any pending data from the read buffer.
	Flush() (err error)
	// Gets/Sets Read timeout.
	Timeout() time.Duration
	SetTimeout(timeout time.Duration)
}

type BaudRate uint32

const (
	BaudRateDefault BaudRate = 115200
)

// Frames are always 8N1.
type SerialConfig struct {
	BaudRate    BaudRate
	ReadTimeout time.Duration
}

var defaultSerialConfig = SerialConfig{
	BaudRateDefault,
	100 * time.Millisecond,
}

type SerialPort struct {
	name    string
	t       *term.Term
	timeout time.Duration
}

func OpenSerialPort(name string, conf *SerialConfig) (*SerialPort, error) {
	c := defaultSerialConfig
	if conf != nil {
		c = *conf
	}
	t, err := term.Open(name, term.Speed(int(c.BaudRate)), term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("Failed to open %v: %v", name, err)
	}
	// Non-blocking reads; Read polls until its own deadline.
	if err = t.SetReadTimeout(0); err != nil {
		t.Close()
		return nil, fmt.Errorf("SetReadTimeout failed: %v", err)
	}
	glog.V(1).Infof("Opened %v: %v", name, c)
	return &SerialPort{name, t, c.ReadTimeout}, nil
}

func (s *SerialPort) Name() string {
	return s.name
}

// Read blocks until p is full or the timeout elapses. A timeout is reported
// as a short count, not as an error.
func (s *SerialPort) Read(p []byte) (n int, err error) {
	deadline := time.Now().Add(s.timeout)
	for n < len(p) {
		var k int
		k, err = s.t.Read(p[n:])
		if err == io.EOF {
			err = nil
		}
		if err != nil {
			return n, fmt.Errorf("read %v failed: %v", s.name, err)
		}
		n += k
		if n == len(p) || time.Now().After(deadline) {
			break
		}
		if k == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	if glog.V(2) {
		glog.Infof("[serial-read]: data =\n%s", hex.Dump(p[:n]))
	}
	return n, nil
}

func (s *SerialPort) Write(p []byte) (n int, err error) {
	if glog.V(2) {
		glog.Infof("[serial-write]: data =\n%s", hex.Dump(p))
	}
	if n, err = s.t.Write(p); err != nil {
		return n, fmt.Errorf("write %v failed: %v", s.name, err)
	}
	return n, nil
}

func (s *SerialPort) Flush() error {
	return s.t.Flush()
}

func (s *SerialPort) Timeout() time.Duration {
	return s.timeout
}

func (s *SerialPort) SetTimeout(timeout time.Duration) {
	s.timeout = timeout
}

func (s *SerialPort) Close() error {
	return s.t.Close()
}
