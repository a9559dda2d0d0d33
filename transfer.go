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
	"io"

	"github.com/golang/glog"
)

type Progress struct {
	Done  int
	Total int
}

func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return 100 * float64(p.Done) / float64(p.Total)
}

type ProgressFunc func(Progress)

func report(progress ProgressFunc, done, total int) {
	if progress != nil {
		progress(Progress{done, total})
	}
}

// Download copies the EEPROM contents to w in read bursts, returning the
// number of bytes written. An unknown capacity takes the default for the width.
// On failure w holds everything read before it.
func Download(mem *Memory, w io.Writer, progress ProgressFunc) (int, error) {
	t := mem.Target().WithDefaults()
	glog.Infof("Reading %d bytes from EEPROM %v", t.Capacity, t)
	r := mem.NewMemoryReader(0)
	buf := make([]byte, mem.prog.readBurst)
	n := 0
	for n < t.Capacity {
		chunk := buf
		if rem := t.Capacity - n; rem < len(chunk) {
			chunk = chunk[:rem]
		}
		if _, err := r.Read(chunk); err != nil {
			return n, fmt.Errorf("Download aborted at %#04x: %w", n, err)
		}
		if _, err := w.Write(chunk); err != nil {
			return n, fmt.Errorf("%w: %v", ErrFileIO, err)
		}
		n += len(chunk)
		report(progress, n, t.Capacity)
	}
	return n, nil
}

// Upload writes data from address 0 on. Every whole write burst goes out in
// one command, the tail one byte per command.
func Upload(mem *Memory, data []byte, progress ProgressFunc) error {
	t := mem.Target()
	if span := t.Width.Span(); len(data) > span {
		return fmt.Errorf("%w: %d bytes exceed the %v address space", ErrArgument, len(data), t.Width)
	}
	if t.Capacity > 0 && len(data) > t.Capacity {
		return fmt.Errorf("%w: %d bytes exceed the EEPROM capacity of %d", ErrArgument, len(data), t.Capacity)
	}
	burst := mem.prog.WriteBurst()
	glog.Infof("Writing %d bytes to EEPROM %v in bursts of %d (image fits a %d byte part)",
		len(data), t, burst, CapacityHint(len(data)))
	w := mem.NewMemoryWriter(0)
	for n := 0; n < len(data); {
		end := n + burst
		if end > len(data) {
			end = len(data)
		}
		if _, err := w.Write(data[n:end]); err != nil {
			return fmt.Errorf("Upload aborted at %#04x: %w", n, err)
		}
		n = end
		report(progress, n, len(data))
	}
	return nil
}
