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

package fru_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fmchub/fru"
	"github.com/fmchub/fru/mocks"
	"github.com/fmchub/fru/protocol"
	"github.com/fmchub/fru/sim"

	"github.com/golang/mock/gomock"
)

func TestFindProgrammer(t *testing.T) {
	b, err := sim.NewBoard(sim.DefaultBoardConfig())
	if err != nil {
		t.Fatalf("NewBoard failed: %v", err)
	}
	b.Start()
	defer b.Close()

	open := func(name string) (fru.SerialInterface, error) {
		if name != "/dev/ttyACM1" {
			return nil, fmt.Errorf("no such port %v", name)
		}
		return b.Host(), nil
	}
	p, name, err := fru.FindProgrammer([]string{"/dev/ttyACM0", "/dev/ttyACM1"}, open)
	if err != nil {
		t.Fatalf("FindProgrammer failed: %v", err)
	}
	if name != "/dev/ttyACM1" {
		t.Errorf("Found programmer on %v", name)
	}
	addr, err := fru.FindTarget(p)
	if err != nil {
		t.Fatalf("FindTarget failed: %v", err)
	}
	e := fru.NewMemory(p, fru.EEPROM{Addr: addr}).Target()
	if e.Addr != 0x50 || e.Width != fru.OneByte {
		t.Errorf("Unexpected target %v", e)
	}
}

func TestFindProgrammerNone(t *testing.T) {
	open := func(name string) (fru.SerialInterface, error) {
		return nil, fmt.Errorf("no such port %v", name)
	}
	if _, _, err := fru.FindProgrammer([]string{"/dev/ttyUSB0"}, open); !errors.Is(err, fru.ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestFindTargetSilentProgrammer(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ser := mocks.NewMockSerialInterface(mockCtrl)
	p := openMock(t, ser,
		ser.EXPECT().Flush().Return(nil),
		ser.EXPECT().Write([]byte{'s'}).Return(1, nil),
		ser.EXPECT().Read(gomock.Any()).Return(0, nil),
	)
	_, err := fru.FindTarget(p)
	var re *fru.ResponseError
	if !errors.Is(err, fru.ErrTransportTimeout) || !errors.As(err, &re) || re.Cmd != protocol.CmdScan {
		t.Errorf("Expected a scan timeout, got %v", err)
	}
}
