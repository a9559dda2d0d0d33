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
	"bytes"
	"errors"
	"testing"

	"github.com/fmchub/fru"
	"github.com/fmchub/fru/mocks"
	"github.com/fmchub/fru/protocol"

	"github.com/golang/mock/gomock"
)

func expectRead(ser *mocks.MockSerialInterface, frame, data []byte) []*gomock.Call {
	return []*gomock.Call{
		ser.EXPECT().Flush().Return(nil),
		ser.EXPECT().Write(frame).Return(len(frame), nil),
		ser.EXPECT().Read(gomock.Any()).SetArg(0, []byte{protocol.Ack}).Return(1, nil),
		ser.EXPECT().Read(gomock.Any()).SetArg(0, data).Return(len(data), nil),
	}
}

func expectWrite(ser *mocks.MockSerialInterface, frame []byte) []*gomock.Call {
	return []*gomock.Call{
		ser.EXPECT().Flush().Return(nil),
		ser.EXPECT().Write(frame).Return(len(frame), nil),
		ser.EXPECT().Read(gomock.Any()).SetArg(0, []byte{protocol.Ack}).Return(1, nil),
	}
}

func TestMemoryReadFull(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ser := mocks.NewMockSerialInterface(mockCtrl)
	var calls []*gomock.Call
	calls = append(calls, expectRead(ser, []byte{'R', 0x54, 0x01, 0x00}, []byte{0, 1, 2, 3, 4, 5, 6, 7})...)
	calls = append(calls, expectRead(ser, []byte{'R', 0x54, 0x01, 0x08}, []byte{8, 9, 10, 11, 12, 13, 14, 15})...)
	p := openMock(t, ser, calls...)

	m := fru.NewMemory(p, fru.EEPROM{Addr: 0x54})
	out := make([]byte, 12)
	if err := m.ReadFull(0x100, out); err != nil {
		t.Fatalf("ReadFull failed: %v", err)
	}
	if !bytes.Equal(out, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}) {
		t.Errorf("Unexpected data returned (%v)", out)
	}
}

func TestMemoryWriteDataVerificationPasses(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ser := mocks.NewMockSerialInterface(mockCtrl)
	var calls []*gomock.Call
	calls = append(calls, expectWrite(ser, []byte{'w', 0x50, 0x10, 0xaa, 0xbb, 0xcc})...)
	calls = append(calls, expectRead(ser, []byte{'r', 0x50, 0x10}, []byte{0xaa, 0xbb, 0xcc, 0, 0, 0, 0, 0})...)
	p := openMock(t, ser, calls...)

	m := fru.NewMemory(p, fru.EEPROM{Addr: 0x50})
	if err := m.Write(0x10, []byte{0xaa, 0xbb, 0xcc}, true); err != nil {
		t.Errorf("Memory Write failed: %v", err)
	}
}

func TestMemoryWriteDataVerificationFails(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ser := mocks.NewMockSerialInterface(mockCtrl)
	var calls []*gomock.Call
	calls = append(calls, expectWrite(ser, []byte{'w', 0x50, 0x10, 0xaa, 0xbb, 0xcc})...)
	// 2nd byte is different.
	calls = append(calls, expectRead(ser, []byte{'r', 0x50, 0x10}, []byte{0xaa, 0xdd, 0xcc, 0, 0, 0, 0, 0})...)
	p := openMock(t, ser, calls...)

	m := fru.NewMemory(p, fru.EEPROM{Addr: 0x50})
	if err := m.Write(0x10, []byte{0xaa, 0xbb, 0xcc}, true); !errors.Is(err, fru.ErrVerify) {
		t.Errorf("Expected ErrVerify, got %v", err)
	}
}

func TestMemoryWriterSplitsTail(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ser := mocks.NewMockSerialInterface(mockCtrl)
	var calls []*gomock.Call
	calls = append(calls, expectWrite(ser, []byte{'w', 0x50, 0x00, 1, 2, 3, 4, 5, 6, 7, 8})...)
	calls = append(calls, expectWrite(ser, []byte{'w', 0x50, 0x08, 9})...)
	calls = append(calls, expectWrite(ser, []byte{'w', 0x50, 0x09, 10})...)
	p := openMock(t, ser, calls...)

	w := fru.NewMemory(p, fru.EEPROM{Addr: 0x50}).NewMemoryWriter(0)
	n, err := w.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	if err != nil || n != 10 {
		t.Errorf("Write returned %d, %v", n, err)
	}
}
