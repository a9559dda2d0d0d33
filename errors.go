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
	"errors"
	"fmt"

	"github.com/fmchub/fru/protocol"
)

var (
	ErrArgument         = errors.New("invalid argument")
	ErrTransportTimeout = errors.New("programmer response timed out")
	ErrNack             = errors.New("programmer replied NACK")
	ErrDeviceNotFound   = errors.New("no FRU programmer found")
	ErrTargetNotFound   = errors.New("no EEPROM found on the bus")
	ErrUnknownWidth     = errors.New("address width unknown")
	ErrCapacityNotFound = errors.New("EEPROM capacity not detected")
	ErrVerify           = errors.New("read back differs from written data")
	ErrFileIO           = errors.New("file I/O failed")
)

// ResponseError is a response that did not classify as ok.
type ResponseError struct {
	Cmd  protocol.Command
	Resp []byte
	Err  error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%v: %v (response % x)", e.Cmd, e.Err, e.Resp)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}
