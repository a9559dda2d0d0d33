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

// Reads and writes FMC FRU EEPROMs through the FRU programmer.
// The programmer is looked up on the serial ports unless --port names one;
// the EEPROM is the last address answering the bus scan.
package main

import (
	"flag"
	"fmt"

	"github.com/fmchub/fru"
	"github.com/fmchub/fru/sim"
	"github.com/fmchub/fru/util"

	"github.com/golang/glog"
)

var (
	port       = flag.String("port", "", "serial port of the programmer, scanned for when empty")
	addrWidth  = flag.Int("a", 0, "EEPROM address width in bytes (1 or 2)")
	sizeBits   = flag.Int("l", 0, "EEPROM size in bits, multiple of 1024")
	sizeBytes  = flag.Int("L", 0, "EEPROM size in bytes, multiple of 128")
	readBurst  = flag.Int("r", 0, "read burst: 1, 8, 16, 24, 32, 40, 48, 56 or 64")
	writeBurst = flag.Int("w", 0, "write burst: 1, 8, 16 or 32")
	download   = flag.String("d", "", "download the EEPROM into this file (.bin or .hex)")
	upload     = flag.String("u", "", "upload this file (.bin or .hex) into the EEPROM")
	verify     = flag.Bool("verify", false, "read back and compare after -u")
	busScan    = flag.Bool("i", false, "scan the bus for EEPROMs")
	detect     = flag.Bool("m", false, "detect EEPROM address width and size")
	present    = flag.Bool("p", false, "report FMC module presence and programmer pins")
	portScan   = flag.Bool("s", false, "scan serial ports for the programmer")
	emulate    = flag.Bool("emulate", false, "talk to a simulated programmer with a 24C02")
)

func init() {
	flag.Parse()
}

func printProgress(p fru.Progress) {
	fmt.Printf("\r%5.1f%%", p.Percent())
	if p.Done == p.Total {
		fmt.Println()
	}
}

func openProgrammer() (*fru.Programmer, func(), error) {
	if *emulate {
		b, err := sim.NewBoard(sim.DefaultBoardConfig())
		if err != nil {
			return nil, nil, err
		}
		b.Start()
		p, err := fru.NewProgrammer(b.Host())
		if err != nil {
			b.Close()
			return nil, nil, err
		}
		return p, func() { b.Close() }, nil
	}
	names := []string{*port}
	if *port == "" {
		names = fru.SerialPortCandidates()
	}
	p, name, err := fru.FindProgrammer(names, fru.OpenSerial)
	if err != nil {
		return nil, nil, err
	}
	if *portScan {
		fmt.Printf("FRU programmer %v on %v\n", p.Version(), name)
	}
	return p, func() { p.Close() }, nil
}

// EEPROM parameters given on the command line. Illegal values stay unknown.
func configuredTarget() fru.EEPROM {
	var e fru.EEPROM
	switch *addrWidth {
	case 0:
	case 1:
		e.Width = fru.OneByte
	case 2:
		e.Width = fru.TwoByte
	default:
		glog.Warningf("Ignoring address width %d", *addrWidth)
	}
	var err error
	if *sizeBits != 0 {
		if e.Capacity, err = fru.CapacityFromBits(*sizeBits); err != nil {
			glog.Warning(err)
		}
	}
	if *sizeBytes != 0 {
		if e.Capacity, err = fru.CapacityFromBytes(*sizeBytes); err != nil {
			glog.Warning(err)
		}
	}
	return e
}

func run() error {
	prog, closeFn, err := openProgrammer()
	if err != nil {
		return err
	}
	defer closeFn()

	if *readBurst != 0 {
		n, err := prog.SetReadBurst(*readBurst)
		if err != nil {
			return err
		}
		fmt.Printf("Read burst: %d\n", n)
	}
	if *writeBurst != 0 {
		fmt.Printf("Write burst: %d\n", prog.SetWriteBurst(*writeBurst))
	}
	if *present {
		ok, err := prog.ModulePresent()
		if err != nil {
			return err
		}
		if ok {
			fmt.Println("FMC module is present (pin H2 PRSNT_M2C_L is LOW)")
		} else {
			fmt.Println("FMC module is not present (pin H2 PRSNT_M2C_L is HIGH)")
		}
		ga, err := prog.GeographicAddr()
		if err != nil {
			return err
		}
		pol, err := prog.WriteProtectPolarity()
		if err != nil {
			return err
		}
		fmt.Printf("GA1:GA0 = %d, write-protect polarity jumper = %d\n", ga, pol)
	}
	if *busScan {
		addrs, err := prog.Scan()
		if err != nil {
			return err
		}
		for _, a := range addrs {
			fmt.Printf("EEPROM found at %#02x\n", a)
		}
	}
	if !*detect && *download == "" && *upload == "" {
		return nil
	}

	addr, err := fru.FindTarget(prog)
	if err != nil {
		return err
	}
	target := configuredTarget()
	target.Addr = addr
	if *detect {
		if target, err = fru.Detect(prog, addr); err != nil {
			return err
		}
		fmt.Printf("EEPROM %v\n", target)
	}
	mem := fru.NewMemory(prog, target)
	if *download != "" {
		if err = util.DumpFile(mem, *download, printProgress); err != nil {
			return err
		}
	}
	if *upload != "" {
		if err = util.ProgramFile(mem, *upload, *verify, printProgress); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	defer glog.Flush()

	if err := run(); err != nil {
		glog.Fatalf("Failed: %v", err)
	}
}
