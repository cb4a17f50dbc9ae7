// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// bmp280read prints temperature and pressure readings on an interval.
//
// By default each reading is a one-shot (forced) conversion; with --normal
// the chip converts continuously on its own and the program only collects
// the latest result.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/paolosabatino/bmp280"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

type programArgs struct {
	I2CDevice string `short:"D" long:"i2cdev" description:"The used I2C device (default: auto)"`
	Address   string `short:"a" long:"address" default:"0x76" description:"I2C address of the sensor"`
	Interval  uint16 `short:"I" long:"interval" default:"5" description:"Seconds between readings"`
	Count     uint   `short:"n" long:"count" default:"0" description:"Number of readings to take, 0 for forever"`
	Normal    bool   `short:"N" long:"normal" description:"Use normal (continuous) mode instead of one-shot"`
}

const hectoPascal = 100 * physic.Pascal

func main() {
	args := programArgs{}
	if _, err := flags.Parse(&args); err != nil {
		os.Exit(1)
	}

	addr, err := strconv.ParseUint(args.Address, 0, 16)
	if err != nil {
		log.Fatalf("Invalid sensor address %q: %v", args.Address, err)
	}

	if _, err := host.Init(); err != nil {
		log.Fatalf("Initialization failed: %v", err)
	}
	bus, err := i2creg.Open(args.I2CDevice)
	if err != nil {
		log.Fatalf("Couldn't open I2C device: %v", err)
	}
	defer bus.Close()

	dev, err := bmp280.NewI2C(bus, uint16(addr), nil)
	if err != nil {
		log.Fatalf("Couldn't initialize sensor: %v", err)
	}

	if args.Normal {
		if err := dev.SetMode(bmp280.ModeNormal); err != nil {
			log.Fatalf("Couldn't switch to normal mode: %v", err)
		}
		// Don't leave the sensor converting forever after the program exits.
		defer func() {
			if err := dev.SetMode(bmp280.ModeForced); err != nil {
				log.Printf("Couldn't restore one-shot mode: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	ticker := time.NewTicker(time.Duration(args.Interval) * time.Second)
	defer ticker.Stop()

	for taken := uint(0); args.Count == 0 || taken < args.Count; taken++ {
		env := physic.Env{}
		if err := dev.Sense(&env); err != nil {
			log.Fatalf("Couldn't take a reading: %v", err)
		}
		fmt.Printf("Temperature: %.2f °C - Pressure: %.2f hPa\n",
			env.Temperature.Celsius(), float64(env.Pressure)/float64(hectoPascal))

		select {
		case <-sigChan:
			fmt.Println("done")
			return
		case <-ticker.C:
		}
	}
	fmt.Println("done")
}
