//go:build examples
// +build examples

// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp280_test

import (
	"fmt"
	"log"

	"github.com/paolosabatino/bmp280"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// basic example program for the BMP280 sensor using this library.
//
// To execute this as a stand-alone program:
//
// Copy the file example_test.go to a new directory.
// rename the file to main.go
// rename the Example() function to main, and the package to main
//
// execute:
//
//	go mod init mydomain.com/bmp280
//	go mod tidy
//	go build -o main main.go
//	./main
func Example() {
	fmt.Println("bmp280 example program")
	if _, err := host.Init(); err != nil {
		fmt.Println(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()
	dev, err := bmp280.NewI2C(bus, 0x76, nil)
	if err != nil {
		log.Fatal(err)
	}

	env := physic.Env{}
	if err := dev.Sense(&env); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Temperature: %s Pressure: %s\n", env.Temperature, env.Pressure)
	// Output: Temperature: 25.080°C Pressure: 100.653kPa
}
