// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// bmp280server exposes the latest sensor reading over HTTP as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/jessevdk/go-flags"
	"github.com/paolosabatino/bmp280"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

type programArgs struct {
	// Server Options
	Host string `short:"H" long:"host" default:"127.0.0.1" description:"IP to listen on"`
	Port uint16 `short:"P" long:"port" default:"28015" description:"Port to listen on"`

	// Sensor Options
	Interval  uint16 `short:"I" long:"interval" default:"5" description:"Interval between readings in seconds"`
	I2CDevice string `short:"D" long:"i2cdev" description:"The used I2C device (default: auto)"`
	Address   string `short:"a" long:"address" default:"0x76" description:"I2C address of the sensor"`
}

type sensorReading struct {
	Temperature float64   `json:"temperature"`
	Pressure    float64   `json:"pressure"`
	Updated     time.Time `json:"updated"`
}

const hectoPascal = 100 * physic.Pascal

var (
	readingMu      sync.RWMutex
	currentReading sensorReading
)

func updateReading(ch <-chan physic.Env) {
	for env := range ch {
		reading := sensorReading{
			Temperature: env.Temperature.Celsius(),
			Pressure:    float64(env.Pressure) / float64(hectoPascal),
			Updated:     time.Now(),
		}
		readingMu.Lock()
		currentReading = reading
		readingMu.Unlock()
	}
}

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

	// SenseContinuous will take one reading immediately before looping.
	ch, err := dev.SenseContinuous(time.Duration(args.Interval) * time.Second)
	if err != nil {
		log.Fatalf("Couldn't start taking readings: %v", err)
	}
	defer dev.Halt()

	go updateReading(ch)

	r := mux.NewRouter()
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		readingMu.RLock()
		reading := currentReading
		readingMu.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(reading); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	listenAddr := fmt.Sprintf("%s:%d", args.Host, args.Port)
	srv := &http.Server{
		Addr:         listenAddr,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		Handler:      r,
	}

	go func() {
		log.Printf("Listening on %s…", listenAddr)
		err := srv.ListenAndServe()
		log.Printf("Shutdown (%v)", err)
	}()

	sigChan := make(chan os.Signal, 1)
	// Accept graceful shutdowns on SIGINT (Ctrl+C) only.
	signal.Notify(sigChan, os.Interrupt)

	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()
	// Doesn't block if no connections, but will otherwise wait until the
	// timeout deadline.
	_ = srv.Shutdown(ctx)
}
