// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp280

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

const (
	regChipID   byte = 0xD0 // read-only, must contain 0x58
	regReset    byte = 0xE0
	regStatus   byte = 0xF3
	regCtrlMeas byte = 0xF4
	regConfig   byte = 0xF5
	regPressMSB byte = 0xF7 // start of the 6 byte pressure+temperature block
	regCalib    byte = 0x88 // start of the 26 byte calibration block
)

const (
	chipID     byte = 0x58
	resetMagic byte = 0xB6

	// status register bits.
	statusImUpdate  byte = 1 << 0 // NVM data is being copied to registers
	statusMeasuring byte = 1 << 3 // conversion results not yet latched

	// ctrl_meas low two bits hold the power mode.
	modeMask byte = 0x03

	calibSize = 26
)

// Mode is the power mode of the sensor, encoded as the mode bits of the
// ctrl_meas register.
type Mode byte

const (
	// ModeSleep is the hardware state after power-on or reset. It is not a
	// valid argument to SetMode; the driver arms ModeForced instead.
	ModeSleep Mode = 0x00
	// ModeForced performs one conversion per Sense() call and lets the chip
	// fall back to sleep in between.
	ModeForced Mode = 0x02
	// ModeNormal keeps the chip converting on its own cadence; Sense() only
	// collects the latest latched result.
	ModeNormal Mode = 0x03
)

func (m Mode) String() string {
	switch m {
	case ModeSleep:
		return "Sleep"
	case ModeForced:
		return "Forced"
	case ModeNormal:
		return "Normal"
	default:
		return fmt.Sprintf("Mode(%d)", byte(m))
	}
}

// Oversampling affects how much time and power each conversion takes in
// exchange for lower noise. The value is the register code written to
// ctrl_meas.
type Oversampling uint8

// Possible oversampling values. Off skips the measurement entirely.
const (
	Off  Oversampling = 0
	O1x  Oversampling = 1
	O2x  Oversampling = 2
	O4x  Oversampling = 3
	O8x  Oversampling = 4
	O16x Oversampling = 5
)

const oversamplingName = "Off1x2x4x8x16x"

var oversamplingIndex = [...]uint8{0, 3, 5, 7, 9, 11, 14}

func (o Oversampling) String() string {
	if o >= Oversampling(len(oversamplingIndex)-1) {
		return fmt.Sprintf("Oversampling(%d)", o)
	}
	return oversamplingName[oversamplingIndex[o]:oversamplingIndex[o+1]]
}

// Filter selects the internal IIR filter coefficient used to steady
// pressure readings against short transients like door slams.
type Filter uint8

// Possible filtering values.
const (
	NoFilter Filter = 0
	F2       Filter = 1
	F4       Filter = 2
	F8       Filter = 3
	F16      Filter = 4
)

// Standby selects the pause between conversions while in ModeNormal.
type Standby uint8

// Possible standby values.
const (
	S500us Standby = 0
	S62ms  Standby = 1
	S125ms Standby = 2
	S250ms Standby = 3
	S500ms Standby = 4
	S1s    Standby = 5
	S2s    Standby = 6
	S4s    Standby = 7
)

// Opts holds the configuration options for the device.
type Opts struct {
	// Temperature oversampling. Off skips temperature conversion, which also
	// makes pressure compensation meaningless.
	Temperature Oversampling
	// Pressure oversampling.
	Pressure Oversampling
	// Filter is the IIR filter coefficient, written once at initialization.
	Filter Filter
	// Standby is the inactive period between conversions in ModeNormal.
	Standby Standby
	// PollInterval is the pause between reads while waiting on a chip status
	// bit. Leave 0 to use the default of 1ms.
	PollInterval time.Duration
	// PollTimeout bounds every status poll loop. On exhaustion the pending
	// operation fails with a PollTimeoutError. 0 means no bound, which
	// reproduces the chip's documented behavior but can hang forever on
	// broken hardware.
	PollTimeout time.Duration
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Temperature:  O1x,
	Pressure:     O1x,
	PollInterval: time.Millisecond,
	PollTimeout:  500 * time.Millisecond,
}

// Measurement is the result of the most recent successful sample. It is
// overwritten in place on every Sense; no history is kept.
type Measurement struct {
	Temperature physic.Temperature
	Pressure    physic.Pressure
	Time        time.Time
}

// Dev is a handle to an initialized BMP280.
type Dev struct {
	d     conn.Conn
	isSPI bool
	opts  Opts
	cal   calibration

	mu   sync.Mutex
	mode Mode
	last Measurement
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewI2C returns an object that communicates over I²C to a BMP280
// environmental sensor.
//
// The address must be 0x76 or 0x77, depending on the wiring of the SDO pin.
// The device is soft-reset and its calibration block is captured before the
// function returns. The Opts can be nil.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	switch addr {
	case 0x76, 0x77:
	default:
		return nil, errors.New("bmp280: given address not supported by device")
	}
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}, isSPI: false}
	if err := d.makeDev(opts); err != nil {
		return nil, err
	}
	return d, nil
}

// NewSPI returns an object that communicates over SPI to a BMP280
// environmental sensor.
//
// When using SPI, the CS line must be used.
func NewSPI(p spi.Port, opts *Opts) (*Dev, error) {
	// It works both in Mode0 and Mode3.
	c, err := p.Connect(10*physic.MegaHertz, spi.Mode3, 8)
	if err != nil {
		return nil, fmt.Errorf("bmp280: %w", err)
	}
	d := &Dev{d: c, isSPI: true}
	if err := d.makeDev(opts); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("bmp280{%s}", d.d)
}

// Reset soft-resets the chip and re-runs the whole initialization sequence,
// including calibration capture. The tracked mode returns to ModeForced.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return d.wrap(errors.New("already sensing continuously"))
	}
	return d.initialize()
}

// Mode returns the power mode the driver last committed to the chip.
func (d *Dev) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// SetMode switches the chip between one-shot and continuous sampling.
//
// Only ModeForced and ModeNormal are accepted. Setting the mode the device
// is already in performs no bus traffic. ModeForced does not write the
// forced code itself: it parks the chip in sleep and lets Sense() trigger
// each conversion.
func (d *Dev) SetMode(m Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setMode(m)
}

// Sense requests a measurement as °C and Pa.
//
// In ModeForced it wakes the chip for a single conversion and waits for the
// chip to fall back asleep; in ModeNormal it only waits for the latest
// conversion to be latched. Both raw values are collected with one burst
// read so temperature and pressure belong to the same conversion cycle.
//
// A pressure of 0 means the chip could not produce a valid pressure
// reading; the temperature is still valid in that case.
func (d *Dev) Sense(e *physic.Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return d.wrap(errors.New("already sensing continuously"))
	}
	return d.sample(e)
}

// SenseContinuous returns measurements as °C and Pa on a continuous basis.
//
// The chip is switched to ModeNormal for the duration. The application must
// call Halt() to stop the sensing, close the channel and return the chip to
// the one-shot state.
//
// It's the responsibility of the caller to retrieve the values from the
// channel as fast as possible, otherwise the interval may not be respected.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, d.wrap(errors.New("already sensing continuously"))
	}
	if err := d.setMode(ModeNormal); err != nil {
		return nil, err
	}

	sensing := make(chan physic.Env)
	stop := make(chan struct{})
	d.stop = stop
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(sensing)
		d.sensingContinuous(interval, sensing, stop)
	}()
	return sensing, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = 10 * physic.MilliKelvin
	e.Pressure = 15625 * physic.MicroPascal / 4
	e.Humidity = 0
}

// Halt stops a SenseContinuous() operation and parks the chip back into the
// armed one-shot state. It is a no-op if no continuous sensing is running.
func (d *Dev) Halt() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	d.wg.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setMode(ModeForced)
}

// Temperature returns the temperature of the last successful sample.
func (d *Dev) Temperature() physic.Temperature {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last.Temperature
}

// Pressure returns the pressure of the last successful sample. 0 means no
// valid pressure has been measured yet.
func (d *Dev) Pressure() physic.Pressure {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last.Pressure
}

// LastSampleTime returns the wall-clock time of the last successful sample,
// or the zero time if none has completed yet.
func (d *Dev) LastSampleTime() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last.Time
}

// Last returns the whole record of the most recent successful sample.
func (d *Dev) Last() Measurement {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

//

func (d *Dev) makeDev(opts *Opts) error {
	if opts == nil {
		opts = &DefaultOpts
	}
	d.opts = *opts
	if d.opts.PollInterval <= 0 {
		d.opts.PollInterval = time.Millisecond
	}
	return d.initialize()
}

// initialize resets the chip, waits for its NVM copy to finish, verifies the
// product and captures the calibration block.
//
// It must be called with d.mu held (or before the Dev is shared).
func (d *Dev) initialize() error {
	if err := d.writeCommands([]byte{regReset, resetMagic}); err != nil {
		return err
	}
	// The calibration data is copied from NVM to the registers right after
	// reset; bit 0 of the status register reads 1 until the copy is done.
	if err := d.waitClear(regStatus, statusImUpdate, "reset"); err != nil {
		return err
	}

	id := [1]byte{}
	if err := d.readReg(regChipID, id[:]); err != nil {
		return err
	}
	if id[0] != chipID {
		return d.wrap(&ChipIDError{Got: id[0]})
	}

	blk := [calibSize]byte{}
	if err := d.readReg(regCalib, blk[:]); err != nil {
		return err
	}
	cal, err := newCalibration(blk[:])
	if err != nil {
		return d.wrap(err)
	}
	d.cal = cal

	// config is ignored by the chip while converting, so program it while
	// the chip is still asleep from the reset.
	if err := d.writeCommands([]byte{regConfig, byte(d.opts.Standby)<<5 | byte(d.opts.Filter)<<2}); err != nil {
		return err
	}

	// The chip sleeps after reset. Track ModeForced so the first Sense()
	// triggers a one-shot conversion.
	d.mode = ModeForced
	return nil
}

// setMode must be called with d.mu held.
func (d *Dev) setMode(m Mode) error {
	if m == d.mode {
		return nil
	}
	osrs := byte(d.opts.Temperature)<<5 | byte(d.opts.Pressure)<<2
	var ctrl byte
	switch m {
	case ModeForced:
		// Arm one-shot sampling by leaving the chip asleep; Sense() writes
		// the forced code for each conversion.
		ctrl = osrs | byte(ModeSleep)
	case ModeNormal:
		ctrl = osrs | byte(ModeNormal)
	default:
		return d.wrap(&InvalidModeError{Mode: m})
	}
	if err := d.writeCommands([]byte{regCtrlMeas, ctrl}); err != nil {
		return err
	}
	d.mode = m
	return nil
}

// sample runs one full measurement cycle and commits the result. On any
// error the previously stored Measurement is left untouched.
//
// It must be called with d.mu held.
func (d *Dev) sample(e *physic.Env) error {
	if d.mode == ModeForced {
		osrs := byte(d.opts.Temperature)<<5 | byte(d.opts.Pressure)<<2
		if err := d.writeCommands([]byte{regCtrlMeas, osrs | byte(ModeForced)}); err != nil {
			return err
		}
		// The mode bits read back 00 once the one-shot conversion completed
		// and the chip went back to sleep.
		if err := d.waitClear(regCtrlMeas, modeMask, "forced conversion"); err != nil {
			return err
		}
	}
	// Covers both the forced conversion just completed and ModeNormal: the
	// measuring bit clears when the results are latched in the data
	// registers.
	if err := d.waitClear(regStatus, statusMeasuring, "measurement"); err != nil {
		return err
	}

	buf := [6]byte{}
	if err := d.readReg(regPressMSB, buf[:]); err != nil {
		return err
	}
	// These values are 20 bits as per doc.
	pRaw := int32(buf[0])<<12 | int32(buf[1])<<4 | int32(buf[2])>>4
	tRaw := int32(buf[3])<<12 | int32(buf[4])<<4 | int32(buf[5])>>4

	t, tFine := d.cal.compensateTemp(tRaw)
	// Convert centi-°C to Kelvin.
	e.Temperature = physic.Temperature(t)*10*physic.MilliCelsius + physic.ZeroCelsius

	p := d.cal.compensatePressure(pRaw, tFine)
	// It has 8 bits of fractional Pascal.
	e.Pressure = physic.Pressure(p) * 15625 * physic.MicroPascal / 4

	d.last = Measurement{Temperature: e.Temperature, Pressure: e.Pressure, Time: time.Now()}
	return nil
}

func (d *Dev) sensingContinuous(interval time.Duration, sensing chan<- physic.Env, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		// Do one initial sensing right away.
		e := physic.Env{}
		d.mu.Lock()
		err := d.sample(&e)
		d.mu.Unlock()
		if err != nil {
			log.Printf("%s: failed to sense: %v", d, err)
			return
		}
		select {
		case sensing <- e:
		case <-stop:
			return
		}
		select {
		case <-stop:
			return
		case <-t.C:
		}
	}
}

// waitClear polls reg until the bits in mask all read 0. The poll cadence
// and bound come from Opts.
func (d *Dev) waitClear(reg, mask byte, op string) error {
	var deadline time.Time
	if d.opts.PollTimeout > 0 {
		deadline = time.Now().Add(d.opts.PollTimeout)
	}
	for {
		v := [1]byte{}
		if err := d.readReg(reg, v[:]); err != nil {
			return err
		}
		if v[0]&mask == 0 {
			return nil
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return d.wrap(&PollTimeoutError{Op: op})
		}
		doSleep(d.opts.PollInterval)
	}
}

func (d *Dev) readReg(reg byte, b []byte) error {
	if d.isSPI {
		// MSB is 0 for write and 1 for read.
		read := make([]byte, len(b)+1)
		write := make([]byte, len(read))
		// Rest of the write buffer is ignored.
		write[0] = reg | 0x80
		if err := d.d.Tx(write, read); err != nil {
			return d.wrap(err)
		}
		copy(b, read[1:])
		return nil
	}
	if err := d.d.Tx([]byte{reg}, b); err != nil {
		return d.wrap(err)
	}
	return nil
}

// writeCommands writes a list of register/value pairs to the device.
//
// Warning: b may be modified!
func (d *Dev) writeCommands(b []byte) error {
	if d.isSPI {
		// set RW bit 7 to 0.
		for i := 0; i < len(b); i += 2 {
			b[i] &^= 0x80
		}
	}
	if err := d.d.Tx(b, nil); err != nil {
		return d.wrap(err)
	}
	return nil
}

func (d *Dev) wrap(err error) error {
	return fmt.Errorf("bmp280: %w", err)
}

var doSleep = time.Sleep

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
