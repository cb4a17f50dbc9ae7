// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp280

import "fmt"

// ChipIDError is returned when the chip identification register does not
// contain the BMP280 product ID. The device on the bus is something else.
type ChipIDError struct {
	// Got is the value the identification register actually returned.
	Got byte
}

func (e *ChipIDError) Error() string {
	return fmt.Sprintf("chip ID 0x%02x does not match the BMP280 product ID 0x%02x", e.Got, chipID)
}

// CalibrationError is returned when the reserved bytes of the calibration
// block do not read zero, meaning the block is not a valid trim image.
type CalibrationError struct {
	// Offset is the position of the offending byte within the 26 byte block.
	Offset int
	// Value is what the byte contained instead of 0.
	Value byte
}

func (e *CalibrationError) Error() string {
	return fmt.Sprintf("invalid calibration data, byte %d is 0x%02x instead of 0x00", e.Offset, e.Value)
}

// InvalidModeError is returned by SetMode for any mode other than ModeForced
// and ModeNormal.
type InvalidModeError struct {
	Mode Mode
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid power mode %s", e.Mode)
}

// PollTimeoutError is returned when a chip readiness bit did not settle
// within Opts.PollTimeout. The device state is indeterminate; retry the
// pending operation or Reset().
type PollTimeoutError struct {
	// Op names the operation that was being waited on.
	Op string
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for %s to complete", e.Op)
}
