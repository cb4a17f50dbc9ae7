// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp280

// calibration holds the 12 factory trim coefficients read once at
// initialization. The values never change for the lifetime of a device.
type calibration struct {
	t1         uint16
	t2, t3     int16
	p1         uint16
	p2, p3, p4 int16
	p5, p6, p7 int16
	p8, p9     int16
}

// newCalibration parses the raw 26 byte block at 0x88. Each coefficient is a
// little-endian 16-bit word; words 0 (t1) and 3 (p1) are unsigned, the rest
// are two's complement. The last two bytes of the block are reserved and
// must read 0, anything else means the block is not a valid BMP280
// calibration image.
func newCalibration(b []byte) (calibration, error) {
	for _, off := range []int{24, 25} {
		if b[off] != 0 {
			return calibration{}, &CalibrationError{Offset: off, Value: b[off]}
		}
	}

	getInt16 := func(lsb, msb byte) int16 {
		return int16(lsb) | int16(msb)<<8
	}
	getUint16 := func(lsb, msb byte) uint16 {
		return uint16(lsb) | uint16(msb)<<8
	}

	return calibration{
		t1: getUint16(b[0], b[1]),
		t2: getInt16(b[2], b[3]),
		t3: getInt16(b[4], b[5]),
		p1: getUint16(b[6], b[7]),
		p2: getInt16(b[8], b[9]),
		p3: getInt16(b[10], b[11]),
		p4: getInt16(b[12], b[13]),
		p5: getInt16(b[14], b[15]),
		p6: getInt16(b[16], b[17]),
		p7: getInt16(b[18], b[19]),
		p8: getInt16(b[20], b[21]),
		p9: getInt16(b[22], b[23]),
	}, nil
}

// compensateTemp returns the temperature in °C with a resolution of 0.01°C
// (an output of 5123 equals 51.23°C) along with the fine temperature value
// that pressure compensation needs as input.
//
// raw has 20 bits of resolution.
// This function has been ported from the datasheet, chapter 8.1.
func (c *calibration) compensateTemp(raw int32) (int32, int32) {
	var1 := (((int64(raw) >> 3) - (int64(c.t1) << 1)) * int64(c.t2)) >> 11
	var2 := ((((int64(raw) >> 4) - int64(c.t1)) * ((int64(raw) >> 4) - int64(c.t1))) >> 12) * int64(c.t3) >> 14
	tFine := var1 + var2
	return int32((tFine*5 + 128) >> 8), int32(tFine)
}

// compensatePressure returns the pressure in Pa in Q24.8 format (24 integer
// bits and 8 fractional bits). An output of 24674867 represents
// 24674867/256 = 96386.2 Pa.
//
// A return of 0 means the trim data cannot produce a valid pressure (the
// divisor underflowed to zero); callers must treat it as "no reading", not
// as an actual vacuum.
//
// raw has 20 bits of resolution, tFine comes from compensateTemp. The
// intermediate products need the full 64-bit range.
// This function has been ported from the datasheet, chapter 8.1.
func (c *calibration) compensatePressure(raw, tFine int32) uint32 {
	var1 := int64(tFine) - 128000
	var2 := var1 * var1 * int64(c.p6)
	var2 += (var1 * int64(c.p5)) << 17
	var2 += int64(c.p4) << 35
	var1 = ((var1 * var1 * int64(c.p3)) >> 8) + ((var1 * int64(c.p2)) << 12)
	var1 = ((int64(1)<<47 + var1) * int64(c.p1)) >> 33
	if var1 == 0 {
		return 0
	}
	p := int64(1048576 - raw)
	// Raw codes near the top of the 20-bit range make the numerator
	// negative; the quotient must round toward negative infinity, not
	// toward zero.
	num := (p<<31 - var2) * 3125
	p = num / var1
	if (num < 0) != (var1 < 0) && num%var1 != 0 {
		p--
	}
	var1 = (int64(c.p9) * (p >> 13) * (p >> 13)) >> 25
	var2 = (int64(c.p8) * p) >> 19
	p = ((p + var1 + var2) >> 8) + int64(c.p7)<<4
	return uint32(p)
}
