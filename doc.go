// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bmp280 controls a Bosch BMP280 barometric pressure and temperature
// sensor over I²C or SPI.
//
// The driver captures the factory calibration block once at initialization
// and converts raw ADC codes with the datasheet's 64-bit fixed point
// compensation. One-shot (forced) and continuous (normal) power modes are
// both supported; in forced mode every Sense() triggers a single conversion
// and the chip returns to sleep on its own.
//
// The bmp280.Dev type implements the physic.SenseEnv interface. The
// physic.Env measurement results contain a temperature and pressure value;
// humidity is never set since the BMP280 does not measure it.
//
// **Datasheet:** https://www.bosch-sensortec.com/media/boschsensortec/downloads/datasheets/bst-bmp280-ds001.pdf
package bmp280
