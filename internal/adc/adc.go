// Package adc provides the analog front end the channel scanner converts
// through. Conversions are started without blocking and complete
// asynchronously on the Done channel.
package adc

import "errors"

// ErrBusy is returned by Start while a conversion is still in flight.
var ErrBusy = errors.New("adc: conversion in progress")

// Sample is the result of one conversion.
type Sample struct {
	Input uint8
	Raw   uint16 // 10-bit counts
	Err   error
}

// Converter is a single-channel analog-to-digital converter.
type Converter interface {
	// Start begins converting the given input. It never blocks.
	Start(input uint8) error

	// Done delivers one Sample per successful Start.
	Done() <-chan Sample

	Close() error
}
