package adc

import (
	"fmt"
	"sync"
)

// Fake is an in-memory converter. Each Start completes immediately with
// the configured value for that input. It also backs simulation mode.
type Fake struct {
	mu     sync.Mutex
	values map[uint8]uint16
	errs   map[uint8]error

	// Default is returned for inputs without a configured value.
	Default uint16

	// StartErr, if set, will be returned by Start()
	StartErr error

	// Starts records every input passed to a successful Start.
	Starts []uint8

	Closed bool

	done chan Sample
}

// NewFake creates a Fake returning def for every input.
func NewFake(def uint16) *Fake {
	return &Fake{
		values:  make(map[uint8]uint16),
		errs:    make(map[uint8]error),
		Default: def,
		done:    make(chan Sample, 1),
	}
}

// Set sets the reading returned for input.
func (f *Fake) Set(input uint8, raw uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[input] = raw
}

// Fail makes conversions of input fail with err. A nil err clears it.
func (f *Fake) Fail(input uint8, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, input)
		return
	}
	f.errs[input] = err
}

// Start completes a conversion of input.
func (f *Fake) Start(input uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.StartErr != nil {
		return f.StartErr
	}

	s := Sample{Input: input, Raw: f.Default}
	if v, ok := f.values[input]; ok {
		s.Raw = v
	}
	if err, ok := f.errs[input]; ok {
		s = Sample{Input: input, Err: fmt.Errorf("read input %d: %w", input, err)}
	}

	select {
	case f.done <- s:
	default:
		return ErrBusy
	}
	f.Starts = append(f.Starts, input)
	return nil
}

// Done delivers completed conversions.
func (f *Fake) Done() <-chan Sample {
	return f.done
}

// StartCount returns the number of successful starts.
func (f *Fake) StartCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Starts)
}

// Close marks the converter as closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
