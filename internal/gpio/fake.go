package gpio

import (
	"errors"
	"sync"

	"github.com/sweeney/fire-panel/internal/logic"
)

// FakeInputs is a test double that returns scripted input levels.
type FakeInputs struct {
	mu sync.Mutex

	// Samples contains scripted input levels to return.
	// Each call to Read() consumes the next sample.
	Samples []Inputs

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeInputs creates a FakeInputs with the given samples.
func NewFakeInputs(samples ...Inputs) *FakeInputs {
	return &FakeInputs{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeInputs) Read() (Inputs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return Inputs{}, f.ReadError
	}

	if len(f.Samples) == 0 {
		return Inputs{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Set replaces the script with a single level held until the next Set.
func (f *FakeInputs) Set(in Inputs) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Samples = []Inputs{in}
	f.index = 0
}

// Close marks the port as closed.
func (f *FakeInputs) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Reset resets the port to the beginning of samples.
func (f *FakeInputs) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = 0
	f.Closed = false
}

// FakeOutputs is a test double that records every output image written.
type FakeOutputs struct {
	mu sync.Mutex

	// Writes holds every image passed to Write, oldest first.
	Writes []logic.Outputs

	// Closed tracks if Close was called
	Closed bool

	// WriteError, if set, will be returned by Write()
	WriteError error
}

// NewFakeOutputs creates an empty FakeOutputs.
func NewFakeOutputs() *FakeOutputs {
	return &FakeOutputs{}
}

// Write records out.
func (f *FakeOutputs) Write(out logic.Outputs) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.WriteError != nil {
		return f.WriteError
	}
	f.Writes = append(f.Writes, out)
	return nil
}

// Last returns the most recent image and whether any was written.
func (f *FakeOutputs) Last() (logic.Outputs, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.Writes) == 0 {
		return logic.Outputs{}, false
	}
	return f.Writes[len(f.Writes)-1], true
}

// Count returns the number of successful writes.
func (f *FakeOutputs) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Writes)
}

// Close marks the port as closed.
func (f *FakeOutputs) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
