package adc

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeRegisters struct {
	mu    sync.Mutex
	regs  map[uint16]uint16
	err   error
	addrs []uint16
	block chan struct{}
}

func (f *fakeRegisters) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addrs = append(f.addrs, address)
	if f.err != nil {
		return nil, f.err
	}
	v := f.regs[address]
	return []byte{byte(v >> 8), byte(v)}, nil
}

func waitSample(t *testing.T, c Converter) Sample {
	t.Helper()
	select {
	case s := <-c.Done():
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for conversion")
		return Sample{}
	}
}

func TestModbusConverterReadsInputRegister(t *testing.T) {
	regs := &fakeRegisters{regs: map[uint16]uint16{100 + 7: 0x0360}}
	c := newModbusConverter(Config{BaseAddress: 100}, regs)
	defer c.Close()

	if err := c.Start(7); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s := waitSample(t, c)
	if s.Err != nil {
		t.Fatalf("unexpected error: %v", s.Err)
	}
	if s.Input != 7 || s.Raw != 0x0360 {
		t.Errorf("expected input 7 raw 0x360, got %+v", s)
	}
	if len(regs.addrs) != 1 || regs.addrs[0] != 107 {
		t.Errorf("expected read of register 107, got %v", regs.addrs)
	}
}

func TestModbusConverterShift(t *testing.T) {
	// A 12-bit module reading full scale.
	regs := &fakeRegisters{regs: map[uint16]uint16{0: 0x0FFF}}
	c := newModbusConverter(Config{Shift: 2}, regs)
	defer c.Close()

	c.Start(0)
	if s := waitSample(t, c); s.Raw != 0x3FF {
		t.Errorf("expected 10-bit full scale 0x3FF, got %#x", s.Raw)
	}
}

func TestModbusConverterError(t *testing.T) {
	regs := &fakeRegisters{err: errors.New("connection reset")}
	c := newModbusConverter(Config{}, regs)
	defer c.Close()

	c.Start(3)
	s := waitSample(t, c)
	if s.Err == nil {
		t.Fatal("expected conversion error")
	}
	if s.Input != 3 {
		t.Errorf("expected failed sample for input 3, got %d", s.Input)
	}

	// Converter is usable again after a failure.
	if err := c.Start(4); err != nil {
		t.Errorf("Start after failure: %v", err)
	}
}

func TestModbusConverterBusy(t *testing.T) {
	regs := &fakeRegisters{regs: map[uint16]uint16{}, block: make(chan struct{})}
	c := newModbusConverter(Config{}, regs)
	defer c.Close()

	if err := c.Start(0); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := c.Start(1); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	close(regs.block)
	waitSample(t, c)
}

func TestFakeConverter(t *testing.T) {
	f := NewFake(0x200)
	f.Set(6, 0x3A0)
	f.Fail(2, errors.New("open"))

	f.Start(6)
	if s := waitSample(t, f); s.Raw != 0x3A0 {
		t.Errorf("expected configured value, got %#x", s.Raw)
	}
	f.Start(1)
	if s := waitSample(t, f); s.Raw != 0x200 {
		t.Errorf("expected default value, got %#x", s.Raw)
	}
	f.Start(2)
	if s := waitSample(t, f); s.Err == nil {
		t.Error("expected injected error")
	}

	f.Start(0)
	if err := f.Start(1); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy with undelivered sample, got %v", err)
	}
	if f.StartCount() != 4 {
		t.Errorf("expected 4 recorded starts, got %d", f.StartCount())
	}
}
