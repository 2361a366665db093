package adc

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goburrow/modbus"
)

// registerReader is the part of modbus.Client the converter uses.
type registerReader interface {
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
}

// Config configures a remote analog input module.
type Config struct {
	Endpoint string
	UnitID   uint8
	// BaseAddress is the input register holding analog input 0.
	BaseAddress uint16
	// Shift right-aligns wider readings to 10-bit counts.
	Shift   uint
	Timeout time.Duration
}

// ModbusConverter converts through a Modbus TCP analog input module, one
// input register per analog input.
type ModbusConverter struct {
	cfg     Config
	handler *modbus.TCPClientHandler
	client  registerReader

	busy atomic.Bool
	reqs chan uint8
	done chan Sample
	quit chan struct{}
	wg   sync.WaitGroup
}

// NewModbusConverter connects to the module at cfg.Endpoint.
func NewModbusConverter(cfg Config) (*ModbusConverter, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("adc modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("adc modbus: connect %s: %w", cfg.Endpoint, err)
	}

	c := newModbusConverter(cfg, modbus.NewClient(h))
	c.handler = h
	return c, nil
}

func newModbusConverter(cfg Config, client registerReader) *ModbusConverter {
	c := &ModbusConverter{
		cfg:    cfg,
		client: client,
		reqs:   make(chan uint8, 1),
		done:   make(chan Sample, 1),
		quit:   make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// Start queues a conversion of input.
func (c *ModbusConverter) Start(input uint8) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	select {
	case c.reqs <- input:
		return nil
	default:
		c.busy.Store(false)
		return ErrBusy
	}
}

// Done delivers completed conversions.
func (c *ModbusConverter) Done() <-chan Sample {
	return c.done
}

func (c *ModbusConverter) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.quit:
			return
		case input := <-c.reqs:
			s := c.convert(input)
			c.busy.Store(false)
			select {
			case c.done <- s:
			case <-c.quit:
				return
			}
		}
	}
}

func (c *ModbusConverter) convert(input uint8) Sample {
	s := Sample{Input: input}
	b, err := c.client.ReadInputRegisters(c.cfg.BaseAddress+uint16(input), 1)
	if err != nil {
		s.Err = fmt.Errorf("read input %d: %w", input, err)
		return s
	}
	if len(b) < 2 {
		s.Err = fmt.Errorf("read input %d: short response (%d bytes)", input, len(b))
		return s
	}
	s.Raw = (uint16(b[0])<<8 | uint16(b[1])) >> c.cfg.Shift
	return s
}

// Close stops the worker and closes the connection.
func (c *ModbusConverter) Close() error {
	close(c.quit)
	c.wg.Wait()
	if c.handler != nil {
		return c.handler.Close()
	}
	return nil
}
