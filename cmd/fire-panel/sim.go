package main

import (
	"log"
	"sync"

	"github.com/sweeney/fire-panel/internal/logic"
)

// simNormal is the reading of every simulated channel: a healthy,
// supervised circuit.
const simNormal = 0x200

// simOutputs stands in for the output port in simulation mode and logs
// each change of the output image.
type simOutputs struct {
	mu     sync.Mutex
	last   logic.Outputs
	wrote  bool
	closed bool
}

func (s *simOutputs) Write(out logic.Outputs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wrote && out == s.last {
		return nil
	}
	log.Printf("sim outputs: power=%v alarm=%v trouble=%v silence=%v buzzer=%v nac=%v",
		out.PowerLED, out.AlarmLED, out.TroubleLED, out.SilenceLED, out.Buzzer, out.NAC)
	s.last = out
	s.wrote = true
	return nil
}

func (s *simOutputs) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
