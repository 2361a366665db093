package logic

import "fmt"

// Pattern selects which coder phase gates a notification circuit.
type Pattern uint8

const (
	PatternSteady Pattern = iota
	PatternMarch120
	PatternMarch60
	PatternTemporal3
)

var patternNames = [...]string{
	PatternSteady:    "steady",
	PatternMarch120:  "march120",
	PatternMarch60:   "march60",
	PatternTemporal3: "temporal3",
}

func (p Pattern) String() string {
	if int(p) < len(patternNames) {
		return patternNames[p]
	}
	return fmt.Sprintf("pattern(%d)", uint8(p))
}

// ParsePattern maps a pattern name to its Pattern.
func ParsePattern(s string) (Pattern, error) {
	for i, name := range patternNames {
		if name == s {
			return Pattern(i), nil
		}
	}
	return 0, fmt.Errorf("unknown coding pattern %q", s)
}

// On reports whether the pattern is in its "on" region for the given phase.
func (p Pattern) On(ph Phase) bool {
	switch p {
	case PatternSteady:
		return true
	case PatternMarch120:
		return ph.Has(PhaseMarch120)
	case PatternMarch60:
		return ph.Has(PhaseMarch60)
	case PatternTemporal3:
		return ph.Has(PhaseTemporal)
	}
	return false
}

// Code computes the gate bit of every notification circuit. A circuit
// follows its pattern only while active and not software-disabled.
func Code(nacs [NumNAC]NAC, ph Phase) [NumNAC]bool {
	var out [NumNAC]bool
	for i, n := range nacs {
		out[i] = n.Active && !n.Disabled && n.Pattern.On(ph)
	}
	return out
}
