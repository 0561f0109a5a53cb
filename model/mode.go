package model

import (
	"fmt"
	"strings"
)

// Mode is the top-level strategic posture. Exactly one is active at a time.
type Mode uint8

const (
	ModeNormal Mode = iota
	ModeAggressive
	ModeEmergency
	ModeAllIn
	ModeEconomy
	ModeDefend

	numModes
)

var modeNames = [numModes]string{
	ModeNormal:     "NORMAL",
	ModeAggressive: "AGGRESSIVE",
	ModeEmergency:  "EMERGENCY",
	ModeAllIn:      "ALL_IN",
	ModeEconomy:    "ECONOMY",
	ModeDefend:     "DEFEND",
}

func (m Mode) Valid() bool { return m < numModes }

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
	return modeNames[m]
}

// Sticky modes are only entered and left by the state machine's own rules.
func (m Mode) Sticky() bool { return m == ModeEmergency || m == ModeAllIn }

// ParseMode accepts the canonical name in any case; "all-in" and "allin"
// also resolve to ModeAllIn.
func ParseMode(s string) (Mode, error) {
	n := strings.ToUpper(strings.TrimSpace(s))
	n = strings.ReplaceAll(n, "-", "_")
	if n == "ALLIN" {
		n = "ALL_IN"
	}
	for i, name := range modeNames {
		if name == n {
			return Mode(i), nil
		}
	}
	return ModeNormal, fmt.Errorf("unknown mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mode %d", uint8(m))
	}
	return []byte(modeNames[m]), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
