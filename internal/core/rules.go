package core

import (
	"errors"
	"fmt"
	"strings"
)

// NeighborStates is the number of distinct live-neighbor counts (0 through 8).
const NeighborStates = 9

// RuleMaskBits masks a rule integer down to its meaningful bits.
const RuleMaskBits = 1<<NeighborStates - 1

// Conway birth/survival masks: B3/S23.
const (
	ConwayDead = 8
	ConwayLive = 12
)

// ErrBadRule reports a malformed rule string.
var ErrBadRule = errors.New("core: malformed rule")

// RuleTable maps (current state, live neighbor count) to the next state.
// Entries 0..8 hold the dead group, 9..17 the live group. Every entry is 0 or 1.
type RuleTable [2 * NeighborStates]uint8

// NewRuleTable derives the table from two masks. Bit k of dead decides whether a
// dead cell with k live neighbors is born, bit k of live whether a live cell
// with k neighbors survives. Bits above the ninth are ignored.
func NewRuleTable(dead, live int) RuleTable {
	var t RuleTable
	for group, mask := range [2]int{dead, live} {
		for k := 0; k < NeighborStates; k++ {
			t[group*NeighborStates+k] = uint8((mask >> k) & 1)
		}
	}
	return t
}

// ConwayRules returns the table for the standard Game of Life.
func ConwayRules() RuleTable { return NewRuleTable(ConwayDead, ConwayLive) }

// Next reports the next state of a cell.
func (t RuleTable) Next(alive bool, neighbors int) bool {
	if neighbors < 0 || neighbors >= NeighborStates {
		return false
	}
	group := 0
	if alive {
		group = 1
	}
	return t[group*NeighborStates+neighbors] == 1
}

// Masks reconstructs the dead and live masks the table was built from.
func (t RuleTable) Masks() (dead, live int) {
	for k := 0; k < NeighborStates; k++ {
		dead |= int(t[k]) << k
		live |= int(t[NeighborStates+k]) << k
	}
	return dead, live
}

// Uniform returns the table as the float array consumed by the simulator program.
func (t RuleTable) Uniform() [2 * NeighborStates]float32 {
	var u [2 * NeighborStates]float32
	for i, v := range t {
		u[i] = float32(v)
	}
	return u
}

// String renders the table in B/S notation.
func (t RuleTable) String() string {
	return FormatRule(t.Masks())
}

// FormatRule renders masks in B/S notation, e.g. "B3/S23".
func FormatRule(dead, live int) string {
	var b strings.Builder
	b.WriteByte('B')
	writeDigits(&b, dead)
	b.WriteString("/S")
	writeDigits(&b, live)
	return b.String()
}

func writeDigits(b *strings.Builder, mask int) {
	for k := 0; k < NeighborStates; k++ {
		if (mask>>k)&1 == 1 {
			b.WriteByte(byte('0' + k))
		}
	}
}

// ParseRule parses B/S notation ("B3/S23", "b36/s23", "B/S012345678") into masks.
func ParseRule(s string) (dead, live int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadRule, s)
	}
	var seenB, seenS bool
	for _, part := range parts {
		if part == "" {
			return 0, 0, fmt.Errorf("%w: %q", ErrBadRule, s)
		}
		mask, perr := parseDigits(part[1:])
		if perr != nil {
			return 0, 0, fmt.Errorf("%w: %q: %v", ErrBadRule, s, perr)
		}
		switch part[0] {
		case 'B', 'b':
			if seenB {
				return 0, 0, fmt.Errorf("%w: %q: duplicate birth section", ErrBadRule, s)
			}
			seenB, dead = true, mask
		case 'S', 's':
			if seenS {
				return 0, 0, fmt.Errorf("%w: %q: duplicate survival section", ErrBadRule, s)
			}
			seenS, live = true, mask
		default:
			return 0, 0, fmt.Errorf("%w: %q", ErrBadRule, s)
		}
	}
	return dead, live, nil
}

func parseDigits(s string) (int, error) {
	mask := 0
	for _, r := range s {
		if r < '0' || r > '8' {
			return 0, fmt.Errorf("neighbor count %q out of range", r)
		}
		mask |= 1 << (r - '0')
	}
	return mask, nil
}
