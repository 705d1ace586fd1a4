package core

import "fmt"

// Phase identifies one of the three motor windings.
type Phase uint8

const (
	PhaseA Phase = iota
	PhaseB
	PhaseC
)

func (p Phase) String() string {
	switch p {
	case PhaseA:
		return "A"
	case PhaseB:
		return "B"
	case PhaseC:
		return "C"
	}
	return "?"
}

// CommutationState selects which two phases are driven. The first letter is
// the phase held high, the second the phase switched low; the remaining
// phase floats and carries the back-EMF.
type CommutationState uint8

const (
	StateAB CommutationState = iota
	StateBA
	StateBC
	StateCB
	StateCA
	StateAC

	NumStates = 6
)

// commutationInfo is one row of the six-step table.
type commutationInfo struct {
	name        string
	next        CommutationState
	prev        CommutationState // only predecessor that counts as a clean detection
	high        Phase
	low         Phase
	undriven    Phase
	rising      bool // back-EMF slope on the undriven phase
	sequenceIdx uint8
}

// Drive order is AC -> CA -> AB -> BA -> BC -> CB -> AC.
var commutationTable = [NumStates]commutationInfo{
	StateAC: {name: "AC", next: StateCA, prev: StateCB, high: PhaseA, low: PhaseC, undriven: PhaseB, rising: false, sequenceIdx: 0},
	StateCA: {name: "CA", next: StateAB, prev: StateAC, high: PhaseC, low: PhaseA, undriven: PhaseB, rising: true, sequenceIdx: 1},
	StateAB: {name: "AB", next: StateBA, prev: StateCA, high: PhaseA, low: PhaseB, undriven: PhaseC, rising: false, sequenceIdx: 2},
	StateBA: {name: "BA", next: StateBC, prev: StateAB, high: PhaseB, low: PhaseA, undriven: PhaseC, rising: true, sequenceIdx: 3},
	StateBC: {name: "BC", next: StateCB, prev: StateBA, high: PhaseB, low: PhaseC, undriven: PhaseA, rising: false, sequenceIdx: 4},
	StateCB: {name: "CB", next: StateAC, prev: StateBC, high: PhaseC, low: PhaseB, undriven: PhaseA, rising: true, sequenceIdx: 5},
}

// Valid reports whether s is one of the six drive states.
func (s CommutationState) Valid() bool {
	return s < NumStates
}

func (s CommutationState) String() string {
	if !s.Valid() {
		return "invalid"
	}
	return commutationTable[s].name
}

// Successor returns the next state in the drive order.
func (s CommutationState) Successor() CommutationState {
	return commutationTable[s].next
}

// Predecessor returns the state that must precede s for a zero crossing in
// s to count as detected rather than skipped.
func (s CommutationState) Predecessor() CommutationState {
	return commutationTable[s].prev
}

// HighPhase returns the phase held at the supply rail.
func (s CommutationState) HighPhase() Phase {
	return commutationTable[s].high
}

// LowPhase returns the PWM-switched low-side phase.
func (s CommutationState) LowPhase() Phase {
	return commutationTable[s].low
}

// UndrivenPhase returns the floating phase sampled for back-EMF.
func (s CommutationState) UndrivenPhase() Phase {
	return commutationTable[s].undriven
}

// Polarity is true when the back-EMF on the undriven phase rises through
// the midpoint during this state.
func (s CommutationState) Polarity() bool {
	return commutationTable[s].rising
}

// Index returns the position of s in the drive order, AC being 0.
func (s CommutationState) Index() int {
	return int(commutationTable[s].sequenceIdx)
}

// Phases bundles the phase assignment derived from a state.
type Phases struct {
	High     Phase
	Low      Phase
	Undriven Phase
	Polarity bool
}

// PhasesOf returns the phase assignment for s.
func PhasesOf(s CommutationState) Phases {
	info := &commutationTable[s]
	return Phases{High: info.high, Low: info.low, Undriven: info.undriven, Polarity: info.rising}
}

// ParseCommutationState accepts a state name such as "AC" or its numeric
// value.
func ParseCommutationState(text string) (CommutationState, error) {
	for s := CommutationState(0); s < NumStates; s++ {
		if commutationTable[s].name == text {
			return s, nil
		}
	}
	if len(text) == 1 && text[0] >= '0' && text[0] < '0'+NumStates {
		return CommutationState(text[0] - '0'), nil
	}
	return 0, fmt.Errorf("%w: unknown commutation state %q", ErrInvalidConfig, text)
}

func (s CommutationState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: commutation state %d", ErrInvalidConfig, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *CommutationState) UnmarshalText(text []byte) error {
	v, err := ParseCommutationState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
