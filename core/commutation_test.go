package core

import "testing"

func TestCommutationSequence(t *testing.T) {
	order := []CommutationState{StateAC, StateCA, StateAB, StateBA, StateBC, StateCB}

	for i, s := range order {
		next := order[(i+1)%len(order)]
		if got := s.Successor(); got != next {
			t.Errorf("%s.Successor() = %s, expected %s", s, got, next)
		}
		if got := next.Predecessor(); got != s {
			t.Errorf("%s.Predecessor() = %s, expected %s", next, got, s)
		}
		if s.Index() != i {
			t.Errorf("%s.Index() = %d, expected %d", s, s.Index(), i)
		}
	}

	s := StateAC
	for i := 0; i < NumStates; i++ {
		s = s.Successor()
	}
	if s != StateAC {
		t.Errorf("six successors should return to AC, got %s", s)
	}
}

func TestCommutationPhases(t *testing.T) {
	tests := []struct {
		state    CommutationState
		name     string
		high     Phase
		low      Phase
		undriven Phase
		rising   bool
	}{
		{StateAC, "AC", PhaseA, PhaseC, PhaseB, false},
		{StateCA, "CA", PhaseC, PhaseA, PhaseB, true},
		{StateAB, "AB", PhaseA, PhaseB, PhaseC, false},
		{StateBA, "BA", PhaseB, PhaseA, PhaseC, true},
		{StateBC, "BC", PhaseB, PhaseC, PhaseA, false},
		{StateCB, "CB", PhaseC, PhaseB, PhaseA, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.state
			if s.String() != tt.name {
				t.Errorf("String() = %q", s.String())
			}
			if s.HighPhase() != tt.high || s.LowPhase() != tt.low || s.UndrivenPhase() != tt.undriven {
				t.Errorf("phases = %s/%s/%s, expected %s/%s/%s",
					s.HighPhase(), s.LowPhase(), s.UndrivenPhase(), tt.high, tt.low, tt.undriven)
			}
			if s.Polarity() != tt.rising {
				t.Errorf("Polarity() = %v, expected %v", s.Polarity(), tt.rising)
			}
			ph := PhasesOf(s)
			if ph.High == ph.Low || ph.High == ph.Undriven || ph.Low == ph.Undriven {
				t.Errorf("phase assignment not distinct: %+v", ph)
			}
			if s.Successor().Polarity() == s.Polarity() {
				t.Errorf("polarity does not alternate after %s", s)
			}
		})
	}
}

func TestCommutationInvalid(t *testing.T) {
	s := CommutationState(NumStates)
	if s.Valid() {
		t.Error("state 6 should be invalid")
	}
	if s.String() != "invalid" {
		t.Errorf("String() = %q, expected invalid", s.String())
	}
}

func TestParseCommutationState(t *testing.T) {
	tests := []struct {
		text    string
		want    CommutationState
		wantErr bool
	}{
		{"AC", StateAC, false},
		{"BA", StateBA, false},
		{"0", StateAB, false},
		{"5", StateAC, false},
		{"6", 0, true},
		{"ac", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseCommutationState(tt.text)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCommutationState(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseCommutationState(%q) = %s, expected %s", tt.text, got, tt.want)
		}
	}

	var s CommutationState
	if err := s.UnmarshalText([]byte("CB")); err != nil || s != StateCB {
		t.Errorf("UnmarshalText(CB) = %s, %v", s, err)
	}
	if text, err := StateCA.MarshalText(); err != nil || string(text) != "CA" {
		t.Errorf("MarshalText = %q, %v", text, err)
	}
}
