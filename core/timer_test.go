package core

import "testing"

func TestTimeWrap(t *testing.T) {
	before := Time(0xFFFFFF00)
	after := before.Add(0x200)

	if after != Time(0x100) {
		t.Fatalf("Add across wrap: expected 0x100, got 0x%X", uint32(after))
	}
	if d := after.Sub(before); d != 0x200 {
		t.Errorf("Sub across wrap: expected 0x200, got 0x%X", uint32(d))
	}
	if !after.After(before) {
		t.Error("time past the wrap should be after the time before it")
	}
	if !before.Before(after) {
		t.Error("time before the wrap should be before the time past it")
	}
	if before.After(before) {
		t.Error("a time is not after itself")
	}
}

func TestTimeUntil(t *testing.T) {
	tests := []struct {
		name   string
		target Time
		now    Time
		want   int32
	}{
		{"future", 1500, 1000, 500},
		{"past", 1000, 1500, -500},
		{"now", 42, 42, 0},
		{"future across wrap", 0x10, 0xFFFFFFF0, 0x20},
		{"past across wrap", 0xFFFFFFF0, 0x10, -0x20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.target.Until(tt.now); got != tt.want {
				t.Errorf("Until: expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestTickClock(t *testing.T) {
	var c TickClock
	c.Set(0xFFFFFFFE)
	if now := c.Advance(4); now != 2 {
		t.Errorf("Advance across wrap: expected 2, got %d", now)
	}
	if d := c.Now().Sub(0xFFFFFFFE); d != 4 {
		t.Errorf("elapsed across wrap: expected 4, got %d", d)
	}
}

func TestTimerConversions(t *testing.T) {
	if TimerFromUS(1500) != 1500 {
		t.Errorf("TimerFromUS(1500) = %d", TimerFromUS(1500))
	}
	if TimerToUS(2500) != 2500 {
		t.Errorf("TimerToUS(2500) = %d", TimerToUS(2500))
	}
}
