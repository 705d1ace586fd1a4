package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gopper-esc/core"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "esc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_Empty(t *testing.T) {
	f, err := Load(writeTempConfig(t, ""))
	require.NoError(t, err)
	require.Equal(t, Default(), f)
}

func TestLoad_Overlay(t *testing.T) {
	path := writeTempConfig(t, `
esc:
  commutations_per_rev: 84
  grab_state: BA
  phase_channels: [2, 1, 0]
  skip_ceiling: 20
  phase_advance: 0.4
  state_bias: [0, 0, 10, -10, 0, 0]
motor:
  supply_volts: 16.8
  seed: 42
diag:
  port: /dev/ttyUSB0
`)
	f, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 84, f.ESC.CommutationsPerRev)
	require.Equal(t, core.StateBA, f.ESC.GrabState)
	require.Equal(t, [3]int{2, 1, 0}, f.ESC.PhaseChannels)
	require.Equal(t, 20, f.ESC.SkipCeiling)
	require.InDelta(t, 0.4, f.ESC.PhaseAdvance, 1e-12)
	require.Equal(t, int32(-10), f.ESC.StateBias[core.StateCB])

	// Untouched fields keep their defaults.
	def := Default()
	require.Equal(t, def.ESC.ClosedLoopThreshold, f.ESC.ClosedLoopThreshold)
	require.Equal(t, def.ESC.MidpointWeight, f.ESC.MidpointWeight)
	require.Equal(t, def.Motor.Resistance, f.Motor.Resistance)

	require.InDelta(t, 16.8, f.Motor.SupplyVolts, 1e-12)
	require.Equal(t, int64(42), f.Motor.Seed)
	require.Equal(t, "/dev/ttyUSB0", f.Diag.Port)
	require.Equal(t, 115200, f.Diag.Baud)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "esc:\n  skip_ceilng: 3\n"},
		{"bad state", "esc:\n  grab_state: XY\n"},
		{"short channel map", "esc:\n  phase_channels: [0, 1]\n"},
		{"invalid tune", "esc:\n  min_dc: 0.95\n"},
		{"baud", "diag:\n  baud: 0\n"},
		{"buffer", "diag:\n  buffer: 8\n"},
		{"not yaml", "esc: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
		})
	}
}

func TestParse_InvalidTuneWrapped(t *testing.T) {
	_, err := Parse([]byte("esc:\n  correction_den: 0\n"))
	require.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
