package mode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/nora/internal/world"
	"github.com/ChamsBouzaiene/nora/internal/world/worldtest"
)

func TestMovementsTable(t *testing.T) {
	tests := []struct {
		mode Mode
		want world.Movements
	}{
		{Tycoon, world.Movements{CanDig: true, AllowParkour: false}},
		{Explorer, world.Movements{CanDig: true, AllowParkour: true}},
		{Guardian, world.Movements{CanDig: false, AllowParkour: true}},
		{Teacher, world.Movements{CanDig: false, AllowParkour: false}},
		{Sister, world.Movements{CanDig: false, AllowParkour: false}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mode.Movements())
		})
	}
}

func TestTransitionReconfiguresLocomotion(t *testing.T) {
	loco := worldtest.NewSession("nora")
	m := NewMachine()
	require.Equal(t, Explorer, m.Current())

	changed, err := m.Transition(Tycoon, loco)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = m.Transition(Guardian, loco)
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, []world.Movements{
		{CanDig: true, AllowParkour: false},
		{CanDig: false, AllowParkour: true},
	}, loco.MovementCalls())
	assert.Equal(t, Guardian, m.Current())
}

func TestTransitionSameModeIsNoop(t *testing.T) {
	loco := worldtest.NewSession("nora")
	m := NewMachine()

	_, _ = m.Transition(Teacher, loco)
	changed, err := m.Transition(Teacher, loco)

	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, loco.MovementCalls(), 1)
}

func TestTransitionRejectsUnknown(t *testing.T) {
	loco := worldtest.NewSession("nora")
	m := NewMachine()

	changed, err := m.Transition(Unrecognized, loco)

	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, Explorer, m.Current())
	assert.Empty(t, loco.MovementCalls())
}

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		want   Mode
		wantOK bool
	}{
		{"Guardian", Guardian, true},
		{" tycoon ", Tycoon, true},
		{"Caring Sister", Sister, true},
		{"", "", true},
		{"Berserker", Unrecognized, false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
	}
}
