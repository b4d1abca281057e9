package spring

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepApproachesTarget(t *testing.T) {
	cfg := DefaultConfig()
	state := AtRest(0)
	for i := 0; i < 60; i++ {
		state = Step(state, 100, cfg, 1.0/60.0)
	}
	assert.InDelta(t, 100, state.Position, 5)
}

func TestStepUpdatesVelocityBeforePosition(t *testing.T) {
	cfg := Config{Stiffness: 10, Damping: 0, Mass: 1}
	next := Step(AtRest(0), 1, cfg, 0.1)

	// acceleration = 10, velocity' = 1, position' = 0 + 1*0.1
	assert.InDelta(t, 1.0, next.Velocity, 1e-12)
	assert.InDelta(t, 0.1, next.Position, 1e-12)
}

func TestStepAtRestOnTargetStaysPut(t *testing.T) {
	cfg := DefaultConfig()
	next := Step(AtRest(42), 42, cfg, 0.1)
	assert.Equal(t, 42.0, next.Position)
	assert.Equal(t, 0.0, next.Velocity)
}

func TestHighDampingLimitsOvershoot(t *testing.T) {
	cfg := Config{Stiffness: 470, Damping: 150, Mass: 3}
	state := AtRest(0)
	maxPos := 0.0
	for i := 0; i < 120; i++ {
		state = Step(state, 100, cfg, 1.0/60.0)
		maxPos = math.Max(maxPos, state.Position)
	}
	assert.Less(t, maxPos, 105.0)
}

func TestConvergesAndStaysSettled(t *testing.T) {
	configs := []Config{
		DefaultConfig(),
		{Stiffness: 800, Damping: 80, Mass: 1},
		{Stiffness: 50, Damping: 5, Mass: 2},
		{Stiffness: 1, Damping: 2, Mass: 1},
	}
	const dt = 1.0 / 120.0
	for _, cfg := range configs {
		t.Run(cfg.String(), func(t *testing.T) {
			state := AtRest(-250)
			for i := 0; i < 30*120; i++ {
				state = Step(state, 300, cfg, dt)
			}
			require.True(t, Settled(state, 300, DefaultSettleThreshold), "not settled after 30s: %+v", state)

			for i := 0; i < 600; i++ {
				state = Step(state, 300, cfg, dt)
				require.True(t, Settled(state, 300, DefaultSettleThreshold), "left settled region at step %d", i)
			}
		})
	}
}

func TestSettledRequiresBothBounds(t *testing.T) {
	assert.True(t, Settled(State{Position: 10.05, Velocity: 0.05}, 10, 0.1))
	assert.False(t, Settled(State{Position: 10.05, Velocity: 0.5}, 10, 0.1))
	assert.False(t, Settled(State{Position: 11, Velocity: 0}, 10, 0.1))
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		cfg   Config
		field string
	}{
		"zero stiffness":   {Config{Stiffness: 0, Damping: 1, Mass: 1}, "stiffness"},
		"negative damping": {Config{Stiffness: 1, Damping: -1, Mass: 1}, "damping"},
		"zero mass":        {Config{Stiffness: 1, Damping: 1, Mass: 0}, "mass"},
		"nan stiffness":    {Config{Stiffness: math.NaN(), Damping: 1, Mass: 1}, "stiffness"},
		"infinite mass":    {Config{Stiffness: 1, Damping: 1, Mass: math.Inf(1)}, "mass"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := tc.cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}

	assert.NoError(t, Config{Stiffness: 1, Damping: 0, Mass: 1}.Validate())
	assert.NoError(t, DefaultConfig().Validate())
}
