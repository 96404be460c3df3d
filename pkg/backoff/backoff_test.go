package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquaring(t *testing.T) {
	s := Squaring{Max: 60 * time.Second}

	tests := []struct {
		current time.Duration
		want    time.Duration
	}{
		{10 * time.Second, 60 * time.Second},
		{5 * time.Second, 25 * time.Second},
		{2 * time.Second, 4 * time.Second},
		{60 * time.Second, 60 * time.Second},
		{time.Second, time.Second},
		{500 * time.Millisecond, 500 * time.Millisecond},
		{0, 0},
		{time.Hour, 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.current.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, s.Next(tt.current))
		})
	}
}

func TestSquaringSequenceSettlesAtCap(t *testing.T) {
	s := Squaring{Max: 60 * time.Second}
	d := 3 * time.Second
	var seq []time.Duration
	for i := 0; i < 4; i++ {
		d = s.Next(d)
		seq = append(seq, d)
	}
	assert.Equal(t, []time.Duration{9 * time.Second, 60 * time.Second, 60 * time.Second, 60 * time.Second}, seq)
}

func TestExponential(t *testing.T) {
	e := Exponential{Multiplier: 2, Max: 30 * time.Second}

	assert.Equal(t, 20*time.Second, e.Next(10*time.Second))
	assert.Equal(t, 30*time.Second, e.Next(20*time.Second))
	assert.Equal(t, time.Second, e.Next(0))
}

func TestExponentialJitterStaysInBounds(t *testing.T) {
	e := Exponential{Multiplier: 2, Max: time.Minute, JitterFactor: 0.1}
	for i := 0; i < 100; i++ {
		d := e.Next(10 * time.Second)
		assert.GreaterOrEqual(t, d, 18*time.Second)
		assert.LessOrEqual(t, d, 22*time.Second)
	}
}

func TestNew(t *testing.T) {
	s, err := New("squaring", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, Squaring{Max: time.Minute}, s)

	s, err = New("Exponential", time.Minute)
	require.NoError(t, err)
	assert.IsType(t, Exponential{}, s)

	_, err = New("fibonacci", time.Minute)
	assert.Error(t, err)
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, Wait(ctx, 0), context.Canceled)
}
