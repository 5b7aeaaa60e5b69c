package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfid-door-lock/internal/hardware/simulator"
	"rfid-door-lock/internal/types"
)

func newTestPresenter(t *testing.T) (*Presenter, *simulator.Rig) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	entry := logger.WithField("test", t.Name())

	rig := simulator.New(entry)
	presenter := New(rig, rig, rig, entry, WithSleep(func(ctx context.Context, d time.Duration) {}))
	return presenter, rig
}

func TestPresentIdle(t *testing.T) {
	presenter, rig := newTestPresenter(t)

	require.NoError(t, presenter.Present(context.Background(), types.OutcomeIdle))

	line1, line2 := rig.DisplayLines()
	assert.Contains(t, line1, "Access Control")
	assert.Contains(t, line2, "Scan Your Card")

	blue, green, red := rig.LEDState()
	assert.True(t, blue)
	assert.False(t, green)
	assert.False(t, red)
	assert.Empty(t, rig.Tones())
}

func TestPresentEnrolling(t *testing.T) {
	presenter, rig := newTestPresenter(t)

	require.NoError(t, presenter.Present(context.Background(), types.OutcomeEnrolling))

	line1, line2 := rig.DisplayLines()
	assert.Contains(t, line1, "No Master Found")
	assert.Contains(t, line2, "ENROLL")

	blue, green, red := rig.LEDState()
	assert.False(t, blue)
	assert.False(t, green)
	assert.True(t, red)
}

func TestPresentEnrolled(t *testing.T) {
	presenter, rig := newTestPresenter(t)

	require.NoError(t, presenter.Present(context.Background(), types.OutcomeEnrolled))

	line1, _ := rig.DisplayLines()
	assert.Contains(t, line1, "Master Enrolled")

	tones := rig.Tones()
	require.Len(t, tones, 2)
	for _, tone := range tones {
		assert.Equal(t, 2200, tone.FreqHz)
	}
}

func TestPresentGranted(t *testing.T) {
	presenter, rig := newTestPresenter(t)

	require.NoError(t, presenter.Present(context.Background(), types.OutcomeGranted))

	_, line2 := rig.DisplayLines()
	assert.Contains(t, line2, "Access Granted")

	blue, green, red := rig.LEDState()
	assert.False(t, blue)
	assert.True(t, green)
	assert.False(t, red)

	tones := rig.Tones()
	require.Len(t, tones, 2)
	for _, tone := range tones {
		assert.Equal(t, 2000, tone.FreqHz)
	}
}

func TestPresentDenied(t *testing.T) {
	presenter, rig := newTestPresenter(t)

	require.NoError(t, presenter.Present(context.Background(), types.OutcomeDenied))

	_, line2 := rig.DisplayLines()
	assert.Contains(t, line2, "Access Denied")

	// Six flash pulses, each with a low beep; red ends dark
	tones := rig.Tones()
	require.Len(t, tones, 6)
	for _, tone := range tones {
		assert.Equal(t, 1800, tone.FreqHz)
	}

	_, _, red := rig.LEDState()
	assert.False(t, red)
}

func TestPresentUnknownOutcome(t *testing.T) {
	presenter, _ := newTestPresenter(t)
	assert.Error(t, presenter.Present(context.Background(), types.Outcome("bogus")))
}
