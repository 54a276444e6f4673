package motor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPWM captures the last duty written to each pin.
type recordingPWM struct {
	duties map[int]uint8
}

func newRecordingPWM() *recordingPWM {
	return &recordingPWM{duties: make(map[int]uint8)}
}

func (p *recordingPWM) Write(pin int, duty uint8) error {
	p.duties[pin] = duty
	return nil
}

func TestSetSpeedDeadZoneStops(t *testing.T) {
	pwm := newRecordingPWM()
	m := New(pwm, 1, 2, 50, 200)

	require.NoError(t, m.SetSpeed(30))

	assert.Equal(t, uint8(0), pwm.duties[1])
	assert.Equal(t, uint8(0), pwm.duties[2])
}

func TestSetSpeedForward(t *testing.T) {
	pwm := newRecordingPWM()
	m := New(pwm, 1, 2, 50, 200)

	require.NoError(t, m.SetSpeed(200))

	assert.Equal(t, uint8(0), pwm.duties[1], "pin1 held low going forward")
	assert.Equal(t, uint8(255), pwm.duties[2], "max speed maps to full duty")
}

func TestSetSpeedReverseSwapsPins(t *testing.T) {
	pwm := newRecordingPWM()
	m := New(pwm, 1, 2, 50, 200)

	require.NoError(t, m.SetSpeed(-200))

	assert.Equal(t, uint8(255), pwm.duties[1])
	assert.Equal(t, uint8(0), pwm.duties[2])
}

func TestSetSpeedClampsAboveMax(t *testing.T) {
	pwm := newRecordingPWM()
	m := New(pwm, 1, 2, 50, 200)

	require.NoError(t, m.SetSpeed(500))

	assert.Equal(t, uint8(255), pwm.duties[2])
}

func TestSetSpeedMapsDeadZoneToZeroDuty(t *testing.T) {
	pwm := newRecordingPWM()
	m := New(pwm, 1, 2, 50, 200)

	require.NoError(t, m.SetSpeed(50))

	assert.Equal(t, uint8(0), pwm.duties[2], "dead zone edge maps to the bottom of the duty range")
}

func TestStop(t *testing.T) {
	pwm := newRecordingPWM()
	m := New(pwm, 1, 2, 50, 200)

	require.NoError(t, m.SetSpeed(100))
	require.NoError(t, m.Stop())

	assert.Equal(t, uint8(0), pwm.duties[1])
	assert.Equal(t, uint8(0), pwm.duties[2])
}

func TestMapRange(t *testing.T) {
	assert.Equal(t, uint8(0), mapRange(50, 50, 200, 0, 255))
	assert.Equal(t, uint8(255), mapRange(200, 50, 200, 0, 255))
	assert.Equal(t, uint8(127), mapRange(125, 50, 200, 0, 255))
	assert.Equal(t, uint8(255), mapRange(10, 10, 10, 0, 255), "degenerate range maps to the top")
}
