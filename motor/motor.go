package motor

// PWMWriter drives one PWM output pin with an 8-bit duty cycle. The hardware
// binding (LEDC on the device, a stub elsewhere) lives behind this interface.
type PWMWriter interface {
	Write(pin int, duty uint8) error
}

// Motor controls a DC motor through a two-pin driver: one pin held low, the
// other driven with PWM, swapped for reverse.
type Motor struct {
	pin1     int
	pin2     int
	deadZone int
	maxSpeed int
	pwm      PWMWriter
}

// New creates a motor on the given driver pins. Speeds below deadZone stop
// the motor instead of jittering; speeds are clamped to ±maxSpeed.
func New(pwm PWMWriter, pin1, pin2, deadZone, maxSpeed int) *Motor {
	return &Motor{
		pin1:     pin1,
		pin2:     pin2,
		deadZone: deadZone,
		maxSpeed: maxSpeed,
		pwm:      pwm,
	}
}

// Init drives both pins low so the motor starts stopped.
func (m *Motor) Init() error {
	return m.Stop()
}

// SetSpeed drives the motor at the given speed, -255 to 255, negative for
// reverse.
func (m *Motor) SetSpeed(speed int) error {
	magnitude := speed
	if magnitude < 0 {
		magnitude = -magnitude
	}

	if magnitude < m.deadZone {
		return m.Stop()
	}
	if magnitude > m.maxSpeed {
		magnitude = m.maxSpeed
	}

	duty := mapRange(magnitude, m.deadZone, m.maxSpeed, 0, 255)

	if speed > 0 {
		if err := m.pwm.Write(m.pin1, 0); err != nil {
			return err
		}
		return m.pwm.Write(m.pin2, duty)
	}
	if err := m.pwm.Write(m.pin1, duty); err != nil {
		return err
	}
	return m.pwm.Write(m.pin2, 0)
}

// Stop drives both pins low immediately.
func (m *Motor) Stop() error {
	if err := m.pwm.Write(m.pin1, 0); err != nil {
		return err
	}
	return m.pwm.Write(m.pin2, 0)
}

// mapRange linearly maps v from [inLow, inHigh] to [outLow, outHigh].
func mapRange(v, inLow, inHigh, outLow, outHigh int) uint8 {
	if inHigh == inLow {
		return uint8(outHigh)
	}
	mapped := outLow + (v-inLow)*(outHigh-outLow)/(inHigh-inLow)
	if mapped < 0 {
		mapped = 0
	}
	if mapped > 255 {
		mapped = 255
	}
	return uint8(mapped)
}
