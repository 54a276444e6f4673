package recording

import "time"

// Schedule is the timing information the recording subsystem exposes. The
// recorder itself lives outside this module; the agent only needs to know
// when captures happen so uploads can yield around them.
type Schedule struct {
	LastCaptureStart time.Time
	CaptureDuration  time.Duration
	CaptureInterval  time.Duration
}

// IsCapturing reports whether a capture is in progress at the given time.
func (s Schedule) IsCapturing(now time.Time) bool {
	since := now.Sub(s.LastCaptureStart)
	return since >= 0 && since < s.CaptureDuration
}

// TimeUntilNextCapture returns how long until the next scheduled capture
// starts. Negative when a capture is overdue.
func (s Schedule) TimeUntilNextCapture(now time.Time) time.Duration {
	return s.CaptureInterval - now.Sub(s.LastCaptureStart)
}

// Monitor supplies the current capture schedule.
type Monitor interface {
	Schedule() Schedule
}

// IntervalMonitor models a recorder that captures on a fixed cadence,
// anchored at the time the agent started. It stands in for the firmware's
// capture loop on devices where the recorder runs as a separate process.
type IntervalMonitor struct {
	anchor   time.Time
	interval time.Duration
	duration time.Duration
	now      func() time.Time
}

// NewIntervalMonitor creates a monitor for a recorder capturing every
// interval for the given duration.
func NewIntervalMonitor(interval, duration time.Duration) *IntervalMonitor {
	return &IntervalMonitor{
		anchor:   time.Now(),
		interval: interval,
		duration: duration,
		now:      time.Now,
	}
}

// Schedule returns the timing facts for the most recent capture slot.
func (m *IntervalMonitor) Schedule() Schedule {
	now := m.now()
	elapsed := now.Sub(m.anchor)
	slots := elapsed / m.interval
	return Schedule{
		LastCaptureStart: m.anchor.Add(slots * m.interval),
		CaptureDuration:  m.duration,
		CaptureInterval:  m.interval,
	}
}
