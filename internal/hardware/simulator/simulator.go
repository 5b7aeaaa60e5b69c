package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rfid-door-lock/internal/hardware"
	"rfid-door-lock/internal/types"
)

// ToneStep records one buzzer activation.
type ToneStep struct {
	FreqHz     int
	DurationMs int
}

// Rig is a full software implementation of the door peripherals for bench
// testing. Card scans are fed in with TriggerScan; every display, LED, tone
// and lock transition is recorded and readable behind a mutex.
type Rig struct {
	mu sync.RWMutex

	logger *logrus.Entry

	scans chan types.Identifier

	line1, line2      string
	blue, green, red  bool
	lockAngle         int
	tones             []ToneStep
	silenced          bool
	lockTransitions   []int
	lastScanTriggered time.Time
}

// New creates a simulator rig. The scan channel is buffered so TriggerScan
// never blocks the test goroutine.
func New(logger *logrus.Entry) *Rig {
	return &Rig{
		logger: logger,
		scans:  make(chan types.Identifier, 16),
	}
}

// Peripherals returns the rig wired as the hardware peripheral set.
func (r *Rig) Peripherals() hardware.Rig {
	return hardware.Rig{
		Reader:  r,
		Display: r,
		Lights:  r,
		Buzzer:  r,
		Lock:    r,
	}
}

// TriggerScan simulates a card entering the reader field.
func (r *Rig) TriggerScan(id types.Identifier) {
	r.mu.Lock()
	r.lastScanTriggered = time.Now()
	r.mu.Unlock()

	r.logger.WithField("identifier", id.Hex()).Debug("Simulated card scan triggered")
	r.scans <- id
}

// TryRead returns a pending simulated scan, if any.
func (r *Rig) TryRead(ctx context.Context) (types.Identifier, bool, error) {
	select {
	case id := <-r.scans:
		return id, true, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
		return nil, false, nil
	}
}

// Close drains the rig. No underlying device to release.
func (r *Rig) Close() error {
	return nil
}

// ShowLines records the display content.
func (r *Rig) ShowLines(line1, line2 string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.line1, r.line2 = line1, line2
	return nil
}

// Set records the LED state.
func (r *Rig) Set(blue, green, red bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blue, r.green, r.red = blue, green, red
	return nil
}

// Tone records a buzzer activation. The simulated buzzer completes instantly
// so bench runs are not paced by audio feedback.
func (r *Rig) Tone(freqHz, durationMs int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tones = append(r.tones, ToneStep{FreqHz: freqHz, DurationMs: durationMs})
	r.silenced = false
	return nil
}

// Silence records that the buzzer was stopped.
func (r *Rig) Silence() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.silenced = true
	return nil
}

// SetPosition records a lock actuator move.
func (r *Rig) SetPosition(angle int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lockAngle = angle
	r.lockTransitions = append(r.lockTransitions, angle)
	return nil
}

// DisplayLines returns the current display content.
func (r *Rig) DisplayLines() (string, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.line1, r.line2
}

// LEDState returns the current LED state.
func (r *Rig) LEDState() (blue, green, red bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.blue, r.green, r.red
}

// LockAngle returns the current lock actuator angle.
func (r *Rig) LockAngle() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lockAngle
}

// LockTransitions returns every angle the actuator was driven to, in order.
func (r *Rig) LockTransitions() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int, len(r.lockTransitions))
	copy(out, r.lockTransitions)
	return out
}

// Tones returns every buzzer activation, in order.
func (r *Rig) Tones() []ToneStep {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToneStep, len(r.tones))
	copy(out, r.tones)
	return out
}
