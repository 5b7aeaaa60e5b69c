package hardware

import (
	"context"

	"rfid-door-lock/internal/types"
)

// CardReader is the RFID reader surface the controller polls. Implementations
// must be non-blocking: when no card is in the field they return ok=false
// immediately.
type CardReader interface {
	// TryRead polls for a card. ok is true when an identifier was read this
	// tick. Identifier length is capped at types.MaxIdentifierLen.
	TryRead(ctx context.Context) (id types.Identifier, ok bool, err error)

	// Close releases the underlying device.
	Close() error
}

// Display is a fixed-width two-line character display.
type Display interface {
	// ShowLines replaces both display lines.
	ShowLines(line1, line2 string) error
}

// Lights drives the three indicator LEDs.
type Lights interface {
	// Set switches each LED on or off.
	Set(blue, green, red bool) error
}

// Buzzer produces audible feedback.
type Buzzer interface {
	// Tone sounds the given frequency for durationMs milliseconds, blocking
	// until the tone completes.
	Tone(freqHz, durationMs int) error

	// Silence stops any sounding tone.
	Silence() error
}

// Lock positions the lock actuator. The named Locked and Unlocked angles come
// from configuration.
type Lock interface {
	// SetPosition moves the actuator to the given angle.
	SetPosition(angle int) error
}

// Rig bundles the full peripheral set of one door unit.
type Rig struct {
	Reader  CardReader
	Display Display
	Lights  Lights
	Buzzer  Buzzer
	Lock    Lock
}
