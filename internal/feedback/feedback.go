package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"rfid-door-lock/internal/hardware"
	"rfid-door-lock/internal/types"
)

// Fixed display text, 16 characters per line.
const (
	idleLine1 = "  Access Control"
	idleLine2 = " Scan Your Card "

	enrollLine1 = "No Master Found!"
	enrollLine2 = "Tap to ENROLL..."

	enrolledLine1 = "Master Enrolled!"
	enrolledLine2 = " Ready to Scan  "

	decisionLine1 = "   Permission   "
	grantedLine2  = " Access Granted "
	deniedLine2   = " Access Denied  "
)

// Tone and flash timing for the fixed feedback patterns.
const (
	grantBeepFreq   = 2000
	grantBeepMs     = 200
	grantBeepGapMs  = 150
	denyBeepFreq    = 1800
	denyBeepMs      = 120
	denyFlashGapMs  = 130
	denyFlashCount  = 6
	enrollBeepFreq  = 2200
	enrollBeepMs    = 180
	enrollBeepGapMs = 140
	enrolledHoldMs  = 1200
)

// Presenter maps controller outcomes to display text, LED states and tone
// patterns. It holds no state of its own; all side effects go through the
// peripheral drivers.
type Presenter struct {
	display hardware.Display
	lights  hardware.Lights
	buzzer  hardware.Buzzer
	logger  *logrus.Entry
	sleep   func(ctx context.Context, d time.Duration)
}

// Option is a functional option for configuring the Presenter.
type Option func(*Presenter)

// WithSleep overrides the pause function used between pattern steps. Tests
// use this to run patterns without wall-clock delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(p *Presenter) {
		p.sleep = sleep
	}
}

// New creates a presenter over the given peripherals.
func New(display hardware.Display, lights hardware.Lights, buzzer hardware.Buzzer, logger *logrus.Entry, opts ...Option) *Presenter {
	p := &Presenter{
		display: display,
		lights:  lights,
		buzzer:  buzzer,
		logger:  logger,
		sleep:   defaultSleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Present runs the feedback pattern for the given outcome to completion.
// Patterns are never overlapped; the caller sequences them.
func (p *Presenter) Present(ctx context.Context, outcome types.Outcome) error {
	switch outcome {
	case types.OutcomeIdle:
		return p.idle()
	case types.OutcomeEnrolling:
		return p.enrolling()
	case types.OutcomeEnrolled:
		return p.enrolled(ctx)
	case types.OutcomeGranted:
		return p.granted(ctx)
	case types.OutcomeDenied:
		return p.denied(ctx)
	default:
		return fmt.Errorf("unknown outcome: %s", outcome)
	}
}

// idle shows the ready-to-scan state: blue LED, silence.
func (p *Presenter) idle() error {
	if err := p.display.ShowLines(idleLine1, idleLine2); err != nil {
		return fmt.Errorf("failed to show idle screen: %w", err)
	}
	if err := p.lights.Set(true, false, false); err != nil {
		return fmt.Errorf("failed to set idle lights: %w", err)
	}
	if err := p.buzzer.Silence(); err != nil {
		return fmt.Errorf("failed to silence buzzer: %w", err)
	}
	return nil
}

// enrolling shows the enrollment prompt: red LED, no tone.
func (p *Presenter) enrolling() error {
	if err := p.display.ShowLines(enrollLine1, enrollLine2); err != nil {
		return fmt.Errorf("failed to show enrollment screen: %w", err)
	}
	if err := p.lights.Set(false, false, true); err != nil {
		return fmt.Errorf("failed to set enrollment lights: %w", err)
	}
	return nil
}

// enrolled confirms a completed enrollment with a double high beep and a
// short hold so the text is readable before the idle screen replaces it.
func (p *Presenter) enrolled(ctx context.Context) error {
	if err := p.display.ShowLines(enrolledLine1, enrolledLine2); err != nil {
		return fmt.Errorf("failed to show enrolled screen: %w", err)
	}
	if err := p.beep(enrollBeepFreq, enrollBeepMs); err != nil {
		return err
	}
	p.sleep(ctx, time.Duration(enrollBeepGapMs)*time.Millisecond)
	if err := p.beep(enrollBeepFreq, enrollBeepMs); err != nil {
		return err
	}
	p.sleep(ctx, time.Duration(enrolledHoldMs)*time.Millisecond)
	return nil
}

// granted shows the grant pattern: green LED, double beep.
func (p *Presenter) granted(ctx context.Context) error {
	if err := p.lights.Set(false, true, false); err != nil {
		return fmt.Errorf("failed to set grant lights: %w", err)
	}
	if err := p.display.ShowLines(decisionLine1, grantedLine2); err != nil {
		return fmt.Errorf("failed to show grant screen: %w", err)
	}
	if err := p.beep(grantBeepFreq, grantBeepMs); err != nil {
		return err
	}
	p.sleep(ctx, time.Duration(grantBeepGapMs)*time.Millisecond)
	return p.beep(grantBeepFreq, grantBeepMs)
}

// denied shows the deny pattern: six red flashes, each with a low beep.
func (p *Presenter) denied(ctx context.Context) error {
	if err := p.display.ShowLines(decisionLine1, deniedLine2); err != nil {
		return fmt.Errorf("failed to show deny screen: %w", err)
	}
	for i := 0; i < denyFlashCount; i++ {
		if err := p.lights.Set(false, false, true); err != nil {
			return fmt.Errorf("failed to set deny lights: %w", err)
		}
		if err := p.beep(denyBeepFreq, denyBeepMs); err != nil {
			return err
		}
		if err := p.lights.Set(false, false, false); err != nil {
			return fmt.Errorf("failed to clear deny lights: %w", err)
		}
		p.sleep(ctx, time.Duration(denyFlashGapMs)*time.Millisecond)
	}
	if err := p.buzzer.Silence(); err != nil {
		return fmt.Errorf("failed to silence buzzer: %w", err)
	}
	return nil
}

func (p *Presenter) beep(freqHz, durationMs int) error {
	if err := p.buzzer.Tone(freqHz, durationMs); err != nil {
		return fmt.Errorf("failed to sound tone: %w", err)
	}
	return nil
}

func defaultSleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
