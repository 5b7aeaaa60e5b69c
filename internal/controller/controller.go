package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rfid-door-lock/internal/feedback"
	"rfid-door-lock/internal/hardware"
	"rfid-door-lock/internal/store"
	"rfid-door-lock/internal/types"
)

// Timing holds the control loop and actuation timings.
type Timing struct {
	PollInterval       time.Duration // decision loop poll tick
	EnrollPollInterval time.Duration // enrollment wait poll tick
	PostScanDelay      time.Duration // pause after presenting a result
	UnlockDuration     time.Duration // how long the door stays unlocked
}

// Angles holds the two named lock actuator positions.
type Angles struct {
	Locked   int
	Unlocked int
}

// AuditSink receives completed scan events. Append failures are logged and
// never affect the access decision.
type AuditSink interface {
	Append(event types.ScanEvent) error
}

// Stats is a snapshot of controller state for the status API.
type Stats struct {
	CredentialPresent bool      `json:"credentialPresent"`
	Unlocked          bool      `json:"unlocked"`
	GrantCount        int64     `json:"grantCount"`
	DenyCount         int64     `json:"denyCount"`
	LastScanTime      time.Time `json:"lastScanTime,omitempty"`
}

// Controller owns the enrollment state machine and the access decision loop.
// It is single-threaded: feedback and actuation for a scan always complete
// before the next card is polled.
type Controller struct {
	timing    Timing
	angles    Angles
	store     *store.CredentialStore
	rig       hardware.Rig
	presenter *feedback.Presenter
	logger    *logrus.Entry
	audit     AuditSink
	onScan    types.ScanCallback
	sleep     func(ctx context.Context, d time.Duration)

	mu     sync.RWMutex
	master types.Identifier
	// hasMaster mirrors the persisted presence flag. Written once, by
	// startup load or enrollment; only read afterward.
	hasMaster bool
	unlocked  bool
	stats     Stats
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithAuditSink attaches a scan audit sink.
func WithAuditSink(audit AuditSink) Option {
	return func(c *Controller) {
		c.audit = audit
	}
}

// WithScanCallback registers a callback invoked after each completed scan.
func WithScanCallback(callback types.ScanCallback) Option {
	return func(c *Controller) {
		c.onScan = callback
	}
}

// WithSleep overrides the pause function used for timed holds. Tests use
// this to run the loop without wall-clock delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(c *Controller) {
		c.sleep = sleep
	}
}

// New creates a controller over the given credential store and peripherals.
func New(timing Timing, angles Angles, credStore *store.CredentialStore, rig hardware.Rig, presenter *feedback.Presenter, logger *logrus.Entry, opts ...Option) *Controller {
	c := &Controller{
		timing:    timing,
		angles:    angles,
		store:     credStore,
		rig:       rig,
		presenter: presenter,
		logger:    logger,
		sleep:     defaultSleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run drives the door unit until the context is cancelled. On a fresh device
// it first waits for the enrollment card; afterwards it runs the decision
// loop indefinitely.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.rig.Lock.SetPosition(c.angles.Locked); err != nil {
		return fmt.Errorf("failed to drive lock to locked position: %w", err)
	}

	master, present, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load master credential: %w", err)
	}

	if present {
		c.setMaster(master)
		c.logger.WithField("identifierLength", len(master)).Info("Master credential loaded")
	} else {
		if err := c.enroll(ctx); err != nil {
			return err
		}
	}

	if err := c.presenter.Present(ctx, types.OutcomeIdle); err != nil {
		return fmt.Errorf("failed to present idle state: %w", err)
	}

	c.logger.Info("Access decision loop started")

	ticker := time.NewTicker(c.timing.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Access decision loop stopping")
			return ctx.Err()
		case <-ticker.C:
		}

		id, ok, err := c.rig.Reader.TryRead(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("card reader failed: %w", err)
		}
		if !ok {
			// No card this tick.
			continue
		}

		if err := c.handleScan(ctx, id); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

// enroll blocks until the first card is read and persists it as the master
// credential. The wait is unbounded by design: the device sits in the
// enrollment prompt until a card arrives or the context is cancelled.
func (c *Controller) enroll(ctx context.Context) error {
	if err := c.presenter.Present(ctx, types.OutcomeEnrolling); err != nil {
		return fmt.Errorf("failed to present enrollment prompt: %w", err)
	}

	c.logger.Info("Enrollment mode: tap a card to set the master credential")

	for {
		id, ok, err := c.rig.Reader.TryRead(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("card reader failed during enrollment: %w", err)
		}
		if ok && id.Valid() {
			if err := c.store.Save(id); err != nil {
				return fmt.Errorf("failed to persist master credential: %w", err)
			}
			c.setMaster(id)

			c.logger.WithField("identifier", id.Hex()).Info("Master credential enrolled")
			c.recordScan(id, types.OutcomeEnrolled)

			if err := c.presenter.Present(ctx, types.OutcomeEnrolled); err != nil {
				return fmt.Errorf("failed to present enrollment confirmation: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.timing.EnrollPollInterval):
		}
	}
}

// handleScan classifies one scanned identifier and runs the full grant or
// deny sequence before returning.
func (c *Controller) handleScan(ctx context.Context, id types.Identifier) error {
	c.logger.WithField("identifier", id.Hex()).Info("Scanned card")

	outcome := c.decide(id)
	c.recordScan(id, outcome)

	switch outcome {
	case types.OutcomeGranted:
		if err := c.presenter.Present(ctx, types.OutcomeGranted); err != nil {
			return fmt.Errorf("failed to present grant feedback: %w", err)
		}
		if err := c.unlockHold(ctx); err != nil {
			return err
		}
	case types.OutcomeDenied:
		if err := c.presenter.Present(ctx, types.OutcomeDenied); err != nil {
			return fmt.Errorf("failed to present deny feedback: %w", err)
		}
	}

	c.sleep(ctx, c.timing.PostScanDelay)

	if err := c.presenter.Present(ctx, types.OutcomeIdle); err != nil {
		return fmt.Errorf("failed to present idle state: %w", err)
	}
	return nil
}

// decide compares a scanned identifier against the master credential. With no
// master present every scan is denied, fail-closed.
func (c *Controller) decide(id types.Identifier) types.Outcome {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.hasMaster && id.Equal(c.master) {
		return types.OutcomeGranted
	}
	return types.OutcomeDenied
}

// unlockHold is the scoped timed hold on the unlocked position: drive the
// actuator to Unlocked, hold for the configured duration, re-lock. Re-locking
// is guaranteed even when the hold is cut short by shutdown.
func (c *Controller) unlockHold(ctx context.Context) error {
	if err := c.rig.Lock.SetPosition(c.angles.Unlocked); err != nil {
		return fmt.Errorf("failed to unlock door: %w", err)
	}
	c.setUnlocked(true)

	c.logger.WithField("holdMs", c.timing.UnlockDuration.Milliseconds()).Info("Door unlocked")

	c.sleep(ctx, c.timing.UnlockDuration)

	c.setUnlocked(false)
	if err := c.rig.Lock.SetPosition(c.angles.Locked); err != nil {
		return fmt.Errorf("failed to re-lock door: %w", err)
	}

	c.logger.Info("Door re-locked")
	return nil
}

// recordScan updates counters and forwards the event to the audit sink and
// the scan callback. Audit failures are observability-only and never affect
// the decision.
func (c *Controller) recordScan(id types.Identifier, outcome types.Outcome) {
	event := types.ScanEvent{
		Identifier: id.Hex(),
		Outcome:    outcome,
		Timestamp:  time.Now(),
	}

	c.mu.Lock()
	c.stats.LastScanTime = event.Timestamp
	switch outcome {
	case types.OutcomeGranted:
		c.stats.GrantCount++
	case types.OutcomeDenied:
		c.stats.DenyCount++
	}
	c.mu.Unlock()

	if c.audit != nil {
		if err := c.audit.Append(event); err != nil {
			c.logger.WithError(err).Warn("Failed to append scan to audit log")
		}
	}
	if c.onScan != nil {
		c.onScan(event)
	}
}

// GetStats returns a snapshot of controller state.
func (c *Controller) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.CredentialPresent = c.hasMaster
	stats.Unlocked = c.unlocked
	return stats
}

func (c *Controller) setMaster(id types.Identifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.master = id
	c.hasMaster = true
}

func (c *Controller) setUnlocked(unlocked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unlocked = unlocked
}

func defaultSleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
