package types

import (
	"fmt"
	"strings"
	"time"
)

// MaxIdentifierLen is the maximum number of UID bytes a card identifier may
// carry. Readers that report longer UIDs are truncated at this boundary.
const MaxIdentifierLen = 10

// Identifier is the unique byte sequence read from a scanned card.
// It is immutable once read; value equality is byte-wise.
type Identifier []byte

// NewIdentifier copies raw UID bytes into an Identifier, capping the length
// at MaxIdentifierLen.
func NewIdentifier(raw []byte) Identifier {
	n := len(raw)
	if n > MaxIdentifierLen {
		n = MaxIdentifierLen
	}
	id := make(Identifier, n)
	copy(id, raw[:n])
	return id
}

// Valid reports whether the identifier length is within the accepted range.
// A zero-length or over-long identifier is treated as no credential.
func (id Identifier) Valid() bool {
	return len(id) >= 1 && len(id) <= MaxIdentifierLen
}

// Equal reports whether two identifiers match byte for byte. Identifiers of
// differing length never match.
func (id Identifier) Equal(other Identifier) bool {
	if len(id) != len(other) {
		return false
	}
	for i := range id {
		if id[i] != other[i] {
			return false
		}
	}
	return true
}

// Hex renders the identifier as space-separated uppercase hex pairs for
// diagnostic log lines, e.g. "DE AD BE EF".
func (id Identifier) Hex() string {
	var b strings.Builder
	for i, v := range id {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}

// Outcome classifies what the controller is doing or has decided for a scan.
type Outcome string

const (
	OutcomeIdle      Outcome = "idle"
	OutcomeEnrolling Outcome = "enrolling"
	OutcomeEnrolled  Outcome = "enrolled"
	OutcomeGranted   Outcome = "granted"
	OutcomeDenied    Outcome = "denied"
)

// IsDecision reports whether the outcome is a per-scan access decision as
// opposed to a feedback-only state.
func (o Outcome) IsDecision() bool {
	return o == OutcomeGranted || o == OutcomeDenied
}

// IsValidOutcome checks if the provided outcome is one of the known values.
func IsValidOutcome(o Outcome) bool {
	switch o {
	case OutcomeIdle, OutcomeEnrolling, OutcomeEnrolled, OutcomeGranted, OutcomeDenied:
		return true
	default:
		return false
	}
}

// ScanEvent records a single card scan and its outcome for the audit log and
// the status API. The decision logic never reads these back.
type ScanEvent struct {
	Identifier string    `json:"identifier"` // hex rendering, never raw bytes
	Outcome    Outcome   `json:"outcome"`
	Timestamp  time.Time `json:"timestamp"`
}

// ScanCallback is invoked by the controller after each completed scan.
type ScanCallback func(event ScanEvent)
