package store

import (
	"fmt"

	"rfid-door-lock/internal/eeprom"
	"rfid-door-lock/internal/types"
)

// Persistent layout of the master credential region:
//   [0]     presence flag, flagMagic when a credential is stored
//   [1]     identifier length (1..10)
//   [2..11] identifier bytes, unused slots zero-filled
const (
	flagOffset = 0
	lenOffset  = 1
	uidOffset  = 2

	flagMagic  = 0xA5
	fillerByte = 0x00

	// RegionSize is the number of storage bytes the credential layout needs.
	RegionSize = uidOffset + types.MaxIdentifierLen
)

// CredentialStore persists the single master credential in a byte-addressable
// storage region. It is the only component that touches the region.
type CredentialStore struct {
	region eeprom.Region
}

// New creates a credential store over the given region. The region must be at
// least RegionSize bytes.
func New(region eeprom.Region) (*CredentialStore, error) {
	if region.Size() < RegionSize {
		return nil, fmt.Errorf("storage region too small: need %d bytes, have %d", RegionSize, region.Size())
	}
	return &CredentialStore{region: region}, nil
}

// Load reads the stored master credential. The second return value is false
// when no credential is present, which includes the case of a stored length
// outside the valid range: corrupt storage is treated as absent, fail-closed.
func (s *CredentialStore) Load() (types.Identifier, bool, error) {
	header := make([]byte, 2)
	if err := s.region.ReadAt(header, flagOffset); err != nil {
		return nil, false, fmt.Errorf("failed to read credential header: %w", err)
	}

	if header[0] != flagMagic {
		return nil, false, nil
	}

	length := int(header[1])
	if length < 1 || length > types.MaxIdentifierLen {
		return nil, false, nil
	}

	uid := make([]byte, length)
	if err := s.region.ReadAt(uid, uidOffset); err != nil {
		return nil, false, fmt.Errorf("failed to read credential bytes: %w", err)
	}

	return types.Identifier(uid), true, nil
}

// Save persists the identifier as the master credential: flag, length, bytes,
// with unused trailing slots zero-filled. Saving the same identifier twice
// produces identical stored state.
func (s *CredentialStore) Save(id types.Identifier) error {
	if !id.Valid() {
		return fmt.Errorf("identifier length %d outside valid range [1,%d]", len(id), types.MaxIdentifierLen)
	}

	record := make([]byte, RegionSize)
	record[flagOffset] = flagMagic
	record[lenOffset] = byte(len(id))
	for i := 0; i < types.MaxIdentifierLen; i++ {
		if i < len(id) {
			record[uidOffset+i] = id[i]
		} else {
			record[uidOffset+i] = fillerByte
		}
	}

	if err := s.region.WriteAt(record, 0); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}
	return nil
}

// Clear unsets the presence flag, dropping the stored credential. This is the
// factory reset path; the runtime control loop never calls it.
func (s *CredentialStore) Clear() error {
	if err := s.region.WriteAt([]byte{fillerByte}, flagOffset); err != nil {
		return fmt.Errorf("failed to clear credential flag: %w", err)
	}
	return nil
}
