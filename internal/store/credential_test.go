package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfid-door-lock/internal/eeprom"
	"rfid-door-lock/internal/types"
)

func newTestStore(t *testing.T) (*CredentialStore, *eeprom.MemRegion) {
	t.Helper()
	region := eeprom.NewMemRegion(RegionSize)
	s, err := New(region)
	require.NoError(t, err)
	return s, region
}

func TestLoadFreshStorageIsAbsent(t *testing.T) {
	s, _ := newTestStore(t)

	_, present, err := s.Load()
	require.NoError(t, err)
	assert.False(t, present)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	// Round-trip must hold for every valid length
	for length := 1; length <= types.MaxIdentifierLen; length++ {
		s, _ := newTestStore(t)

		id := make(types.Identifier, length)
		for i := range id {
			id[i] = byte(0xD0 + i)
		}

		require.NoError(t, s.Save(id))

		got, present, err := s.Load()
		require.NoError(t, err)
		assert.True(t, present)
		assert.True(t, got.Equal(id), "length %d round-trip mismatch", length)
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	s, region := newTestStore(t)
	id := types.Identifier{0xDE, 0xAD, 0xBE, 0xEF}

	require.NoError(t, s.Save(id))
	first := make([]byte, RegionSize)
	require.NoError(t, region.ReadAt(first, 0))

	require.NoError(t, s.Save(id))
	second := make([]byte, RegionSize)
	require.NoError(t, region.ReadAt(second, 0))

	assert.Equal(t, first, second)
}

func TestSavePadsUnusedSlots(t *testing.T) {
	s, region := newTestStore(t)

	// Leave stale bytes behind a longer previous value
	require.NoError(t, region.WriteAt([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, 2))

	require.NoError(t, s.Save(types.Identifier{0x42, 0x43}))

	raw := make([]byte, RegionSize)
	require.NoError(t, region.ReadAt(raw, 0))
	assert.Equal(t, []byte{0xA5, 0x02, 0x42, 0x43, 0, 0, 0, 0, 0, 0, 0, 0}, raw)
}

func TestSaveRejectsInvalidLength(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Error(t, s.Save(types.Identifier{}))
	assert.Error(t, s.Save(types.Identifier(make([]byte, types.MaxIdentifierLen+1))))
}

func TestLoadCorruptLengthIsAbsent(t *testing.T) {
	tests := []struct {
		name   string
		length byte
	}{
		{name: "zero length", length: 0},
		{name: "over-long length", length: 11},
		{name: "wildly out of range", length: 0xFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, region := newTestStore(t)
			require.NoError(t, region.WriteAt([]byte{0xA5, tt.length}, 0))

			_, present, err := s.Load()
			require.NoError(t, err)
			assert.False(t, present, "corrupt length must read as absent")
		})
	}
}

func TestLoadWrongFlagIsAbsent(t *testing.T) {
	s, region := newTestStore(t)
	require.NoError(t, region.WriteAt([]byte{0x5A, 0x04, 0xDE, 0xAD, 0xBE, 0xEF}, 0))

	_, present, err := s.Load()
	require.NoError(t, err)
	assert.False(t, present)
}

func TestClearDropsCredential(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Save(types.Identifier{0x01, 0x02}))

	require.NoError(t, s.Clear())

	_, present, err := s.Load()
	require.NoError(t, err)
	assert.False(t, present)
}

func TestNewRejectsSmallRegion(t *testing.T) {
	_, err := New(eeprom.NewMemRegion(RegionSize - 1))
	assert.Error(t, err)
}
