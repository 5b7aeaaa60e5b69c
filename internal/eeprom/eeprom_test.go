package eeprom

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRegionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region.bin")

	region, err := OpenFileRegion(path, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, region.Size())

	require.NoError(t, region.WriteAt([]byte{0xA5, 0x04}, 0))
	require.NoError(t, region.WriteAt([]byte{0xDE, 0xAD, 0xBE, 0xEF}, 2))

	got := make([]byte, 6)
	require.NoError(t, region.ReadAt(got, 0))
	assert.Equal(t, []byte{0xA5, 0x04, 0xDE, 0xAD, 0xBE, 0xEF}, got)
}

func TestFileRegionSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region.bin")

	region, err := OpenFileRegion(path, 12)
	require.NoError(t, err)
	require.NoError(t, region.WriteAt([]byte{0xA5, 0x01, 0x42}, 0))

	reopened, err := OpenFileRegion(path, 12)
	require.NoError(t, err)

	got := make([]byte, 3)
	require.NoError(t, reopened.ReadAt(got, 0))
	assert.Equal(t, []byte{0xA5, 0x01, 0x42}, got)
}

func TestFileRegionFreshReadsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region.bin")

	region, err := OpenFileRegion(path, 12)
	require.NoError(t, err)

	got := make([]byte, 12)
	require.NoError(t, region.ReadAt(got, 0))
	assert.Equal(t, make([]byte, 12), got)
}

func TestFileRegionInvalidSize(t *testing.T) {
	_, err := OpenFileRegion(filepath.Join(t.TempDir(), "region.bin"), 0)
	assert.Error(t, err)
}

func TestRegionBounds(t *testing.T) {
	region := NewMemRegion(12)

	assert.Error(t, region.ReadAt(make([]byte, 4), 10))
	assert.Error(t, region.WriteAt(make([]byte, 4), 10))
	assert.Error(t, region.ReadAt(make([]byte, 1), -1))
	assert.NoError(t, region.WriteAt(make([]byte, 12), 0))
}

func TestMemRegionRoundTrip(t *testing.T) {
	region := NewMemRegion(12)
	require.NoError(t, region.WriteAt([]byte{0x01, 0x02, 0x03}, 4))

	got := make([]byte, 3)
	require.NoError(t, region.ReadAt(got, 4))
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got)
}
