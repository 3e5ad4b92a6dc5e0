package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRecordID(t *testing.T) {
	assert.Equal(t, "2025-01-001", FormatRecordID(2025, 1, 1))
	assert.Equal(t, "2024-12-123", FormatRecordID(2024, 12, 123))
}

func TestParseRecordID(t *testing.T) {
	year, month, seq, err := ParseRecordID("2025-01-042")
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 1, month)
	assert.Equal(t, 42, seq)
}

func TestParseRecordID_Invalid(t *testing.T) {
	for _, bad := range []string{"", "2025", "2025-01", "xxxx-01-001", "2025-xx-001", "2025-01-xxx"} {
		_, _, _, err := ParseRecordID(bad)
		assert.Error(t, err, "id %q", bad)
	}
}

func TestRoundTrip(t *testing.T) {
	id := FormatRecordID(2026, 9, 7)
	year, month, seq, err := ParseRecordID(id)
	require.NoError(t, err)
	assert.Equal(t, id, FormatRecordID(year, month, seq))
}
