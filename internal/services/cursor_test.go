package services

import (
	"testing"

	intake_errors "intake-chat/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		seq  int64
	}{
		{"first page", 1},
		{"mid stream", 42},
		{"large sequence", 1 << 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor := EncodeCursor(tt.seq)
			require.NotEmpty(t, cursor)

			seq, err := DecodeCursor(cursor)
			require.NoError(t, err)
			assert.Equal(t, tt.seq, seq)
		})
	}
}

func TestEncodeCursorZero(t *testing.T) {
	assert.Empty(t, EncodeCursor(0))
	assert.Empty(t, EncodeCursor(-5))
}

func TestDecodeCursorEmpty(t *testing.T) {
	seq, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
}

func TestDecodeCursorInvalid(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
	}{
		{"not base64", "!!not-base64!!"},
		{"no separator", "djE"},
		{"wrong version", "djI6NQ"},    // v2:5
		{"non-numeric", "djE6YWJj"},    // v1:abc
		{"negative", "djE6LTU"},        // v1:-5
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCursor(tt.cursor)
			assert.ErrorIs(t, err, intake_errors.ErrInvalidInput)
		})
	}
}
