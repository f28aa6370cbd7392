package postgresql

import (
	"testing"
	"time"

	"github.com/avd-uisa/notify-go/internal/domain/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 10, 9, 0, 0, 123456789, time.UTC)
	cursor := encodeCursor(createdAt, "0d9f3c1e-6a2b-4f9e-8a6e-1c2d3e4f5a6b")

	gotAt, gotID, err := decodeCursor(cursor)
	require.NoError(t, err)
	assert.True(t, gotAt.Equal(createdAt))
	assert.Equal(t, "0d9f3c1e-6a2b-4f9e-8a6e-1c2d3e4f5a6b", gotID)
}

func TestCursor_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	createdAt := time.Date(2026, 3, 10, 16, 0, 0, 0, loc)

	gotAt, _, err := decodeCursor(encodeCursor(createdAt, "n-1"))
	require.NoError(t, err)
	assert.True(t, gotAt.Equal(createdAt))
}

func TestDecodeCursor_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		cursor string
	}{
		{"not base64", "%%%"},
		{"missing separator", "bm90LWEtY3Vyc29y"},
		{"bad timestamp", "bm90LWEtdGltZXxuLTE"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := decodeCursor(tc.cursor)
			assert.ErrorIs(t, err, notification.ErrInvalidCursor)
		})
	}
}
