package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCursor(t *testing.T) {
	ts := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)

	encoded := EncodeCursor("q42", ts)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.Equal(t, "q42", decoded.LastID)
	assert.True(t, ts.Equal(decoded.Timestamp))
}

func TestDecodeCursor_Empty(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	_, err := DecodeCursor("!!not-base64")
	assert.ErrorIs(t, err, ErrInvalidCursor)

	// Valid base64 but missing the separator.
	_, err = DecodeCursor("cTQy")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestCreateNextCursor(t *testing.T) {
	type entry struct {
		ID      string
		AskedAt time.Time
	}

	ts := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	items := []entry{
		{ID: "a", AskedAt: ts},
		{ID: "b", AskedAt: ts.Add(time.Minute)},
	}

	cursor := CreateNextCursor(items, 2,
		func(e entry) string { return e.ID },
		func(e entry) time.Time { return e.AskedAt },
	)
	require.NotEmpty(t, cursor)

	decoded, err := DecodeCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, "b", decoded.LastID)

	// Fewer items than the limit means no next page.
	assert.Empty(t, CreateNextCursor(items[:1], 2,
		func(e entry) string { return e.ID },
		func(e entry) time.Time { return e.AskedAt },
	))
}
