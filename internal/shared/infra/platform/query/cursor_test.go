package query

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		createdAt time.Time
		id        string
	}{
		{"segundos exactos", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), "farm_abc123"},
		{"nanosegundos", time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC), "farm_x"},
		{"zona no UTC", time.Date(2023, 12, 31, 23, 59, 59, 999, time.FixedZone("PST", -8*3600)), "farm_tz"},
		{"id con delimitador", time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC), "farm|with|pipes"},
		{"id con comillas y unicode", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), `fa"rm,ñ:{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := EncodeCursor(tt.createdAt, tt.id)
			decoded := DecodeCursor(token)

			require.NotNil(t, decoded)
			assert.True(t, tt.createdAt.Equal(decoded.CreatedAt), "got %s want %s", decoded.CreatedAt, tt.createdAt)
			assert.Equal(t, tt.id, decoded.ID)
			assert.Empty(t, decoded.Sort)
			assert.Nil(t, decoded.Value)
		})
	}
}

func TestCursor_EncodeIsDeterministic(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 10, time.UTC)
	assert.Equal(t, EncodeCursor(ts, "farm_1"), EncodeCursor(ts, "farm_1"))
	assert.NotEqual(t, EncodeCursor(ts, "farm_1"), EncodeCursor(ts, "farm_2"))
}

func TestCursor_CompositeKey(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	numeric := Cursor{CreatedAt: ts, ID: "farm_1", Sort: "price", Value: 32.5}
	decoded := DecodeCursor(numeric.Encode())
	require.NotNil(t, decoded)
	assert.Equal(t, "price", decoded.Sort)
	assert.Equal(t, 32.5, decoded.Value)

	text := Cursor{CreatedAt: ts, ID: "farm_2", Sort: "name", Value: "Green Acres"}
	decoded = DecodeCursor(text.Encode())
	require.NotNil(t, decoded)
	assert.Equal(t, "Green Acres", decoded.Value)

	zero := Cursor{CreatedAt: ts, ID: "farm_3", Sort: "rating", Value: 0.0}
	decoded = DecodeCursor(zero.Encode())
	require.NotNil(t, decoded)
	assert.Equal(t, 0.0, decoded.Value)
}

func TestDecodeCursor_Garbage(t *testing.T) {
	inputs := []string{
		"",
		"!!!",
		"not-base64-$$$",
		base64.RawURLEncoding.EncodeToString([]byte("2024-01-01T00:00:00Z|farm_1")),
		base64.RawURLEncoding.EncodeToString([]byte(`{"t":"ayer","id":"farm_1"}`)),
		base64.RawURLEncoding.EncodeToString([]byte(`{"t":"2024-01-01T00:00:00Z"}`)),
		base64.RawURLEncoding.EncodeToString([]byte(`{"id":"farm_1"}`)),
		base64.RawURLEncoding.EncodeToString([]byte(`{"t":"2024-01-01T00:00:00Z","id":"f","v":{"a":1}}`)),
		base64.RawURLEncoding.EncodeToString([]byte(`[1,2,3]`)),
		base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0x00}),
	}

	for _, in := range inputs {
		assert.NotPanics(t, func() {
			assert.Nil(t, DecodeCursor(in), "input %q", in)
		})
	}
}
