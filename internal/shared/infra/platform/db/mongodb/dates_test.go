package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncateDate(t *testing.T) {
	loc := time.FixedZone("UTC-7", -7*3600)
	in := time.Date(2024, 6, 1, 5, 0, 0, 123456789, loc)

	got := TruncateDate(in)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 123000000, got.Nanosecond())
	assert.True(t, got.Equal(time.Date(2024, 6, 1, 12, 0, 0, 123000000, time.UTC)))

	assert.Nil(t, TruncateDatePtr(nil))
	assert.True(t, TruncateDatePtr(&in).Equal(got))
}
