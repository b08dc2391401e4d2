package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
)

func bsonRoundTrip(t *testing.T, f *farmDomain.Farm) *farmDomain.Farm {
	t.Helper()
	raw, err := bson.Marshal(toMongoFarm(f))
	require.NoError(t, err)
	var mf mongoFarm
	require.NoError(t, bson.Unmarshal(raw, &mf))
	return fromMongoFarm(&mf)
}

func TestTruncateFarmDates(t *testing.T) {
	// el servicio genera marcas a microsegundos
	at := time.Date(2024, 6, 1, 12, 0, 0, 123456000, time.UTC)
	f := &farmDomain.Farm{ID: "farm_1", UserID: "u1", Name: "Green Acres", CreatedAt: at, UpdatedAt: at.Add(time.Microsecond)}

	// una fecha BSON pierde los microsegundos
	assert.False(t, bsonRoundTrip(t, f).CreatedAt.Equal(f.CreatedAt))

	truncateFarmDates(f)
	assert.Equal(t, 123000000, f.CreatedAt.Nanosecond())

	got := bsonRoundTrip(t, f)
	assert.True(t, got.CreatedAt.Equal(f.CreatedAt))
	assert.True(t, got.UpdatedAt.Equal(f.UpdatedAt))
}
