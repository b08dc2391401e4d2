package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	shareDomain "github.com/davicafu/csamarket/internal/share/domain"
	"github.com/davicafu/csamarket/tests/mocks"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func farmsOwnedBy() mocks.StubFarmDirectory {
	return mocks.StubFarmDirectory{Owners: map[string]string{
		"farm_a": "owner-1",
		"farm_b": "owner-1",
		"farm_c": "owner-2",
	}}
}

func newShareService(repo *mocks.InMemoryShareRepo) *ShareService {
	svc := NewShareService(repo, farmsOwnedBy(), mocks.NewDummyCache(), zap.NewNop())
	svc.now = func() time.Time { return baseTime }
	seq := 0
	svc.newID = func() (string, error) {
		seq++
		return fmt.Sprintf("id%03d", seq), nil
	}
	return svc
}

func shareAt(id, farmID string, offset time.Duration) *shareDomain.Share {
	return &shareDomain.Share{
		ID:        id,
		FarmID:    farmID,
		Name:      "Share " + id,
		Price:     2500,
		Frequency: shareDomain.Weekly,
		Available: true,
		CreatedAt: baseTime.Add(offset),
		UpdatedAt: baseTime.Add(offset),
	}
}

func ids(shares []*shareDomain.Share) []string {
	out := make([]string, 0, len(shares))
	for _, s := range shares {
		out = append(out, s.ID)
	}
	return out
}

func TestCreateShare(t *testing.T) {
	name := "Veggie box"
	price := int64(3000)
	freq := shareDomain.Biweekly
	in := shareDomain.ShareInput{Name: &name, Price: &price, Frequency: &freq}

	tests := []struct {
		name    string
		userID  string
		farmID  string
		wantErr error
	}{
		{"dueño de la granja", "owner-1", "farm_a", nil},
		{"granja ajena", "owner-2", "farm_a", shareDomain.ErrFarmNotOwned},
		{"granja inexistente", "owner-1", "farm_zzz", shareDomain.ErrFarmNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewInMemoryShareRepo()
			svc := newShareService(repo)

			share, err := svc.CreateShare(context.Background(), tt.userID, tt.farmID, in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, repo.Len())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "share_id001", share.ID)
			assert.True(t, share.Available)
			assert.Zero(t, share.CurrentSubscribers)
			assert.Equal(t, []string{shareDomain.ShareCreated}, repo.EventTypes())
		})
	}
}

func TestCreateShare_Invalid(t *testing.T) {
	repo := mocks.NewInMemoryShareRepo()
	svc := newShareService(repo)

	name := "No frequency"
	_, err := svc.CreateShare(context.Background(), "owner-1", "farm_a", shareDomain.ShareInput{Name: &name})
	assert.ErrorIs(t, err, shareDomain.ErrInvalidShare)
}

func TestListings(t *testing.T) {
	closed := shareAt("s3", "farm_b", 3*time.Minute)
	closed.Available = false
	repo := mocks.NewInMemoryShareRepo(
		shareAt("s1", "farm_a", time.Minute),
		shareAt("s2", "farm_c", 2*time.Minute),
		closed,
	)
	svc := newShareService(repo)
	ctx := context.Background()

	all, err := svc.ListShares(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"s3", "s2", "s1"}, ids(all))

	open := true
	available, err := svc.ListShares(ctx, &open)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s1"}, ids(available))

	byFarm, err := svc.ListByFarm(ctx, "farm_c")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, ids(byFarm))

	mine, err := svc.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s3", "s1"}, ids(mine))

	none, err := svc.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestListShares_StorageFailure(t *testing.T) {
	repo := mocks.NewInMemoryShareRepo()
	repo.Err = errors.New("db down")
	svc := newShareService(repo)

	_, err := svc.ListShares(context.Background(), nil)
	assert.Error(t, err)
}

func TestUpdateShare_OwnershipViaFarm(t *testing.T) {
	repo := mocks.NewInMemoryShareRepo(shareAt("s1", "farm_a", 0))
	svc := newShareService(repo)
	svc.now = func() time.Time { return baseTime.Add(time.Hour) }
	ctx := context.Background()

	price := int64(4200)
	_, err := svc.UpdateShare(ctx, "owner-2", "s1", shareDomain.ShareInput{Price: &price})
	assert.ErrorIs(t, err, shareDomain.ErrShareNotFound)

	_, err = svc.UpdateShare(ctx, "owner-1", "missing", shareDomain.ShareInput{Price: &price})
	assert.ErrorIs(t, err, shareDomain.ErrShareNotFound)

	updated, err := svc.UpdateShare(ctx, "owner-1", "s1", shareDomain.ShareInput{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(4200), updated.Price)
	assert.Equal(t, baseTime.Add(time.Hour), updated.UpdatedAt)
	assert.Equal(t, []string{shareDomain.ShareUpdated}, repo.EventTypes())
}

func TestSetAvailability(t *testing.T) {
	repo := mocks.NewInMemoryShareRepo(shareAt("s1", "farm_a", 0))
	svc := newShareService(repo)

	share, err := svc.SetAvailability(context.Background(), "owner-1", "s1", false)
	require.NoError(t, err)
	assert.False(t, share.Available)

	stored, err := repo.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, stored.Available)
}

func TestDeleteShare(t *testing.T) {
	repo := mocks.NewInMemoryShareRepo(shareAt("s1", "farm_a", 0))
	svc := newShareService(repo)

	assert.ErrorIs(t, svc.DeleteShare(context.Background(), "owner-2", "s1"), shareDomain.ErrShareNotFound)
	require.NoError(t, svc.DeleteShare(context.Background(), "owner-1", "s1"))
	assert.Zero(t, repo.Len())
	assert.Equal(t, []string{shareDomain.ShareDeleted}, repo.EventTypes())
}

func TestGetShare(t *testing.T) {
	repo := mocks.NewInMemoryShareRepo(shareAt("s1", "farm_a", 0))
	svc := newShareService(repo)

	share, err := svc.GetShare(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "farm_a", share.FarmID)

	_, err = svc.GetShare(context.Background(), "missing")
	assert.ErrorIs(t, err, shareDomain.ErrShareNotFound)
}

func TestDeleteByFarm(t *testing.T) {
	repo := mocks.NewInMemoryShareRepo(
		shareAt("s1", "farm_a", 0),
		shareAt("s2", "farm_a", time.Minute),
		shareAt("s3", "farm_c", 2*time.Minute),
	)
	svc := newShareService(repo)

	n, err := svc.DeleteByFarm(context.Background(), "farm_a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, repo.Len())

	// Repetir el evento no hace nada
	n, err = svc.DeleteByFarm(context.Background(), "farm_a")
	require.NoError(t, err)
	assert.Zero(t, n)
}
