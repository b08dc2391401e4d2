package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
	"github.com/davicafu/csamarket/tests/mocks"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type recordingRecorder struct {
	mu      sync.Mutex
	entries []farmDomain.ListingLog
}

func (r *recordingRecorder) Record(e farmDomain.ListingLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recordingRecorder) last() farmDomain.ListingLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[len(r.entries)-1]
}

func fptr(v float64) *float64 { return &v }
func sptr(v string) *string   { return &v }

func newService(repo *mocks.InMemoryFarmRepo) (*FarmService, *mocks.DummyCache, *recordingRecorder) {
	cache := mocks.NewDummyCache()
	rec := &recordingRecorder{}
	svc := NewFarmService(repo, cache, rec, zap.NewNop())
	svc.now = func() time.Time { return baseTime }
	seq := 0
	svc.newID = func() (string, error) {
		seq++
		return fmt.Sprintf("id%03d", seq), nil
	}
	return svc, cache, rec
}

func farmAt(id string, offset time.Duration) *farmDomain.Farm {
	return &farmDomain.Farm{
		ID:              id,
		UserID:          "owner-1",
		Name:            "Farm " + id,
		ImageURLs:       []string{},
		Categories:      []string{},
		DeliveryOptions: []string{},
		CreatedAt:       baseTime.Add(offset),
		UpdatedAt:       baseTime.Add(offset),
	}
}

// ---------- CRUD ----------

func TestCreateFarm(t *testing.T) {
	repo := mocks.NewInMemoryFarmRepo()
	svc, cache, _ := newService(repo)

	farm, err := svc.CreateFarm(context.Background(), "owner-1", farmDomain.FarmInput{
		Name:       sptr("Green Acres"),
		State:      sptr("CA"),
		Categories: []string{"vegetables", " "},
	})
	require.NoError(t, err)

	assert.Equal(t, "farm_id001", farm.ID)
	assert.Equal(t, "owner-1", farm.UserID)
	assert.Equal(t, []string{"vegetables"}, farm.Categories)
	assert.Equal(t, baseTime, farm.CreatedAt)
	assert.Equal(t, []string{farmDomain.FarmCreated}, repo.EventTypes())
	assert.Equal(t, "farm_id001", repo.Events[0].AggregateID)

	assert.Eventually(t, func() bool {
		var cached farmDomain.Farm
		hit, _ := cache.Get(context.Background(), farmDomain.FarmCacheKeyByID(farm.ID), &cached)
		return hit && cached.Name == "Green Acres"
	}, time.Second, 10*time.Millisecond)
}

func TestCreateFarm_RequiresName(t *testing.T) {
	repo := mocks.NewInMemoryFarmRepo()
	svc, _, _ := newService(repo)

	_, err := svc.CreateFarm(context.Background(), "owner-1", farmDomain.FarmInput{Name: sptr("  ")})
	assert.ErrorIs(t, err, farmDomain.ErrInvalidFarm)
	assert.Zero(t, repo.Len())
}

func TestUpdateFarm(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		farmID  string
		wantErr error
	}{
		{"dueño", "owner-1", "farm_a", nil},
		{"otro usuario", "intruder", "farm_a", farmDomain.ErrFarmForbidden},
		{"no existe", "owner-1", "farm_missing", farmDomain.ErrFarmNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewInMemoryFarmRepo(farmAt("farm_a", 0))
			svc, _, _ := newService(repo)
			svc.now = func() time.Time { return baseTime.Add(time.Hour) }

			updated, err := svc.UpdateFarm(context.Background(), tt.userID, tt.farmID, farmDomain.FarmInput{
				Name:         sptr("Renamed"),
				PricePerWeek: fptr(35),
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, repo.Events)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Renamed", updated.Name)
			assert.Equal(t, 35.0, *updated.PricePerWeek)
			assert.Equal(t, baseTime, updated.CreatedAt)
			assert.Equal(t, baseTime.Add(time.Hour), updated.UpdatedAt)
			assert.Equal(t, []string{farmDomain.FarmUpdated}, repo.EventTypes())
		})
	}
}

func TestDeleteFarm(t *testing.T) {
	repo := mocks.NewInMemoryFarmRepo(farmAt("farm_a", 0))
	svc, _, _ := newService(repo)

	assert.ErrorIs(t, svc.DeleteFarm(context.Background(), "intruder", "farm_a"), farmDomain.ErrFarmForbidden)
	assert.Equal(t, 1, repo.Len())

	require.NoError(t, svc.DeleteFarm(context.Background(), "owner-1", "farm_a"))
	assert.Zero(t, repo.Len())
	assert.Equal(t, []string{farmDomain.FarmDeleted}, repo.EventTypes())
}

func TestGetFarm_CacheAside(t *testing.T) {
	repo := mocks.NewInMemoryFarmRepo(farmAt("farm_a", 0))
	svc, cache, _ := newService(repo)
	ctx := context.Background()

	farm, err := svc.GetFarm(ctx, "farm_a")
	require.NoError(t, err)
	assert.Equal(t, "farm_a", farm.ID)
	assert.Equal(t, 1, repo.GetCalls)

	assert.Eventually(t, func() bool {
		var cached farmDomain.Farm
		hit, _ := cache.Get(ctx, farmDomain.FarmCacheKeyByID("farm_a"), &cached)
		return hit
	}, time.Second, 10*time.Millisecond)

	_, err = svc.GetFarm(ctx, "farm_a")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.GetCalls, "el segundo acceso debe salir de caché")
}

func TestGetFarm_NotFoundIsNotRetried(t *testing.T) {
	repo := mocks.NewInMemoryFarmRepo()
	svc, _, _ := newService(repo)

	_, err := svc.GetFarm(context.Background(), "farm_missing")
	assert.ErrorIs(t, err, farmDomain.ErrFarmNotFound)
	assert.Equal(t, 1, repo.GetCalls)
}

func TestGetFarm_RetriesStorageErrors(t *testing.T) {
	repo := mocks.NewInMemoryFarmRepo()
	repo.Err = errors.New("db down")
	svc, _, _ := newService(repo)

	_, err := svc.GetFarm(context.Background(), "farm_a")
	assert.Error(t, err)
	assert.Equal(t, retryAttempts, repo.GetCalls)
}

// ---------- Listado ----------

func seedFarms(n int) []*farmDomain.Farm {
	farms := make([]*farmDomain.Farm, 0, n)
	for i := 0; i < n; i++ {
		farms = append(farms, farmAt(fmt.Sprintf("farm_%02d", i), time.Duration(i)*time.Minute))
	}
	return farms
}

func TestListFarms_TwentyFiveFarmsTwoPages(t *testing.T) {
	repo := mocks.NewInMemoryFarmRepo(seedFarms(25)...)
	svc, _, rec := newService(repo)
	ctx := context.Background()

	first, err := svc.ListFarms(ctx, ListFarmsQuery{Limit: 20})
	require.NoError(t, err)
	require.Len(t, first.Items, 20)
	assert.True(t, first.Success)
	assert.True(t, first.HasMore)
	assert.Equal(t, "farm_24", first.Items[0].ID)
	assert.Equal(t, "farm_05", first.Items[19].ID)
	assert.Equal(t, sharedQuery.EncodeCursor(first.Items[19].CreatedAt, "farm_05"), first.NextCursor)

	second, err := svc.ListFarms(ctx, ListFarmsQuery{Limit: 20, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 5)
	assert.False(t, second.HasMore)
	assert.Empty(t, second.NextCursor)
	assert.Equal(t, "farm_04", second.Items[0].ID)
	assert.Equal(t, "farm_00", second.Items[4].ID)

	entry := rec.last()
	assert.True(t, entry.WithCursor)
	assert.Equal(t, 5, entry.ResultCount)
	assert.True(t, entry.Success)
}

func TestListFarms_DefaultLimit(t *testing.T) {
	repo := mocks.NewInMemoryFarmRepo(seedFarms(25)...)
	svc, _, _ := newService(repo)

	page, err := svc.ListFarms(context.Background(), ListFarmsQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Items, sharedQuery.DefaultLimit)
}

func TestListFarms_MalformedCursorStartsOver(t *testing.T) {
	repo := mocks.NewInMemoryFarmRepo(seedFarms(3)...)
	svc, _, rec := newService(repo)

	page, err := svc.ListFarms(context.Background(), ListFarmsQuery{Cursor: "%%%garbage"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, "farm_02", page.Items[0].ID)
	assert.False(t, rec.last().WithCursor)
}

func TestListFarms_CursorFromOtherSortStartsOver(t *testing.T) {
	repo := mocks.NewInMemoryFarmRepo(seedFarms(5)...)
	svc, _, _ := newService(repo)
	ctx := context.Background()

	byName, err := svc.ListFarms(ctx, ListFarmsQuery{Limit: 2, Params: farmDomain.ListingParams{Sort: "name"}})
	require.NoError(t, err)
	require.NotEmpty(t, byName.NextCursor)
	assert.Equal(t, "farm_00", byName.Items[0].ID)

	// Un cursor de "name" usado con el orden por defecto se ignora
	page, err := svc.ListFarms(ctx, ListFarmsQuery{Limit: 2, Cursor: byName.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, "farm_04", page.Items[0].ID)
}

func TestListFarms_InvalidParams(t *testing.T) {
	repo := mocks.NewInMemoryFarmRepo(seedFarms(2)...)
	svc, _, rec := newService(repo)

	page, err := svc.ListFarms(context.Background(), ListFarmsQuery{Params: farmDomain.ListingParams{Price: "cheap"}})
	assert.ErrorIs(t, err, farmDomain.ErrInvalidListingQuery)
	assert.False(t, page.Success)
	assert.Empty(t, page.Items)
	assert.Zero(t, repo.ListCalls)
	assert.Empty(t, rec.entries)
}

func TestListFarms_StorageFailure(t *testing.T) {
	repo := mocks.NewInMemoryFarmRepo(seedFarms(2)...)
	repo.Err = errors.New("db down")
	svc, _, rec := newService(repo)

	page, err := svc.ListFarms(context.Background(), ListFarmsQuery{})
	assert.Error(t, err)
	assert.False(t, page.Success)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
	assert.Equal(t, 1, repo.ListCalls, "un fallo de lectura no se reintenta")
	assert.False(t, rec.last().Success)
}

func TestListFarms_Filters(t *testing.T) {
	a := farmAt("farm_a", 0)
	a.State = "CA"
	a.PricePerWeek = fptr(30)
	a.Categories = []string{"Vegetables"}

	b := farmAt("farm_b", time.Minute)
	b.State = "OR"
	b.Description = "Organic produce from Oregon, near Cascadia"
	b.PricePerWeek = fptr(40)

	c := farmAt("farm_c", 2*time.Minute)
	c.State = "WA"
	c.PricePerWeek = fptr(29.99)
	c.Rating = fptr(3)

	d := farmAt("farm_d", 3*time.Minute)
	d.State = "NY"
	d.PricePerWeek = fptr(40.01)

	tests := []struct {
		name   string
		params farmDomain.ListingParams
		want   []string
	}{
		{"sin filtros", farmDomain.ListingParams{}, []string{"farm_d", "farm_c", "farm_b", "farm_a"}},
		{"estado o subcadena", farmDomain.ListingParams{Search: "CA"}, []string{"farm_b", "farm_a"}},
		{"tramo 30-40 inclusivo", farmDomain.ListingParams{Price: "30-40"}, []string{"farm_b", "farm_a"}},
		{"categoría sin mayúsculas", farmDomain.ListingParams{Category: "vegetables"}, []string{"farm_a"}},
		{"valoración mínima", farmDomain.ListingParams{Rating: "4"}, []string{"farm_d", "farm_b", "farm_a"}},
		{"sin coincidencias", farmDomain.ListingParams{Search: "zzz"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewInMemoryFarmRepo(a, b, c, d)
			svc, _, _ := newService(repo)

			page, err := svc.ListFarms(context.Background(), ListFarmsQuery{Params: tt.params})
			require.NoError(t, err)
			assert.True(t, page.Success)
			ids := make([]string, 0, len(page.Items))
			for _, f := range page.Items {
				ids = append(ids, f.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestListFarms_SortByPriceWalksAllPages(t *testing.T) {
	farms := seedFarms(7)
	prices := []*float64{fptr(30), nil, fptr(25), fptr(30), fptr(10), nil, fptr(25)}
	for i, f := range farms {
		f.PricePerWeek = prices[i]
	}
	repo := mocks.NewInMemoryFarmRepo(farms...)
	svc, _, _ := newService(repo)

	var ids []string
	cursor := ""
	for i := 0; i < 10; i++ {
		page, err := svc.ListFarms(context.Background(), ListFarmsQuery{
			Limit:  2,
			Cursor: cursor,
			Params: farmDomain.ListingParams{Sort: "price"},
		})
		require.NoError(t, err)
		for _, f := range page.Items {
			ids = append(ids, f.ID)
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	assert.Equal(t, []string{"farm_04", "farm_02", "farm_06", "farm_00", "farm_03", "farm_01", "farm_05"}, ids)
}

func TestListMyFarms(t *testing.T) {
	farms := seedFarms(60)
	for i, f := range farms {
		if i%2 == 1 {
			f.UserID = "owner-2"
		}
	}
	repo := mocks.NewInMemoryFarmRepo(farms...)
	svc, _, _ := newService(repo)

	mine, err := svc.ListMyFarms(context.Background(), "owner-2")
	require.NoError(t, err)
	require.Len(t, mine, 30)
	assert.Equal(t, "farm_59", mine[0].ID)
	assert.Equal(t, "farm_01", mine[29].ID)

	none, err := svc.ListMyFarms(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
