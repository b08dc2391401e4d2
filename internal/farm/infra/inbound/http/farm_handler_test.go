package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/csamarket/internal/farm/application"
	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
	"github.com/davicafu/csamarket/pkg/middleware"
	"github.com/davicafu/csamarket/tests/mocks"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type pageBody struct {
	Success    bool              `json:"success"`
	Data       []farmDomain.Farm `json:"data"`
	NextCursor *string           `json:"nextCursor"`
	HasMore    bool              `json:"hasMore"`
	Error      string            `json:"error"`
}

type stubAnalytics struct {
	terms []farmDomain.SearchTermCount
	err   error
}

func (s stubAnalytics) TopSearches(ctx context.Context, start, end time.Time, limit int) ([]farmDomain.SearchTermCount, error) {
	return s.terms, s.err
}

func seed(n int) []*farmDomain.Farm {
	farms := make([]*farmDomain.Farm, 0, n)
	for i := 0; i < n; i++ {
		farms = append(farms, &farmDomain.Farm{
			ID:              fmt.Sprintf("farm_%02d", i),
			UserID:          "owner-1",
			Name:            fmt.Sprintf("Farm %02d", i),
			ImageURLs:       []string{},
			Categories:      []string{},
			DeliveryOptions: []string{},
			CreatedAt:       baseTime.Add(time.Duration(i) * time.Minute),
			UpdatedAt:       baseTime.Add(time.Duration(i) * time.Minute),
		})
	}
	return farms
}

func setupRouter(repo *mocks.InMemoryFarmRepo, analytics farmDomain.ListingAnalyticsReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := application.NewFarmService(repo, mocks.NewDummyCache(), nil, zap.NewNop())
	r := gin.New()
	RegisterFarmRoutes(r.Group("/api"), NewFarmHandler(svc, analytics))
	return r
}

func do(r *gin.Engine, method, path, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodePage(t *testing.T, w *httptest.ResponseRecorder) pageBody {
	t.Helper()
	var body pageBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// ---------- Listado ----------

func TestListFarms_Envelope(t *testing.T) {
	r := setupRouter(mocks.NewInMemoryFarmRepo(seed(25)...), nil)

	w := do(r, http.MethodGet, "/api/farms?limit=20", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	first := decodePage(t, w)
	assert.True(t, first.Success)
	assert.True(t, first.HasMore)
	assert.Len(t, first.Data, 20)
	require.NotNil(t, first.NextCursor)

	w = do(r, http.MethodGet, "/api/farms?limit=20&cursor="+*first.NextCursor, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"nextCursor":null`)
	second := decodePage(t, w)
	assert.False(t, second.HasMore)
	assert.Len(t, second.Data, 5)
	assert.Equal(t, "farm_00", second.Data[4].ID)
}

func TestListFarms_EmptyIsSuccess(t *testing.T) {
	r := setupRouter(mocks.NewInMemoryFarmRepo(), nil)

	w := do(r, http.MethodGet, "/api/farms?search=nothing", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[],"nextCursor":null,"hasMore":false}`, w.Body.String())
}

func TestListFarms_BadRequest(t *testing.T) {
	r := setupRouter(mocks.NewInMemoryFarmRepo(seed(3)...), nil)

	paths := []string{
		"/api/farms?limit=0",
		"/api/farms?limit=51",
		"/api/farms?limit=abc",
		"/api/farms?search=" + strings.Repeat("a", 101),
		"/api/farms?price=cheap",
		"/api/farms?rating=high",
		"/api/farms?sort=random",
		"/api/farms?near=INVALID!",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			w := do(r, http.MethodGet, path, "", "")
			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decodePage(t, w)
			assert.False(t, body.Success)
			assert.Empty(t, body.Data)
			assert.Nil(t, body.NextCursor)
			assert.False(t, body.HasMore)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestListFarms_SearchLengthAfterTrim(t *testing.T) {
	r := setupRouter(mocks.NewInMemoryFarmRepo(seed(3)...), nil)

	// 60 espacios a cada lado: más de 100 caracteres sin recortar, 4 recortado
	padded := strings.Repeat("%20", 60) + "farm" + strings.Repeat("%20", 60)
	w := do(r, http.MethodGet, "/api/farms?search="+padded, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodePage(t, w).Data, 3)

	w = do(r, http.MethodGet, "/api/farms?search="+strings.Repeat("%20", 5)+strings.Repeat("a", 101), "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListFarms_StorageFailure(t *testing.T) {
	repo := mocks.NewInMemoryFarmRepo(seed(3)...)
	repo.Err = errors.New("db down")
	r := setupRouter(repo, nil)

	w := do(r, http.MethodGet, "/api/farms", "", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t,
		`{"success":false,"data":[],"nextCursor":null,"hasMore":false,"error":"Failed to fetch farms"}`,
		w.Body.String())
}

func TestListFarms_GarbageCursorStartsOver(t *testing.T) {
	r := setupRouter(mocks.NewInMemoryFarmRepo(seed(3)...), nil)

	w := do(r, http.MethodGet, "/api/farms?cursor=not-a-cursor", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodePage(t, w)
	require.Len(t, body.Data, 3)
	assert.Equal(t, "farm_02", body.Data[0].ID)
}

// ---------- CRUD ----------

func TestGetFarm(t *testing.T) {
	r := setupRouter(mocks.NewInMemoryFarmRepo(seed(1)...), nil)

	w := do(r, http.MethodGet, "/api/farms/farm_00", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"farm_00"`)

	w = do(r, http.MethodGet, "/api/farms/farm_missing", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Farm not found"}`, w.Body.String())
}

func TestCreateFarm(t *testing.T) {
	repo := mocks.NewInMemoryFarmRepo()
	r := setupRouter(repo, nil)

	w := do(r, http.MethodPost, "/api/farms", "", `{"name":"Green Acres"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/farms", "owner-1", `{"city":"Fresno"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/farms", "owner-1",
		`{"name":"Green Acres","state":"CA","imageUrls":"https://img/1.png","pricePerWeek":32.5}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var farm farmDomain.Farm
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &farm))
	assert.True(t, strings.HasPrefix(farm.ID, "farm_"))
	assert.Equal(t, "owner-1", farm.UserID)
	assert.Equal(t, []string{"https://img/1.png"}, farm.ImageURLs)
	assert.Equal(t, 32.5, *farm.PricePerWeek)
	assert.Equal(t, 1, repo.Len())
}

func TestUpdateAndDeleteFarm_Ownership(t *testing.T) {
	repo := mocks.NewInMemoryFarmRepo(seed(1)...)
	r := setupRouter(repo, nil)

	w := do(r, http.MethodPut, "/api/farms/farm_00", "intruder", `{"name":"Mine now"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())

	w = do(r, http.MethodPut, "/api/farms/farm_00", "owner-1", `{"name":"Renamed","categories":["fruit"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Renamed"`)
	assert.Contains(t, w.Body.String(), `"categories":["fruit"]`)

	w = do(r, http.MethodDelete, "/api/farms/farm_00", "intruder", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodDelete, "/api/farms/farm_00", "owner-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = do(r, http.MethodDelete, "/api/farms/farm_00", "owner-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListMyFarms(t *testing.T) {
	farms := seed(4)
	farms[1].UserID = "owner-2"
	r := setupRouter(mocks.NewInMemoryFarmRepo(farms...), nil)

	w := do(r, http.MethodGet, "/api/farms/user/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/farms/user/me", "owner-2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Success bool              `json:"success"`
		Data    []farmDomain.Farm `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "farm_01", body.Data[0].ID)
}

// ---------- Analítica ----------

func TestTopSearches(t *testing.T) {
	r := setupRouter(mocks.NewInMemoryFarmRepo(), nil)
	w := do(r, http.MethodGet, "/api/farms/analytics/top-searches", "", "")
	// sin lector configurado la ruta no se registra
	assert.Equal(t, http.StatusNotFound, w.Code)

	r = setupRouter(mocks.NewInMemoryFarmRepo(), stubAnalytics{
		terms: []farmDomain.SearchTermCount{{Term: "berries", Hits: 4, AvgResults: 2.5}},
	})
	w = do(r, http.MethodGet, "/api/farms/analytics/top-searches?days=3", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[{"term":"berries","hits":4,"avgResults":2.5}]}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/farms/analytics/top-searches?days=0", "", "")
	// days=0 se trata como ausente
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/farms/analytics/top-searches?days=500", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStringList_Unmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want StringList
	}{
		{`"a.png"`, StringList{"a.png"}},
		{`["a.png","b.png"]`, StringList{"a.png", "b.png"}},
		{`""`, StringList{}},
		{`[]`, StringList{}},
		{`null`, nil},
	}
	for _, tt := range tests {
		var req struct {
			L StringList `json:"l"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"l":`+tt.in+`}`), &req), tt.in)
		assert.Equal(t, tt.want, req.L, tt.in)
	}

	var req struct {
		L StringList `json:"l"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"l":5}`), &req))
}
