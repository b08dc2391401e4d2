package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/csamarket/internal/farm/application"
	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
	sharedUtils "github.com/davicafu/csamarket/internal/shared/infra/utils"
	"github.com/davicafu/csamarket/pkg/middleware"
	"github.com/davicafu/csamarket/pkg/utils"
)

const (
	defaultTopDays  = 7
	defaultTopLimit = 10
)

// FarmHandler encapsula los endpoints HTTP relacionados con Farm
type FarmHandler struct {
	service   *application.FarmService
	analytics farmDomain.ListingAnalyticsReader
}

// NewFarmHandler crea un FarmHandler. analytics puede ser nil.
func NewFarmHandler(service *application.FarmService, analytics farmDomain.ListingAnalyticsReader) *FarmHandler {
	return &FarmHandler{service: service, analytics: analytics}
}

// ---------------- Handlers ----------------

// ListFarms endpoint GET /api/farms
func (h *FarmHandler) ListFarms(c *gin.Context) {
	var req listFarmsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.SendPageError(c, http.StatusBadRequest, err.Error())
		return
	}

	q := application.ListFarmsQuery{
		Cursor: req.Cursor,
		Params: farmDomain.ListingParams{
			Search:   req.Search,
			Category: req.Category,
			Price:    req.Price,
			Delivery: req.Delivery,
			Rating:   req.Rating,
			Sort:     req.Sort,
			Near:     req.Near,
		},
	}
	if req.Limit != nil {
		q.Limit = *req.Limit
	}

	page, err := h.service.ListFarms(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, farmDomain.ErrInvalidListingQuery) {
			utils.SendPageError(c, http.StatusBadRequest, err.Error())
			return
		}
		utils.SendPageError(c, http.StatusInternalServerError, "Failed to fetch farms")
		return
	}

	utils.SendPage(c, page.Items, page.NextCursor, page.HasMore)
}

// GetFarm endpoint GET /api/farms/:id
func (h *FarmHandler) GetFarm(c *gin.Context) {
	farm, err := h.service.GetFarm(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendFarmError(c, err, "Failed to fetch farm")
		return
	}
	utils.SendSuccess(c, http.StatusOK, farm)
}

// ListMyFarms endpoint GET /api/farms/user/me
func (h *FarmHandler) ListMyFarms(c *gin.Context) {
	farms, err := h.service.ListMyFarms(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		utils.SendInternalServerError(c, "Failed to fetch farms")
		return
	}
	utils.SendList(c, farms)
}

// CreateFarm endpoint POST /api/farms
func (h *FarmHandler) CreateFarm(c *gin.Context) {
	var req farmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	farm, err := h.service.CreateFarm(c.Request.Context(), middleware.UserID(c), req.toInput())
	if err != nil {
		sendFarmError(c, err, "Failed to create farm")
		return
	}
	utils.SendSuccess(c, http.StatusCreated, farm)
}

// UpdateFarm endpoint PUT /api/farms/:id
func (h *FarmHandler) UpdateFarm(c *gin.Context) {
	var req farmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	farm, err := h.service.UpdateFarm(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.toInput())
	if err != nil {
		sendFarmError(c, err, "Failed to update farm")
		return
	}
	utils.SendSuccess(c, http.StatusOK, farm)
}

// DeleteFarm endpoint DELETE /api/farms/:id
func (h *FarmHandler) DeleteFarm(c *gin.Context) {
	if err := h.service.DeleteFarm(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		sendFarmError(c, err, "Failed to delete farm")
		return
	}
	utils.SendOK(c)
}

// TopSearches endpoint GET /api/farms/analytics/top-searches
func (h *FarmHandler) TopSearches(c *gin.Context) {
	var req topSearchesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	req.Days = sharedUtils.Ternary(req.Days == 0, defaultTopDays, req.Days)
	req.Limit = sharedUtils.Ternary(req.Limit == 0, defaultTopLimit, req.Limit)

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -req.Days)
	terms, err := h.analytics.TopSearches(c.Request.Context(), start, end, req.Limit)
	if err != nil {
		utils.SendInternalServerError(c, "Failed to fetch search analytics")
		return
	}
	if terms == nil {
		terms = []farmDomain.SearchTermCount{}
	}
	utils.SendList(c, terms)
}

func sendFarmError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, farmDomain.ErrFarmNotFound):
		utils.SendNotFound(c, "Farm not found")
	case errors.Is(err, farmDomain.ErrFarmForbidden):
		utils.SendForbidden(c, "Unauthorized")
	case errors.Is(err, farmDomain.ErrInvalidFarm):
		utils.SendBadRequest(c, err.Error())
	default:
		utils.SendInternalServerError(c, fallback)
	}
}
