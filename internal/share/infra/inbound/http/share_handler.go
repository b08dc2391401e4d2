package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/csamarket/internal/share/application"
	shareDomain "github.com/davicafu/csamarket/internal/share/domain"
	"github.com/davicafu/csamarket/pkg/middleware"
	"github.com/davicafu/csamarket/pkg/utils"
)

const (
	msgShareNotFound = "Share not found"
	msgNotAuthorized = "Share not found or you are not authorized to modify it"
	msgFarmNotOwned  = "Unauthorized to create shares for this farm"
	msgFarmNotFound  = "Farm not found"
)

// ShareHandler encapsula los endpoints HTTP de las cuotas CSA
type ShareHandler struct {
	service *application.ShareService
}

func NewShareHandler(service *application.ShareService) *ShareHandler {
	return &ShareHandler{service: service}
}

type shareRequest struct {
	Name           *string                `json:"name"`
	Description    *string                `json:"description"`
	Price          *int64                 `json:"price" binding:"omitempty,gte=0"`
	Frequency      *shareDomain.Frequency `json:"frequency"`
	Available      *bool                  `json:"available"`
	StartDate      *time.Time             `json:"startDate"`
	EndDate        *time.Time             `json:"endDate"`
	MaxSubscribers *int                   `json:"maxSubscribers" binding:"omitempty,gte=0"`
}

func (r shareRequest) toInput() shareDomain.ShareInput {
	return shareDomain.ShareInput{
		Name:           r.Name,
		Description:    r.Description,
		Price:          r.Price,
		Frequency:      r.Frequency,
		Available:      r.Available,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		MaxSubscribers: r.MaxSubscribers,
	}
}

type availabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

// ---------------- Handlers ----------------

// ListShares endpoint GET /api/shares?available=true|false
func (h *ShareHandler) ListShares(c *gin.Context) {
	var available *bool
	if raw := c.Query("available"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			utils.SendBadRequest(c, "available must be true or false")
			return
		}
		available = &v
	}

	shares, err := h.service.ListShares(c.Request.Context(), available)
	if err != nil {
		utils.SendInternalServerError(c, "Failed to fetch shares")
		return
	}
	utils.SendList(c, shares)
}

// ListByFarm endpoint GET /api/shares/farm/:farmId
func (h *ShareHandler) ListByFarm(c *gin.Context) {
	shares, err := h.service.ListByFarm(c.Request.Context(), c.Param("farmId"))
	if err != nil {
		utils.SendInternalServerError(c, "Failed to fetch shares")
		return
	}
	utils.SendList(c, shares)
}

// ListMyShares endpoint GET /api/shares/user/me
func (h *ShareHandler) ListMyShares(c *gin.Context) {
	shares, err := h.service.ListByOwner(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		utils.SendInternalServerError(c, "Failed to fetch shares")
		return
	}
	utils.SendList(c, shares)
}

// GetShare endpoint GET /api/shares/:id
func (h *ShareHandler) GetShare(c *gin.Context) {
	share, err := h.service.GetShare(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, shareDomain.ErrShareNotFound) {
			utils.SendNotFound(c, msgShareNotFound)
			return
		}
		utils.SendInternalServerError(c, "Failed to fetch share")
		return
	}
	utils.SendSuccess(c, http.StatusOK, share)
}

// CreateShare endpoint POST /api/shares/farm/:farmId
func (h *ShareHandler) CreateShare(c *gin.Context) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	share, err := h.service.CreateShare(c.Request.Context(), middleware.UserID(c), c.Param("farmId"), req.toInput())
	if err != nil {
		sendShareError(c, err, "Failed to create share")
		return
	}
	utils.SendSuccess(c, http.StatusCreated, share)
}

// UpdateShare endpoint PUT /api/shares/:id
func (h *ShareHandler) UpdateShare(c *gin.Context) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	share, err := h.service.UpdateShare(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.toInput())
	if err != nil {
		sendShareError(c, err, "Failed to update share")
		return
	}
	utils.SendSuccess(c, http.StatusOK, share)
}

// SetAvailability endpoint PUT /api/shares/:id/availability
func (h *ShareHandler) SetAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	share, err := h.service.SetAvailability(c.Request.Context(), middleware.UserID(c), c.Param("id"), *req.Available)
	if err != nil {
		sendShareError(c, err, "Failed to update share availability")
		return
	}
	utils.SendSuccess(c, http.StatusOK, share)
}

// DeleteShare endpoint DELETE /api/shares/:id
func (h *ShareHandler) DeleteShare(c *gin.Context) {
	if err := h.service.DeleteShare(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		sendShareError(c, err, "Failed to delete share")
		return
	}
	utils.SendOK(c)
}

func sendShareError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, shareDomain.ErrShareNotFound):
		utils.SendNotFound(c, msgNotAuthorized)
	case errors.Is(err, shareDomain.ErrFarmNotFound):
		utils.SendNotFound(c, msgFarmNotFound)
	case errors.Is(err, shareDomain.ErrFarmNotOwned):
		utils.SendForbidden(c, msgFarmNotOwned)
	case errors.Is(err, shareDomain.ErrInvalidShare):
		utils.SendBadRequest(c, err.Error())
	default:
		utils.SendInternalServerError(c, fallback)
	}
}
