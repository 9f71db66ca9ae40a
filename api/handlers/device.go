package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nikhathmuzawar/pickplace-app/internal/inventory"
	"github.com/nikhathmuzawar/pickplace-app/internal/model"
)

// DeviceHandler handles HTTP requests for the device inventory.
type DeviceHandler struct {
	manager *inventory.Manager
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(manager *inventory.Manager) *DeviceHandler {
	return &DeviceHandler{
		manager: manager,
	}
}

// sendDeviceError maps inventory errors onto HTTP responses.
func sendDeviceError(c *gin.Context, id string, err error) {
	switch {
	case errors.Is(err, model.ErrDeviceNotFound):
		sendError(c, http.StatusNotFound, "DEVICE_NOT_FOUND", "Device "+id+" not found")
	case errors.Is(err, model.ErrNameRequired):
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, model.ErrDeviceLimit):
		sendError(c, http.StatusTooManyRequests, "LIMIT_EXCEEDED", err.Error())
	default:
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// Create handles POST /api/devices.
func (h *DeviceHandler) Create(c *gin.Context) {
	var req model.DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	device, err := h.manager.Create(c.Request.Context(), &req)
	if err != nil {
		sendDeviceError(c, "", err)
		return
	}

	c.JSON(http.StatusCreated, device)
}

// List handles GET /api/devices.
func (h *DeviceHandler) List(c *gin.Context) {
	devices, err := h.manager.List(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list devices: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, devices)
}

// Get handles GET /api/devices/:id.
func (h *DeviceHandler) Get(c *gin.Context) {
	id := c.Param("id")
	device, err := h.manager.Get(c.Request.Context(), id)
	if err != nil {
		sendDeviceError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, device)
}

// Update handles PUT /api/devices/:id.
func (h *DeviceHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req model.DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	device, err := h.manager.Update(c.Request.Context(), id, &req)
	if err != nil {
		sendDeviceError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, device)
}

// Delete handles DELETE /api/devices/:id.
func (h *DeviceHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.manager.Delete(c.Request.Context(), id); err != nil {
		sendDeviceError(c, id, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the device routes on a Gin router group.
func (h *DeviceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	devices := rg.Group("/devices")
	{
		devices.POST("", h.Create)
		devices.GET("", h.List)
		devices.GET("/:id", h.Get)
		devices.PUT("/:id", h.Update)
		devices.DELETE("/:id", h.Delete)
	}
}
