package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nikhathmuzawar/pickplace-app/internal/command"
	"github.com/nikhathmuzawar/pickplace-app/internal/model"
)

// Readings exposes the latest values received on the ingestion socket.
type Readings interface {
	StatusString() (string, bool)
	CoordinatesString() string
}

// CommandHandler handles HTTP requests that drive the device.
type CommandHandler struct {
	gateway  *command.Gateway
	readings Readings
	video    http.Handler
}

// NewCommandHandler creates a new CommandHandler. video serves the MJPEG feed.
func NewCommandHandler(gateway *command.Gateway, readings Readings, video http.Handler) *CommandHandler {
	return &CommandHandler{
		gateway:  gateway,
		readings: readings,
		video:    video,
	}
}

// ConfirmPointsRequest is the request body for POST /api/confirm-points.
type ConfirmPointsRequest struct {
	Points []model.Point `json:"points" binding:"required"`
}

// ModeRequest is the request body for POST /api/mode.
type ModeRequest struct {
	Mode model.Mode `json:"mode" binding:"required"`
}

// StatusRequest is the request body for POST /api/status.
type StatusRequest struct {
	Status model.Status `json:"status" binding:"required"`
}

// StateResponse reports the last accepted mode and status.
type StateResponse struct {
	Mode   model.Mode   `json:"mode"`
	Status model.Status `json:"status"`
}

// ImageDataResponse is the cached image update.
type ImageDataResponse struct {
	Image  string        `json:"image"`
	Points []model.Point `json:"points"`
}

// ConfirmPoints handles POST /api/confirm-points.
func (h *CommandHandler) ConfirmPoints(c *gin.Context) {
	var req ConfirmPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	if err := h.gateway.ConfirmPoints(c.Request.Context(), req.Points); err != nil {
		sendCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Points sent to device successfully"})
}

// ChangeMode handles POST /api/mode.
func (h *CommandHandler) ChangeMode(c *gin.Context) {
	var req ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	if err := h.gateway.ChangeMode(c.Request.Context(), req.Mode); err != nil {
		sendCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Mode changed to " + string(req.Mode)})
}

// GetState handles GET /api/mode.
func (h *CommandHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, StateResponse{
		Mode:   h.gateway.Mode(),
		Status: h.gateway.Status(),
	})
}

// ChangeStatus handles POST /api/status.
func (h *CommandHandler) ChangeStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	if err := h.gateway.ChangeStatus(c.Request.Context(), req.Status); err != nil {
		sendCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Status changed to " + string(req.Status)})
}

// ImageData handles GET /api/image-data.
func (h *CommandHandler) ImageData(c *gin.Context) {
	update, err := h.gateway.CachedImage()
	if err != nil {
		if errors.Is(err, model.ErrNoImage) {
			sendError(c, http.StatusNotFound, "IMAGE_NOT_FOUND", "No image available")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	points := update.Points
	if points == nil {
		points = []model.Point{}
	}
	c.JSON(http.StatusOK, ImageDataResponse{Image: update.Image, Points: points})
}

// VideoFeed handles GET /api/video_feed.
func (h *CommandHandler) VideoFeed(c *gin.Context) {
	h.video.ServeHTTP(c.Writer, c.Request)
}

// LatestString handles GET /api/get-latest-string. The value is null until
// the ingestion socket has delivered one.
func (h *CommandHandler) LatestString(c *gin.Context) {
	var latest *string
	if s, ok := h.readings.StatusString(); ok {
		latest = &s
	}
	c.JSON(http.StatusOK, gin.H{"latest_string": latest})
}

// CoordinatesString handles GET /api/get-coordinates-string.
func (h *CommandHandler) CoordinatesString(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"coordinates_string": h.readings.CoordinatesString()})
}

// RegisterRoutes registers the command routes on a Gin router group.
func (h *CommandHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/confirm-points", h.ConfirmPoints)
	rg.POST("/mode", h.ChangeMode)
	rg.GET("/mode", h.GetState)
	rg.POST("/status", h.ChangeStatus)
	rg.GET("/image-data", h.ImageData)
	rg.GET("/video_feed", h.VideoFeed)
	rg.GET("/get-latest-string", h.LatestString)
	rg.GET("/get-coordinates-string", h.CoordinatesString)
}
