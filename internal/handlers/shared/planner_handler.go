package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"routeplanner/internal/models"
	"routeplanner/internal/services"
	"routeplanner/internal/utils"
	"routeplanner/pkg/logger"

	"github.com/gin-gonic/gin"
)

type PlannerHandler struct {
	sessions services.SessionManager
	logger   *logger.Logger
}

func NewPlannerHandler(sessions services.SessionManager, log *logger.Logger) *PlannerHandler {
	return &PlannerHandler{
		sessions: sessions,
		logger:   log.WithField("component", "planner_handler"),
	}
}

type EditTextRequest struct {
	Text string `json:"text" validate:"max=256"`
}

type MapClickRequest struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lon *float64 `json:"lon" validate:"required,longitude"`
}

type CurrentLocationRequest struct {
	Lat          *float64 `json:"lat" validate:"omitempty,latitude"`
	Lon          *float64 `json:"lon" validate:"omitempty,longitude"`
	ErrorCode    int      `json:"error_code" validate:"geolocation_code"`
	ErrorMessage string   `json:"error_message" validate:"max=512"`
}

// session opens the caller's planning session, writing the error response
// itself when that fails.
func (h *PlannerHandler) session(c *gin.Context) (*services.PlanningSession, bool) {
	userID := c.GetString(utils.ContextUserID)
	if userID == "" {
		utils.UnauthorizedResponse(c)
		return nil, false
	}

	session, err := h.sessions.Open(c.Request.Context(), userID)
	if err != nil {
		h.logger.WithError(err).WithUserID(userID).Error("Failed to open planning session")
		utils.InternalServerErrorResponse(c)
		return nil, false
	}
	return session, true
}

func roleParam(c *gin.Context) (models.Role, bool) {
	role, err := models.ParseRole(c.Param("role"))
	if err != nil {
		utils.BadRequestResponse(c, "Endpoint role must be start or end")
		return "", false
	}
	return role, true
}

// GetSession returns the current snapshot.
func (h *PlannerHandler) GetSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	utils.SuccessResponse(c, "Session retrieved successfully", session.Snapshot())
}

// EditText records typed text for an endpoint and refreshes its suggestions.
func (h *PlannerHandler) EditText(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}

	var request EditTextRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(&request); err != nil {
		utils.ValidationErrorResponse(c, utils.ValidationDetails(err))
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	snap, err := session.EditText(c.Request.Context(), role, request.Text)
	h.respond(c, "Text updated", snap, err)
}

// SelectSuggestion resolves an endpoint to one of its suggestions.
func (h *PlannerHandler) SelectSuggestion(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		utils.BadRequestResponse(c, "Suggestion index must be a number")
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	snap, err := session.SelectSuggestion(role, index)
	h.respond(c, "Suggestion selected", snap, err)
}

// UseCurrentLocation fills an endpoint from the position the browser reported.
func (h *PlannerHandler) UseCurrentLocation(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}

	var request CurrentLocationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(&request); err != nil {
		utils.ValidationErrorResponse(c, utils.ValidationDetails(err))
		return
	}

	position := services.ReportedPosition{
		ErrorCode:    request.ErrorCode,
		ErrorMessage: request.ErrorMessage,
	}
	if request.ErrorCode == 0 && request.Lat != nil && request.Lon != nil {
		position.Coordinates = &models.Coordinates{Lat: *request.Lat, Lon: *request.Lon}
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	snap, err := session.UseCurrentLocation(c.Request.Context(), role, position)
	h.respond(c, "Current location applied", snap, err)
}

// SelectFromMap makes an endpoint the target of map clicks.
func (h *PlannerHandler) SelectFromMap(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	utils.SuccessResponse(c, "Click on the map to choose the location", session.SelectFromMap(role))
}

// ClearEndpoint empties one endpoint.
func (h *PlannerHandler) ClearEndpoint(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	utils.SuccessResponse(c, "Endpoint cleared", session.ClearEndpoint(role))
}

// ClickMap resolves a clicked point into the active endpoint.
func (h *PlannerHandler) ClickMap(c *gin.Context) {
	var request MapClickRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(&request); err != nil {
		utils.ValidationErrorResponse(c, utils.ValidationDetails(err))
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	snap, err := session.ClickMap(c.Request.Context(), models.Coordinates{Lat: *request.Lat, Lon: *request.Lon})
	h.respond(c, "Location set from map", snap, err)
}

// FindRoute draws the driving route between the two endpoints.
func (h *PlannerHandler) FindRoute(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	snap, err := session.FindRoute(c.Request.Context())
	h.respond(c, "Route found", snap, err)
}

// ClearSession resets endpoints, route and markers.
func (h *PlannerHandler) ClearSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	utils.SuccessResponse(c, "Session cleared", session.Clear())
}

// GetMapConfig returns the initial map view and tile source.
func (h *PlannerHandler) GetMapConfig(c *gin.Context) {
	utils.SuccessResponse(c, "Map configuration retrieved successfully", h.sessions.MapConfig())
}

// OnLiveConnect runs when a live connection of userID is ready.
func (h *PlannerHandler) OnLiveConnect(userID string) {
	session, err := h.sessions.Open(context.Background(), userID)
	if err != nil {
		h.logger.WithError(err).WithUserID(userID).Warn("Live connection without a session")
		return
	}
	session.Publish()
	session.InvalidateSize()
}

// OnLiveMessage handles messages sent by the map widget over the live connection.
func (h *PlannerHandler) OnLiveMessage(userID, messageType string, _ json.RawMessage) {
	switch messageType {
	case "map_resized", "map_ready":
		session, err := h.sessions.Get(userID)
		if err != nil {
			return
		}
		session.InvalidateSize()
	default:
		h.logger.WithUserID(userID).WithField("type", messageType).Debug("Ignoring live message")
	}
}

func (h *PlannerHandler) respond(c *gin.Context, message string, snap models.Snapshot, err error) {
	if err == nil {
		utils.SuccessResponse(c, message, snap)
		return
	}

	if pe, ok := services.AsPrompt(err); ok {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, services.ErrRouteNotFound) {
			status = http.StatusNotFound
		}
		utils.ErrorResponseWithData(c, status, pe.Code, pe.Message, snap)
		return
	}

	switch {
	case errors.Is(err, services.ErrUnknownSuggestion):
		utils.ErrorResponseWithData(c, http.StatusBadRequest, "UNKNOWN_SUGGESTION", "Suggestion does not exist", snap)
	case errors.Is(err, services.ErrInvalidCoordinates):
		utils.ErrorResponseWithData(c, http.StatusBadRequest, "INVALID_COORDINATES", err.Error(), snap)
	default:
		h.logger.WithContext(c).WithError(err).Error("Planner operation failed")
		utils.InternalServerErrorResponse(c)
	}
}
