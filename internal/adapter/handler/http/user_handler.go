package http

import (
	"net/http"
	"time"

	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"
	"github.com/sm8ta/webike_rental_microservice/internal/core/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *services.UserService
	logger      ports.LoggerPort
	metrics     ports.MetricsPort
	publicURL   string
}

func NewUserHandler(
	userService *services.UserService,
	logger ports.LoggerPort,
	metrics ports.MetricsPort,
	publicURL string,
) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
		metrics:     metrics,
		publicURL:   publicURL,
	}
}

// @Summary List users
// @Tags users
// @Produce json
// @Param limit query int false "Page size" default(5)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} usersResponse "Users"
// @Router /users [get]
func (h *UserHandler) GetUsers(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	limit, offset, ok := parsePagination(c)
	if !ok {
		return
	}

	page, err := h.userService.GetUsers(c.Request.Context(), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}

	newSuccessResponse(c, http.StatusOK, newLinks(c, h.publicURL).users(c.Request.URL.Path, page))
}

// @Summary Get user
// @Tags users
// @Produce json
// @Param id path int true "User id"
// @Success 200 {object} userResponse "User"
// @Failure 404 {object} errorResponse "User not found"
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	userID, ok := parseID(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	newSuccessResponse(c, http.StatusOK, newLinks(c, h.publicURL).user(user))
}

// @Summary Rent bike
// @Description Rents a bike to the calling user
// @Tags users
// @Security BearerAuth
// @Param id path int true "User id"
// @Param bid path int true "Bike id"
// @Success 204 "Bike rented"
// @Failure 403 {object} errorResponse "Bike already rented or user is not the caller"
// @Failure 404 {object} errorResponse "Bike or user not found"
// @Router /users/{id}/bikes/{bid} [put]
func (h *UserHandler) RentBike(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, http.StatusUnauthorized, "Unauthorized", "Authorization header is missing")
		return
	}
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	bikeID, ok := parseID(c, "bid")
	if !ok {
		return
	}

	if err := h.userService.RentBike(c.Request.Context(), payload.Subject, userID, bikeID); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Return bike
// @Description Ends the calling user's rental of a bike
// @Tags users
// @Security BearerAuth
// @Param id path int true "User id"
// @Param bid path int true "Bike id"
// @Success 204 "Bike returned"
// @Failure 403 {object} errorResponse "User is not the caller"
// @Failure 404 {object} errorResponse "Bike not rented to this user"
// @Router /users/{id}/bikes/{bid} [delete]
func (h *UserHandler) ReturnBike(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, http.StatusUnauthorized, "Unauthorized", "Authorization header is missing")
		return
	}
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	bikeID, ok := parseID(c, "bid")
	if !ok {
		return
	}

	if err := h.userService.ReturnBike(c.Request.Context(), payload.Subject, userID, bikeID); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Decode token
// @Description Returns the verified claims of the bearer token
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} claimsResponse "Claims"
// @Failure 401 {object} errorResponse "Unauthorized"
// @Router /decode [get]
func (h *UserHandler) Decode(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, http.StatusUnauthorized, "Unauthorized", "Authorization header is missing")
		return
	}

	claims := payload.Raw
	if claims == nil {
		claims = map[string]interface{}{"sub": payload.Subject}
	}
	newSuccessResponse(c, http.StatusOK, claimsResponse{Claims: claims})
}

// @Summary Purge
// @Description Deletes every bike, component and user. Not available in production
// @Tags maintenance
// @Produce json
// @Success 200 {object} purgeResponse "Deleted entity count"
// @Router /delete [delete]
func (h *UserHandler) Purge(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	deleted, err := h.userService.PurgeAll(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	h.logger.Warn("Store purged", map[string]interface{}{
		"deleted": deleted,
		"ip":      c.ClientIP(),
	})
	newSuccessResponse(c, http.StatusOK, purgeResponse{Deleted: deleted})
}
