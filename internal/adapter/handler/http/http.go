package http

import (
	"net/http"
	"time"

	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"
	"github.com/sm8ta/webike_rental_microservice/internal/core/services"

	"github.com/gin-gonic/gin"
)

type BikeHandler struct {
	bikeService *services.BikeService
	logger      ports.LoggerPort
	metrics     ports.MetricsPort
	publicURL   string
}

type BikeRequest struct {
	Manufacturer string `json:"manufacturer" example:"Trek"`
	Type         string `json:"type" example:"mountain"`
	ModelYear    int    `json:"model_year" example:"2021"`
	BikeSize     string `json:"bike_size" example:"L"`
}

type UpdateBike struct {
	Manufacturer *string `json:"manufacturer,omitempty" example:"Specialized"`
	Type         *string `json:"type,omitempty" example:"gravel"`
	ModelYear    *int    `json:"model_year,omitempty" example:"2022"`
	BikeSize     *string `json:"bike_size,omitempty" example:"M"`
}

func NewBikeHandler(
	bikeService *services.BikeService,
	logger ports.LoggerPort,
	metrics ports.MetricsPort,
	publicURL string,
) *BikeHandler {
	return &BikeHandler{
		bikeService: bikeService,
		logger:      logger,
		metrics:     metrics,
		publicURL:   publicURL,
	}
}

// @Summary Create bike
// @Description Creates a bike with empty specs and no rentee
// @Tags bikes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body BikeRequest true "Bike attributes"
// @Success 201 {object} bikeResponse "Bike created"
// @Failure 400 {object} errorResponse "Bad request"
// @Failure 401 {object} errorResponse "Unauthorized"
// @Failure 415 {object} errorResponse "Unsupported media type"
// @Router /bikes [post]
func (h *BikeHandler) CreateBike(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	var req BikeRequest
	body, err := readBody(c, &req)
	if err == nil {
		err = domain.RequireFields(body, domain.BikeFields)
	}
	if err != nil {
		h.logger.Warn("Rejected create bike body", map[string]interface{}{
			"error": err.Error(),
			"ip":    c.ClientIP(),
		})
		handleError(c, err)
		return
	}

	bike, err := h.bikeService.CreateBike(c.Request.Context(), &domain.Bike{
		Manufacturer: req.Manufacturer,
		Type:         req.Type,
		ModelYear:    req.ModelYear,
		BikeSize:     req.BikeSize,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	newSuccessResponse(c, http.StatusCreated, newLinks(c, h.publicURL).bike(bike))
}

// @Summary List rented bikes
// @Description Lists the bikes rented by the caller
// @Tags bikes
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Page size" default(5)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} bikesResponse "Bikes"
// @Failure 401 {object} errorResponse "Unauthorized"
// @Router /bikes [get]
func (h *BikeHandler) GetMyBikes(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	user, exists := getAuthUser(c)
	if !exists {
		h.logger.Warn("Unauthorized access attempt to GetMyBikes", map[string]interface{}{
			"ip": c.ClientIP(),
		})
		newErrorResponse(c, http.StatusUnauthorized, "Unauthorized", "Authorization header is missing")
		return
	}

	limit, offset, ok := parsePagination(c)
	if !ok {
		return
	}

	page, err := h.bikeService.GetBikesByRentee(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}

	newSuccessResponse(c, http.StatusOK, newLinks(c, h.publicURL).bikes(c.Request.URL.Path, page))
}

// @Summary Get bike
// @Description Returns a bike rented by the caller
// @Tags bikes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Bike id"
// @Success 200 {object} bikeResponse "Bike"
// @Failure 401 {object} errorResponse "Bike not rented"
// @Failure 403 {object} errorResponse "Rented by another user"
// @Failure 404 {object} errorResponse "Bike not found"
// @Router /bikes/{id} [get]
func (h *BikeHandler) GetBike(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, http.StatusUnauthorized, "Unauthorized", "Authorization header is missing")
		return
	}
	bikeID, ok := parseID(c, "id")
	if !ok {
		return
	}

	bike, err := h.bikeService.GetRentedBike(c.Request.Context(), payload.Subject, bikeID)
	if err != nil {
		handleError(c, err)
		return
	}

	newSuccessResponse(c, http.StatusOK, newLinks(c, h.publicURL).bike(bike))
}

// @Summary Replace bike
// @Description Overwrites every attribute of a bike rented by the caller
// @Tags bikes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Bike id"
// @Param request body BikeRequest true "Bike attributes"
// @Success 204 "Bike replaced"
// @Failure 400 {object} errorResponse "Bad request"
// @Failure 401 {object} errorResponse "Bike not rented"
// @Failure 403 {object} errorResponse "Rented by another user"
// @Failure 404 {object} errorResponse "Bike not found"
// @Router /bikes/{id} [put]
func (h *BikeHandler) ReplaceBike(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, http.StatusUnauthorized, "Unauthorized", "Authorization header is missing")
		return
	}
	bikeID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req BikeRequest
	body, err := readBody(c, &req)
	if err == nil {
		err = domain.RequireFields(body, domain.BikeFields)
	}
	if err != nil {
		handleError(c, err)
		return
	}

	err = h.bikeService.ReplaceBike(c.Request.Context(), payload.Subject, bikeID, &domain.Bike{
		Manufacturer: req.Manufacturer,
		Type:         req.Type,
		ModelYear:    req.ModelYear,
		BikeSize:     req.BikeSize,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Update bike
// @Description Updates some attributes of a bike rented by the caller
// @Tags bikes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Bike id"
// @Param request body UpdateBike true "Attributes to change"
// @Success 204 "Bike updated"
// @Failure 400 {object} errorResponse "Bad request"
// @Failure 401 {object} errorResponse "Bike not rented"
// @Failure 403 {object} errorResponse "Rented by another user"
// @Failure 404 {object} errorResponse "Bike not found"
// @Router /bikes/{id} [patch]
func (h *BikeHandler) UpdateBike(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, http.StatusUnauthorized, "Unauthorized", "Authorization header is missing")
		return
	}
	bikeID, ok := parseID(c, "id")
	if !ok {
		return
	}

	body, err := readBody(c, nil)
	if err != nil {
		handleError(c, err)
		return
	}
	patch, err := domain.ParseBikePatch(body)
	if err != nil {
		h.logger.Warn("Rejected bike patch", map[string]interface{}{
			"error":   err.Error(),
			"bike_id": bikeID,
		})
		handleError(c, err)
		return
	}

	if err := h.bikeService.PatchBike(c.Request.Context(), payload.Subject, bikeID, patch); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Delete bike
// @Description Deletes a bike rented by the caller, uninstalling its components and ending the rental
// @Tags bikes
// @Security BearerAuth
// @Param id path int true "Bike id"
// @Success 204 "Bike deleted"
// @Failure 401 {object} errorResponse "Bike not rented"
// @Failure 403 {object} errorResponse "Rented by another user"
// @Failure 404 {object} errorResponse "Bike not found"
// @Router /bikes/{id} [delete]
func (h *BikeHandler) DeleteBike(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	payload, exists := getAuthPayload(c, authorizationPayloadKey)
	if !exists {
		newErrorResponse(c, http.StatusUnauthorized, "Unauthorized", "Authorization header is missing")
		return
	}
	bikeID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.bikeService.DeleteBike(c.Request.Context(), payload.Subject, bikeID); err != nil {
		handleError(c, err)
		return
	}

	h.logger.Info("Bike deleted", map[string]interface{}{
		"bike_id": bikeID,
	})
	c.Status(http.StatusNoContent)
}

// @Summary Install component
// @Description Installs a component on a bike
// @Tags bikes
// @Security BearerAuth
// @Param id path int true "Bike id"
// @Param cid path int true "Component id"
// @Success 204 "Component installed"
// @Failure 403 {object} errorResponse "Component already installed"
// @Failure 404 {object} errorResponse "Bike or component not found"
// @Router /bikes/{id}/components/{cid} [put]
func (h *BikeHandler) InstallComponent(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	bikeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	componentID, ok := parseID(c, "cid")
	if !ok {
		return
	}

	if err := h.bikeService.InstallComponent(c.Request.Context(), bikeID, componentID); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Remove component
// @Description Removes a component from a bike
// @Tags bikes
// @Security BearerAuth
// @Param id path int true "Bike id"
// @Param cid path int true "Component id"
// @Success 204 "Component removed"
// @Failure 404 {object} errorResponse "Component not installed on this bike"
// @Router /bikes/{id}/components/{cid} [delete]
func (h *BikeHandler) RemoveComponent(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	bikeID, ok := parseID(c, "id")
	if !ok {
		return
	}
	componentID, ok := parseID(c, "cid")
	if !ok {
		return
	}

	if err := h.bikeService.RemoveComponent(c.Request.Context(), bikeID, componentID); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary List installed components
// @Description Returns the full component documents installed on a bike
// @Tags bikes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Bike id"
// @Success 200 {object} componentsResponse "Components"
// @Failure 404 {object} errorResponse "Bike not found"
// @Router /bikes/{id}/components [get]
func (h *BikeHandler) GetBikeComponents(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	bikeID, ok := parseID(c, "id")
	if !ok {
		return
	}

	components, err := h.bikeService.GetBikeComponents(c.Request.Context(), bikeID)
	if err != nil {
		handleError(c, err)
		return
	}

	l := newLinks(c, h.publicURL)
	res := componentsResponse{Components: make([]componentResponse, 0, len(components)), TotalItems: len(components)}
	for _, component := range components {
		res.Components = append(res.Components, l.component(component))
	}
	newSuccessResponse(c, http.StatusOK, res)
}
