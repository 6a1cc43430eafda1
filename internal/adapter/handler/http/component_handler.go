package http

import (
	"net/http"
	"time"

	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"
	"github.com/sm8ta/webike_rental_microservice/internal/core/services"

	"github.com/gin-gonic/gin"
)

type ComponentHandler struct {
	componentService *services.ComponentService
	logger           ports.LoggerPort
	metrics          ports.MetricsPort
	publicURL        string
}

type ComponentRequest struct {
	Manufacturer string `json:"manufacturer" example:"Shimano"`
	Description  string `json:"description" example:"Shimano XT derailleur"`
	Condition    string `json:"condition" example:"new"`
}

type UpdateComponentRequest struct {
	Manufacturer *string `json:"manufacturer,omitempty" example:"SRAM"`
	Description  *string `json:"description,omitempty" example:"SRAM GX derailleur"`
	Condition    *string `json:"condition,omitempty" example:"used"`
}

func NewComponentHandler(
	componentService *services.ComponentService,
	logger ports.LoggerPort,
	metrics ports.MetricsPort,
	publicURL string,
) *ComponentHandler {
	return &ComponentHandler{
		componentService: componentService,
		logger:           logger,
		metrics:          metrics,
		publicURL:        publicURL,
	}
}

// @Summary Create component
// @Description Creates an uninstalled component
// @Tags components
// @Accept json
// @Produce json
// @Param request body ComponentRequest true "Component attributes"
// @Success 201 {object} componentResponse "Component created"
// @Failure 400 {object} errorResponse "Bad request"
// @Failure 415 {object} errorResponse "Unsupported media type"
// @Router /components [post]
func (h *ComponentHandler) CreateComponent(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	var req ComponentRequest
	body, err := readBody(c, &req)
	if err == nil {
		err = domain.RequireFields(body, domain.ComponentFields)
	}
	if err != nil {
		h.logger.Warn("Rejected create component body", map[string]interface{}{
			"error": err.Error(),
			"ip":    c.ClientIP(),
		})
		handleError(c, err)
		return
	}

	component, err := h.componentService.CreateComponent(c.Request.Context(), &domain.Component{
		Manufacturer: req.Manufacturer,
		Description:  req.Description,
		Condition:    req.Condition,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	newSuccessResponse(c, http.StatusCreated, newLinks(c, h.publicURL).component(component))
}

// @Summary List components
// @Tags components
// @Produce json
// @Param limit query int false "Page size" default(5)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} componentsResponse "Components"
// @Router /components [get]
func (h *ComponentHandler) GetComponents(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	limit, offset, ok := parsePagination(c)
	if !ok {
		return
	}

	page, err := h.componentService.GetComponents(c.Request.Context(), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}

	newSuccessResponse(c, http.StatusOK, newLinks(c, h.publicURL).components(c.Request.URL.Path, page))
}

// @Summary Get component
// @Tags components
// @Produce json
// @Param id path int true "Component id"
// @Success 200 {object} componentResponse "Component"
// @Failure 404 {object} errorResponse "Component not found"
// @Router /components/{id} [get]
func (h *ComponentHandler) GetComponent(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	componentID, ok := parseID(c, "id")
	if !ok {
		return
	}

	component, err := h.componentService.GetComponentByID(c.Request.Context(), componentID)
	if err != nil {
		handleError(c, err)
		return
	}

	newSuccessResponse(c, http.StatusOK, newLinks(c, h.publicURL).component(component))
}

// @Summary Replace component
// @Description Overwrites every attribute of a component; the carrier is kept
// @Tags components
// @Accept json
// @Param id path int true "Component id"
// @Param request body ComponentRequest true "Component attributes"
// @Success 204 "Component replaced"
// @Failure 400 {object} errorResponse "Bad request"
// @Failure 404 {object} errorResponse "Component not found"
// @Router /components/{id} [put]
func (h *ComponentHandler) ReplaceComponent(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	componentID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req ComponentRequest
	body, err := readBody(c, &req)
	if err == nil {
		err = domain.RequireFields(body, domain.ComponentFields)
	}
	if err != nil {
		handleError(c, err)
		return
	}

	err = h.componentService.ReplaceComponent(c.Request.Context(), componentID, &domain.Component{
		Manufacturer: req.Manufacturer,
		Description:  req.Description,
		Condition:    req.Condition,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Update component
// @Tags components
// @Accept json
// @Param id path int true "Component id"
// @Param request body UpdateComponentRequest true "Attributes to change"
// @Success 204 "Component updated"
// @Failure 400 {object} errorResponse "Bad request"
// @Failure 404 {object} errorResponse "Component not found"
// @Router /components/{id} [patch]
func (h *ComponentHandler) UpdateComponent(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	componentID, ok := parseID(c, "id")
	if !ok {
		return
	}

	body, err := readBody(c, nil)
	if err != nil {
		handleError(c, err)
		return
	}
	patch, err := domain.ParseComponentPatch(body)
	if err != nil {
		h.logger.Warn("Rejected component patch", map[string]interface{}{
			"error":        err.Error(),
			"component_id": componentID,
		})
		handleError(c, err)
		return
	}

	if err := h.componentService.PatchComponent(c.Request.Context(), componentID, patch); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Delete component
// @Description Deletes a component and removes it from its carrier's specs
// @Tags components
// @Param id path int true "Component id"
// @Success 204 "Component deleted"
// @Failure 404 {object} errorResponse "Component not found"
// @Router /components/{id} [delete]
func (h *ComponentHandler) DeleteComponent(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	componentID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.componentService.DeleteComponent(c.Request.Context(), componentID); err != nil {
		handleError(c, err)
		return
	}

	h.logger.Info("Component deleted", map[string]interface{}{
		"component_id": componentID,
	})
	c.Status(http.StatusNoContent)
}
