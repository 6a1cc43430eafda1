package services

import (
	"context"
	"fmt"

	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"

	"github.com/go-playground/validator/v10"
)

type ComponentService struct {
	entities
	relations *RelationService
	logger    ports.LoggerPort
	validate  *validator.Validate
}

func NewComponentService(
	store ports.EntityStore,
	relations *RelationService,
	logger ports.LoggerPort,
	validate *validator.Validate,
) *ComponentService {
	return &ComponentService{
		entities:  entities{store: store},
		relations: relations,
		logger:    logger,
		validate:  validate,
	}
}

func (s *ComponentService) CreateComponent(ctx context.Context, component *domain.Component) (*domain.Component, error) {
	if err := s.validate.Struct(component); err != nil {
		s.logger.Error("Component validation failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}

	component.ID = 0
	component.Carrier = nil
	if err := s.putComponent(ctx, component); err != nil {
		s.logger.Error("Failed to create component", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	s.logger.Info("Component created successfully", map[string]interface{}{
		"component_id": component.ID,
	})
	return component, nil
}

func (s *ComponentService) GetComponentByID(ctx context.Context, componentID int64) (*domain.Component, error) {
	component, err := s.component(ctx, componentID)
	if err != nil {
		s.logger.Error("Failed to get component", map[string]interface{}{
			"error":        err.Error(),
			"component_id": componentID,
		})
		return nil, err
	}
	return component, nil
}

func (s *ComponentService) GetComponents(ctx context.Context, limit, offset int) (*Page[*domain.Component], error) {
	page, err := queryPage(ctx, s.entities, domain.Query{
		Kind:   domain.KindComponents,
		Limit:  limit,
		Offset: offset,
	}, assignComponent)
	if err != nil {
		s.logger.Error("Failed to get components", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}
	return page, nil
}

// ReplaceComponent overwrites every scalar field; the carrier is kept.
func (s *ComponentService) ReplaceComponent(ctx context.Context, componentID int64, fields *domain.Component) error {
	return s.PatchComponent(ctx, componentID, &domain.ComponentPatch{
		Manufacturer: &fields.Manufacturer,
		Description:  &fields.Description,
		Condition:    &fields.Condition,
	})
}

func (s *ComponentService) PatchComponent(ctx context.Context, componentID int64, patch *domain.ComponentPatch) error {
	component, err := s.GetComponentByID(ctx, componentID)
	if err != nil {
		return err
	}

	patch.Apply(component)
	if err := s.validate.Struct(component); err != nil {
		s.logger.Error("Component validation failed", map[string]interface{}{
			"error":        err.Error(),
			"component_id": componentID,
		})
		return fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}

	if err := s.relations.UpdateComponent(ctx, component); err != nil {
		s.logger.Error("Failed to update component", map[string]interface{}{
			"error":        err.Error(),
			"component_id": componentID,
		})
		return err
	}

	s.logger.Info("Component updated successfully", map[string]interface{}{
		"component_id": componentID,
	})
	return nil
}

func (s *ComponentService) DeleteComponent(ctx context.Context, componentID int64) error {
	return s.relations.DeleteComponent(ctx, componentID)
}
