package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"

	"github.com/go-playground/validator/v10"
)

type BikeService struct {
	entities
	relations *RelationService
	logger    ports.LoggerPort
	validate  *validator.Validate
}

func NewBikeService(
	store ports.EntityStore,
	relations *RelationService,
	logger ports.LoggerPort,
	validate *validator.Validate,
) *BikeService {
	return &BikeService{
		entities:  entities{store: store},
		relations: relations,
		logger:    logger,
		validate:  validate,
	}
}

func (s *BikeService) CreateBike(ctx context.Context, bike *domain.Bike) (*domain.Bike, error) {
	if err := s.validate.Struct(bike); err != nil {
		s.logger.Error("Bike validation failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}

	bike.ID = 0
	bike.Specs = []domain.ComponentSummary{}
	bike.Rentee = nil
	if err := s.putBike(ctx, bike); err != nil {
		s.logger.Error("Failed to create bike", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	s.logger.Info("Bike created successfully", map[string]interface{}{
		"bike_id": bike.ID,
	})
	return bike, nil
}

func (s *BikeService) GetBikeByID(ctx context.Context, bikeID int64) (*domain.Bike, error) {
	bike, err := s.bike(ctx, bikeID)
	if err != nil {
		s.logger.Error("Failed to get bike", map[string]interface{}{
			"error":   err.Error(),
			"bike_id": bikeID,
		})
		return nil, err
	}
	return bike, nil
}

// Authorize checks that subject is the renter of bike.
func (s *BikeService) Authorize(ctx context.Context, subject string, bike *domain.Bike) error {
	if bike.Rentee == nil {
		return domain.ErrNotRenting
	}
	rentee, err := s.user(ctx, *bike.Rentee)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotAuthorized
	}
	if err != nil {
		return err
	}
	if rentee.RenterID != subject {
		s.logger.Warn("Access denied to bike", map[string]interface{}{
			"bike_id":   bike.ID,
			"rentee_id": rentee.ID,
		})
		return domain.ErrNotAuthorized
	}
	return nil
}

// GetRentedBike loads a bike the caller is renting.
func (s *BikeService) GetRentedBike(ctx context.Context, subject string, bikeID int64) (*domain.Bike, error) {
	bike, err := s.GetBikeByID(ctx, bikeID)
	if err != nil {
		return nil, err
	}
	if err := s.Authorize(ctx, subject, bike); err != nil {
		return nil, err
	}
	return bike, nil
}

// GetBikesByRentee lists the bikes rented by a user.
func (s *BikeService) GetBikesByRentee(ctx context.Context, userID int64, limit, offset int) (*Page[*domain.Bike], error) {
	page, err := queryPage(ctx, s.entities, domain.Query{
		Kind:   domain.KindBikes,
		Filter: &domain.Filter{Field: "rentee", Value: userID},
		Limit:  limit,
		Offset: offset,
	}, assignBike)
	if err != nil {
		s.logger.Error("Failed to get bikes", map[string]interface{}{
			"error":   err.Error(),
			"user_id": userID,
		})
		return nil, err
	}

	s.logger.Info("Retrieved bikes for user", map[string]interface{}{
		"user_id":     userID,
		"bikes_count": len(page.Items),
	})
	return page, nil
}

// ReplaceBike overwrites the scalar fields of a rented bike.
func (s *BikeService) ReplaceBike(ctx context.Context, subject string, bikeID int64, fields *domain.Bike) error {
	return s.PatchBike(ctx, subject, bikeID, &domain.BikePatch{
		Manufacturer: &fields.Manufacturer,
		Type:         &fields.Type,
		ModelYear:    &fields.ModelYear,
		BikeSize:     &fields.BikeSize,
	})
}

func (s *BikeService) PatchBike(ctx context.Context, subject string, bikeID int64, patch *domain.BikePatch) error {
	bike, err := s.GetRentedBike(ctx, subject, bikeID)
	if err != nil {
		return err
	}

	changed := patch.Apply(bike)
	if err := s.validate.Struct(bike); err != nil {
		s.logger.Error("Bike validation failed", map[string]interface{}{
			"error":   err.Error(),
			"bike_id": bikeID,
		})
		return fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}

	if err := s.relations.UpdateBike(ctx, bike, changed); err != nil {
		s.logger.Error("Failed to update bike", map[string]interface{}{
			"error":   err.Error(),
			"bike_id": bikeID,
		})
		return err
	}

	s.logger.Info("Bike updated successfully", map[string]interface{}{
		"bike_id": bikeID,
	})
	return nil
}

func (s *BikeService) DeleteBike(ctx context.Context, subject string, bikeID int64) error {
	bike, err := s.GetRentedBike(ctx, subject, bikeID)
	if err != nil {
		return err
	}
	return s.relations.DeleteBike(ctx, bike.ID)
}

func (s *BikeService) InstallComponent(ctx context.Context, bikeID, componentID int64) error {
	return s.relations.LinkComponentToBike(ctx, bikeID, componentID)
}

func (s *BikeService) RemoveComponent(ctx context.Context, bikeID, componentID int64) error {
	return s.relations.UnlinkComponentFromBike(ctx, bikeID, componentID)
}

// GetBikeComponents loads the components listed in a bike's specs.
func (s *BikeService) GetBikeComponents(ctx context.Context, bikeID int64) ([]*domain.Component, error) {
	bike, err := s.GetBikeByID(ctx, bikeID)
	if err != nil {
		return nil, err
	}

	components := make([]*domain.Component, 0, len(bike.Specs))
	for _, spec := range bike.Specs {
		component, err := s.component(ctx, spec.ID)
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("Installed component does not exist", map[string]interface{}{
				"bike_id":      bikeID,
				"component_id": spec.ID,
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		components = append(components, component)
	}

	s.logger.Info("Retrieved bike with components", map[string]interface{}{
		"bike_id":          bikeID,
		"components_count": len(components),
	})
	return components, nil
}
