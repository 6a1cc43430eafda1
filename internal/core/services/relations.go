package services

import (
	"context"
	"errors"

	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"
)

// RelationService keeps the references between bikes, components and users
// consistent. The store has no multi-key transaction, so every operation
// writes the entities in a fixed order: the referencing side that a retry can
// repair is written first and the record being deleted is removed last.
// Concurrent requests on the same entities can still interleave; a retry of
// the same operation converges.
type RelationService struct {
	entities
	logger  ports.LoggerPort
	metrics ports.MetricsPort
}

func NewRelationService(
	store ports.EntityStore,
	logger ports.LoggerPort,
	metrics ports.MetricsPort,
) *RelationService {
	return &RelationService{
		entities: entities{store: store},
		logger:   logger,
		metrics:  metrics,
	}
}

// LinkComponentToBike installs a component on a bike. A component that
// already has a carrier must be unlinked first, even from the same bike.
func (s *RelationService) LinkComponentToBike(ctx context.Context, bikeID, componentID int64) (err error) {
	defer func() { s.metrics.RecordRelation("link_component", err) }()

	bike, err := s.bike(ctx, bikeID)
	if err != nil {
		return err
	}
	component, err := s.component(ctx, componentID)
	if err != nil {
		return err
	}

	if component.Carrier != nil {
		s.logger.Warn("Component already installed", map[string]interface{}{
			"bike_id":      bikeID,
			"component_id": componentID,
			"carrier_id":   component.Carrier.ID,
		})
		return domain.ErrAlreadyLinked
	}

	// An entry without a carrier is left over from an interrupted link.
	if i := bike.SpecIndex(componentID); i >= 0 {
		bike.Specs[i] = component.Summary()
	} else {
		bike.Specs = append(bike.Specs, component.Summary())
	}
	if err := s.putBike(ctx, bike); err != nil {
		s.logger.Error("Failed to save bike specs", map[string]interface{}{
			"error":        err.Error(),
			"bike_id":      bikeID,
			"component_id": componentID,
		})
		return err
	}

	component.Carrier = bike.Summary()
	if err := s.putComponent(ctx, component); err != nil {
		s.logger.Error("Failed to save component carrier", map[string]interface{}{
			"error":        err.Error(),
			"bike_id":      bikeID,
			"component_id": componentID,
		})
		return err
	}

	s.logger.Info("Component installed", map[string]interface{}{
		"bike_id":      bikeID,
		"component_id": componentID,
	})
	return nil
}

// UnlinkComponentFromBike removes a component from a bike. When an earlier
// call only got as far as one side, the remaining reference is cleared and
// the call succeeds, also when the other side has been deleted since.
func (s *RelationService) UnlinkComponentFromBike(ctx context.Context, bikeID, componentID int64) (err error) {
	defer func() { s.metrics.RecordRelation("unlink_component", err) }()

	bike, bikeErr := s.bike(ctx, bikeID)
	if bikeErr != nil && !errors.Is(bikeErr, domain.ErrNotFound) {
		return bikeErr
	}
	component, componentErr := s.component(ctx, componentID)
	if componentErr != nil && !errors.Is(componentErr, domain.ErrNotFound) {
		return componentErr
	}

	removed := bike != nil && bike.RemoveSpec(componentID)
	carried := component != nil && component.CarriedBy(bikeID)
	if !removed && !carried {
		switch {
		case bikeErr != nil:
			return bikeErr
		case componentErr != nil:
			return componentErr
		}
		return domain.ErrNotLinked
	}

	if removed {
		if err := s.putBike(ctx, bike); err != nil {
			s.logger.Error("Failed to save bike specs", map[string]interface{}{
				"error":        err.Error(),
				"bike_id":      bikeID,
				"component_id": componentID,
			})
			return err
		}
	}

	if carried {
		component.Carrier = nil
		if err := s.putComponent(ctx, component); err != nil {
			s.logger.Error("Failed to clear component carrier", map[string]interface{}{
				"error":        err.Error(),
				"bike_id":      bikeID,
				"component_id": componentID,
			})
			return err
		}
	}

	s.logger.Info("Component removed", map[string]interface{}{
		"bike_id":      bikeID,
		"component_id": componentID,
		"repaired":     !removed || !carried,
	})
	return nil
}

// UpdateComponent saves component and then rewrites the description mirrored
// in its carrier's specs. A failure between the two writes leaves a stale
// mirror that the next update of the component corrects.
func (s *RelationService) UpdateComponent(ctx context.Context, component *domain.Component) (err error) {
	defer func() { s.metrics.RecordRelation("update_component", err) }()

	if err := s.putComponent(ctx, component); err != nil {
		return err
	}
	if component.Carrier == nil {
		return nil
	}

	bike, err := s.bike(ctx, component.Carrier.ID)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("Carrier of component does not exist", map[string]interface{}{
			"component_id": component.ID,
			"bike_id":      component.Carrier.ID,
		})
		return nil
	}
	if err != nil {
		return err
	}

	i := bike.SpecIndex(component.ID)
	if i < 0 || bike.Specs[i].Description == component.Description {
		return nil
	}
	bike.Specs[i].Description = component.Description
	if err := s.putBike(ctx, bike); err != nil {
		s.logger.Error("Failed to mirror component description", map[string]interface{}{
			"error":        err.Error(),
			"bike_id":      bike.ID,
			"component_id": component.ID,
		})
		return err
	}
	return nil
}

// UpdateBike saves bike and, when its manufacturer changed, the carrier
// summaries of the components it carries.
func (s *RelationService) UpdateBike(ctx context.Context, bike *domain.Bike, manufacturerChanged bool) (err error) {
	defer func() { s.metrics.RecordRelation("update_bike", err) }()

	if err := s.putBike(ctx, bike); err != nil {
		return err
	}
	if !manufacturerChanged {
		return nil
	}

	for _, spec := range bike.Specs {
		component, err := s.component(ctx, spec.ID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if !component.CarriedBy(bike.ID) || component.Carrier.Manufacturer == bike.Manufacturer {
			continue
		}
		component.Carrier.Manufacturer = bike.Manufacturer
		if err := s.putComponent(ctx, component); err != nil {
			s.logger.Error("Failed to mirror bike manufacturer", map[string]interface{}{
				"error":        err.Error(),
				"bike_id":      bike.ID,
				"component_id": component.ID,
			})
			return err
		}
	}
	return nil
}

// LinkBikeToUser rents a bike to a user. Users can only rent for themselves.
func (s *RelationService) LinkBikeToUser(ctx context.Context, subject string, userID, bikeID int64) (err error) {
	defer func() { s.metrics.RecordRelation("link_rental", err) }()

	user, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	bike, err := s.bike(ctx, bikeID)
	if err != nil {
		return err
	}

	if user.RenterID != subject {
		s.logger.Warn("Rental requested for another user", map[string]interface{}{
			"user_id": userID,
			"bike_id": bikeID,
		})
		return domain.ErrNotAuthorized
	}
	if bike.Rentee != nil {
		return domain.ErrAlreadyRented
	}

	if user.RentalIndex(bikeID) < 0 {
		user.Rental = append(user.Rental, domain.RentalSummary{ID: bikeID})
		if err := s.putUser(ctx, user); err != nil {
			s.logger.Error("Failed to save user rental", map[string]interface{}{
				"error":   err.Error(),
				"user_id": userID,
				"bike_id": bikeID,
			})
			return err
		}
	}

	bike.Rentee = &userID
	if err := s.putBike(ctx, bike); err != nil {
		s.logger.Error("Failed to save bike rentee", map[string]interface{}{
			"error":   err.Error(),
			"user_id": userID,
			"bike_id": bikeID,
		})
		return err
	}

	s.logger.Info("Bike rented", map[string]interface{}{
		"user_id": userID,
		"bike_id": bikeID,
	})
	return nil
}

// UnlinkBikeFromUser returns a rented bike. Only the renter can return it.
func (s *RelationService) UnlinkBikeFromUser(ctx context.Context, subject string, userID, bikeID int64) (err error) {
	defer func() { s.metrics.RecordRelation("unlink_rental", err) }()

	user, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	bike, err := s.bike(ctx, bikeID)
	if err != nil {
		return err
	}

	if user.RenterID != subject {
		s.logger.Warn("Return requested by another user", map[string]interface{}{
			"user_id": userID,
			"bike_id": bikeID,
		})
		return domain.ErrNotAuthorized
	}

	removed := user.RemoveRental(bikeID)
	rented := bike.RentedBy(userID)
	if !removed && !rented {
		return domain.ErrNotRented
	}

	if removed {
		if err := s.putUser(ctx, user); err != nil {
			s.logger.Error("Failed to save user rental", map[string]interface{}{
				"error":   err.Error(),
				"user_id": userID,
				"bike_id": bikeID,
			})
			return err
		}
	}

	if rented {
		bike.Rentee = nil
		if err := s.putBike(ctx, bike); err != nil {
			s.logger.Error("Failed to clear bike rentee", map[string]interface{}{
				"error":   err.Error(),
				"user_id": userID,
				"bike_id": bikeID,
			})
			return err
		}
	}

	s.logger.Info("Bike returned", map[string]interface{}{
		"user_id":  userID,
		"bike_id":  bikeID,
		"repaired": !removed,
	})
	return nil
}

// DeleteBike clears every reference to the bike before removing it, so an
// interrupted delete only leaves stale entries on the bike itself.
func (s *RelationService) DeleteBike(ctx context.Context, bikeID int64) (err error) {
	defer func() { s.metrics.RecordRelation("delete_bike", err) }()

	bike, err := s.bike(ctx, bikeID)
	if err != nil {
		return err
	}

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
			return err
		}
		if !component.CarriedBy(bikeID) {
			continue
		}
		component.Carrier = nil
		if err := s.putComponent(ctx, component); err != nil {
			s.logger.Error("Failed to clear component carrier", map[string]interface{}{
				"error":        err.Error(),
				"bike_id":      bikeID,
				"component_id": spec.ID,
			})
			return err
		}
	}

	if bike.Rentee != nil {
		user, err := s.user(ctx, *bike.Rentee)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.logger.Warn("Rentee of bike does not exist", map[string]interface{}{
				"bike_id": bikeID,
				"user_id": *bike.Rentee,
			})
		case err != nil:
			return err
		case user.RemoveRental(bikeID):
			if err := s.putUser(ctx, user); err != nil {
				s.logger.Error("Failed to remove bike from rental", map[string]interface{}{
					"error":   err.Error(),
					"bike_id": bikeID,
					"user_id": user.ID,
				})
				return err
			}
		}
	}

	if err := s.store.Delete(ctx, domain.KindBikes, bikeID); err != nil {
		s.logger.Error("Failed to delete bike", map[string]interface{}{
			"error":   err.Error(),
			"bike_id": bikeID,
		})
		return err
	}

	s.logger.Info("Bike deleted", map[string]interface{}{
		"bike_id":          bikeID,
		"components_count": len(bike.Specs),
	})
	return nil
}

// DeleteComponent removes the component from its carrier before deleting it.
func (s *RelationService) DeleteComponent(ctx context.Context, componentID int64) (err error) {
	defer func() { s.metrics.RecordRelation("delete_component", err) }()

	component, err := s.component(ctx, componentID)
	if err != nil {
		return err
	}

	if component.Carrier != nil {
		bike, err := s.bike(ctx, component.Carrier.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.logger.Warn("Carrier of component does not exist", map[string]interface{}{
				"component_id": componentID,
				"bike_id":      component.Carrier.ID,
			})
		case err != nil:
			return err
		case bike.RemoveSpec(componentID):
			if err := s.putBike(ctx, bike); err != nil {
				s.logger.Error("Failed to remove component from specs", map[string]interface{}{
					"error":        err.Error(),
					"component_id": componentID,
					"bike_id":      bike.ID,
				})
				return err
			}
		}
	}

	if err := s.store.Delete(ctx, domain.KindComponents, componentID); err != nil {
		s.logger.Error("Failed to delete component", map[string]interface{}{
			"error":        err.Error(),
			"component_id": componentID,
		})
		return err
	}

	s.logger.Info("Component deleted", map[string]interface{}{
		"component_id": componentID,
	})
	return nil
}

const purgeBatch = 100

// Purge deletes every stored entity of every kind.
func (s *RelationService) Purge(ctx context.Context) (deleted int, err error) {
	defer func() { s.metrics.RecordRelation("purge", err) }()

	for _, kind := range domain.Kinds {
		for {
			docs, more, err := s.store.Query(ctx, domain.Query{Kind: kind, Limit: purgeBatch})
			if err != nil {
				return deleted, err
			}
			for _, doc := range docs {
				if err := s.store.Delete(ctx, kind, doc.ID); err != nil {
					return deleted, err
				}
				deleted++
			}
			if !more || len(docs) == 0 {
				break
			}
		}
	}

	s.logger.Info("All entities deleted", map[string]interface{}{
		"deleted": deleted,
	})
	return deleted, nil
}
