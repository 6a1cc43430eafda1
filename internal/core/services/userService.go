package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"
)

type UserService struct {
	entities
	relations *RelationService
	logger    ports.LoggerPort
}

func NewUserService(
	store ports.EntityStore,
	relations *RelationService,
	logger ports.LoggerPort,
) *UserService {
	return &UserService{
		entities:  entities{store: store},
		relations: relations,
		logger:    logger,
	}
}

// GetUserByRenterID returns domain.ErrNotFound when no user has the subject.
func (s *UserService) GetUserByRenterID(ctx context.Context, subject string) (*domain.User, error) {
	page, err := queryPage(ctx, s.entities, domain.Query{
		Kind:   domain.KindUsers,
		Filter: &domain.Filter{Field: "renter_id", Value: subject},
		Limit:  1,
	}, assignUser)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, domain.ErrNotFound
	}
	return page.Items[0], nil
}

// EnsureUser resolves the claims subject to a user, creating the user on
// first sight. Stores with a unique renter_id index reject the loser of
// a creation race with domain.ErrDuplicate.
func (s *UserService) EnsureUser(ctx context.Context, claims *domain.Claims) (*domain.User, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", domain.ErrBadRequest)
	}

	user, err := s.GetUserByRenterID(ctx, claims.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("Failed to look up user", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	user = &domain.User{
		Nickname: claims.Nickname,
		Email:    claims.Email,
		Verified: claims.EmailVerified,
		RenterID: claims.Subject,
		Rental:   []domain.RentalSummary{},
	}
	if err := s.putUser(ctx, user); err != nil {
		// Lost a race against another first request for the same subject.
		if errors.Is(err, domain.ErrDuplicate) {
			return s.GetUserByRenterID(ctx, claims.Subject)
		}
		s.logger.Error("Failed to create user", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	s.logger.Info("User created on first login", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get user", map[string]interface{}{
			"error":   err.Error(),
			"user_id": userID,
		})
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetUsers(ctx context.Context, limit, offset int) (*Page[*domain.User], error) {
	page, err := queryPage(ctx, s.entities, domain.Query{
		Kind:   domain.KindUsers,
		Limit:  limit,
		Offset: offset,
	}, assignUser)
	if err != nil {
		s.logger.Error("Failed to get users", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}
	return page, nil
}

func (s *UserService) RentBike(ctx context.Context, subject string, userID, bikeID int64) error {
	return s.relations.LinkBikeToUser(ctx, subject, userID, bikeID)
}

func (s *UserService) ReturnBike(ctx context.Context, subject string, userID, bikeID int64) error {
	return s.relations.UnlinkBikeFromUser(ctx, subject, userID, bikeID)
}

// PurgeAll removes every bike, component and user.
func (s *UserService) PurgeAll(ctx context.Context) (int, error) {
	return s.relations.Purge(ctx)
}
