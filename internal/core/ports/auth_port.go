package ports

import "github.com/sm8ta/webike_rental_microservice/internal/core/domain"

type TokenService interface {
	// VerifyToken returns a *domain.AuthError when the token is rejected.
	VerifyToken(token string) (*domain.Claims, error)
}
