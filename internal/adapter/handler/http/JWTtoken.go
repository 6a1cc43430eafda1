package http

import (
	"errors"

	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

var _ ports.TokenService = (*JWTTokenService)(nil)

// JWTTokenService verifies RS256 access tokens issued by the identity
// provider. The key function resolves the signing key by kid, normally from
// the provider's JWKS.
type JWTTokenService struct {
	keyfunc  jwt.Keyfunc
	audience string
	issuer   string
	logger   ports.LoggerPort
}

func NewJWTTokenService(keyfunc jwt.Keyfunc, audience, issuer string, logger ports.LoggerPort) *JWTTokenService {
	return &JWTTokenService{
		keyfunc:  keyfunc,
		audience: audience,
		issuer:   issuer,
		logger:   logger,
	}
}

func (j *JWTTokenService) VerifyToken(token string) (*domain.Claims, error) {
	parsedToken, err := jwt.Parse(token, j.keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(j.audience),
		jwt.WithIssuer(j.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		j.logger.Warn("Failed to verify jwt", map[string]interface{}{
			"error":  err.Error(),
			"method": "VerifyToken",
		})
		return nil, authErrorFor(err)
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.NewAuthError("invalid_header", "Unable to parse authentication token.")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, domain.NewAuthError("invalid_claims", "token has no subject")
	}

	payload := &domain.Claims{
		Subject: sub,
		Raw:     claims,
	}
	payload.Nickname, _ = claims["nickname"].(string)
	payload.Email, _ = claims["email"].(string)
	payload.EmailVerified, _ = claims["email_verified"].(bool)

	return payload, nil
}

func authErrorFor(err error) *domain.AuthError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domain.NewAuthError("invalid_header", "Invalid header. Use an RS256 signed JWT Access Token")
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.NewAuthError("token_expired", "token is expired")
	case errors.Is(err, jwt.ErrTokenInvalidAudience), errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return domain.NewAuthError("invalid_claims", "incorrect claims, please check the audience and issuer")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.NewAuthError("invalid_header", "Invalid header. Use an RS256 signed JWT Access Token")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return domain.NewAuthError("no_rsa_key", "No RSA key in JWKS")
	default:
		return domain.NewAuthError("invalid_header", "Unable to parse authentication token.")
	}
}
