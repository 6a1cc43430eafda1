package http

import (
	"net/http"
	"strings"

	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"
	"github.com/sm8ta/webike_rental_microservice/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	authorizationHeaderKey  = "Authorization"
	authorizationTypeBearer = "bearer"
	authorizationPayloadKey = "authorization_payload"
	authorizationUserKey    = "authorization_user"
	requestIDHeaderKey      = "X-Request-ID"
)

// AuthMiddleware verifies the bearer token and resolves its subject to a
// user, creating the user on first sight.
func AuthMiddleware(tokenService ports.TokenService, userService *services.UserService, logger ports.LoggerPort) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(authorizationHeaderKey)
		if header == "" {
			abortAuthError(c, domain.NewAuthError("no auth header", "Authorization header is missing"))
			return
		}

		fields := strings.Fields(header)
		if len(fields) != 2 || strings.ToLower(fields[0]) != authorizationTypeBearer {
			abortAuthError(c, domain.NewAuthError("invalid_header", "Authorization header must be of the form 'Bearer <token>'"))
			return
		}

		claims, err := tokenService.VerifyToken(fields[1])
		if err != nil {
			logger.Warn("Rejected bearer token", map[string]interface{}{
				"ip":    c.ClientIP(),
				"error": err.Error(),
			})
			handleError(c, err)
			c.Abort()
			return
		}

		user, err := userService.EnsureUser(c.Request.Context(), claims)
		if err != nil {
			handleError(c, err)
			c.Abort()
			return
		}

		c.Set(authorizationPayloadKey, claims)
		c.Set(authorizationUserKey, user)
		c.Next()
	}
}

func abortAuthError(c *gin.Context, err *domain.AuthError) {
	c.AbortWithStatusJSON(err.Status, errorResponse{Code: err.Code, Description: err.Description})
}

func getAuthPayload(c *gin.Context, key string) (*domain.Claims, bool) {
	value, exists := c.Get(key)
	if !exists {
		return nil, false
	}
	payload, ok := value.(*domain.Claims)
	return payload, ok
}

func getAuthUser(c *gin.Context) (*domain.User, bool) {
	value, exists := c.Get(authorizationUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*domain.User)
	return user, ok
}

// RequireJSON rejects bodies that are not application/json and clients
// that do not accept application/json.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.ContentType() != gin.MIMEJSON {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, errorResponse{
				Code:        "Unsupported Media Type",
				Description: "Content type for this request must be application/json",
			})
			return
		}
		if c.NegotiateFormat(gin.MIMEJSON) == "" {
			c.AbortWithStatusJSON(http.StatusNotAcceptable, errorResponse{
				Code:        "Not Acceptable",
				Description: "The chosen media type is not supported for this request",
			})
			return
		}
		c.Next()
	}
}

// RequestID tags every request so log lines can be correlated.
func RequestID(logger ports.LoggerPort) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeaderKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeaderKey, id)
		c.Next()

		logger.Debug("Request handled", map[string]interface{}{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
		})
	}
}
