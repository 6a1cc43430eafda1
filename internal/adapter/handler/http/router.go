package http

import (
	"net/http"
	"strings"

	"github.com/sm8ta/webike_rental_microservice/internal/config"
	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"
	"github.com/sm8ta/webike_rental_microservice/internal/core/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Router struct {
	router *gin.Engine
}

func NewRouter(
	cfg *config.HTTP,
	tokenService ports.TokenService,
	userService *services.UserService,
	logger ports.LoggerPort,
	bikeHandler *BikeHandler,
	componentHandler *ComponentHandler,
	userHandler *UserHandler,
) (*Router, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.HandleMethodNotAllowed = true
	router.Use(RequestID(logger))

	// CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.AllowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeaderKey},
		ExposeHeaders:    []string{"Content-Length", requestIDHeaderKey},
		AllowCredentials: cfg.AllowedOrigins != "*",
	}))

	router.NoRoute(func(c *gin.Context) {
		newErrorResponse(c, http.StatusNotFound, "Not Found", "The requested resource does not exist")
	})
	router.NoMethod(func(c *gin.Context) {
		newErrorResponse(c, http.StatusMethodNotAllowed, "Method Not Allowed", "Invalid Request Method")
	})

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := AuthMiddleware(tokenService, userService, logger)
	jsonBody := RequireJSON()

	// Bikes routes
	bikes := router.Group("/bikes")
	bikes.Use(auth)
	{
		bikes.POST("", jsonBody, bikeHandler.CreateBike)
		bikes.GET("", bikeHandler.GetMyBikes)
		bikes.GET("/:id", bikeHandler.GetBike)
		bikes.PUT("/:id", jsonBody, bikeHandler.ReplaceBike)
		bikes.PATCH("/:id", jsonBody, bikeHandler.UpdateBike)
		bikes.DELETE("/:id", bikeHandler.DeleteBike)
		bikes.GET("/:id/components", bikeHandler.GetBikeComponents)
		bikes.PUT("/:id/components/:cid", bikeHandler.InstallComponent)
		bikes.DELETE("/:id/components/:cid", bikeHandler.RemoveComponent)
	}

	// Components routes
	components := router.Group("/components")
	{
		components.POST("", jsonBody, componentHandler.CreateComponent)
		components.GET("", componentHandler.GetComponents)
		components.GET("/:id", componentHandler.GetComponent)
		components.PUT("/:id", jsonBody, componentHandler.ReplaceComponent)
		components.PATCH("/:id", jsonBody, componentHandler.UpdateComponent)
		components.DELETE("/:id", componentHandler.DeleteComponent)
	}

	// Users routes
	users := router.Group("/users")
	{
		users.GET("", userHandler.GetUsers)
		users.GET("/:id", userHandler.GetUser)
		users.PUT("/:id/bikes/:bid", auth, userHandler.RentBike)
		users.DELETE("/:id/bikes/:bid", auth, userHandler.ReturnBike)
	}

	router.GET("/decode", auth, userHandler.Decode)
	if !cfg.IsProduction() {
		router.DELETE("/delete", userHandler.Purge)
	}

	return &Router{router: router}, nil
}

func (r *Router) Engine() *gin.Engine {
	return r.router
}
