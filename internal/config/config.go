package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type (
	Container struct {
		App   *App
		Auth  *Auth
		Store *Store
		DB    *DB
		Mongo *Mongo
		HTTP  *HTTP
		Log   *Log
	}

	App struct {
		Name string
		Env  string
	}

	// Auth describes the identity provider whose tokens are accepted.
	Auth struct {
		Domain   string
		Audience string
		Issuer   string
		JWKSURL  string
	}

	Store struct {
		Driver string
	}

	DB struct {
		Host          string
		Port          string
		User          string
		Password      string
		Name          string
		SSLMode       string
		MaxConns      int
		MigrationsDir string
	}

	Mongo struct {
		URI      string
		Database string
		NodeID   int64
	}

	HTTP struct {
		Env            string
		Port           string
		AllowedOrigins string
		URL            string
		// PublicURL prefixes self links; the request host is used when empty.
		PublicURL string
	}

	Log struct {
		Level string
	}
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"

	EnvProduction = "production"
)

func New() (*Container, error) {
	if os.Getenv("APP_ENV") != EnvProduction {
		// .env is optional outside production
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	app := &App{
		Name: getEnv("APP_NAME", "webike-rental"),
		Env:  getEnv("APP_ENV", "development"),
	}

	domain := os.Getenv("AUTH_DOMAIN")
	auth := &Auth{
		Domain:   domain,
		Audience: os.Getenv("AUTH_AUDIENCE"),
		Issuer:   getEnv("AUTH_ISSUER", "https://"+domain+"/"),
		JWKSURL:  getEnv("AUTH_JWKS_URL", "https://"+domain+"/.well-known/jwks.json"),
	}

	store := &Store{
		Driver: getEnv("STORE_DRIVER", DriverPostgres),
	}

	db := &DB{
		Host:          getEnv("DB_HOST", "localhost"),
		Port:          getEnv("DB_PORT", "5432"),
		User:          os.Getenv("DB_USER"),
		Password:      os.Getenv("DB_PASSWORD"),
		Name:          os.Getenv("DB_NAME"),
		SSLMode:       getEnv("DB_SSLMODE", "disable"),
		MaxConns:      getEnvInt("DB_MAX_CONNS", 5),
		MigrationsDir: getEnv("DB_MIGRATIONS_DIR", "./internal/adapter/postgres/migrations"),
	}

	mongo := &Mongo{
		URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		Database: getEnv("MONGO_DATABASE", "webike"),
		NodeID:   int64(getEnvInt("SNOWFLAKE_NODE", 1)),
	}

	http := &HTTP{
		Port:           getEnv("HTTP_PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
		URL:            os.Getenv("HTTP_URL"),
		PublicURL:      os.Getenv("HTTP_PUBLIC_URL"),
		Env:            app.Env,
	}

	log := &Log{
		Level: getEnv("LOG_LEVEL", "info"),
	}

	c := &Container{
		App:   app,
		Auth:  auth,
		Store: store,
		DB:    db,
		Mongo: mongo,
		HTTP:  http,
		Log:   log,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Auth.Domain == "" || c.Auth.Audience == "" {
		return fmt.Errorf("AUTH_DOMAIN and AUTH_AUDIENCE are required")
	}
	return nil
}

func (h *HTTP) IsProduction() bool {
	return h.Env == EnvProduction
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
