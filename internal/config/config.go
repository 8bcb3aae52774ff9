package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Gateway configures the development order gateway.
type Gateway struct {
	RunAddress    string
	DatabaseURI   string
	JWTSecret     string
	AdminLogin    string
	AdminPassword string
}

func NewGateway() *Gateway {
	loadDotEnv()
	cfg := &Gateway{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "server address and port")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI (empty keeps orders in memory)")
	flag.StringVar(&cfg.JWTSecret, "s", "super-secret-jwt-key", "jwt signing key")
	flag.StringVar(&cfg.AdminLogin, "admin-login", "admin", "bootstrap administrator login")
	flag.StringVar(&cfg.AdminPassword, "admin-password", "", "bootstrap administrator password (empty skips seeding)")
	flag.Parse()

	cfg.RunAddress = getEnv("RUN_ADDRESS", cfg.RunAddress)
	cfg.DatabaseURI = getEnv("DATABASE_URI", cfg.DatabaseURI)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.AdminLogin = getEnv("ADMIN_LOGIN", cfg.AdminLogin)
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.AdminPassword)

	return cfg
}

// Client configures the storefront command-line client.
type Client struct {
	GatewayAddress  string
	Token           string
	Role            string
	StatusFilter    string
	RefreshInterval time.Duration
	Timeout         time.Duration
	PanicOnGuard    bool
}

func NewClient() *Client {
	loadDotEnv()
	cfg := &Client{}

	flag.StringVar(&cfg.GatewayAddress, "g", "http://localhost:8080", "order gateway address")
	flag.StringVar(&cfg.Token, "t", "", "bearer token")
	flag.StringVar(&cfg.Role, "role", "", "admin or customer (defaults to the token's role claim)")
	flag.StringVar(&cfg.StatusFilter, "status", "all", "status filter for listings")
	flag.DurationVar(&cfg.RefreshInterval, "i", 10*time.Second, "refresh interval for watch")
	flag.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "gateway request timeout")
	flag.BoolVar(&cfg.PanicOnGuard, "strict", false, "panic when an action is refused before dispatch")
	flag.Parse()

	cfg.GatewayAddress = getEnv("GATEWAY_ADDRESS", cfg.GatewayAddress)
	cfg.Token = getEnv("AUTH_TOKEN", cfg.Token)
	cfg.Role = getEnv("STOREFRONT_ROLE", cfg.Role)
	cfg.StatusFilter = getEnv("STATUS_FILTER", cfg.StatusFilter)
	cfg.RefreshInterval = getDuration("REFRESH_INTERVAL", cfg.RefreshInterval)
	cfg.Timeout = getDuration("GATEWAY_TIMEOUT", cfg.Timeout)
	if v, err := strconv.ParseBool(getEnv("STOREFRONT_STRICT", "")); err == nil {
		cfg.PanicOnGuard = v
	}

	return cfg
}

// loadDotEnv reads .env when present; real environment variables win.
func loadDotEnv() {
	_ = godotenv.Load()
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return fallback
}
