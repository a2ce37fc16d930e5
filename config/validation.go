package config

import (
	"fmt"
)

const minJWTSecretLength = 32

func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis config: %w", err)
	}

	if err := c.Security.Validate(c.IsProduction()); err != nil {
		return fmt.Errorf("security config: %w", err)
	}

	if err := c.Booking.Validate(); err != nil {
		return fmt.Errorf("booking config: %w", err)
	}

	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if c.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.MaxRequestBytes < 0 {
		return fmt.Errorf("max request bytes must not be negative")
	}
	return nil
}

func (c *RedisConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	return nil
}

func (c *SecurityConfig) Validate(production bool) error {
	if c.JWTSecret == "" || c.JWTSecret == "your_jwt_secret" {
		return fmt.Errorf("jwt secret is required - set JWT_SECRET environment variable")
	}
	if production && len(c.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("jwt secret must be at least %d characters in production", minJWTSecretLength)
	}
	if c.RateLimitEnabled && (c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}
	return nil
}

func (c *BookingConfig) Validate() error {
	if c.NumberAttempts < 1 {
		return fmt.Errorf("number attempts must be at least 1")
	}
	return nil
}
