// Package config loads server configuration from the environment.
//
// A .env file in the working directory is loaded first (if present) via
// godotenv, then real environment variables are read — so variables already
// exported in the environment win over the file, which is what you want in
// containers.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultPort matches the Express ancestor's default listening port.
const DefaultPort = 4000

// Config holds everything the server needs from the environment.
type Config struct {
	Port       int    // PORT
	DBPath     string // DB_PATH, default data/userfinder.db
	JWTSecret  string // JWT_SECRET, required
	ImagesDir  string // IMAGES_DIR, default images
	AdminEmail string // ADMIN_EMAIL, optional admin bootstrap
}

// Load reads the .env file (best effort) and the environment, and validates
// the result. A missing or short JWT_SECRET is a startup error, not a
// warning — running an auth service with a guessable secret is worse than
// not running.
func Load() (*Config, error) {
	// Ignore the error: a missing .env file is the normal case outside
	// local development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:       DefaultPort,
		DBPath:     "data/userfinder.db",
		ImagesDir:  "images",
		JWTSecret:  os.Getenv("JWT_SECRET"),
		AdminEmail: os.Getenv("ADMIN_EMAIL"),
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("config: invalid PORT value %q", portStr)
		}
		cfg.Port = port
	}

	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("IMAGES_DIR"); v != "" {
		cfg.ImagesDir = v
	}

	if len(cfg.JWTSecret) < 16 {
		return nil, fmt.Errorf("config: JWT_SECRET must be set to at least 16 characters")
	}

	return cfg, nil
}
