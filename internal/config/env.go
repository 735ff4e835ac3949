package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order; neither overrides variables already present
// in the process environment.
var envFiles = []string{".env", ".env.local"}

// loadEnvFile loads KEY=VALUE pairs from .env and .env.local when present.
func loadEnvFile() error {
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// applyEnvOverrides lets the deployment environment supply operator addresses
// and the dev server port without editing the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RECIPIENT_EMAIL"); v != "" {
		cfg.Relay.RecipientEmail = v
	}
	if v := os.Getenv("SENDER_EMAIL"); v != "" {
		cfg.Relay.SenderEmail = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			// Left for validation to reject.
			cfg.Server.Port = -1
		}
	}
}
