package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv exports the variables of a .env file into the process environment.
// A missing file is not an error; variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if lookup == nil {
		return
	}

	for key, dst := range map[string]*string{
		"BOT_OAUTH_TOKEN":  &cfg.App.OAuth,
		"BOT_CLIENT_ID":    &cfg.App.ClientID,
		"BOT_USERNAME":     &cfg.App.Username,
		"BOT_CHANNEL":      &cfg.App.Channel,
		"BOT_DATABASE_URL": &cfg.App.DatabaseURL,
	} {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
}
