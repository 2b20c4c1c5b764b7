// Package config resolves settings from the environment and an optional
// .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds settings shared by every subcommand. Flags override it.
type Config struct {
	DataDir   string // LESEZEICHEN_DATA_DIR
	DBPath    string // LESEZEICHEN_DB
	ServerURL string // LESEZEICHEN_SERVER, empty means local mode
	Token     string // LESEZEICHEN_TOKEN
	User      string // LESEZEICHEN_USER
	Secret    string // LESEZEICHEN_JWT_SECRET
	Host      string // LESEZEICHEN_HOST
	Port      int    // LESEZEICHEN_PORT
}

// DefaultPort is the reference backend's listen port.
const DefaultPort = 19292

// Load reads .env files (missing ones are fine) and then the environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	dataDir := os.Getenv("LESEZEICHEN_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share", "lesezeichen")
	}

	cfg := Config{
		DataDir:   dataDir,
		DBPath:    envOrDefault("LESEZEICHEN_DB", filepath.Join(dataDir, "lesezeichen.db")),
		ServerURL: os.Getenv("LESEZEICHEN_SERVER"),
		Token:     os.Getenv("LESEZEICHEN_TOKEN"),
		User:      envOrDefault("LESEZEICHEN_USER", "local"),
		Secret:    os.Getenv("LESEZEICHEN_JWT_SECRET"),
		Host:      envOrDefault("LESEZEICHEN_HOST", "127.0.0.1"),
		Port:      DefaultPort,
	}
	if v := os.Getenv("LESEZEICHEN_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("LESEZEICHEN_PORT: invalid port %q", v)
		}
		cfg.Port = port
	}
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
