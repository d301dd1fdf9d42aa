package config

import (
	"os"

	log "github.com/inconshreveable/log15"
	"github.com/joho/godotenv"
)

// LoadEnv pulls in a local .env file during development. Hosted environments
// inject real environment variables, so a missing file is not an error.
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Warn("no .env file loaded", "err", err)
		}
	}
}
