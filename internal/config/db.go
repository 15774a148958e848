package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// DBConfig holds the Postgres connection settings for the service-request form.
type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Database string
	Schema   string
	Table    string
}

// GetDBConfig reads the database settings from the environment, loading a
// .env file first when one is present.
func GetDBConfig() DBConfig {
	godotenv.Load()

	return DBConfig{
		User:     envOr("PGUSER", "postgres"),
		Password: envOr("PGPASSWORD", "postgres"),
		Host:     envOr("PGHOST", "localhost"),
		Port:     envOr("PGPORT", "5432"),
		Database: envOr("PGDATABASE", "postgres"),
		Schema:   envOr("DB_SCHEMA", "urbano"),
		Table:    envOr("TABLE_NAME", "solicitacoes"),
	}
}

// ConnString builds a lib/pq connection string.
func (c DBConfig) ConnString() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
