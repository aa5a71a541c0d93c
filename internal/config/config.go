package config

import (
	"os"
	"strconv"
)

// StoreConfig selects the document backend and its parameters.
// Backend is one of: memory, badger, postgres.
type StoreConfig struct {
	Backend   string
	Prefix    string
	BadgerDir string
}

// FileStoreConfig selects the file driver and its parameters.
// Type is one of: memory, disk, s3.
type FileStoreConfig struct {
	Type     string
	Prefix   string
	DiskRoot string
}

// DatabaseConfig holds PostgreSQL connection settings for the postgres
// document backend.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for the s3 file driver.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port      string
	Store     StoreConfig
	FileStore FileStoreConfig
	Database  DatabaseConfig
	MinIO     MinIOConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Port: getEnv("PORT", "8080"),
		Store: StoreConfig{
			Backend:   getEnv("STORE_BACKEND", "memory"),
			Prefix:    getEnv("STORE_PREFIX", "/store"),
			BadgerDir: getEnv("BADGER_DIR", "data/store"),
		},
		FileStore: FileStoreConfig{
			Type:     getEnv("FILE_STORE_TYPE", "memory"),
			Prefix:   getEnv("FILE_PREFIX", "/file"),
			DiskRoot: getEnv("DISK_DESTINATION", "data/files"),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Bucket:    getEnv("S3_BUCKET", ""),
			UseSSL:    getEnvBool("S3_USE_SSL", false),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
