package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string

	DirectoryAPIBaseURL string
	DirectoryAPIToken   string
	DirectoryRateRPS    int
	DirectoryTimeoutMs  int

	MatchPartialThreshold float64

	ExtractConcurrency int
	MaxBatchFiles      int
	MaxFileSizeMB      int64

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		DirectoryAPIBaseURL: getEnv("FACILITY_API_BASE_URL", "https://api.facilitydir.example/v1"),
		DirectoryAPIToken:   getEnv("FACILITY_API_TOKEN", ""),
		DirectoryRateRPS:    getEnvInt("FACILITY_RATE_LIMIT_RPS", 5),
		DirectoryTimeoutMs:  getEnvInt("FACILITY_TIMEOUT_MS", 30000),

		MatchPartialThreshold: getEnvFloat("MATCH_PARTIAL_THRESHOLD", 0.60),

		ExtractConcurrency: getEnvInt("EXTRACT_CONCURRENCY", 3),
		MaxBatchFiles:      getEnvInt("MAX_BATCH_FILES", 50),
		MaxFileSizeMB:      int64(getEnvInt("MAX_FILE_SIZE_MB", 10)),

		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
