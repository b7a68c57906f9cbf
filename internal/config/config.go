package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	MongoURI        string
	DBName          string
	JWTSecret       string
	TokenTTL        time.Duration
	GeocoderBaseURL string
	GeocoderAPIKey  string
	UploadRoot      string
}

// Load reads configuration once at startup. MONGO_URI and JWT_SECRET are
// required; the process refuses to start without them. The secret is never
// written to the log.
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		MongoURI:        getEnvOrDefault("MONGO_URI", ""),
		DBName:          getEnvOrDefault("DB_NAME", "places"),
		JWTSecret:       getEnvOrDefault("JWT_SECRET", ""),
		TokenTTL:        getDurationEnv("TOKEN_TTL", 60, time.Minute),
		GeocoderBaseURL: getEnvOrDefault("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderAPIKey:  getEnvOrDefault("GEOCODER_API_KEY", ""),
		UploadRoot:      getEnvOrDefault("UPLOAD_ROOT", "./public"),
	}

	if AppEnv.MongoURI == "" {
		log.Fatal("ENV MONGO_URI is required")
	}
	if AppEnv.JWTSecret == "" {
		log.Fatal("ENV JWT_SECRET is required")
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}
