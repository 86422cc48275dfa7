package config

import (
	"log"
	"os"
	"slices"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	AppEnv       string
	IsStaging    bool
	IsProduction bool

	JWTSecret string
	Port      string

	// DatabaseURL selects postgres when set; sqlite file otherwise.
	DatabaseURL string
	SQLitePath  string

	// FHIRBaseURL is the upstream R4 server the /fhir proxy forwards to.
	FHIRBaseURL string

	UploadDir string

	// runtime tunables
	RateLimitWindowSeconds int
	RateLimitCapacity      int
	UserConcurrencyLimit   int
	DuplicateWindowSeconds int
	SenderCacheTTLSeconds  int
	SenderCacheMaxItems    int
	ReminderTickSeconds    int
)

// loadAppEnv loads .env for non-production environments only; production
// reads everything from the host environment.
func loadAppEnv() {
	AppEnv = os.Getenv("APP_ENV")
	if AppEnv == "production" {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file loaded: %v", err)
	}
}

func init() {
	loadAppEnv()

	AppEnv = os.Getenv("APP_ENV")
	if !slices.Contains([]string{"staging", "production"}, AppEnv) {
		AppEnv = "staging"
	}
	IsStaging = AppEnv == "staging"
	IsProduction = AppEnv == "production"

	JWTSecret = os.Getenv("JWT_SECRET_KEY")
	Port = os.Getenv("PORT")
	if Port == "" {
		Port = "8000"
	}

	DatabaseURL = os.Getenv("DATABASE_URL")
	SQLitePath = os.Getenv("SQLITE_PATH")
	if SQLitePath == "" {
		SQLitePath = "carebridge.db"
	}

	FHIRBaseURL = os.Getenv("FHIR_BASE_URL")
	if FHIRBaseURL == "" {
		FHIRBaseURL = "https://hapi.fhir.org/baseR4"
	}

	UploadDir = os.Getenv("UPLOAD_DIR")
	if UploadDir == "" {
		UploadDir = "./uploads"
	}

	RateLimitWindowSeconds = atoiOr(os.Getenv("RATE_LIMIT_WINDOW_SECONDS"), 10)
	RateLimitCapacity = atoiOr(os.Getenv("RATE_LIMIT_CAPACITY"), 5)
	UserConcurrencyLimit = atoiOr(os.Getenv("USER_CONCURRENCY_LIMIT"), 2)
	DuplicateWindowSeconds = atoiOr(os.Getenv("DUPLICATE_WINDOW_SECONDS"), 2)
	SenderCacheTTLSeconds = atoiOr(os.Getenv("SENDER_CACHE_TTL_SECONDS"), 600)
	SenderCacheMaxItems = atoiOr(os.Getenv("SENDER_CACHE_MAX_ITEMS"), 500)
	ReminderTickSeconds = atoiOr(os.Getenv("REMINDER_TICK_SECONDS"), 30)

	if IsProduction && JWTSecret == "" {
		log.Fatal("JWT_SECRET_KEY must be set in production")
	}

	log.Printf("[config] AppEnv=%s IsStaging=%v IsProduction=%v", AppEnv, IsStaging, IsProduction)
	log.Printf("[config] DatabasePresent=%v SQLitePath=%s", DatabaseURL != "", SQLitePath)
	log.Printf("[config] FHIRBaseURL=%s UploadDir=%s", FHIRBaseURL, UploadDir)
	log.Printf("[config] RateLimit window=%ds capacity=%d userConc=%d dupWindow=%ds reminderTick=%ds",
		RateLimitWindowSeconds, RateLimitCapacity, UserConcurrencyLimit, DuplicateWindowSeconds, ReminderTickSeconds)
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
