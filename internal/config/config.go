package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Persistence strategies. Selected once at startup; nothing downstream
// branches on the mode again.
const (
	PersistModeRemote = "remote"
	PersistModeLocal  = "local"
)

type Config struct {
	PersistMode string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisURL string

	ServerPort string

	JWTSecret string

	AccessTokenMaxAge int

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	GeminiAPIKey string

	// Local persistence (PersistModeLocal).
	LocalStorePath  string
	LocalQuotaBytes int64

	FeedPageSize int
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	persistMode := os.Getenv("PERSIST_MODE")
	if persistMode != PersistModeRemote && persistMode != PersistModeLocal {
		persistMode = PersistModeLocal
	}

	accessTokenMaxAge, err := strconv.Atoi(os.Getenv("ACCESS_TOKEN_MAX_AGE"))
	if err != nil || accessTokenMaxAge <= 0 {
		accessTokenMaxAge = 900
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	localStorePath := os.Getenv("LOCAL_STORE_PATH")
	if localStorePath == "" {
		localStorePath = "instagen.db"
	}

	localQuotaBytes, err := strconv.ParseInt(os.Getenv("LOCAL_QUOTA_BYTES"), 10, 64)
	if err != nil || localQuotaBytes <= 0 {
		localQuotaBytes = 50 * 1024 * 1024
	}

	feedPageSize, err := strconv.Atoi(os.Getenv("FEED_PAGE_SIZE"))
	if err != nil || feedPageSize <= 0 {
		feedPageSize = 50
	}

	return &Config{
		PersistMode: persistMode,

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		RedisURL: os.Getenv("REDIS_URL"),

		ServerPort: serverPort,

		JWTSecret: os.Getenv("JWT_SECRET"),

		AccessTokenMaxAge: accessTokenMaxAge,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),

		LocalStorePath:  localStorePath,
		LocalQuotaBytes: localQuotaBytes,

		FeedPageSize: feedPageSize,
	}, nil
}
