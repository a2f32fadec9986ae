package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends the service knows how to construct.
const (
	StorageBackendMinio      = "minio"
	StorageBackendFilesystem = "filesystem"
)

// Face detector implementations the service knows how to construct.
const (
	FaceDetectorRekognition = "rekognition"
	FaceDetectorStatic      = "static"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// Validation rules.
	MaxFileSizeBytes       int64
	AllowedMimeTypes       []string
	MinResolutionWidth     int
	MinResolutionHeight    int
	BlurVarianceThreshold  float64
	MinFaceAreaRatio       float64
	DuplicateLookupEnabled bool

	// Processing.
	ThumbnailWidthPx     int
	UploadWorkers        int
	SignedURLTTL         time.Duration
	ExternalCallTimeout  time.Duration
	PostProcessQueueSize int

	// Object storage.
	StorageBackend string
	StoragePath    string
	StorageBaseURL string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Face detection.
	FaceDetector       string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// Request context.
	GeoIPDBPath   string
	DefaultLocale string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		MaxFileSizeBytes:       getEnvInt64("MAX_FILE_SIZE_BYTES", 5*1024*1024),
		AllowedMimeTypes:       getEnvList("ALLOWED_MIME_TYPES", []string{"image/jpeg", "image/png", "image/webp"}),
		MinResolutionWidth:     getEnvInt("MIN_RESOLUTION_WIDTH", 300),
		MinResolutionHeight:    getEnvInt("MIN_RESOLUTION_HEIGHT", 300),
		BlurVarianceThreshold:  getEnvFloat("BLUR_VARIANCE_THRESHOLD", 100),
		MinFaceAreaRatio:       getEnvFloat("MIN_FACE_AREA_RATIO", 0.1),
		DuplicateLookupEnabled: getEnvBool("DUPLICATE_LOOKUP_ENABLED", true),

		ThumbnailWidthPx:     getEnvInt("THUMBNAIL_WIDTH_PX", 150),
		UploadWorkers:        getEnvInt("UPLOAD_WORKERS", 4),
		SignedURLTTL:         time.Second * time.Duration(getEnvInt("SIGNED_URL_TTL_SECONDS", 300)),
		ExternalCallTimeout:  time.Second * time.Duration(getEnvInt("EXTERNAL_CALL_TIMEOUT_SECONDS", 30)),
		PostProcessQueueSize: getEnvInt("POST_PROCESS_QUEUE_SIZE", 256),

		StorageBackend: getEnv("STORAGE_BACKEND", StorageBackendFilesystem),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "images"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		FaceDetector:       getEnv("FACE_DETECTOR", FaceDetectorStatic),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),

		GeoIPDBPath:   os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.MaxFileSizeBytes <= 0 {
		return nil, fmt.Errorf("MAX_FILE_SIZE_BYTES must be positive")
	}
	if len(cfg.AllowedMimeTypes) == 0 {
		return nil, fmt.Errorf("ALLOWED_MIME_TYPES must not be empty")
	}
	if cfg.ThumbnailWidthPx <= 0 {
		return nil, fmt.Errorf("THUMBNAIL_WIDTH_PX must be positive")
	}

	switch cfg.StorageBackend {
	case StorageBackendFilesystem:
	case StorageBackendMinio:
		if cfg.MinioEndpoint == "" {
			return nil, fmt.Errorf("MINIO_ENDPOINT is required for the minio backend")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	switch cfg.FaceDetector {
	case FaceDetectorStatic, FaceDetectorRekognition:
	default:
		return nil, fmt.Errorf("unknown FACE_DETECTOR %q", cfg.FaceDetector)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
