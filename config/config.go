package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           int           `env:"PORT" envDefault:"8080"`
	Dsn            string        `env:"DSN" envDefault:"postgres://localhost:5432/campus_safety?sslmode=disable"`
	Env            string        `env:"ENV" envDefault:"production"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"20s"`

	UploadDir       string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	UploadURLPrefix string `env:"UPLOAD_URL_PREFIX" envDefault:"/uploads"`
	MaxUploadBytes  int64  `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`

	GCSBucket          string `env:"GCS_BUCKET"`
	GCSCredentialsFile string `env:"GCS_CREDENTIALS_FILE"`

	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`

	CampusBoundaryFile    string `env:"CAMPUS_BOUNDARY_FILE"`
	EnforceCampusBoundary bool   `env:"ENFORCE_CAMPUS_BOUNDARY" envDefault:"false"`
}

// StorageBackend names the photo store selected by the configuration.
// A bucket name wins over Cloudinary credentials; with neither set photos go
// to local disk.
func (c *Config) StorageBackend() string {
	switch {
	case c.GCSBucket != "":
		return "gcs"
	case c.CloudinaryCloudName != "":
		return "cloudinary"
	default:
		return "local"
	}
}

func New() *Config {
	if loadErr := godotenv.Load(".env"); loadErr != nil {
		log.Printf("[Env]: unable to load .env file %v", loadErr)
	}

	var cfg Config

	if parseErr := env.Parse(&cfg); parseErr != nil {
		log.Printf("[Env]: failed to parse environment variables: %v", parseErr)
	}

	return &cfg
}
