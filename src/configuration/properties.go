package configuration

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type (
	Properties struct {
		LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
		LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

		S3     S3Properties         `envPrefix:"S3_"`
		Server HttpServerProperties `envPrefix:"HTTP_"`
	}

	HttpServerProperties struct {
		Name            string        `env:"NAME" envDefault:"imageserv"`
		Port            string        `env:"PORT" envDefault:"8088"`
		Mode            string        `env:"MODE" envDefault:"debug"`
		ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
		MaxUploadMB     int64         `env:"MAX_UPLOAD_MB" envDefault:"8"`
		CorsOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
		Pprof           bool          `env:"PPROF" envDefault:"false"`
	}

	// S3Properties describe the object store. Everything but the driver is
	// required; the service refuses to start without it.
	S3Properties struct {
		Driver    string `env:"DRIVER" envDefault:"minio"`
		Region    string `env:"REGION,notEmpty"`
		AccessKey string `env:"ACCESS_KEY,notEmpty"`
		SecretKey string `env:"SECRET_KEY,notEmpty"`
		// Endpoint is the externally resolvable base URL, e.g. http://localhost:4566.
		// Image URLs are built from it.
		Endpoint string `env:"ENDPOINT,notEmpty"`
		Bucket   string `env:"BUCKET,notEmpty"`
	}
)

const (
	DriverMinio  = "minio"
	DriverAWS    = "aws"
	DriverMemory = "memory"
)

// ReadProperties loads .env (if any) and parses the process environment.
func ReadProperties() (*Properties, error) {
	// .env is optional, the real environment always wins
	_ = godotenv.Load()
	return parse(env.Options{})
}

// ParseProperties parses the given variables instead of the process environment.
func ParseProperties(environment map[string]string) (*Properties, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (*Properties, error) {
	config := &Properties{}
	if err := env.Parse(config, opts); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}
	switch config.S3.Driver {
	case DriverMinio, DriverAWS, DriverMemory:
	default:
		return nil, fmt.Errorf("read config error: unknown S3_DRIVER %q", config.S3.Driver)
	}
	return config, nil
}

// MaxUploadBytes is the multipart memory limit handed to gin.
func (h HttpServerProperties) MaxUploadBytes() int64 {
	return h.MaxUploadMB << 20
}
