// Package config holds the configuration of the settings service. It is read
// from the environment.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/datarhei/settings/backup"
	"github.com/datarhei/settings/http/cors"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config is the configuration of the settings service.
type Config struct {
	Name  string `env:"SETTINGS_NAME" envDefault:"hotel-settings" validate:"required" json:"name"`
	Label string `env:"SETTINGS_LABEL" envDefault:"Unknown Hotel" validate:"required" json:"label"`

	Log struct {
		Level    string `env:"SETTINGS_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error silent" json:"level"`
		Format   string `env:"SETTINGS_LOG_FORMAT" envDefault:"console" validate:"oneof=console json" json:"format"`
		MaxLines int    `env:"SETTINGS_LOG_MAX_LINES" envDefault:"1000" validate:"gte=0" json:"max_lines"`
	} `json:"log"`

	API struct {
		Address  string `env:"SETTINGS_API_ADDRESS" envDefault:":8080" validate:"required" json:"address"`
		ReadOnly bool   `env:"SETTINGS_API_READ_ONLY" json:"read_only"`
		Events   bool   `env:"SETTINGS_API_EVENTS" envDefault:"true" json:"events"`

		CORS struct {
			Origins []string `env:"SETTINGS_API_CORS_ORIGINS" envSeparator:"," envDefault:"*" json:"origins"`
		} `json:"cors"`
	} `json:"api"`

	Storage struct {
		Type string `env:"SETTINGS_STORAGE_TYPE" envDefault:"disk" validate:"oneof=mem disk bolt s3" json:"type"`
		Disk struct {
			Dir string `env:"SETTINGS_STORAGE_DISK_DIR" envDefault:"./data" json:"dir"`
		} `json:"disk"`
		Bolt struct {
			Path    string        `env:"SETTINGS_STORAGE_BOLT_PATH" envDefault:"./data/settings.db" json:"path"`
			Bucket  string        `env:"SETTINGS_STORAGE_BOLT_BUCKET" envDefault:"settings" json:"bucket"`
			Timeout time.Duration `env:"SETTINGS_STORAGE_BOLT_TIMEOUT" envDefault:"5s" validate:"gte=0" json:"timeout"`
		} `json:"bolt"`
		S3 struct {
			Endpoint        string `env:"SETTINGS_STORAGE_S3_ENDPOINT" json:"endpoint"`
			AccessKeyID     string `env:"SETTINGS_STORAGE_S3_ACCESS_KEY_ID" json:"access_key_id"`
			SecretAccessKey string `env:"SETTINGS_STORAGE_S3_SECRET_ACCESS_KEY" json:"secret_access_key"`
			Region          string `env:"SETTINGS_STORAGE_S3_REGION" json:"region"`
			Bucket          string `env:"SETTINGS_STORAGE_S3_BUCKET" json:"bucket"`
			UseSSL          bool   `env:"SETTINGS_STORAGE_S3_USE_SSL" envDefault:"true" json:"use_ssl"`
			Prefix          string `env:"SETTINGS_STORAGE_S3_PREFIX" json:"prefix"`
		} `json:"s3"`
	} `json:"storage"`

	Cache struct {
		TTL time.Duration `env:"SETTINGS_CACHE_TTL" envDefault:"5m" validate:"gt=0" json:"ttl"`
	} `json:"cache"`

	Retry struct {
		Attempts  int           `env:"SETTINGS_RETRY_ATTEMPTS" envDefault:"3" validate:"gte=1,lte=10" json:"attempts"`
		BaseDelay time.Duration `env:"SETTINGS_RETRY_BASE_DELAY" envDefault:"1s" validate:"gt=0" json:"base_delay"`
	} `json:"retry"`

	AutoSave struct {
		Enable bool          `env:"SETTINGS_AUTOSAVE" envDefault:"true" json:"enable"`
		Delay  time.Duration `env:"SETTINGS_AUTOSAVE_DELAY" envDefault:"3s" validate:"gt=0" json:"delay"`
	} `json:"autosave"`

	History struct {
		Limit int `env:"SETTINGS_HISTORY_LIMIT" envDefault:"50" validate:"gte=1" json:"limit"`
	} `json:"history"`

	Backup struct {
		Limit    int    `env:"SETTINGS_BACKUP_LIMIT" envDefault:"10" validate:"gte=1" json:"limit"`
		Schedule string `env:"SETTINGS_BACKUP_SCHEDULE" validate:"omitempty,schedule" json:"schedule"`
	} `json:"backup"`

	Metrics struct {
		Enable bool `env:"SETTINGS_METRICS" envDefault:"true" json:"enable"`
	} `json:"metrics"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom reads the configuration from the given variables instead of
// the environment.
func LoadFrom(environment map[string]string) (*Config, error) {
	return load(env.Options{Environment: environment})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report the name of the environment variable
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := field.Tag.Get("env")
		if len(name) == 0 {
			return field.Name
		}

		return name
	})

	v.RegisterValidation("schedule", func(fl validator.FieldLevel) bool {
		_, err := backup.NewScheduler(fl.Field().String())
		return err == nil
	})

	return v
}

// Validate checks the configuration for completeness and sanity. All
// problems are reported in the error.
func (c *Config) Validate() error {
	problems := []string{}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}

		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s: invalid value '%v' (%s)", fe.Field(), fe.Value(), constraint(fe)))
		}
	}

	if err := cors.Validate(c.API.CORS.Origins); err != nil {
		problems = append(problems, "SETTINGS_API_CORS_ORIGINS: "+err.Error())
	}

	switch c.Storage.Type {
	case "disk":
		if len(c.Storage.Disk.Dir) == 0 {
			problems = append(problems, "SETTINGS_STORAGE_DISK_DIR: required for disk storage")
		}
	case "bolt":
		if len(c.Storage.Bolt.Path) == 0 {
			problems = append(problems, "SETTINGS_STORAGE_BOLT_PATH: required for bolt storage")
		}
	case "s3":
		if len(c.Storage.S3.Endpoint) == 0 {
			problems = append(problems, "SETTINGS_STORAGE_S3_ENDPOINT: required for s3 storage")
		}
		if len(c.Storage.S3.Bucket) == 0 {
			problems = append(problems, "SETTINGS_STORAGE_S3_BUCKET: required for s3 storage")
		}
	}

	if len(problems) != 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return nil
}

func constraint(fe validator.FieldError) string {
	if len(fe.Param()) == 0 {
		return fe.Tag()
	}

	return fe.Tag() + "=" + fe.Param()
}

// Redacted returns a copy of the configuration without secrets, e.g. for
// logging.
func (c *Config) Redacted() *Config {
	r := *c

	if len(r.Storage.S3.SecretAccessKey) != 0 {
		r.Storage.S3.SecretAccessKey = "[redacted]"
	}

	return &r
}
