package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	LogFormat   string `validate:"oneof=text json"`
	LogLevel    string `validate:"oneof=debug info warn error"`
	WorkerCount int    `validate:"min=1,max=1024"`
	// CacheURL selects the output cache: a path, file://, mem://, redis:// or postgres://.
	CacheURL string `validate:"required"`
	// StatusPort enables the status HTTP server when positive.
	StatusPort int `validate:"min=0,max=65535"`
	// Events is "", "none", "gochannel" or "kafka://broker1,broker2".
	Events       string `validate:"omitempty,events"`
	OTelEndpoint string `validate:"omitempty,url"`
}

// DefaultConfig returns the configuration used when no flag is given.
func DefaultConfig() Config {
	return Config{
		LogFormat:   "text",
		LogLevel:    "info",
		WorkerCount: 4,
		CacheURL:    ".burstgraph/cache",
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("events", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "none" || s == "gochannel" || (strings.HasPrefix(s, "kafka://") && len(s) > len("kafka://"))
	})
	return v
}

// Validate checks every field and reports all violations at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed '%s' check (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}
