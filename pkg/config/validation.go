package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	switch cfg.Registry.Type {
	case "postgres":
		if cfg.Registry.Postgres["dsn"] == nil {
			return fmt.Errorf("registry.postgres: dsn is required")
		}
	case "mysql":
		if cfg.Registry.MySQL["dsn"] == nil {
			return fmt.Errorf("registry.mysql: dsn is required")
		}
	}

	if cfg.Datastore.Artifacts.Type == "s3" && cfg.Datastore.Artifacts.S3["bucket"] == nil {
		return fmt.Errorf("datastore.artifacts.s3: bucket is required")
	}

	if cfg.Datastore.Records.Type == "memory" && cfg.Datastore.Artifacts.Type != "memory" {
		return fmt.Errorf("datastore: memory records require memory artifacts")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
