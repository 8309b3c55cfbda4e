package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/leapstack-labs/mdrsync/internal/mdr"
	"github.com/leapstack-labs/mdrsync/internal/table"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their config keys.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("separator", func(fl validator.FieldLevel) bool {
		_, err := table.ParseSeparator(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the configuration values that every command relies on.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return validationError(err)
	}
	return nil
}

// ValidateForSync checks what pull and push additionally need: an MDR to
// talk to, a namespace and a way to authenticate.
func (c *Config) ValidateForSync() error {
	var missing []string
	if c.MDR.BaseURL == "" {
		missing = append(missing, "mdr.base_url")
	}
	if c.MDR.Namespace == "" {
		missing = append(missing, "mdr.namespace")
	}
	if !c.Auth.Bypass && c.Auth.TokenURL == "" {
		missing = append(missing, "auth.token_url")
	}
	if len(missing) > 0 {
		return mdr.NewConfigurationErrorf("missing required settings: %s\nHint: set them in %s or via %s environment variables",
			strings.Join(missing, ", "), configFileNames[0], EnvPrefix)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return mdr.WrapConfigurationError("invalid configuration", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return mdr.NewConfigurationError("invalid configuration: " + strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	// Namespace is "Config.mdr.base_url"; drop the root type.
	key := fe.Namespace()
	if i := strings.Index(key, "."); i >= 0 {
		key = key[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "url":
		return fmt.Sprintf("%s must be an absolute URL, got %q", key, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value())
	case "separator":
		return fmt.Sprintf("%s must be \",\" or \";\", got %q", key, fe.Value())
	case "gte":
		return fmt.Sprintf("%s must not be negative", key)
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}
