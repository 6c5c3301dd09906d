package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// Settings is the resolved configuration for one run.
type Settings struct {
	Mode        string         `mapstructure:"mode" validate:"oneof=progression single single-shot"`
	OutDir      string         `mapstructure:"out" validate:"required"`
	Concurrency int            `mapstructure:"concurrency" validate:"gte=1,lte=64"`
	EnvFile     string         `mapstructure:"env_file"`
	Oracle      OracleSettings `mapstructure:"oracle"`
}

// OracleSettings configures the LLM judge.
type OracleSettings struct {
	Provider    string        `mapstructure:"provider" validate:"oneof=gemini openai anthropic openai-compatible"`
	Model       string        `mapstructure:"model" validate:"required"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIKeyEnv   string        `mapstructure:"api_key_env"`
	MaxTokens   int           `mapstructure:"max_tokens" validate:"gte=0"`
	Temperature float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Settings {
	return Settings{
		Mode:        "progression",
		OutDir:      "output",
		Concurrency: 1,
		Oracle: OracleSettings{
			Provider:    "gemini",
			Model:       "gemini-2.0-flash",
			MaxTokens:   8192,
			Temperature: 0.1,
		},
	}
}

// Decode overlays a raw config map onto Defaults. Unknown keys are rejected.
func Decode(raw map[string]any) (Settings, error) {
	s := Defaults()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Settings{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Settings{}, &ConfigurationError{Setting: "config", Reason: "cannot be decoded", Err: err}
	}
	return s, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every setting and reports the first violation.
func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ConfigurationError{Setting: "config", Reason: "is invalid", Err: err}
	}
	fe := verrs[0]
	return &ConfigurationError{
		Setting: settingPath(fe.Namespace()),
		Reason:  describe(fe),
	}
}

// settingPath drops the root struct name: "Settings.oracle.model" -> "oracle.model".
func settingPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "gte":
		return fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be at most %s, got %v", fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("must be a URL, got %q", fmt.Sprint(fe.Value()))
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
