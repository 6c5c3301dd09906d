package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv loads KEY=value pairs from path into the process environment.
// Variables that are already set keep their values. A missing file is not
// an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return &ConfigurationError{Setting: "env", Reason: "cannot load " + path, Err: err}
	}
	return nil
}
