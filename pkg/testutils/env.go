// Package testutils loads test settings for the adapter tests that need a
// live backend. Values come from the environment or a .env file at the
// module root.
package testutils

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/joho/godotenv"
)

var loadOnce sync.Once

// LoadEnv loads the .env file from the project root directory. Variables
// already set in the environment win.
func LoadEnv() error {
	var err error
	loadOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		envPath := filepath.Join(filepath.Dir(filename), "..", "..", ".env")
		if _, statErr := os.Stat(envPath); os.IsNotExist(statErr) {
			return
		}
		err = godotenv.Load(envPath)
	})
	return err
}

// RequireEnv returns the value of key or skips the test when it is unset.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	if err := LoadEnv(); err != nil {
		t.Fatalf("failed to load .env file: %v", err)
	}
	v := os.Getenv(key)
	if v == "" {
		t.Skip(key + " not set")
	}
	return v
}

// GetEnvOrDefault gets an environment variable with a default value.
func GetEnvOrDefault(key, defaultValue string) string {
	_ = LoadEnv()
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
