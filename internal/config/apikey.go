package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/subosito/gotenv"
)

// ResolveAPIKey resolves a team.json api_key value. A literal value passes
// through unchanged; a value starting with "$NAME" is looked up in the
// project's .env file first, then the process environment, per team.json's
// documented convention.
func ResolveAPIKey(apiKey, projectDir string) string {
	if !strings.HasPrefix(apiKey, "$") {
		return apiKey
	}
	name := strings.TrimPrefix(apiKey, "$")

	envPath := filepath.Join(projectDir, ".env")
	if env, err := gotenv.Read(envPath); err == nil {
		if v, ok := env[name]; ok {
			return v
		}
	}
	return os.Getenv(name)
}
