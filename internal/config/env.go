package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/assembler/internal/logfields"
)

// LoadDotEnv loads .env and .env.local from dir into the process
// environment. Variables that are already set are left alone, so the
// first file wins over the second.
func LoadDotEnv(dir string) error {
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
		slog.Debug("Loaded environment file", logfields.Path(path))
	}
	return nil
}

// TargetEnvFile is the per-target env file pulled for local builds.
func TargetEnvFile(workDir, target string) string {
	return filepath.Join(workDir, ".vercel", ".env."+target+".local")
}

// BuilderEnv reads the per-target env file for builders without touching
// the process environment. A missing file yields an empty map.
func BuilderEnv(workDir, target string) (map[string]string, error) {
	path := TargetEnvFile(workDir, target)
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return env, nil
}
