// Package envfile writes the flat KEY=VALUE files consumed by docker
// compose. Files are always regenerated whole: there is no merge or
// partial-update path.
package envfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ls-github123/openai-chat-deploy/internal/constants"
)

// Line is one resolved KEY=VALUE pair, written verbatim in document order.
type Line struct {
	Key   string
	Value string
}

// Render writes the lines to path, replacing any previous contents. The file
// is written to a temp file in the same directory and renamed into place so
// a crash never leaves a half-written credential file, and its mode is
// restricted to owner read/write.
func Render(path string, lines []Line) error {
	if len(lines) == 0 {
		return fmt.Errorf("refusing to write empty env file %s", path)
	}

	var b strings.Builder
	for _, line := range lines {
		if err := validate(line); err != nil {
			return err
		}
		b.WriteString(line.Key)
		b.WriteByte('=')
		b.WriteString(line.Value)
		b.WriteByte('\n')
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp env file: %w", err)
	}
	tmpPath := tmp.Name()

	// CreateTemp opens 0600 already; set it explicitly in case the
	// process umask implementation differs.
	if err := tmp.Chmod(constants.EnvFilePermissions); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to restrict env file permissions: %w", err)
	}

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write env file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close env file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace env file %s: %w", path, err)
	}

	return nil
}

// Load reads an env file back as a key/value map. Used by status reporting;
// the provisioning path itself never reads generated files back.
func Load(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return values, nil
}

func validate(line Line) error {
	if line.Key == "" {
		return fmt.Errorf("env line with empty key")
	}
	if strings.ContainsAny(line.Key, "= \t\n") {
		return fmt.Errorf("invalid env key %q", line.Key)
	}
	if strings.ContainsAny(line.Value, "\r\n") {
		return fmt.Errorf("env value for %s contains a line break", line.Key)
	}
	return nil
}
