package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const defaultSecretsFile = "secrets.json"

// secretsPath returns WHISKERS_SECRETS_FILE, or secrets.json when one sits in
// the working directory, or "" for none.
func secretsPath() string {
	if p := envOr("WHISKERS_SECRETS_FILE", ""); p != "" {
		return p
	}
	if _, err := os.Stat(defaultSecretsFile); err == nil {
		return defaultSecretsFile
	}
	return ""
}

// loadSecretsFile decodes a flat key/value file. Nested values (for example a
// structured BIRTHDAYS_CONFIG) are re-encoded as JSON strings.
func loadSecretsFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("secrets file %s does not exist", path)
		}
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}

	raw := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", "":
		err = json.Unmarshal(data, &raw)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("unsupported secrets file type %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing secrets file %s: %w", path, err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		s, err := stringify(v)
		if err != nil {
			return nil, fmt.Errorf("secrets file key %s: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}

func stringify(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(t), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// layered consults secrets first and falls back to env.
func layered(secrets map[string]string, env Lookup) Lookup {
	return func(key string) (string, bool) {
		if v, ok := secrets[key]; ok && strings.TrimSpace(v) != "" {
			return v, true
		}
		return env(key)
	}
}
