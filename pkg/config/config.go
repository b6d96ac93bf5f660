package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const configFile = "config.toml"

// ConfigPath returns the path of the config file inside dir
// (the working directory when dir is empty).
func ConfigPath(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, configFile)
}

// SaveConfig writes cfg as TOML to the config file inside dir using an
// atomic write-then-rename so a crash cannot leave a half-written file.
func SaveConfig(dir string, cfg *Config) error {
	path := ConfigPath(dir)

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming config: %w", err)
	}
	return nil
}
