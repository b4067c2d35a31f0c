package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Depth            int      `json:"depth"`
	SearchCap        int      `json:"search_cap"`
	Confirm          *bool    `json:"confirm"`
	Skip             []string `json:"skip"`
	DebugLog         string   `json:"debug_log"`
	DebugLogMaxBytes int64    `json:"debug_log_max_bytes"`
}

func resolveConfigPath(explicit string) (string, bool, error) {
	if explicit != "" {
		return explicit, true, nil
	}
	for _, candidate := range defaultConfigPaths() {
		if fileExists(candidate) {
			return candidate, true, nil
		}
	}
	return "", false, nil
}

func loadConfig(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func defaultConfigPaths() []string {
	paths := []string{}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "duopane", "config.json"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "duopane", "config.json"))
	}
	return paths
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func skipSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	set := map[string]struct{}{}
	for _, name := range names {
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

func normalizeConfig(cfg Config) (Config, error) {
	if cfg.Depth < 0 {
		return Config{}, errors.New("config: depth must be >= 0")
	}
	if cfg.SearchCap < 0 {
		return Config{}, errors.New("config: search_cap must be >= 0")
	}
	if cfg.DebugLogMaxBytes < 0 {
		return Config{}, errors.New("config: debug_log_max_bytes must be >= 0")
	}
	return cfg, nil
}
