// Package config handles configuration loading from YAML files
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Render   RenderConfig   `yaml:"render"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Workers int    `yaml:"workers"`
	Debug   bool   `yaml:"debug"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Database       string `yaml:"database"`
	Charset        string `yaml:"charset"`
	PoolSize       int    `yaml:"pool_size"`
	PoolRecycle    int    `yaml:"pool_recycle"`
	ConnectRetries int    `yaml:"connect_retries"`
}

// RenderConfig holds the render pipeline's tunables: the compiled-template
// LRU size, and the on-disk template directory watched for hot reload.
type RenderConfig struct {
	CompiledCacheSize int    `yaml:"compiled_cache_size"`
	TemplateDir       string `yaml:"template_dir"`
	ReloadIntervalSec int    `yaml:"reload_interval_sec"`
}

// AuthConfig holds the admin JWT secret and token lifetime used to protect
// the template-push endpoint.
type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	TokenExpiry int    `yaml:"token_expiry_minutes"`
}

// RawConfig represents the raw YAML structure with environments
type RawConfig struct {
	Default     map[string]interface{} `yaml:"default"`
	Development map[string]interface{} `yaml:"development"`
	Production  map[string]interface{} `yaml:"production"`
}

var globalConfig *Config

// Load reads configPath as YAML with "default" plus per-environment sections,
// merges the section selected by GIN_MODE (falling back to ENV_FOR_DYNACONF)
// over the defaults, and decodes the result into a Config.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var raw RawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	// Determine environment from GIN_MODE or ENV_FOR_DYNACONF
	env := os.Getenv("GIN_MODE")
	if env == "" {
		env = os.Getenv("ENV_FOR_DYNACONF")
	}

	// Select environment config
	var envConfig map[string]interface{}
	if env == "release" || env == "production" {
		envConfig = raw.Production
	} else {
		envConfig = raw.Development
	}

	// Merge default with environment config
	merged := mergeConfig(raw.Default, envConfig)

	// Parse into Config struct
	cfg := &Config{
		Server: ServerConfig{
			Host:    getString(merged, "server.host", "127.0.0.1"),
			Port:    getIntEnv("SERVER_PORT", getInt(merged, "server.port", 8080)),
			Workers: getInt(merged, "server.workers", 1),
			Debug:   getBool(merged, "server.debug", false),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", getString(merged, "database.host", "localhost")),
			Port:           getIntEnv("DB_PORT", getInt(merged, "database.port", 3306)),
			User:           getEnv("DB_USER", getString(merged, "database.user", "root")),
			Password:       getEnv("DB_PASSWORD", getString(merged, "database.password", "")),
			Database:       getEnv("DB_NAME", getString(merged, "database.database", "rowpage")),
			Charset:        getString(merged, "database.charset", "utf8mb4"),
			PoolSize:       getInt(merged, "database.pool_size", 10),
			PoolRecycle:    getInt(merged, "database.pool_recycle", 3600),
			ConnectRetries: getInt(merged, "database.connect_retries", 5),
		},
		Render: RenderConfig{
			CompiledCacheSize: getInt(merged, "render.compiled_cache_size", 256),
			TemplateDir:       getString(merged, "render.template_dir", ""),
			ReloadIntervalSec: getInt(merged, "render.reload_interval_sec", 300),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", getString(merged, "auth.jwt_secret", "")),
			TokenExpiry: getInt(merged, "auth.token_expiry_minutes", 60),
		},
	}

	globalConfig = cfg
	return cfg, nil
}

// getEnv returns environment variable value or default
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getIntEnv returns environment variable as int or default
func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// TemplateDirPath resolves the render template directory relative to the
// project root, for the fsnotify template watcher.
func TemplateDirPath(projectRoot string) string {
	if globalConfig == nil || globalConfig.Render.TemplateDir == "" {
		return filepath.Join(projectRoot, "templates")
	}
	if filepath.IsAbs(globalConfig.Render.TemplateDir) {
		return globalConfig.Render.TemplateDir
	}
	return filepath.Join(projectRoot, globalConfig.Render.TemplateDir)
}

// Helper functions for nested map access
func mergeConfig(base, overlay map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for k, v := range base {
		result[k] = v
	}
	for k, v := range overlay {
		if baseMap, ok := result[k].(map[string]interface{}); ok {
			if overlayMap, ok := v.(map[string]interface{}); ok {
				result[k] = mergeConfig(baseMap, overlayMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

func getNestedValue(m map[string]interface{}, path string) interface{} {
	keys := splitPath(path)
	current := m
	for i, key := range keys {
		if i == len(keys)-1 {
			return current[key]
		}
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return nil
		}
	}
	return nil
}

func splitPath(path string) []string {
	var result []string
	current := ""
	for _, c := range path {
		if c == '.' {
			if current != "" {
				result = append(result, current)
				current = ""
			}
		} else {
			current += string(c)
		}
	}
	if current != "" {
		result = append(result, current)
	}
	return result
}

func getString(m map[string]interface{}, path, defaultVal string) string {
	if v := getNestedValue(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultVal
}

func getInt(m map[string]interface{}, path string, defaultVal int) int {
	if v := getNestedValue(m, path); v != nil {
		switch val := v.(type) {
		case int:
			return val
		case float64:
			return int(val)
		}
	}
	return defaultVal
}

func getBool(m map[string]interface{}, path string, defaultVal bool) bool {
	if v := getNestedValue(m, path); v != nil {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}
