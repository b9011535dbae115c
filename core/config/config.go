package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"relsync/core/database"
	"relsync/core/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config is the relsync runtime configuration, one section per core package.
type Config struct {
	// Log configures the zap logger.
	Log logger.Config `mapstructure:"log"`
	// Database selects the driver and connection behind the relation store.
	Database database.Config `mapstructure:"database"`
}

// LoadConfig reads dir/.env when present, then the environment, on top of
// the defaults declared in struct tags. Nested keys map to environment
// variables with dots replaced by underscores (database.schema_cache_seconds
// -> DATABASE_SCHEMA_CACHE_SECONDS).
func LoadConfig(dir string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Overload(filepath.Join(dir, ".env"))

	v := viper.New()
	setDefaults(v, reflect.TypeOf(Config{}), "")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would only fail later, at connect time or
// while building the logger.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("invalid database.driver %q: expected mysql or sqlite", c.Database.Driver)
	}
	if c.Database.Driver == "sqlite" && c.Database.Name == "" {
		return fmt.Errorf("database.name must hold the sqlite DSN")
	}
	if c.Database.SchemaCacheSeconds < 0 {
		return fmt.Errorf("database.schema_cache_seconds must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log.format %q: expected console or json", c.Log.Format)
	}
	return nil
}

// setDefaults registers every mapstructure key of t with its `default` tag.
// Registration also makes the key visible to AutomaticEnv during Unmarshal.
func setDefaults(v *viper.Viper, t reflect.Type, prefix string) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if field.Type.Kind() == reflect.Struct {
			setDefaults(v, field.Type, key)
			continue
		}
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
