package database

import "time"

// Config holds configuration for the database connection.
type Config struct {
	// Host is the database host.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the database port.
	Port int `mapstructure:"port" default:"3306"`
	// User is the database user.
	User string `mapstructure:"user" default:"root"`
	// Password is the database password.
	Password string `mapstructure:"password" default:""`
	// Name is the database name, or the DSN for sqlite.
	Name string `mapstructure:"name" default:"relsync"`
	// Driver is the database driver (mysql, sqlite).
	Driver string `mapstructure:"driver" default:"mysql"`
	// TimeoutSeconds bounds connection setup and I/O.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// SchemaCacheSeconds is how long table columns stay cached. 0 disables
	// the cache.
	SchemaCacheSeconds int `mapstructure:"schema_cache_seconds" default:"300"`
}

// SchemaCacheTTL returns SchemaCacheSeconds as a duration.
func (c Config) SchemaCacheTTL() time.Duration {
	return time.Duration(c.SchemaCacheSeconds) * time.Second
}
