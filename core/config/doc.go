// Package config provides configuration management for relsync.
//
// It utilizes Viper for loading configuration from environment variables,
// with an optional .env file loaded first through godotenv.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Database: driver (mysql, sqlite), connection details and schema cache TTL
//   - Log: Logging level and format
//
// Defaults come from the `default` struct tags of each section. LoadConfig
// validates the result, so a bad driver or log level fails at startup.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Database.Driver)
package config
