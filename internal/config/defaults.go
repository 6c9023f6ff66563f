package config

import "github.com/spf13/viper"

// setDefaults sets all default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")

	// Database defaults
	v.SetDefault("database.backend", BackendPebble)
	v.SetDefault("database.name", "amm")
	v.SetDefault("database.pool_cache_size", 256)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}
