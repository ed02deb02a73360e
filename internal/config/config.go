package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Port      string
	DBPath    string // empty selects the in-memory store
	PrettyLog bool
}

// Load reads configuration from an optional config.yaml next to the binary,
// overridden by environment variables (PORT, DB_PATH, PRETTY_LOG).
func Load() Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./")
	viper.AutomaticEnv()

	viper.SetDefault("port", "8080")
	viper.SetDefault("db_path", "")
	viper.SetDefault("pretty_log", true)

	// a config file is optional; env and defaults cover everything
	_ = viper.ReadInConfig()

	return Config{
		Port:      viper.GetString("port"),
		DBPath:    viper.GetString("db_path"),
		PrettyLog: viper.GetBool("pretty_log"),
	}
}
