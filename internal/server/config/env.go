package config

import "github.com/ilyakaznacheev/cleanenv"

// parseEnv overlays TK_* variables declared in the env tags of Config.
// Unset variables leave fields untouched.
func parseEnv(config *Config) error {
	return cleanenv.ReadEnv(config)
}
