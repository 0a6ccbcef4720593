package config

import "fmt"

// ErrRead the config file could not be read
func ErrRead(path string, err error) error {
	return fmt.Errorf("config: read %s failed: %w", path, err)
}

// ErrParse the config file is not valid TOML for Config
func ErrParse(path string, err error) error {
	return fmt.Errorf("config: parse %s failed: %w", path, err)
}

// ErrEnvFile a dotenv file could not be loaded
func ErrEnvFile(err error) error {
	return fmt.Errorf("config: load env file failed: %w", err)
}

// ErrInvalidDuration a duration string could not be parsed
func ErrInvalidDuration(key, value string, err error) error {
	return fmt.Errorf("config: invalid duration %q for %s: %w", value, key, err)
}

// ErrInvalid wraps a section validation error
func ErrInvalid(section string, err error) error {
	return fmt.Errorf("config: [%s]: %w", section, err)
}
