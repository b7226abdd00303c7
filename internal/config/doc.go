// Package config provides configuration loading and validation for the screening service.
// It handles YAML-based configuration with struct validation, optional .env loading,
// and environment overrides for model artifact locations.
package config
