// Package config loads process configuration from CAREFRONT_* environment
// variables, optionally seeded from a .env file.
package config
