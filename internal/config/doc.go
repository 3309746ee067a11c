// Package config loads and validates the resale-gateway YAML configuration,
// expanding ${VAR} environment references and parsing duration strings.
package config
