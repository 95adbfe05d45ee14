// Package config loads hermes-gateway configuration.
//
// Configuration comes from three layers, strongest first: an optional YAML
// file (with ${VAR} environment expansion), plain environment variables
// (PORT, REDIS_URL, JWT_SECRET, JWT_EXPIRY_HOURS, CONTROL_PLANE_URL,
// MEMORY_SERVICE_URL, IAM_SERVICE_URL), and local-development defaults.
// Every knob has a default, so `hermes-gateway serve` works on a laptop
// with nothing set; the dev JWT secret triggers a startup warning.
package config
