// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation,
// so the feed token and database password can come from the environment or a
// .env file loaded by the command.
package config
