// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation,
// which is how the login password is normally supplied (auth.password: ${APP_PASSWORD}).
package config
