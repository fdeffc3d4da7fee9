// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the breaker thresholds, logging and
// metrics settings, and the optional list of known peer URLs, and bridges the
// breaker section into fusebox options.
package config
