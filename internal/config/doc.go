// Package config loads, normalizes, and validates bindery's TOML
// configuration. A missing or unparseable file produces working defaults so
// the service can always start.
package config
