// Package config loads the player configuration.
//
// Values come from Default, then an optional YAML file, then
// SPEECHPLAYER_* environment variables, then command line flags. Validate
// is run once everything is merged.
package config
