// Package config provides configuration management for the archiver.
//
// Configuration is loaded from a YAML file, completed with defaults and
// validated before use:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("archiver.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention ARCHIVER_SECTION_FIELD.
// For example:
//
//   - ARCHIVER_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - ARCHIVER_RULES_BACKEND overrides rules.backend
//   - ARCHIVER_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Values are applied in the following order (later overrides earlier):
//
//  1. Default values
//  2. YAML file
//  3. Environment variables
//
// # Hot Reload
//
// Watcher observes the configuration file and hands every successfully
// reloaded configuration to a callback. The running process uses it to
// change the log level without a restart; other sections take effect on the
// next start.
package config
