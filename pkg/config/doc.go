// Package config provides configuration management for the pricelist tools.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. Rule documents themselves
// are not configuration: they are loaded by package rules.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
//  3. Once per process, shared by every command through GetConfig:
//     cfg, err := config.Load(flagPath)
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention PRICELIST_SECTION_FIELD:
//
//   - PRICELIST_RULES_FILE_PATH overrides rules.file_path
//   - PRICELIST_AUDIT_SQLITE_DRIVER overrides audit.sqlite.driver
//   - PRICELIST_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// Validation errors include field paths:
//
//	configuration validation failed with 2 errors:
//	  - rules.git.repository: repository is required when source is 'git'
//	  - audit.retention.prune_schedule: invalid cron expression "daily": ...
//
// # Example Configuration
//
//	rules:
//	  source: file
//	  file_path: ./rules/perfume.yaml
//
//	input:
//	  header_rows: 1
//	  csv_encoding: windows-1251
//
//	audit:
//	  enabled: true
//	  backend: sqlite
//	  sqlite:
//	    path: data/audit.db
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: console
package config
