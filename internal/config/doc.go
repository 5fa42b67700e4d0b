// Package config handles configuration loading for ostiary.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from OSTIARY_CONFIG environment variable
//  2. ~/.config/ostiary/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	directory:
//	  bind_password: "${OSTIARY_BIND_PASSWORD}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Directory backend connection:
//
//	directory:
//	  base_url: "https://directory.example.org"
//	  bind_user: "admin"
//	  bind_password: "${OSTIARY_BIND_PASSWORD}"
//	  external_id_attribute: "matrix_id"
//	  refresh_interval: "6h"
//
// The refresh interval uses Go's time.ParseDuration syntax and must be at
// least 15 seconds.
//
// Matrix front-end:
//
//	matrix:
//	  homeserver: "https://matrix.example.org"
//	  user_id: "@ostiary:example.org"
//	  access_token: "${OSTIARY_MATRIX_TOKEN}"
//	  command_prefix: "!"
//	  admin_room: "!admins:example.org"
//	  enable_test_query: false
//
// Trust domains and privilege weights:
//
//	trust_domains:
//	  - room_id: "!staff:example.org"
//	    nickname: "staff"
//	    group_id: 3
//	  - room_id: "!guests:example.org"
//	    nickname: "guests"
//
//	weights:
//	  administrator: 5
//	  moderator: 3
//	  member: 2
//
// Domain order matters: privilege resolution scans domains in configuration
// order and keeps the first domain on weight ties. A membership state absent
// from the weights table counts as unprivileged.
package config
