// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Any field can also be overridden with a NAKAMA_<SECTION>_<FIELD> variable,
// for example NAKAMA_SERVER_HOST or NAKAMA_DATABASE_PASSWORD. Overrides are
// applied after the file is read and before defaults.
package config
