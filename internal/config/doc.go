// Package config resolves coachbook settings from flags, environment
// variables, an optional config file and .env files.
//
// Precedence, highest first: explicitly set flags, COACHBOOK_* environment
// variables (including those loaded from .env), the config file, defaults.
package config
