// Package config loads kcoidc settings from an optional YAML file, an
// optional .env file and the process environment.
//
// Files are read through an afero.Fs, so tests can use an in-memory
// filesystem. Environment variables are mapped onto nested keys by
// splitting on underscores: KCOIDC_INSECURE_SKIP_VERIFY binds to
// kcoidc.insecure_skip_verify and KCOIDC_LOGGING_LEVEL to
// kcoidc.logging.level.
//
//	var s settingsFile
//	err := config.Load("kcoidc", &s)
package config
