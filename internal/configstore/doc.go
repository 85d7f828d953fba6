// Package configstore persists the watched repository configuration.
//
// Configurations are stored as JSON with owner-only file permissions because
// they carry the GitHub access token. Saves go through a temporary file and
// rename so a crash never leaves a truncated configuration behind.
package configstore
