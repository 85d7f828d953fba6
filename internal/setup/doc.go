// Package setup implements the interactive configuration wizard.
//
// The wizard collects the GitHub token, repository, branch, local path, and
// optional post-pull command, verifies repository access before persisting
// anything, and refuses to save settings it could not verify.
package setup
