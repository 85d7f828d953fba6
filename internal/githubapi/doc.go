// Package githubapi talks to the GitHub REST API on behalf of the watcher.
//
// It verifies repository access during setup and resolves branch tip commit
// SHAs during polling. Network failures surface as errors the polling loop
// treats as transient.
package githubapi
