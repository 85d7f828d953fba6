// Package gitrepo contains helpers for working with Git remote URLs.
//
// It parses SSH and HTTPS remotes into owner and repository components and
// formats structured remotes back into canonical URLs for cloning.
package gitrepo
