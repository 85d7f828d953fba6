// Package updater synchronizes the local checkout with its remote branch.
//
// It shells out to git for cloning and pulling and to the POSIX shell for the
// optional post-update command, keeping the repository itself the single
// source of truth for checkout state.
package updater
