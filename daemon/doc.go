// Package daemon turns the current process into a background service.
//
// It covers the platform plumbing the lifecycle controller does not want to
// know about: re-launching the binary detached from the controlling terminal,
// holding a flock-based lock so only one instance runs, writing and removing
// the pid file, disabling core dumps, and dropping root privileges to the
// configured user and group.
package daemon
