// Package config loads, validates, and reloads helperd application
// configuration.
//
// A configuration file is a YAML document with three required top level
// sections: Application (application-defined keys plus wake_interval), Daemon
// (user, group, pidfile, prevent_core), and Logging (a structured logging
// configuration that is merged onto repository defaults). Reads go through an
// immutable Snapshot so a reload either replaces the whole document or leaves
// the previous one in effect.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, defaulted values, and clear validation errors.
package config
